package app

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/messaging_service/domain"
)

// MessageDeliveryResolver picks SMS, MMS or RCS for an outbound message.
type MessageDeliveryResolver struct {
	policy domain.MessageDeliveryPolicy
	rcs    domain.RcsCapabilityProvider
	logger *slog.Logger
}

func NewMessageDeliveryResolver(policy domain.MessageDeliveryPolicy, rcs domain.RcsCapabilityProvider, logger *slog.Logger) *MessageDeliveryResolver {
	return &MessageDeliveryResolver{
		policy: policy,
		rcs:    rcs,
		logger: logger.With("component", "message_delivery_resolver"),
	}
}

// Resolve runs the delivery decision tree. The first matching rule wins and
// an RCS capability failure only makes RCS unusable.
func (r *MessageDeliveryResolver) Resolve(ctx context.Context, rawRecipient string, text *string, attachmentURIs []string) domain.MessageDeliveryDecision {
	decision := r.resolve(ctx, rawRecipient, text, attachmentURIs)
	messageModeDecisionsCounter.WithLabelValues(string(decision.Mode)).Inc()
	r.logger.DebugContext(ctx, "Message delivery resolved",
		"mode", decision.Mode, "reason", decision.Reason, "attachments", len(attachmentURIs))
	return decision
}

func (r *MessageDeliveryResolver) resolve(ctx context.Context, rawRecipient string, text *string, attachmentURIs []string) domain.MessageDeliveryDecision {
	recipient := normalizeRecipient(rawRecipient)
	if recipient == "" {
		return domain.MessageDeliveryDecision{
			Recipient:      rawRecipient,
			Mode:           domain.ModeSMS,
			UseFallbackMms: true,
			Reason:         domain.ReasonInvalidRecipient,
		}
	}

	// Length is in runes, so a Persian SMS counts like a Latin one.
	length := 0
	if text != nil {
		length = utf8.RuneCountInString(strings.TrimSpace(*text))
	}

	mms := func(reason string) domain.MessageDeliveryDecision {
		return domain.MessageDeliveryDecision{
			Recipient:      recipient,
			Mode:           domain.ModeMMS,
			UseFallbackMms: true,
			Reason:         reason,
		}
	}
	if length > r.policy.MaxSmsCharacters {
		return mms(domain.ReasonOverSmsThreshold)
	}
	if r.policy.RequiresAttachmentAsMms && len(attachmentURIs) > 0 {
		return mms(domain.ReasonAttachmentsPresent)
	}
	if length > r.policy.MmsFallbackLength {
		return mms(domain.ReasonLongFormBody)
	}

	capability, known := r.capability(ctx)
	usable := r.policy.PreferRcs && known && capability.Usable()

	// RCS is only chosen when SMS stays available as a fallback.
	if r.policy.PreferRcsForShortMessages && usable && r.policy.FallbackToSmsWhenRcsUnavailable {
		reason := domain.ReasonRcsCarrier
		if capability.SupportsRcsMmsFallback {
			reason = domain.ReasonRcsDefaultApp
		}
		return domain.MessageDeliveryDecision{
			Recipient:              recipient,
			Mode:                   domain.ModeRCS,
			SecureChannelPreferred: true,
			Reason:                 reason,
		}
	}

	reason := domain.ReasonRcsNotAvailable
	if usable {
		reason = domain.ReasonPolicyPrefersSms
	}
	return domain.MessageDeliveryDecision{
		Recipient:      recipient,
		Mode:           domain.ModeSMS,
		UseFallbackMms: !r.policy.FallbackToSmsWhenRcsUnavailable,
		Reason:         reason,
	}
}

func (r *MessageDeliveryResolver) capability(ctx context.Context) (domain.RcsCapability, bool) {
	if r.rcs == nil {
		return domain.RcsCapability{}, false
	}
	c, err := r.rcs.RcsCapability(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "RCS capability unavailable, treating RCS as unusable", "error", err)
		return domain.RcsCapability{}, false
	}
	return c, true
}

// normalizeRecipient keeps phone numbers in normalized form and passes other
// handles (such as email-to-MMS addresses) through trimmed.
func normalizeRecipient(raw string) string {
	if n := core_domain.NormalizeNumber(raw); n != "" {
		return n
	}
	return strings.TrimSpace(raw)
}
