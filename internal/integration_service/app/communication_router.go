package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
)

// Launcher dispatches through the registry. GatedRegistry implements it.
type Launcher interface {
	LaunchPreferred(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, text *string) core_domain.IntentResult
	LaunchForPlatform(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, platformID string, text *string) core_domain.IntentResult
}

// linkedMessagePlatforms are tried in this order before the preferred adapter.
var linkedMessagePlatforms = []string{domain.PlatformWhatsApp, domain.PlatformTelegram, domain.PlatformSignal}

// CommunicationRouter routes contact actions to external platforms, favouring
// platforms the contact has been reached on before.
type CommunicationRouter struct {
	launcher Launcher
	links    domain.ConversationLinkRepository
	logger   *slog.Logger
}

func NewCommunicationRouter(launcher Launcher, links domain.ConversationLinkRepository, logger *slog.Logger) *CommunicationRouter {
	return &CommunicationRouter{
		launcher: launcher,
		links:    links,
		logger:   logger.With("component", "communication_router"),
	}
}

// LaunchMessage tries each linked platform in order and returns the first
// success. Otherwise it falls back to the preferred MESSAGE adapter.
func (r *CommunicationRouter) LaunchMessage(ctx context.Context, target core_domain.CommunicationTarget, text *string) core_domain.IntentResult {
	for _, platform := range r.eligiblePlatforms(ctx, target.ContactID) {
		res := r.launcher.LaunchForPlatform(ctx, target, core_domain.ActionMessage, platform, text)
		if core_domain.IsSuccess(res) {
			return res
		}
		r.logger.DebugContext(ctx, "Linked platform did not launch, trying next", "platform", platform, "status", res.Status())
	}
	return r.launcher.LaunchPreferred(ctx, target, core_domain.ActionMessage, text)
}

func (r *CommunicationRouter) LaunchCall(ctx context.Context, target core_domain.CommunicationTarget) core_domain.IntentResult {
	return r.launcher.LaunchPreferred(ctx, target, core_domain.ActionCall, nil)
}

func (r *CommunicationRouter) LaunchEmail(ctx context.Context, target core_domain.CommunicationTarget, text *string) core_domain.IntentResult {
	return r.launcher.LaunchPreferred(ctx, target, core_domain.ActionEmail, text)
}

// Launch dispatches action to the matching router operation.
func (r *CommunicationRouter) Launch(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, text *string) core_domain.IntentResult {
	switch action {
	case core_domain.ActionMessage:
		return r.LaunchMessage(ctx, target, text)
	case core_domain.ActionCall:
		return r.LaunchCall(ctx, target)
	default:
		return r.LaunchEmail(ctx, target, text)
	}
}

// eligiblePlatforms returns the linked platforms that are enabled and not
// blocked. Link store errors are logged and treated as no link.
func (r *CommunicationRouter) eligiblePlatforms(ctx context.Context, contactID *int64) []string {
	if contactID == nil || r.links == nil {
		return nil
	}
	var out []string
	for _, platform := range linkedMessagePlatforms {
		link, err := r.links.GetLink(ctx, *contactID, platform)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				r.logger.WarnContext(ctx, "Failed to read conversation link", "contact_id", *contactID, "platform", platform, "error", err)
			}
			continue
		}
		if link.Eligible() {
			out = append(out, platform)
		}
	}
	return out
}
