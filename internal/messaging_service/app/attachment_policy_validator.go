package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jdialer/commhub/internal/messaging_service/domain"
)

// documentSafePrefixes is the secondary allow-list applied when undeclared
// document types are refused.
var documentSafePrefixes = []string{"image/", "video/", "audio/", "text/"}

// AttachmentPolicyValidator checks message media against an AttachmentPolicy.
type AttachmentPolicyValidator struct {
	policy    domain.AttachmentPolicy
	inspector domain.MediaInspector
	logger    *slog.Logger
}

func NewAttachmentPolicyValidator(policy domain.AttachmentPolicy, inspector domain.MediaInspector, logger *slog.Logger) *AttachmentPolicyValidator {
	return &AttachmentPolicyValidator{
		policy:    policy,
		inspector: inspector,
		logger:    logger.With("component", "attachment_policy_validator"),
	}
}

// Validate returns AttachmentsAccepted with the inspected metadata, or the
// first rejection hit.
func (v *AttachmentPolicyValidator) Validate(ctx context.Context, uris []string) domain.MessageAttachmentValidation {
	result := v.validate(ctx, uris)
	switch res := result.(type) {
	case domain.AttachmentsAccepted:
		attachmentValidationsCounter.WithLabelValues("accepted").Inc()
	case domain.AttachmentsRejected:
		attachmentValidationsCounter.WithLabelValues("rejected").Inc()
		v.logger.InfoContext(ctx, "Attachments rejected", "reason", res.Reason, "rejected", len(res.RejectedURIs))
	}
	return result
}

func (v *AttachmentPolicyValidator) validate(ctx context.Context, uris []string) domain.MessageAttachmentValidation {
	if len(uris) == 0 {
		return domain.AttachmentsAccepted{Attachments: []domain.MessageAttachmentMeta{}}
	}
	if len(uris) > v.policy.MaxAttachments {
		return domain.AttachmentsRejected{Reason: domain.ReasonAttachmentLimit, RejectedURIs: uris}
	}

	metadata := v.inspect(ctx, uris)
	if len(metadata) != len(uris) {
		return domain.AttachmentsRejected{Reason: domain.ReasonNotInspectable, RejectedURIs: missingURIs(uris, metadata)}
	}

	var total int64
	for _, item := range metadata {
		reject := func(reason string) domain.MessageAttachmentValidation {
			return domain.AttachmentsRejected{Reason: reason, RejectedURIs: []string{item.URI}}
		}

		if item.Bytes > v.policy.MaxSingleAttachmentBytes {
			blocked := item.Bytes
			return domain.AttachmentsRejected{
				Reason:       domain.AttachmentTooLargeReason(item.URI),
				RejectedURIs: []string{item.URI},
				BlockedBytes: &blocked,
			}
		}

		mime := ""
		if item.MimeType != nil {
			mime = strings.ToLower(strings.TrimSpace(*item.MimeType))
		}
		if mime == "" {
			return reject(domain.ReasonMissingMime)
		}

		allowed := hasAnyPrefix(mime, v.policy.AllowedMimePrefixes)
		if v.policy.DisallowDocumentByDefault && !allowed && !hasAnyPrefix(mime, documentSafePrefixes) {
			return reject(domain.UnsupportedTypeReason(mime))
		}
		if len(v.policy.AllowedMimePrefixes) > 0 && !allowed {
			return reject(domain.ReasonTypeNotPermitted)
		}

		if hasAnyPrefix(item.URI, v.policy.DisallowedSchemes) {
			return reject(domain.ReasonSourceNotPermitted)
		}

		if strings.HasPrefix(mime, "image/") && v.policy.MaxImageWidth > 0 && v.policy.MaxImageHeight > 0 {
			if (item.Width != nil && *item.Width > v.policy.MaxImageWidth) ||
				(item.Height != nil && *item.Height > v.policy.MaxImageHeight) {
				return reject(domain.ReasonImageTooLarge)
			}
		}

		total += item.Bytes
		if total > v.policy.MaxTotalBytes {
			blocked := total
			return domain.AttachmentsRejected{
				Reason:       domain.ReasonCombinedQuotaReached,
				RejectedURIs: uris,
				BlockedBytes: &blocked,
			}
		}
	}

	return domain.AttachmentsAccepted{Attachments: metadata}
}

func (v *AttachmentPolicyValidator) inspect(ctx context.Context, uris []string) []domain.MessageAttachmentMeta {
	if v.inspector == nil {
		return nil
	}
	metadata, err := v.inspector.Inspect(ctx, uris)
	if err != nil {
		v.logger.WarnContext(ctx, "Attachment inspection failed", "error", err, "count", len(uris))
		return nil
	}
	return metadata
}

func missingURIs(uris []string, metadata []domain.MessageAttachmentMeta) []string {
	seen := make(map[string]struct{}, len(metadata))
	for _, m := range metadata {
		seen[m.URI] = struct{}{}
	}
	missing := []string{}
	for _, u := range uris {
		if _, ok := seen[u]; !ok {
			missing = append(missing, u)
		}
	}
	return missing
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
