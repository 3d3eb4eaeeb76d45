package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jdialer/commhub/internal/messaging_service/domain"
)

// Publisher is the slice of the NATS client the sender needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// SendRequest is one outbound message.
type SendRequest struct {
	Recipient      string
	Text           *string
	AttachmentURIs []string
	ThreadID       *string
}

// MessageSender validates, resolves and enqueues outbound messages.
type MessageSender struct {
	validator     *AttachmentPolicyValidator
	resolver      *MessageDeliveryResolver
	publisher     Publisher
	subjectPrefix string
	logger        *slog.Logger
	now           func() time.Time
}

// NewMessageSender publishes jobs under subjectPrefix, "messages.outbound"
// when empty.
func NewMessageSender(
	validator *AttachmentPolicyValidator,
	resolver *MessageDeliveryResolver,
	publisher Publisher,
	subjectPrefix string,
	logger *slog.Logger,
) *MessageSender {
	if subjectPrefix == "" {
		subjectPrefix = "messages.outbound"
	}
	return &MessageSender{
		validator:     validator,
		resolver:      resolver,
		publisher:     publisher,
		subjectPrefix: subjectPrefix,
		logger:        logger.With("component", "message_sender"),
		now:           time.Now,
	}
}

// SubjectFor returns the NATS subject jobs of the given mode are published on.
func (s *MessageSender) SubjectFor(mode domain.MessageMode) string {
	return s.subjectPrefix + "." + strings.ToLower(string(mode))
}

// SendWithPolicy refuses empty messages and policy-rejected attachments, then
// publishes the job on the subject of the resolved mode.
func (s *MessageSender) SendWithPolicy(ctx context.Context, req SendRequest) (*domain.OutboundMessageJob, error) {
	var text *string
	if req.Text != nil {
		if trimmed := strings.TrimSpace(*req.Text); trimmed != "" {
			text = &trimmed
		}
	}
	if text == nil && len(req.AttachmentURIs) == 0 {
		return nil, domain.ErrEmptyMessage
	}

	var attachments []domain.MessageAttachmentMeta
	if len(req.AttachmentURIs) > 0 {
		switch res := s.validator.Validate(ctx, req.AttachmentURIs).(type) {
		case domain.AttachmentsRejected:
			outboundMessagesCounter.WithLabelValues("", "rejected").Inc()
			return nil, &domain.AttachmentRejectedError{Rejection: res}
		case domain.AttachmentsAccepted:
			attachments = res.Attachments
		}
	}

	decision := s.resolver.Resolve(ctx, req.Recipient, text, req.AttachmentURIs)
	if decision.Reason == domain.ReasonInvalidRecipient {
		outboundMessagesCounter.WithLabelValues(string(decision.Mode), "rejected").Inc()
		return nil, domain.ErrInvalidRecipient
	}

	job := &domain.OutboundMessageJob{
		JobID:         uuid.NewString(),
		Recipient:     decision.Recipient,
		Text:          text,
		ThreadID:      req.ThreadID,
		Attachments:   attachments,
		Decision:      decision,
		SubmittedAtMs: s.now().UTC().UnixMilli(),
	}
	subject := s.SubjectFor(decision.Mode)

	payload, err := json.Marshal(job)
	if err != nil {
		outboundMessagesCounter.WithLabelValues(string(decision.Mode), "error_marshal").Inc()
		s.logger.ErrorContext(ctx, "Failed to marshal outbound message job", "error", err, "job_id", job.JobID)
		return nil, fmt.Errorf("marshal outbound job: %w", err)
	}

	s.logger.InfoContext(ctx, "Publishing outbound message job", "job_id", job.JobID, "subject", subject, "mode", decision.Mode)
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		outboundMessagesCounter.WithLabelValues(string(decision.Mode), "error_publish").Inc()
		s.logger.ErrorContext(ctx, "Failed to publish outbound message job", "error", err, "job_id", job.JobID, "subject", subject)
		return nil, fmt.Errorf("NATS publish: %w", err)
	}
	outboundMessagesCounter.WithLabelValues(string(decision.Mode), "published").Inc()
	return job, nil
}
