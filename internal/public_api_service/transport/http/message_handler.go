package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/jdialer/commhub/internal/messaging_service/app"
	"github.com/jdialer/commhub/internal/messaging_service/domain"
	"github.com/jdialer/commhub/internal/public_api_service/middleware"
)

// DeliveryResolver chooses SMS, MMS or RCS for a message.
type DeliveryResolver interface {
	Resolve(ctx context.Context, rawRecipient string, text *string, attachmentURIs []string) domain.MessageDeliveryDecision
}

// AttachmentValidator applies the attachment policy.
type AttachmentValidator interface {
	Validate(ctx context.Context, uris []string) domain.MessageAttachmentValidation
}

// MessageSender enqueues outbound messages.
type MessageSender interface {
	SendWithPolicy(ctx context.Context, req app.SendRequest) (*domain.OutboundMessageJob, error)
}

type MessageHandler struct {
	resolver  DeliveryResolver
	validator AttachmentValidator
	sender    MessageSender
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewMessageHandler(resolver DeliveryResolver, attachments AttachmentValidator, sender MessageSender, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		resolver:  resolver,
		validator: attachments,
		sender:    sender,
		validate:  newValidator(),
		logger:    logger.With("handler", "message"),
	}
}

// RegisterRoutes registers message routes with the given router.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/messages/resolve", h.handleResolve)
	r.Post("/messages/attachments/validate", h.handleValidateAttachments)
	r.Post("/messages/send", h.handleSendMessage)
}

func (h *MessageHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", chi_middleware.GetReqID(r.Context()))
	var req MessageRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, logger, http.StatusOK, h.resolver.Resolve(r.Context(), req.Recipient, req.Text, req.AttachmentURIs))
}

func (h *MessageHandler) handleValidateAttachments(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", chi_middleware.GetReqID(r.Context()))
	var req ValidateAttachmentsRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, logger, http.StatusOK, newAttachmentValidationResponse(h.validator.Validate(r.Context(), req.URIs)))
}

func (h *MessageHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))
	if authUser, ok := ctx.Value(middleware.AuthenticatedUserContextKey).(middleware.AuthenticatedUser); ok {
		logger = logger.With("auth_user_id", authUser.ID)
	}

	var req MessageRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.sender.SendWithPolicy(ctx, app.SendRequest{
		Recipient:      req.Recipient,
		Text:           req.Text,
		AttachmentURIs: req.AttachmentURIs,
		ThreadID:       req.ThreadID,
	})
	if err != nil {
		var rejected *domain.AttachmentRejectedError
		switch {
		case errors.As(err, &rejected):
			writeJSON(w, logger, http.StatusUnprocessableEntity, newAttachmentValidationResponse(rejected.Rejection))
		case errors.Is(err, domain.ErrEmptyMessage):
			jsonError(w, logger, "Message has no text and no attachments", http.StatusBadRequest)
		case errors.Is(err, domain.ErrInvalidRecipient):
			jsonError(w, logger, "Invalid recipient", http.StatusBadRequest)
		default:
			logger.ErrorContext(ctx, "Failed to queue message", "error", err)
			jsonError(w, logger, "Failed to send message to processing queue", http.StatusInternalServerError)
		}
		return
	}

	logger.InfoContext(ctx, "Outbound message queued", "job_id", job.JobID, "mode", job.Decision.Mode)
	writeJSON(w, logger, http.StatusAccepted, job)
}
