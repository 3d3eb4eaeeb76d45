package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/jdialer/commhub/internal/public_api_service/middleware"
	"github.com/jdialer/commhub/internal/voip_service/domain"
)

// RecordingGate checks and starts call recordings.
type RecordingGate interface {
	Validate(ctx context.Context, session domain.RecordingSession) (domain.RecordingDecision, error)
	Start(ctx context.Context, session domain.RecordingSession) (domain.RecordingDecision, *domain.CallRecording, error)
}

type RecordingHandler struct {
	gate     RecordingGate
	policy   domain.RecordingPolicyStore
	validate *validator.Validate
	logger   *slog.Logger
}

func NewRecordingHandler(gate RecordingGate, policy domain.RecordingPolicyStore, logger *slog.Logger) *RecordingHandler {
	return &RecordingHandler{gate: gate, policy: policy, validate: newValidator(), logger: logger.With("handler", "recording")}
}

// RegisterRoutes registers recording routes with the given router.
func (h *RecordingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/calls/recordings/validate", h.handleValidate)
	r.Post("/calls/recordings", h.handleStart)
	r.Get("/calls/recordings/policy", h.handleGetPolicy)
	r.With(middleware.RequirePermission(middleware.PermissionManageRecordings, h.logger)).
		Put("/calls/recordings/policy", h.handleSetPolicy)
}

func (h *RecordingHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req RecordingRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	decision, err := h.gate.Validate(ctx, req.session())
	if err != nil {
		logger.ErrorContext(ctx, "Recording policy check failed", "error", err)
		jsonError(w, logger, "Recording policy unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, logger, http.StatusOK, newRecordingResponse(decision, nil))
}

// handleStart answers 201 when the recording was logged and 403 with the
// denial otherwise.
func (h *RecordingHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req RecordingRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	decision, rec, err := h.gate.Start(ctx, req.session())
	if err != nil {
		logger.ErrorContext(ctx, "Failed to start recording", "error", err)
		jsonError(w, logger, "Failed to start recording", http.StatusInternalServerError)
		return
	}
	status := http.StatusCreated
	if _, denied := decision.(domain.RecordingDenied); denied {
		status = http.StatusForbidden
	}
	writeJSON(w, logger, status, newRecordingResponse(decision, rec))
}

func (h *RecordingHandler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	policy, err := h.policy.Policy(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read recording policy", "error", err)
		jsonError(w, logger, "Recording policy unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, logger, http.StatusOK, policy)
}

func (h *RecordingHandler) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var policy domain.RecordingPrivacyPolicy
	if err := decodeRequest(r, h.validate, &policy); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.policy.Save(ctx, policy); err != nil {
		logger.ErrorContext(ctx, "Failed to save recording policy", "error", err)
		jsonError(w, logger, "Failed to save recording policy", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r RecordingRequest) session() domain.RecordingSession {
	return domain.RecordingSession{SessionID: r.SessionID, Number: r.Number, UserConsented: r.UserConsented}
}
