package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/jdialer/commhub/internal/callerid_service/domain"
	"github.com/jdialer/commhub/internal/public_api_service/middleware"
)

// CallerService is the caller-ID surface the handler needs.
type CallerService interface {
	Evaluate(ctx context.Context, rawNumber string) (domain.CallerIdDecision, error)
	Block(ctx context.Context, rawNumber string, blocked bool) error
}

// RiskService grades a caller.
type RiskService interface {
	EvaluateRisk(ctx context.Context, rawNumber string) (domain.CallerRiskProfile, error)
}

type CallerHandler struct {
	callers  CallerService
	risk     RiskService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewCallerHandler(callers CallerService, risk RiskService, logger *slog.Logger) *CallerHandler {
	return &CallerHandler{
		callers:  callers,
		risk:     risk,
		validate: newValidator(),
		logger:   logger.With("handler", "caller"),
	}
}

// RegisterRoutes registers caller routes with the given router.
func (h *CallerHandler) RegisterRoutes(r chi.Router) {
	r.Post("/callers/evaluate", h.handleEvaluate)
	r.Get("/callers/{number}/risk", h.handleRisk)
	r.With(middleware.RequirePermission(middleware.PermissionBlockCallers, h.logger)).
		Put("/callers/{number}/block", h.handleBlock)
}

func (h *CallerHandler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req EvaluateCallerRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}

	decision, err := h.callers.Evaluate(ctx, req.Number)
	if err != nil {
		logger.ErrorContext(ctx, "Caller evaluation failed", "error", err)
		jsonError(w, logger, "Caller evaluation failed", http.StatusInternalServerError)
		return
	}
	risk, err := h.risk.EvaluateRisk(ctx, req.Number)
	if err != nil {
		logger.ErrorContext(ctx, "Caller risk evaluation failed", "error", err)
		jsonError(w, logger, "Caller evaluation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, logger, http.StatusOK, EvaluateCallerResponse{Decision: decision, Risk: risk})
}

func (h *CallerHandler) handleRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	risk, err := h.risk.EvaluateRisk(ctx, chi.URLParam(r, "number"))
	if err != nil {
		logger.ErrorContext(ctx, "Caller risk evaluation failed", "error", err)
		jsonError(w, logger, "Caller risk evaluation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, logger, http.StatusOK, risk)
}

func (h *CallerHandler) handleBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req BlockCallerRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}

	number := chi.URLParam(r, "number")
	if err := h.callers.Block(ctx, number, *req.Blocked); err != nil {
		if errors.Is(err, domain.ErrInvalidNumber) {
			jsonError(w, logger, "Invalid caller number", http.StatusBadRequest)
			return
		}
		logger.ErrorContext(ctx, "Failed to update caller block", "error", err)
		jsonError(w, logger, "Failed to update caller block", http.StatusInternalServerError)
		return
	}
	logger.InfoContext(ctx, "Caller block updated", "blocked", *req.Blocked)
	w.WriteHeader(http.StatusNoContent)
}
