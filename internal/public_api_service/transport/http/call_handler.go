package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/jdialer/commhub/internal/voip_service/domain"
)

// CallRouter resolves and places calls.
type CallRouter interface {
	Resolve(ctx context.Context, rawAddress string, preferSip bool) domain.CallTransportDecision
	Place(ctx context.Context, rawAddress string, preferSip bool) domain.CallTransportDecision
}

type CallHandler struct {
	calls    CallRouter
	validate *validator.Validate
	logger   *slog.Logger
}

func NewCallHandler(calls CallRouter, logger *slog.Logger) *CallHandler {
	return &CallHandler{calls: calls, validate: newValidator(), logger: logger.With("handler", "call")}
}

// RegisterRoutes registers call routes with the given router.
func (h *CallHandler) RegisterRoutes(r chi.Router) {
	r.Post("/calls/resolve", h.handleResolve)
	r.Post("/calls/place", h.handlePlace)
}

func (h *CallHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", chi_middleware.GetReqID(r.Context()))
	var req CallRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, logger, http.StatusOK, h.calls.Resolve(r.Context(), req.Address, req.PreferSip))
}

// handlePlace answers 200 with the decision even when the call was BLOCKED;
// Routed tells whether a dispatch was attempted.
func (h *CallHandler) handlePlace(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", chi_middleware.GetReqID(r.Context()))
	var req CallRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	decision := h.calls.Place(r.Context(), req.Address, req.PreferSip)
	logger.InfoContext(r.Context(), "Call placement handled", "transport", decision.TransportType, "routed", decision.Routed)
	writeJSON(w, logger, http.StatusOK, decision)
}
