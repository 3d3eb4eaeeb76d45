package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
	"github.com/jdialer/commhub/internal/public_api_service/middleware"
)

// ContactRouter launches an action for a contact, link-aware.
type ContactRouter interface {
	Launch(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, text *string) core_domain.IntentResult
}

// PlatformLauncher launches one named platform and describes the available routes.
type PlatformLauncher interface {
	LaunchForPlatform(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, platformID string, text *string) core_domain.IntentResult
	RouteProfiles(ctx context.Context, target core_domain.CommunicationTarget) ([]domain.RouteProfile, error)
}

type IntegrationHandler struct {
	router    ContactRouter
	platforms PlatformLauncher
	links     domain.ConversationLinkRepository
	policy    domain.PrivacyPolicyStore
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewIntegrationHandler(
	router ContactRouter,
	platforms PlatformLauncher,
	links domain.ConversationLinkRepository,
	policy domain.PrivacyPolicyStore,
	logger *slog.Logger,
) *IntegrationHandler {
	return &IntegrationHandler{
		router:    router,
		platforms: platforms,
		links:     links,
		policy:    policy,
		validate:  newValidator(),
		logger:    logger.With("handler", "integration"),
	}
}

// RegisterRoutes registers integration routes with the given router.
func (h *IntegrationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/integrations/launch", h.handleLaunch)
	r.Post("/integrations/routes", h.handleRoutes)
	r.Get("/integrations/links/{contactID}", h.handleListLinks)
	r.Get("/integrations/policy", h.handleGetPolicy)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(middleware.PermissionManageIntegrations, h.logger))
		r.Put("/integrations/links", h.handleUpsertLink)
		r.Delete("/integrations/links/{contactID}/{platform}", h.handleClearLink)
		r.Put("/integrations/policy/{key}", h.handleSetPolicyFlag)
	})
}

func (h *IntegrationHandler) handleLaunch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req LaunchRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	action, ok := core_domain.ParseAdapterAction(req.Action)
	if !ok {
		jsonError(w, logger, "Unknown action: "+req.Action, http.StatusBadRequest)
		return
	}

	var res core_domain.IntentResult
	if req.Platform != "" {
		res = h.platforms.LaunchForPlatform(ctx, req.target(), action, req.Platform, req.Text)
	} else {
		res = h.router.Launch(ctx, req.target(), action, req.Text)
	}

	status := http.StatusOK
	if _, failed := res.(core_domain.IntentFailure); failed {
		status = http.StatusBadGateway
	}
	writeJSON(w, logger, status, newLaunchResponse(res))
}

func (h *IntegrationHandler) handleRoutes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req RouteProfilesRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	profiles, err := h.platforms.RouteProfiles(ctx, core_domain.CommunicationTarget{
		PhoneNumber:  req.PhoneNumber,
		EmailAddress: req.EmailAddress,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build route profiles", "error", err)
		jsonError(w, logger, "Integration policy unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, logger, http.StatusOK, profiles)
}

func (h *IntegrationHandler) handleUpsertLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req UpsertLinkRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}

	link := domain.ConversationLink{
		ContactID:  req.ContactID,
		Platform:   req.Platform,
		Handle:     req.Handle,
		ResolvedBy: req.ResolvedBy,
		IsEnabled:  enabled,
		IsBlocked:  req.IsBlocked,
	}
	if err := h.links.Upsert(ctx, link); err != nil {
		logger.ErrorContext(ctx, "Failed to save conversation link", "error", err)
		jsonError(w, logger, "Failed to save conversation link", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IntegrationHandler) handleListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	contactID, err := strconv.ParseInt(chi.URLParam(r, "contactID"), 10, 64)
	if err != nil {
		jsonError(w, logger, "Invalid contact id", http.StatusBadRequest)
		return
	}
	links, err := h.links.ListForContact(ctx, contactID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list conversation links", "error", err)
		jsonError(w, logger, "Failed to list conversation links", http.StatusInternalServerError)
		return
	}
	writeJSON(w, logger, http.StatusOK, links)
}

func (h *IntegrationHandler) handleClearLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	contactID, err := strconv.ParseInt(chi.URLParam(r, "contactID"), 10, 64)
	if err != nil {
		jsonError(w, logger, "Invalid contact id", http.StatusBadRequest)
		return
	}
	if err := h.links.Clear(ctx, contactID, chi.URLParam(r, "platform")); err != nil {
		logger.ErrorContext(ctx, "Failed to clear conversation link", "error", err)
		jsonError(w, logger, "Failed to clear conversation link", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IntegrationHandler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	policy, err := h.policy.Policy(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read privacy policy", "error", err)
		jsonError(w, logger, "Integration policy unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, logger, http.StatusOK, policy)
}

func (h *IntegrationHandler) handleSetPolicyFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req SetPolicyFlagRequest
	if err := decodeRequest(r, h.validate, &req); err != nil {
		jsonError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.policy.SetFlag(ctx, key, *req.Value); err != nil {
		if errors.Is(err, domain.ErrUnknownPolicyKey) {
			jsonError(w, logger, "Unknown policy key: "+key, http.StatusNotFound)
			return
		}
		logger.ErrorContext(ctx, "Failed to save privacy policy flag", "error", err)
		jsonError(w, logger, "Failed to save privacy policy flag", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
