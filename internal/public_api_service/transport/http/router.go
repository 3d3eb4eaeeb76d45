package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdialer/commhub/internal/public_api_service/middleware"
)

// Handlers groups the API handlers mounted under /api/v1.
type Handlers struct {
	Callers      *CallerHandler
	Calls        *CallHandler
	Messages     *MessageHandler
	Integrations *IntegrationHandler
	Recordings   *RecordingHandler
}

// NewRouter builds the HTTP API. /health and /metrics are public; everything
// under /api/v1 requires a bearer JWT signed with jwtSecret.
func NewRouter(h Handlers, jwtSecret string, requestTimeout time.Duration, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Use(chi_middleware.Timeout(requestTimeout))
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtSecret, logger))
		if h.Callers != nil {
			h.Callers.RegisterRoutes(r)
		}
		if h.Calls != nil {
			h.Calls.RegisterRoutes(r)
		}
		if h.Messages != nil {
			h.Messages.RegisterRoutes(r)
		}
		if h.Integrations != nil {
			h.Integrations.RegisterRoutes(r)
		}
		if h.Recordings != nil {
			h.Recordings.RegisterRoutes(r)
		}
	})
	return r
}
