// Package httptransport wires the HTTP surface: middleware chain, health
// and metrics endpoints, and the authenticated API routes. Handlers stay
// thin and delegate to the domain services.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/platform/metrics"
	"rollcall/internal/platform/middleware"
	"rollcall/pkg/platform/httputil"
)

// Deps collects everything the router needs.
type Deps struct {
	Events        EventService
	Registrations RegistrationService
	Checkins      CheckinService
	Validator     middleware.TokenValidator
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		newEventHandler(deps.Events, deps.Logger).register(api)
		newRegistrationHandler(deps.Registrations, deps.Logger).register(api)
		newCheckinHandler(deps.Checkins, deps.Logger).register(api)
	})

	return r
}
