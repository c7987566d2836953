package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/attribution-monitor/internal/metrics"
	"github.com/ignite/attribution-monitor/internal/pkg/httputil"
)

// SetupRoutes configures the router: webhook ingress, sync triggers,
// transcript trigger, dashboard queries, health and metrics.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.MethodNotAllowed(w)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.NotFound(w, "not found")
	})

	r.Get("/health", h.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// webhook ingress is POST-only; OPTIONS preflight is answered by CORS
	r.Post("/webhooks/crm", h.CRMWebhook)

	r.Route("/api", func(r chi.Router) {
		// sync and transcript triggers accept GET for operator convenience
		r.Get("/sync/spend", h.SyncSpend)
		r.Post("/sync/spend", h.SyncSpend)
		r.Get("/sync/contacts", h.SyncContacts)
		r.Post("/sync/contacts", h.SyncContacts)
		r.Get("/transcripts", h.Transcripts)
		r.Post("/transcripts", h.Transcripts)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/overview", h.DashboardOverview)
			r.Get("/timeseries", h.DashboardTimeSeries)
			r.Get("/breakdown", h.DashboardBreakdown)
			r.Get("/top", h.DashboardTop)
		})
	})

	return r
}
