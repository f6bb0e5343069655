package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/upcb/cloudsec/internal/api/handlers"
	"github.com/upcb/cloudsec/internal/api/middleware"
	"github.com/upcb/cloudsec/internal/config"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/pkg/metrics"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Alert   *handlers.AlertHandler
	Stream  *handlers.StreamHandler
	Metrics *handlers.MetricsHandler
	Health  *handlers.HealthHandler
}

// New builds the HTTP router
func New(cfg *config.Config, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware)

	r.Get("/healthz", h.Health.Liveness)
	r.Get("/readyz", h.Health.Readiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth.JWTSecret))

			r.Route("/alerts", func(r chi.Router) {
				r.Post("/", h.Alert.Create)
				r.Get("/", h.Alert.List)
				r.Get("/stream", h.Stream.Stream)
				r.Get("/{id}", h.Alert.Get)
				r.Post("/{id}/acknowledge", h.Alert.Acknowledge)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AdminOnly)

				r.Get("/alerts/stream", h.Stream.AdminStream)
				r.Get("/metrics/alerts", h.Metrics.Delivery)
			})
		})
	})

	return r
}
