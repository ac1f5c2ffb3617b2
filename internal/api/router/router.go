package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/one39/enrollment/internal/api/handlers"
	"github.com/one39/enrollment/internal/api/middleware"
	"github.com/one39/enrollment/internal/config"
	"github.com/one39/enrollment/internal/pkg/errors"
	"github.com/one39/enrollment/internal/pkg/logger"
	"github.com/one39/enrollment/internal/pkg/metrics"
	"github.com/one39/enrollment/internal/pkg/utils"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Enrollment *handlers.EnrollmentHandler
	Board      *handlers.BoardHandler
}

// New builds the HTTP routes. limiter may be nil to disable rate limiting.
func New(cfg *config.Config, log *logger.Logger, limiter *middleware.RateLimiter, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.SiteCORS(cfg.App.BaseURL))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, errors.MethodNotAllowed())
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, errors.NotFound("Route"))
	})

	// Health checks
	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Use(chimiddleware.NoCache)

		r.Post("/create-payment", h.Enrollment.CreatePayment)
		r.Post("/confirm-payment", h.Enrollment.ConfirmPayment)
		r.Get("/monday", h.Board.Snapshot)
	})

	return r
}
