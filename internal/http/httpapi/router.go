package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediaforge/internal/http/handlers"
	"mediaforge/internal/infra"
	"mediaforge/internal/middleware"
)

func NewRouter(cfg *infra.Config, app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(cfg.AllowedOrigins),
	)

	// Unauthenticated surface.
	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Account-scoped surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))

		r.Route("/v1/generations", func(r chi.Router) {
			r.Post("/", app.GenerationsSubmit)
			r.Get("/", app.GenerationsList)
			r.Get("/{id}", app.GenerationStatus)
			r.Delete("/{id}", app.GenerationDelete)
		})
		r.Get("/v1/credits", app.CreditsBalance)
		r.Post("/v1/reconcile", app.ReconcileRun)
	})

	return r
}
