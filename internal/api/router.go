package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

const defaultRateLimit = 60

// NewRouter builds and returns the Chi router with all routes configured.
// The health endpoint is unauthenticated; every other route requires bearer auth.
// Rate limiting is applied globally per IP; ratePerMinute <= 0 means 60.
func NewRouter(handlers *Handlers, token string, ratePerMinute int, db dbPinger, redisClient redisPinger, log *slog.Logger) *chi.Mux {
	if ratePerMinute <= 0 {
		ratePerMinute = defaultRateLimit
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(httprate.LimitByIP(ratePerMinute, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(db, redisClient, log))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))

		r.Post("/api/v1/simulations", handlers.CreateSimulation)
		r.Get("/api/v1/simulations", handlers.ListSimulations)
		r.Get("/api/v1/simulations/{id}", handlers.GetSimulation)

		r.Get("/api/v1/places/{name}", handlers.GetPlace)
		r.Get("/api/v1/places/{name}/nearby", handlers.GetNearby)
		r.Get("/api/v1/distance", handlers.GetDistance)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
