package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"healthcost-actions/internal/action"
	"healthcost-actions/internal/handlers"
	"healthcost-actions/internal/observability"
)

// NewRouter wires the HTTP adapter in front of the dispatcher. limiter may be
// nil to disable rate limiting.
func NewRouter(d *action.Dispatcher, limiter *observability.RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", observability.PrometheusHandler(nil))

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		action.RegisterRoutes(r, d)
	})

	return r
}
