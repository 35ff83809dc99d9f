package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/query", h.Query)
		r.Get("/courses", h.Courses)

		// Ingest mutates the catalog, so it stays behind the admin key.
		// Without a configured key the endpoint is not mounted at all.
		if h.adminKey != "" {
			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(h.adminKey))
				r.Post("/ingest", h.Ingest)
			})
		}
	})

	return r
}
