package services

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/middleware"
)

// SetupRoutes serves the public list and staff-only edits.
func SetupRoutes(h *Handlers, sessions middleware.SessionFetcher) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.List)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessions))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})

	return r
}
