package clients

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/middleware"
)

func SetupRoutes(h *Handlers, sessions middleware.SessionFetcher) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.SessionMiddleware(sessions))

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/export.xlsx", h.Export)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}
