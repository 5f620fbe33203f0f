package mapview

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Get("/regions", h.Regions)
	r.Get("/legend", h.Legend)
	r.Get("/locations/{location_id}/availability", h.Availability)
	r.Get("/markers", h.Markers)
	r.Get("/search", h.Search)
	r.Get("/locate", h.Locate)

	return r
}
