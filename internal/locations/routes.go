package locations

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/regions"
)

func SetupRoutes(colors regions.ColorTable) http.Handler {
	r := chi.NewRouter()

	r.Get("/", ListHandler)
	r.Get("/regions", RegionsHandler(colors))

	return r
}
