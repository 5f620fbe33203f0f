package locations

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/regions"
)

func ListHandler(w http.ResponseWriter, r *http.Request) {
	locs, err := List(r.Context(), db.DB)
	if err != nil {
		zap.L().Error("list locations", zap.Error(err))
		http.Error(w, "Failed to load locations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(locs)
}

// RegionsHandler serves cities grouped by region for the sidebar.
func RegionsHandler(colors regions.ColorTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locs, err := List(r.Context(), db.DB)
		if err != nil {
			zap.L().Error("list locations", zap.Error(err))
			http.Error(w, "Failed to load locations", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(GroupByRegion(locs, colors))
	}
}
