package mapview

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/regions"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *Handlers) fail(w http.ResponseWriter, msg string, err error) {
	h.Log.Error(msg, zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// serviceParam reads the optional ?service= filter.
func serviceParam(r *http.Request) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get("service")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func (h *Handlers) Regions(w http.ResponseWriter, r *http.Request) {
	raw, err := h.regionsJSON(r.Context())
	if err != nil {
		h.fail(w, "render regions", err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(raw)
}

func (h *Handlers) Legend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, Legend(h.Resolver.Colors()))
}

func (h *Handlers) Availability(w http.ResponseWriter, r *http.Request) {
	locationID, err := uuid.Parse(chi.URLParam(r, "location_id"))
	if err != nil {
		http.Error(w, "Invalid location id", http.StatusBadRequest)
		return
	}
	serviceID, ok := serviceParam(r)
	if !ok {
		http.Error(w, "Invalid service id", http.StatusBadRequest)
		return
	}

	out, err := h.availability(r.Context(), locationID, serviceID)
	if err != nil {
		h.fail(w, "load availability", err)
		return
	}
	writeJSON(w, out)
}

func (h *Handlers) Markers(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := serviceParam(r)
	if !ok {
		http.Error(w, "Invalid service id", http.StatusBadRequest)
		return
	}

	list, err := h.Clients.Mapped(r.Context(), serviceID)
	if err != nil {
		h.fail(w, "load markers", err)
		return
	}
	svcs, err := h.Services(r.Context())
	if err != nil {
		h.fail(w, "load services", err)
		return
	}
	writeJSON(w, BuildMarkers(list, svcs, serviceID))
}

func (h *Handlers) Locate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		http.Error(w, "lat and lng must be valid coordinates", http.StatusBadRequest)
		return
	}

	out, ok, err := h.locate(r.Context(), regions.LatLng{Lat: lat, Lng: lng})
	if err != nil {
		h.fail(w, "locate point", err)
		return
	}
	if !ok {
		http.Error(w, "No area contains this point", http.StatusNotFound)
		return
	}
	writeJSON(w, out)
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	out, err := h.search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "search clients", err)
		return
	}
	writeJSON(w, out)
}
