package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/cache"
)

// Handlers serves the service endpoints. Writes advance the availability
// cache generation before responding, since cached availability carries
// service names and colours.
type Handlers struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewHandlers(conn *gorm.DB, c *cache.Cache) *Handlers {
	return &Handlers{db: conn, cache: c}
}

func (h *Handlers) changed(r *http.Request) {
	h.cache.Bump(r.Context(), cache.SlotsGeneration)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidColor):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		zap.L().Error("services request failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	list, err := List(r.Context(), h.db)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	svc, err := Create(r.Context(), h.db, in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.changed(r)
	writeJSON(w, http.StatusCreated, svc)
}

func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid service id", http.StatusBadRequest)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	svc, err := Update(r.Context(), h.db, id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.changed(r)
	writeJSON(w, http.StatusOK, svc)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid service id", http.StatusBadRequest)
		return
	}
	if err := Delete(r.Context(), h.db, id); err != nil {
		writeError(w, err)
		return
	}
	h.changed(r)
	w.WriteHeader(http.StatusNoContent)
}
