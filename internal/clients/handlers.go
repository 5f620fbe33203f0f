package clients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/services"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/slots"
)

// Handlers serves the staff client endpoints.
type Handlers struct {
	manager *Manager
}

func NewHandlers(m *Manager) *Handlers {
	return &Handlers{manager: m}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, slots.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrUnknownLocation), errors.Is(err, ErrUnknownService):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, slots.ErrNoCapacity):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		zap.L().Error("clients request failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func clientID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	params := ListParams{
		Page:      page,
		Search:    q.Get("search"),
		SortField: q.Get("sort"),
		SortOrder: q.Get("order"),
	}
	if raw := q.Get("service"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "Invalid service id", http.StatusBadRequest)
			return
		}
		params.ServiceID = &id
	}

	res, err := h.manager.List(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}
	v, err := h.manager.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	v, err := h.manager.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	v, err := h.manager.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}
	if err := h.manager.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	list, err := h.manager.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	svcs, err := services.List(r.Context(), db.DB)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="clients.xlsx"`)
	if err := WriteWorkbook(w, list, svcs); err != nil {
		zap.L().Error("client export failed", zap.Error(err))
	}
}
