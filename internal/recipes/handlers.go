package recipes

import (
	"context"
	"encoding/json"
	"net/http"
)

// Source returns the current catalog snapshot.
type Source interface {
	Get(ctx context.Context) (*Catalog, error)
}

// ListRecipesResponse is the response for GET /v1/recipes.
type ListRecipesResponse struct {
	Recipes []Recipe `json:"recipes"`
	Total   int      `json:"total"`
}

// Handler serves read-only catalog lookups.
type Handler struct {
	source Source
}

// NewHandler creates a new recipes handler.
func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// HandleList handles GET /v1/recipes?dietary_type=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	cat, err := h.source.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load recipes")
		return
	}

	list := cat.All()
	if raw := r.URL.Query().Get("dietary_type"); raw != "" {
		dt, err := ParseDietaryType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		list = cat.ByDietaryType(dt)
	}
	if list == nil {
		list = []Recipe{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ListRecipesResponse{Recipes: list, Total: len(list)})
}

// HandleGet handles GET /v1/recipes/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "id is required")
		return
	}

	cat, err := h.source.Get(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load recipes")
		return
	}

	recipe, ok := cat.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Recipe not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(recipe)
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
