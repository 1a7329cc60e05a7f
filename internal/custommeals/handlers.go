package custommeals

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/regenerate"
	"github.com/fdg312/meal-planner/internal/userctx"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for custom meals.
type Handler struct {
	service *Service
}

// NewHandler creates a new custom meals handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleIngredientSearch handles POST /v1/custom-meals/ingredient
func (h *Handler) HandleIngredientSearch(w http.ResponseWriter, r *http.Request) {
	var req IngredientSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.search(w, r, req.query(), req.Save, false)
}

// HandleNutrientSearch handles POST /v1/custom-meals/nutrient
func (h *Handler) HandleNutrientSearch(w http.ResponseWriter, r *http.Request) {
	var req NutrientSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.search(w, r, req.query(), req.Save, false)
}

// HandleIngredientRefresh handles POST /v1/custom-meals/ingredient/refresh
func (h *Handler) HandleIngredientRefresh(w http.ResponseWriter, r *http.Request) {
	var req IngredientSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.search(w, r, req.query(), req.Save, true)
}

// HandleNutrientRefresh handles POST /v1/custom-meals/nutrient/refresh
func (h *Handler) HandleNutrientRefresh(w http.ResponseWriter, r *http.Request) {
	var req NutrientSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.search(w, r, req.query(), req.Save, true)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, q regenerate.CustomQuery, save, refresh bool) {
	ctx := r.Context()
	userID := userctx.UserIDOrDefault(ctx)

	var (
		res CustomMealResultDTO
		err error
	)
	if refresh {
		res, err = h.service.Refresh(ctx, userID, q, save)
	} else {
		res, err = h.service.Search(ctx, userID, q, save)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleCurrent handles GET /v1/custom-meals/current?mode=
func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := h.service.Current(ctx, userctx.UserIDOrDefault(ctx), r.URL.Query().Get("mode"))
	if err != nil {
		if errors.Is(err, ErrInvalidMode) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get custom meal")
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "not_found", "No custom meal for this mode")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleHistory handles GET /v1/custom-meals?mode=&limit=&offset=
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit := 20
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(q.Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	items, err := h.service.History(ctx, userctx.UserIDOrDefault(ctx), q.Get("mode"), limit, offset)
	if err != nil {
		if errors.Is(err, ErrInvalidMode) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list custom meals")
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Items: items})
}

// HandleDelete handles DELETE /v1/custom-meals/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid custom meal ID")
		return
	}

	if err := h.service.DeleteHistory(ctx, userctx.UserIDOrDefault(ctx), id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Custom meal not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete custom meal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeBody accepts an empty body as the zero request.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeEngineError(w http.ResponseWriter, err error) {
	pe, ok := planerr.As(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to find a custom meal")
		return
	}

	status := http.StatusInternalServerError
	switch pe.Code {
	case planerr.CodeInvalidQuery:
		status = http.StatusBadRequest
	case planerr.CodeNoMatchFound:
		status = http.StatusNotFound
	case planerr.CodePersistenceConflict:
		status = http.StatusConflict
	}
	writeError(w, status, string(pe.Code), pe.Message)
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
