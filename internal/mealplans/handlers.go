package mealplans

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/regenerate"
	"github.com/fdg312/meal-planner/internal/userctx"
)

// ErrInvalidDate is returned for a malformed ?date= parameter.
var ErrInvalidDate = errors.New("invalid date format, expected YYYY-MM-DD")

// Handler handles HTTP requests for meal plans.
type Handler struct {
	service *Service
}

// NewHandler creates a new meal plans handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGenerate handles POST /v1/meal/plan/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GeneratePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid request body")
		return
	}

	plan, err := h.service.Generate(ctx, userctx.UserIDOrDefault(ctx), req)
	if err != nil {
		writeEngineError(w, err, "Failed to generate meal plan")
		return
	}

	writeJSON(w, http.StatusOK, GetMealPlanResponse{MealPlan: plan})
}

// HandleRegenerate handles POST /v1/meal/plan/regenerate
func (h *Handler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plan, err := h.service.Regenerate(ctx, userctx.UserIDOrDefault(ctx))
	if err != nil {
		if errors.Is(err, regenerate.ErrNoCurrentPlan) {
			writeError(w, http.StatusNotFound, "plan_not_found", "No meal plan to regenerate")
			return
		}
		writeEngineError(w, err, "Failed to regenerate meal plan")
		return
	}

	writeJSON(w, http.StatusOK, RegeneratePlanResponse{Success: true, MealPlan: plan})
}

// HandleGet handles GET /v1/meal/plan
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plan, err := h.service.GetCurrent(ctx, userctx.UserIDOrDefault(ctx))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get meal plan")
		return
	}

	// null plan when the user has none
	writeJSON(w, http.StatusOK, GetMealPlanResponse{MealPlan: plan})
}

// HandleGetToday handles GET /v1/meal/today?date=YYYY-MM-DD
func (h *Handler) HandleGetToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.service.GetToday(ctx, userctx.UserIDOrDefault(ctx), r.URL.Query().Get("date"))
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get today's meal plan")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /v1/meal/plan
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.DeleteCurrent(ctx, userctx.UserIDOrDefault(ctx)); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete meal plan")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps engine error codes onto HTTP statuses. Anything
// else is reported as internalMsg.
func writeEngineError(w http.ResponseWriter, err error, internalMsg string) {
	pe, ok := planerr.As(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", internalMsg)
		return
	}

	body := map[string]interface{}{
		"code":    string(pe.Code),
		"message": pe.Message,
	}
	status := http.StatusInternalServerError
	switch pe.Code {
	case planerr.CodeInvalidQuery:
		status = http.StatusBadRequest
	case planerr.CodeNoMatchFound:
		status = http.StatusNotFound
	case planerr.CodePlanAssemblyFailed:
		status = http.StatusUnprocessableEntity
		body["day"] = pe.Day
		body["meal_type"] = pe.MealType
		if pe.Cause != nil {
			body["message"] = pe.Message + ": " + causeMessage(pe.Cause)
		}
	case planerr.CodePersistenceConflict:
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]interface{}{"error": body})
}

func causeMessage(err error) string {
	if pe, ok := planerr.As(err); ok {
		return pe.Message
	}
	return err.Error()
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
