package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fdg312/meal-planner/internal/storage/memory"
	"github.com/fdg312/meal-planner/internal/userctx"
)

func TestPhysiologyDailyCalories(t *testing.T) {
	tests := []struct {
		name string
		p    Physiology
		want int
	}{
		{"male moderate maintain", Physiology{Sex: "male", Age: 30, HeightCm: 180, WeightKg: 80, ActivityLevel: "moderate", Goal: "maintain"}, 2759},
		{"female sedentary lose", Physiology{Sex: "Female", Age: 25, HeightCm: 165, WeightKg: 60, Goal: "lose"}, 1114},
		{"clamped to minimum", Physiology{Sex: "female", Age: 90, HeightCm: 140, WeightKg: 35, Goal: "lose"}, MinCaloriesKcal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.p
			if err := p.Validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
			if got := p.DailyCalories(); got != tt.want {
				t.Errorf("expected %d kcal, got %d", tt.want, got)
			}
		})
	}
}

func TestPhysiologyValidate(t *testing.T) {
	bad := []Physiology{
		{Sex: "other", Age: 30, HeightCm: 180, WeightKg: 80},
		{Sex: "male", Age: 5, HeightCm: 180, WeightKg: 80},
		{Sex: "male", Age: 30, HeightCm: 180, WeightKg: 80, ActivityLevel: "couch"},
		{Sex: "male", Age: 30, HeightCm: 180, WeightKg: 80, Goal: "bulk"},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestMacroSplit(t *testing.T) {
	got := MacroSplit(2200)
	if got.ProteinG != 138 || got.FatG != 73 || got.CarbsG != 248 || got.FiberG != 31 {
		t.Errorf("unexpected split: %+v", got)
	}
}

func TestServiceDailyCalories(t *testing.T) {
	svc := NewService(memory.New(nil).GetNutritionTargetsStorage())
	ctx := context.Background()

	kcal, err := svc.DailyCalories(ctx, "u1")
	if err != nil || kcal != DefaultCaloriesKcal {
		t.Fatalf("expected default %d, got %v (%v)", DefaultCaloriesKcal, kcal, err)
	}

	_, err = svc.Upsert(ctx, "u1", UpsertTargetsRequest{
		Physiology: &Physiology{Sex: "male", Age: 30, HeightCm: 180, WeightKg: 80, ActivityLevel: "moderate"},
	})
	if err != nil {
		t.Fatal(err)
	}

	kcal, _ = svc.DailyCalories(ctx, "u1")
	if kcal != 2759 {
		t.Errorf("expected 2759 kcal from physiology, got %v", kcal)
	}

	targets, isDefault, _ := svc.GetOrDefault(ctx, "u1")
	if isDefault || targets.Physiology == nil || targets.Physiology.Goal != "maintain" {
		t.Errorf("unexpected stored targets: %+v", targets)
	}
}

func TestHandleUpsertTargets(t *testing.T) {
	h := NewHandler(NewService(memory.New(nil).GetNutritionTargetsStorage()))
	ctx := userctx.WithUserID(context.Background(), "u1")

	put := func(body any) *httptest.ResponseRecorder {
		data, _ := json.Marshal(body)
		req := httptest.NewRequest("PUT", "/v1/nutrition/targets", bytes.NewReader(data)).WithContext(ctx)
		w := httptest.NewRecorder()
		h.HandleUpsertTargets(w, req)
		return w
	}

	w := put(map[string]any{"calories_kcal": 500})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var errResp map[string]map[string]string
	json.NewDecoder(w.Body).Decode(&errResp)
	if errResp["error"]["message"] != "calories_kcal must be between 800 and 6000" {
		t.Errorf("unexpected message %q", errResp["error"]["message"])
	}

	w = put(map[string]any{"calories_kcal": 1800, "protein_g": 120})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var dto TargetsDTO
	json.NewDecoder(w.Body).Decode(&dto)
	if dto.CaloriesKcal != 1800 || dto.ProteinG != 120 || dto.FatG != 60 {
		t.Errorf("unexpected targets: %+v", dto)
	}

	req := httptest.NewRequest("GET", "/v1/nutrition/targets", nil).WithContext(ctx)
	gw := httptest.NewRecorder()
	h.HandleGetTargets(gw, req)
	var resp GetTargetsResponse
	json.NewDecoder(gw.Body).Decode(&resp)
	if resp.IsDefault || resp.Targets.CaloriesKcal != 1800 {
		t.Errorf("unexpected GET response: %+v", resp)
	}
}
