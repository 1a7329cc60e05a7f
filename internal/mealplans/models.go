package mealplans

import (
	"time"

	"github.com/fdg312/meal-planner/internal/planner"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/regenerate"
	"github.com/fdg312/meal-planner/internal/storage"
)

// GeneratePlanRequest is the body of POST /v1/meal/plan/generate.
type GeneratePlanRequest struct {
	DietaryType string   `json:"dietary_type"`
	MealTypes   []string `json:"meal_type"`
	Days        int      `json:"no_of_days"`
	// DailyCalories falls back to the stored nutrition target when zero.
	DailyCalories float64 `json:"daily_calories,omitempty"`
}

func (r GeneratePlanRequest) params() planner.Params {
	mealTypes := make([]recipes.MealType, len(r.MealTypes))
	for i, mt := range r.MealTypes {
		mealTypes[i] = recipes.MealType(mt)
	}
	return planner.Params{
		DietaryType:   recipes.DietaryType(r.DietaryType),
		MealTypes:     mealTypes,
		Days:          r.Days,
		DailyCalories: r.DailyCalories,
	}
}

type MealPlanDTO struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Version            int               `json:"version"`
	StartDate          string            `json:"start_date"`
	DietaryType        string            `json:"dietary_type"`
	MealTypes          []string          `json:"meal_types"`
	Days               int               `json:"no_of_days"`
	DailyCalorieTarget float64           `json:"daily_calorie_target"`
	TolerancePct       float64           `json:"tolerance_pct"`
	RelaxedSlots       int               `json:"relaxed_slots,omitempty"`
	DayPlans           []planner.DayPlan `json:"day_plans"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type GetMealPlanResponse struct {
	MealPlan *MealPlanDTO `json:"meal_plan"`
}

type RegeneratePlanResponse struct {
	Success  bool         `json:"success"`
	MealPlan *MealPlanDTO `json:"meal_plan"`
}

type MealItemDTO struct {
	ID                string         `json:"id"`
	DayIndex          int            `json:"day_index"`
	MealType          string         `json:"meal_type"`
	CalorieAllocation float64        `json:"calorie_allocation"`
	Kcal              int            `json:"kcal"`
	ProteinG          float64        `json:"protein_g"`
	FatG              float64        `json:"fat_g"`
	CarbsG            float64        `json:"carbs_g"`
	Recipe            recipes.Recipe `json:"recipe"`
}

type GetTodayResponse struct {
	Date     string        `json:"date"`
	DayIndex int           `json:"day_index"`
	Meals    []MealItemDTO `json:"meals"`
}

func toPlanDTO(sp *regenerate.StoredPlan) *MealPlanDTO {
	if sp == nil {
		return nil
	}
	mealTypes := make([]string, len(sp.Plan.Params.MealTypes))
	for i, mt := range sp.Plan.Params.MealTypes {
		mealTypes[i] = string(mt)
	}
	return &MealPlanDTO{
		ID:                 sp.ID,
		Title:              sp.Title,
		Version:            sp.Version,
		StartDate:          sp.StartDate.UTC().Format("2006-01-02"),
		DietaryType:        string(sp.Plan.Params.DietaryType),
		MealTypes:          mealTypes,
		Days:               sp.Plan.Params.Days,
		DailyCalorieTarget: sp.Plan.DailyCalorieTarget,
		TolerancePct:       sp.Plan.TolerancePct,
		RelaxedSlots:       sp.Plan.RelaxedSlots,
		DayPlans:           sp.Plan.Days,
		CreatedAt:          sp.CreatedAt,
		UpdatedAt:          sp.UpdatedAt,
	}
}

func toItemDTO(item storage.MealPlanItem) MealItemDTO {
	return MealItemDTO{
		ID:                item.ID,
		DayIndex:          item.DayIndex,
		MealType:          item.MealType,
		CalorieAllocation: item.CalorieAllocation,
		Kcal:              item.Kcal,
		ProteinG:          item.ProteinG,
		FatG:              item.FatG,
		CarbsG:            item.CarbsG,
		Recipe:            item.Recipe,
	}
}
