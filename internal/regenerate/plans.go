package regenerate

import (
	"fmt"
	"time"

	"github.com/fdg312/meal-planner/internal/planner"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/storage"
)

// StoredPlan is the user's current plan together with its storage identity.
type StoredPlan struct {
	ID        string
	Title     string
	Version   int
	StartDate time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	Plan      *planner.MealPlan
}

// toStoredPlan rebuilds the assembled plan from the persisted rows. Items
// carry recipe snapshots, so the plan survives catalog changes.
func toStoredPlan(p storage.MealPlan, items []storage.MealPlanItem) *StoredPlan {
	mealTypes := make([]recipes.MealType, len(p.MealTypes))
	for i, mt := range p.MealTypes {
		mealTypes[i] = recipes.MealType(mt)
	}

	plan := &planner.MealPlan{
		Days:               make([]planner.DayPlan, p.Days),
		DailyCalorieTarget: p.DailyCalories,
		TolerancePct:       p.TolerancePct,
		Params: planner.Params{
			DietaryType:   recipes.DietaryType(p.DietaryType),
			MealTypes:     mealTypes,
			Days:          p.Days,
			DailyCalories: p.DailyCalories,
		},
	}
	for i := range plan.Days {
		plan.Days[i].DayIndex = i + 1
	}

	for _, it := range items {
		if it.DayIndex < 1 || it.DayIndex > p.Days {
			continue
		}
		d := &plan.Days[it.DayIndex-1]
		d.Meals = append(d.Meals, planner.Meal{
			MealType:          recipes.MealType(it.MealType),
			CalorieAllocation: it.CalorieAllocation,
			Recipe:            it.Recipe,
		})
		d.TotalCalories += it.Recipe.Calories
		d.Totals.Protein += it.Recipe.Nutrients.Protein
		d.Totals.Carbs += it.Recipe.Nutrients.Carbs
		d.Totals.Fats += it.Recipe.Nutrients.Fats
		d.Totals.Fiber += it.Recipe.Nutrients.Fiber
		d.Totals.Sodium += it.Recipe.Nutrients.Sodium
		d.Totals.Cholesterol += it.Recipe.Nutrients.Cholesterol
	}

	return &StoredPlan{
		ID:        p.ID,
		Title:     p.Title,
		Version:   p.Version,
		StartDate: p.StartDate,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Plan:      plan,
	}
}

func toUpsert(plan *planner.MealPlan, start time.Time) storage.MealPlanUpsert {
	mealTypes := make([]string, len(plan.Params.MealTypes))
	for i, mt := range plan.Params.MealTypes {
		mealTypes[i] = string(mt)
	}

	up := storage.MealPlanUpsert{
		Title:         fmt.Sprintf("%s plan, %d day(s)", plan.Params.DietaryType, plan.Params.Days),
		DietaryType:   string(plan.Params.DietaryType),
		MealTypes:     mealTypes,
		Days:          plan.Params.Days,
		DailyCalories: plan.DailyCalorieTarget,
		TolerancePct:  plan.TolerancePct,
		StartDate:     start,
	}
	for _, d := range plan.Days {
		for _, m := range d.Meals {
			up.Items = append(up.Items, storage.MealPlanItemUpsert{
				DayIndex:          d.DayIndex,
				MealType:          string(m.MealType),
				CalorieAllocation: m.CalorieAllocation,
				Recipe:            m.Recipe,
			})
		}
	}
	return up
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
