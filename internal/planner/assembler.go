// Package planner assembles multi-day meal plans from the recipe catalog.
package planner

import (
	"context"
	"fmt"

	"github.com/fdg312/meal-planner/internal/matcher"
	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/selection"
)

// Assembler fills every (day, meal type) slot of a plan.
type Assembler struct {
	matcher    *matcher.Matcher
	policy     *selection.Policy
	weights    Weights
	exhaustion ExhaustionPolicy
}

// NewAssembler creates an assembler. Nil weights fall back to DefaultWeights.
func NewAssembler(m *matcher.Matcher, p *selection.Policy, w Weights, exhaustion ExhaustionPolicy) (*Assembler, error) {
	if w == nil {
		w = DefaultWeights
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid meal weights: %w", err)
	}
	if exhaustion == "" {
		exhaustion = ExhaustionFail
	}
	return &Assembler{matcher: m, policy: p, weights: w, exhaustion: exhaustion}, nil
}

// Exhaustion returns the configured exhaustion policy.
func (a *Assembler) Exhaustion() ExhaustionPolicy {
	return a.exhaustion
}

// Assemble builds a plan from cat. No partial plan is ever returned: the
// first unfillable slot fails the whole assembly.
func (a *Assembler) Assemble(ctx context.Context, cat *recipes.Catalog, req Request) (*MealPlan, error) {
	params := req.Params
	params.MealTypes = append([]recipes.MealType(nil), req.MealTypes...)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	alloc := a.weights.Allocate(params.DailyCalories, params.MealTypes)
	used := req.Exclude.Union(nil)

	plan := &MealPlan{
		Days:               make([]DayPlan, 0, params.Days),
		DailyCalorieTarget: params.DailyCalories,
		Params:             params,
		TolerancePct:       a.matcher.Tolerances().CaloriePct,
	}

	for day := 1; day <= params.Days; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dp := DayPlan{DayIndex: day, Meals: make([]Meal, 0, len(params.MealTypes))}
		dayIDs := selection.NewExcludeSet()

		for _, mt := range params.MealTypes {
			cands, err := a.matcher.Calories(cat, matcher.CalorieQuery{Target: alloc[mt], DietaryType: params.DietaryType})
			if err != nil {
				return nil, planerr.AssemblyFailed(day, string(mt), err)
			}

			recipe, err := a.policy.Select(cands, used, req.Mode)
			if err != nil && a.exhaustion == ExhaustionPerDay && planerr.Is(err, planerr.CodeNoMatchFound) {
				relaxed := dayIDs.Union(selection.NewExcludeSet(req.Previous.RecipeAt(day, mt)))
				recipe, err = a.policy.Select(cands, relaxed, req.Mode)
				if err == nil {
					plan.RelaxedSlots++
				}
			}
			if err != nil {
				return nil, planerr.AssemblyFailed(day, string(mt), err)
			}

			used.Add(recipe.ID)
			dayIDs.Add(recipe.ID)
			dp.Meals = append(dp.Meals, Meal{MealType: mt, CalorieAllocation: alloc[mt], Recipe: recipe})
			dp.TotalCalories += recipe.Calories
			addNutrients(&dp.Totals, recipe.Nutrients)
		}
		plan.Days = append(plan.Days, dp)
	}
	return plan, nil
}

func addNutrients(dst *recipes.Nutrients, n recipes.Nutrients) {
	dst.Protein += n.Protein
	dst.Carbs += n.Carbs
	dst.Fats += n.Fats
	dst.Fiber += n.Fiber
	dst.Sodium += n.Sodium
	dst.Cholesterol += n.Cholesterol
}
