package planner

import (
	"fmt"
	"math"
	"sort"

	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/selection"
)

// Plan bounds.
const (
	MinDays          = 1
	MaxDays          = 7
	MinDailyCalories = 800
	MaxDailyCalories = 6000
)

// ExhaustionPolicy decides what happens when whole-plan exclusion leaves a
// slot without candidates.
type ExhaustionPolicy string

const (
	// ExhaustionFail fails the assembly with the unfillable slot.
	ExhaustionFail ExhaustionPolicy = "fail"
	// ExhaustionPerDay retries the slot excluding only the same day's picks
	// and the previous plan's recipe for that slot.
	ExhaustionPerDay ExhaustionPolicy = "per_day"
)

// ParseExhaustionPolicy parses a policy name; empty means ExhaustionFail.
func ParseExhaustionPolicy(s string) (ExhaustionPolicy, error) {
	switch ExhaustionPolicy(s) {
	case "", ExhaustionFail:
		return ExhaustionFail, nil
	case ExhaustionPerDay:
		return ExhaustionPerDay, nil
	}
	return "", fmt.Errorf("unknown exhaustion policy %q (expected fail or per_day)", s)
}

// Weights are the relative calorie shares of each meal type.
type Weights map[recipes.MealType]float64

// DefaultWeights splits a day 25/35/30/10 across breakfast, lunch, dinner, snack.
var DefaultWeights = Weights{
	recipes.Breakfast: 25,
	recipes.Lunch:     35,
	recipes.Dinner:    30,
	recipes.Snack:     10,
}

// Validate requires a positive weight for every meal type.
func (w Weights) Validate() error {
	for _, mt := range recipes.MealTypes {
		if !(w[mt] > 0) {
			return fmt.Errorf("weight for %s must be positive", mt)
		}
	}
	return nil
}

// Allocate splits daily calories across the selected meal types,
// re-normalizing the weights so the allocations sum to daily.
func (w Weights) Allocate(daily float64, mealTypes []recipes.MealType) map[recipes.MealType]float64 {
	var sum float64
	for _, mt := range mealTypes {
		sum += w[mt]
	}
	out := make(map[recipes.MealType]float64, len(mealTypes))
	for _, mt := range mealTypes {
		out[mt] = daily * w[mt] / sum
	}
	return out
}

// Params are the generation parameters of a plan. They are persisted with
// the plan so it can be regenerated later.
type Params struct {
	DietaryType   recipes.DietaryType `json:"dietary_type"`
	MealTypes     []recipes.MealType  `json:"meal_types"`
	Days          int                 `json:"days"`
	DailyCalories float64             `json:"daily_calories"`
}

// Validate checks bounds and canonicalizes labels in place. Meal types are
// de-duplicated and put in breakfast, lunch, dinner, snack order.
func (p *Params) Validate() error {
	if p.Days < MinDays || p.Days > MaxDays {
		return planerr.InvalidQuery("Number of days must be between %d and %d", MinDays, MaxDays)
	}
	if len(p.MealTypes) == 0 {
		return planerr.InvalidQuery("At least one meal type is required")
	}
	if p.DailyCalories < MinDailyCalories || p.DailyCalories > MaxDailyCalories {
		return planerr.InvalidQuery("Daily calories must be between %d and %d", MinDailyCalories, MaxDailyCalories)
	}
	dt, err := recipes.ParseDietaryType(string(p.DietaryType))
	if err != nil {
		return planerr.InvalidQuery("Dietary type %q is not supported", p.DietaryType)
	}
	p.DietaryType = dt

	seen := make(map[recipes.MealType]bool, len(p.MealTypes))
	types := make([]recipes.MealType, 0, len(p.MealTypes))
	for _, raw := range p.MealTypes {
		mt, err := recipes.ParseMealType(string(raw))
		if err != nil {
			return planerr.InvalidQuery("Meal type %q is not supported", raw)
		}
		if !seen[mt] {
			seen[mt] = true
			types = append(types, mt)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Order() < types[j].Order() })
	p.MealTypes = types
	return nil
}

// Request is one assembly run.
type Request struct {
	Params
	// Exclude is merged into every slot's exclusion set.
	Exclude selection.ExcludeSet
	Mode    selection.Mode
	// Previous is the plan being regenerated, if any.
	Previous *MealPlan
}

// Meal is one filled slot.
type Meal struct {
	MealType          recipes.MealType `json:"meal_type"`
	CalorieAllocation float64          `json:"calorie_allocation"`
	Recipe            recipes.Recipe   `json:"recipe"`
}

// DayPlan holds the meals of one day in meal-type order.
type DayPlan struct {
	DayIndex      int               `json:"day_index"`
	Meals         []Meal            `json:"meals"`
	TotalCalories int               `json:"total_calories"`
	Totals        recipes.Nutrients `json:"totals"`
}

// WithinTolerance reports whether the day's total is within pct of target.
func (d DayPlan) WithinTolerance(target, pct float64) bool {
	return math.Abs(float64(d.TotalCalories)-target) <= target*pct+1e-6
}

// MealPlan is an assembled multi-day plan.
type MealPlan struct {
	Days               []DayPlan `json:"day_plans"`
	DailyCalorieTarget float64   `json:"daily_calorie_target"`
	Params             Params    `json:"params"`
	TolerancePct       float64   `json:"tolerance_pct"`
	// RelaxedSlots counts slots filled under per-day exclusion.
	RelaxedSlots int `json:"relaxed_slots,omitempty"`
}

// RecipeIDs returns every recipe id in the plan, in day and meal order.
func (p *MealPlan) RecipeIDs() []string {
	var ids []string
	for _, d := range p.Days {
		for _, m := range d.Meals {
			ids = append(ids, m.Recipe.ID)
		}
	}
	return ids
}

// RecipeAt returns the recipe id filling a slot, or "".
func (p *MealPlan) RecipeAt(day int, mt recipes.MealType) string {
	if p == nil || day < 1 || day > len(p.Days) {
		return ""
	}
	for _, m := range p.Days[day-1].Meals {
		if m.MealType == mt {
			return m.Recipe.ID
		}
	}
	return ""
}
