// Package regenerate runs plan generation, full-plan regeneration and
// single-meal refresh against per-user state held in storage.
package regenerate

import (
	"fmt"
	"math/rand/v2"

	"github.com/fdg312/meal-planner/internal/config"
	"github.com/fdg312/meal-planner/internal/matcher"
	"github.com/fdg312/meal-planner/internal/planner"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/selection"
)

// Engine bundles the matcher, selection policy and assembler built from
// one policy.
type Engine struct {
	Matcher   *matcher.Matcher
	Policy    *selection.Policy
	Assembler *planner.Assembler
}

// NewEngine builds an engine from p. Meal weights in p override the
// defaults per meal type.
func NewEngine(p config.EnginePolicy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	tol := matcher.Tolerances{CaloriePct: p.CalorieTolerancePct, NutrientPct: p.NutrientTolerancePct}
	if err := tol.Validate(); err != nil {
		return nil, err
	}

	exhaustion, err := planner.ParseExhaustionPolicy(p.Exhaustion)
	if err != nil {
		return nil, err
	}

	weights := make(planner.Weights, len(planner.DefaultWeights))
	for mt, w := range planner.DefaultWeights {
		weights[mt] = w
	}
	for name, w := range p.MealWeights {
		mt, err := recipes.ParseMealType(name)
		if err != nil {
			return nil, fmt.Errorf("meal_weights: %w", err)
		}
		weights[mt] = w
	}

	var src rand.Source
	if p.Seed != 0 {
		src = rand.NewPCG(p.Seed, p.Seed)
	}

	m := matcher.New(tol)
	pol := selection.NewPolicy(p.TopK, src)
	asm, err := planner.NewAssembler(m, pol, weights, exhaustion)
	if err != nil {
		return nil, err
	}
	return &Engine{Matcher: m, Policy: pol, Assembler: asm}, nil
}
