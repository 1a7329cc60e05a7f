package regenerate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fdg312/meal-planner/internal/matcher"
	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/selection"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/fdg312/meal-planner/internal/telemetry"
)

// Custom meal search modes.
const (
	ModeIngredient = "ingredient"
	ModeNutrient   = "nutrient"
)

// CustomQuery is a single-recipe search. Only the sub-query named by Mode
// is used.
type CustomQuery struct {
	Mode       string
	Ingredient matcher.IngredientQuery
	Nutrient   matcher.NutrientQuery
}

// IsZero reports whether the query carries no search input for its mode.
func (q CustomQuery) IsZero() bool {
	switch q.Mode {
	case ModeIngredient:
		return q.Ingredient.Ingredient == "" && len(q.Ingredient.Restrictions) == 0
	case ModeNutrient:
		return q.Nutrient.Calories == 0 && q.Nutrient.Nutrient == "" && q.Nutrient.Value == 0
	}
	return true
}

func (q CustomQuery) marshal() (json.RawMessage, error) {
	switch q.Mode {
	case ModeIngredient:
		return json.Marshal(q.Ingredient)
	case ModeNutrient:
		return json.Marshal(q.Nutrient)
	}
	return nil, planerr.InvalidQuery("Search mode %q is not supported", q.Mode)
}

func (q *CustomQuery) unmarshal(data json.RawMessage) error {
	switch q.Mode {
	case ModeIngredient:
		return json.Unmarshal(data, &q.Ingredient)
	case ModeNutrient:
		return json.Unmarshal(data, &q.Nutrient)
	}
	return planerr.InvalidQuery("Search mode %q is not supported", q.Mode)
}

// CustomMeal is the outcome of a search or refresh.
type CustomMeal struct {
	Result storage.CustomMealResult
	// Saved is set when the result was also appended to history.
	Saved *storage.SavedCustomMeal
}

// SearchCustomMeal runs q in default mode and stores the best match as the
// user's current result for the mode.
func (c *Controller) SearchCustomMeal(ctx context.Context, userID string, q CustomQuery, save bool) (*CustomMeal, error) {
	return c.customMeal(ctx, userID, q, save, false)
}

// RefreshCustomMeal re-runs a search in regeneration mode, never returning
// the user's current result for the mode. A zero query reuses the query
// stored with the current result.
func (c *Controller) RefreshCustomMeal(ctx context.Context, userID string, q CustomQuery, save bool) (*CustomMeal, error) {
	return c.customMeal(ctx, userID, q, save, true)
}

func (c *Controller) customMeal(ctx context.Context, userID string, q CustomQuery, save, refresh bool) (*CustomMeal, error) {
	if q.Mode != ModeIngredient && q.Mode != ModeNutrient {
		return nil, planerr.InvalidQuery("Search mode %q is not supported", q.Mode)
	}

	unlock := c.locks.Lock("custom:" + userID + ":" + q.Mode)
	defer unlock()

	current, found, err := c.custom.GetCurrent(ctx, userID, q.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to load current custom meal: %w", err)
	}

	excluded := selection.NewExcludeSet()
	mode := selection.ModeDefault
	if refresh {
		mode = selection.ModeRegenerate
		if q.IsZero() {
			if !found {
				return nil, planerr.InvalidQuery("There is no previous %s search to refresh", q.Mode)
			}
			if err := q.unmarshal(current.Query); err != nil {
				return nil, fmt.Errorf("failed to decode stored query: %w", err)
			}
		}
		if found {
			excluded.Add(current.Recipe.ID)
		}
	}

	cat, err := c.catalog.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	var cands []matcher.Candidate
	switch q.Mode {
	case ModeIngredient:
		cands, err = c.engine.Matcher.Ingredient(cat, q.Ingredient)
	case ModeNutrient:
		cands, err = c.engine.Matcher.Nutrient(cat, q.Nutrient)
	}
	if err != nil {
		telemetry.ObserveCustomMeal(q.Mode, 0, err)
		return nil, err
	}

	recipe, err := c.engine.Policy.Select(cands, excluded, mode)
	telemetry.ObserveCustomMeal(q.Mode, len(cands), err)
	if err != nil {
		return nil, err
	}

	// the matcher canonicalized q in its own copy; store what was asked
	raw, err := q.marshal()
	if err != nil {
		return nil, err
	}
	upsert := storage.CustomMealUpsert{Mode: q.Mode, Query: raw, Recipe: recipe}

	version := 0
	if found {
		version = current.Version
	}
	res, err := c.custom.ReplaceCurrent(ctx, userID, version, upsert)
	if err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			telemetry.ObserveConflict("custom_meal")
			return nil, planerr.Conflict(err)
		}
		return nil, fmt.Errorf("failed to save custom meal: %w", err)
	}

	out := &CustomMeal{Result: res}
	if save {
		saved, err := c.custom.SaveHistory(ctx, userID, upsert)
		if err != nil {
			return nil, fmt.Errorf("failed to save custom meal history: %w", err)
		}
		out.Saved = &saved
	}
	return out, nil
}
