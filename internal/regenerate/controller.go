package regenerate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/planner"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/selection"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/fdg312/meal-planner/internal/telemetry"
)

// ErrNoCurrentPlan is returned when regeneration finds nothing to regenerate.
var ErrNoCurrentPlan = errors.New("no current meal plan")

// CatalogSource yields the current catalog snapshot.
type CatalogSource interface {
	Get(ctx context.Context) (*recipes.Catalog, error)
}

// Controller owns every read-modify-write of a user's current plan and
// current custom meals. Work for one user and record is serialized
// in-process; storage versioning catches writers in other processes.
type Controller struct {
	catalog CatalogSource
	engine  *Engine
	plans   storage.MealPlansStorage
	custom  storage.CustomMealsStorage
	locks   *keyedMutex
	now     func() time.Time
}

// NewController creates a controller.
func NewController(catalog CatalogSource, engine *Engine, plans storage.MealPlansStorage, custom storage.CustomMealsStorage) *Controller {
	return &Controller{
		catalog: catalog,
		engine:  engine,
		plans:   plans,
		custom:  custom,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// Engine returns the engine the controller assembles with.
func (c *Controller) Engine() *Engine {
	return c.engine
}

// GeneratePlan assembles a fresh plan in default mode and makes it the
// user's current plan, replacing any previous one.
func (c *Controller) GeneratePlan(ctx context.Context, userID string, params planner.Params) (*StoredPlan, error) {
	unlock := c.locks.Lock("plan:" + userID)
	defer unlock()

	started := time.Now()
	cat, err := c.catalog.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	current, _, found, err := c.plans.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current plan: %w", err)
	}
	version := 0
	if found {
		version = current.Version
	}

	plan, err := c.engine.Assembler.Assemble(ctx, cat, planner.Request{Params: params, Mode: selection.ModeDefault})
	observePlan(selection.ModeDefault, started, plan, err)
	if err != nil {
		return nil, err
	}

	return c.persistPlan(ctx, userID, version, plan)
}

// RegeneratePlan replaces the current plan with one that shares no recipe
// with it, using the parameters the current plan was generated with.
func (c *Controller) RegeneratePlan(ctx context.Context, userID string) (*StoredPlan, error) {
	unlock := c.locks.Lock("plan:" + userID)
	defer unlock()

	started := time.Now()
	cat, err := c.catalog.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	current, items, found, err := c.plans.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current plan: %w", err)
	}
	if !found {
		return nil, ErrNoCurrentPlan
	}
	previous := toStoredPlan(current, items).Plan

	plan, err := c.engine.Assembler.Assemble(ctx, cat, planner.Request{
		Params:   previous.Params,
		Exclude:  selection.NewExcludeSet(previous.RecipeIDs()...),
		Mode:     selection.ModeRegenerate,
		Previous: previous,
	})
	observePlan(selection.ModeRegenerate, started, plan, err)
	if err != nil {
		return nil, err
	}

	return c.persistPlan(ctx, userID, current.Version, plan)
}

// CurrentPlan returns the user's current plan, if any.
func (c *Controller) CurrentPlan(ctx context.Context, userID string) (*StoredPlan, bool, error) {
	current, items, found, err := c.plans.GetActive(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load current plan: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return toStoredPlan(current, items), true, nil
}

// DeletePlan drops the user's current plan.
func (c *Controller) DeletePlan(ctx context.Context, userID string) error {
	unlock := c.locks.Lock("plan:" + userID)
	defer unlock()
	return c.plans.DeleteActive(ctx, userID)
}

// Today returns the plan day that falls on date. The plan cycles from its
// start date.
func (c *Controller) Today(ctx context.Context, userID string, date time.Time) (int, []storage.MealPlanItem, bool, error) {
	return c.plans.GetToday(ctx, userID, date)
}

func (c *Controller) persistPlan(ctx context.Context, userID string, expectedVersion int, plan *planner.MealPlan) (*StoredPlan, error) {
	stored, items, err := c.plans.ReplaceActive(ctx, userID, expectedVersion, toUpsert(plan, startOfDay(c.now())))
	if err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			telemetry.ObserveConflict("meal_plan")
			return nil, planerr.Conflict(err)
		}
		return nil, fmt.Errorf("failed to save meal plan: %w", err)
	}

	out := toStoredPlan(stored, items)
	// keep the assembly-time counters the rows do not carry
	out.Plan.RelaxedSlots = plan.RelaxedSlots
	return out, nil
}

func observePlan(mode selection.Mode, started time.Time, plan *planner.MealPlan, err error) {
	relaxed := 0
	if plan != nil {
		relaxed = plan.RelaxedSlots
	}
	telemetry.ObservePlan(mode.String(), time.Since(started), relaxed, err)
}
