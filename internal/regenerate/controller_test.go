package regenerate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/meal-planner/internal/config"
	"github.com/fdg312/meal-planner/internal/matcher"
	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/planner"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/fdg312/meal-planner/internal/storage/memory"
)

type staticCatalog struct {
	cat *recipes.Catalog
}

func (s staticCatalog) Get(ctx context.Context) (*recipes.Catalog, error) {
	return s.cat, nil
}

// conflictingPlans loses every write to a concurrent writer.
type conflictingPlans struct {
	storage.MealPlansStorage
}

func (conflictingPlans) ReplaceActive(ctx context.Context, ownerUserID string, expectedVersion int, up storage.MealPlanUpsert) (storage.MealPlan, []storage.MealPlanItem, error) {
	return storage.MealPlan{}, nil, storage.ErrVersionConflict
}

func newTestController(t *testing.T, plans storage.MealPlansStorage) *Controller {
	t.Helper()
	cat, err := recipes.Seed()
	require.NoError(t, err)

	policy := config.DefaultEnginePolicy()
	policy.Seed = 42
	engine, err := NewEngine(policy)
	require.NoError(t, err)

	mem := memory.New(nil)
	if plans == nil {
		plans = mem.GetMealPlansStorage()
	}
	c := NewController(staticCatalog{cat}, engine, plans, mem.GetCustomMealsStorage())
	c.now = func() time.Time { return time.Date(2026, 3, 2, 15, 4, 0, 0, time.UTC) }
	return c
}

var ketoParams = planner.Params{
	DietaryType:   "keto",
	MealTypes:     recipes.MealTypes,
	Days:          3,
	DailyCalories: 2200,
}

func TestGeneratePlanPersistsCurrentPlan(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()

	stored, err := c.GeneratePlan(ctx, "u1", ketoParams)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), stored.StartDate.UTC())
	require.Len(t, stored.Plan.Days, 3)
	assert.Equal(t, recipes.Keto, stored.Plan.Params.DietaryType)

	current, found, err := c.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, stored.Plan.RecipeIDs(), current.Plan.RecipeIDs())
	for _, d := range current.Plan.Days {
		require.Len(t, d.Meals, 4)
		assert.True(t, d.WithinTolerance(2200, current.Plan.TolerancePct))
	}

	again, err := c.GeneratePlan(ctx, "u1", ketoParams)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version, "generate replaces the current plan")

	_, found, err = c.CurrentPlan(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGeneratePlanRejectsInvalidParams(t *testing.T) {
	c := newTestController(t, nil)
	params := ketoParams
	params.Days = 8

	_, err := c.GeneratePlan(context.Background(), "u1", params)
	assert.True(t, planerr.Is(err, planerr.CodeInvalidQuery), "got %v", err)

	_, found, _ := c.CurrentPlan(context.Background(), "u1")
	assert.False(t, found, "failed generation must not store a plan")
}

func TestRegeneratePlanSharesNoRecipe(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()

	first, err := c.GeneratePlan(ctx, "u1", ketoParams)
	require.NoError(t, err)

	second, err := c.RegeneratePlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, first.Plan.Params, second.Plan.Params)

	prev := make(map[string]bool)
	for _, id := range first.Plan.RecipeIDs() {
		prev[id] = true
	}
	for _, id := range second.Plan.RecipeIDs() {
		assert.False(t, prev[id], "recipe %s repeated after regeneration", id)
	}
}

func TestRegeneratePlanWithoutCurrentPlan(t *testing.T) {
	c := newTestController(t, nil)
	_, err := c.RegeneratePlan(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNoCurrentPlan)
}

func TestRegeneratePlanSerializesPerUser(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()
	_, err := c.GeneratePlan(ctx, "u1", ketoParams)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.RegeneratePlan(ctx, "u1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	current, _, err := c.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, current.Version)
	assert.Zero(t, c.locks.size())
}

func TestPersistenceConflictSurfaces(t *testing.T) {
	mem := memory.New(nil)
	c := newTestController(t, conflictingPlans{mem.GetMealPlansStorage()})

	_, err := c.GeneratePlan(context.Background(), "u1", ketoParams)
	require.Error(t, err)
	assert.True(t, planerr.Is(err, planerr.CodePersistenceConflict))
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	pe, ok := planerr.As(err)
	require.True(t, ok)
	assert.True(t, pe.Retryable())
}

func TestSearchAndRefreshCustomMeal(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()
	q := CustomQuery{Mode: ModeIngredient, Ingredient: matcher.IngredientQuery{
		Ingredient:   "  Chicken ",
		Restrictions: []string{"gluten-free"},
	}}

	first, err := c.SearchCustomMeal(ctx, "u1", q, false)
	require.NoError(t, err)
	assert.Nil(t, first.Saved)
	assert.Equal(t, 1, first.Result.Version)
	assert.True(t, first.Result.Recipe.HasIngredient("chicken"))

	again, err := c.SearchCustomMeal(ctx, "u1", q, false)
	require.NoError(t, err)
	assert.Equal(t, first.Result.Recipe.ID, again.Result.Recipe.ID, "default mode is deterministic")

	prev := again.Result.Recipe.ID
	for i := 0; i < 10; i++ {
		next, err := c.RefreshCustomMeal(ctx, "u1", q, false)
		require.NoError(t, err)
		assert.NotEqual(t, prev, next.Result.Recipe.ID, "refresh %d returned the previous recipe", i)
		assert.True(t, next.Result.Recipe.SupportsRestrictions([]string{"Gluten-Free"}))
		prev = next.Result.Recipe.ID
	}
}

func TestRefreshReusesStoredQuery(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()

	_, err := c.RefreshCustomMeal(ctx, "u1", CustomQuery{Mode: ModeNutrient}, false)
	assert.True(t, planerr.Is(err, planerr.CodeInvalidQuery), "nothing to refresh yet: %v", err)

	q := CustomQuery{Mode: ModeNutrient, Nutrient: matcher.NutrientQuery{Calories: 500, Nutrient: "Protein", Value: 30}}
	first, err := c.SearchCustomMeal(ctx, "u1", q, true)
	require.NoError(t, err)
	require.NotNil(t, first.Saved)
	assert.Equal(t, ModeNutrient, first.Saved.Mode)

	next, err := c.RefreshCustomMeal(ctx, "u1", CustomQuery{Mode: ModeNutrient}, false)
	require.NoError(t, err)
	assert.NotEqual(t, first.Result.Recipe.ID, next.Result.Recipe.ID)
	assert.InDelta(t, 500, next.Result.Recipe.Calories, 50)
	assert.InDelta(t, 30, next.Result.Recipe.Nutrients.Protein, 4.5)
	assert.JSONEq(t, string(first.Result.Query), string(next.Result.Query))
}

func TestCustomMealErrors(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()

	_, err := c.SearchCustomMeal(ctx, "u1", CustomQuery{Mode: "calories"}, false)
	assert.True(t, planerr.Is(err, planerr.CodeInvalidQuery))

	_, err = c.SearchCustomMeal(ctx, "u1", CustomQuery{Mode: ModeNutrient, Nutrient: matcher.NutrientQuery{Calories: 2500, Nutrient: "protein", Value: 30}}, false)
	require.Error(t, err)
	pe, _ := planerr.As(err)
	assert.Equal(t, "Calories must be between 100 and 2000", pe.Message)

	_, err = c.SearchCustomMeal(ctx, "u1", CustomQuery{Mode: ModeIngredient, Ingredient: matcher.IngredientQuery{Ingredient: "dragonfruit jam"}}, false)
	assert.True(t, planerr.Is(err, planerr.CodeNoMatchFound))

	_, found, err := c.custom.GetCurrent(ctx, "u1", ModeIngredient)
	require.NoError(t, err)
	assert.False(t, found, "failed searches leave no current result")
}

func TestNewEngine(t *testing.T) {
	p := config.DefaultEnginePolicy()
	p.MealWeights = map[string]float64{"breakfast": 40}
	e, err := NewEngine(p)
	require.NoError(t, err)
	assert.Equal(t, planner.ExhaustionFail, e.Assembler.Exhaustion())
	assert.Equal(t, 5, e.Policy.TopK())

	p.MealWeights = map[string]float64{"brunch": 10}
	_, err = NewEngine(p)
	assert.Error(t, err)

	p = config.DefaultEnginePolicy()
	p.Exhaustion = "retry"
	_, err = NewEngine(p)
	assert.Error(t, err)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	done := make(chan struct{})
	go func() {
		defer close(done)
		k.Lock("a")()
	}()

	select {
	case <-done:
		t.Fatal("second Lock must wait")
	case <-time.After(20 * time.Millisecond):
	}
	k.Lock("b")()
	unlock()
	<-done
	assert.Zero(t, k.size())
}
