package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/google/uuid"
)

func planUpsert(days int, ids ...string) storage.MealPlanUpsert {
	up := storage.MealPlanUpsert{
		Title:         "Vegan plan",
		DietaryType:   "Vegan",
		MealTypes:     []string{"Breakfast"},
		Days:          days,
		DailyCalories: 1800,
		TolerancePct:  0.1,
		StartDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	for i, id := range ids {
		up.Items = append(up.Items, storage.MealPlanItemUpsert{
			DayIndex:          i + 1,
			MealType:          "Breakfast",
			CalorieAllocation: 1800,
			Recipe:            recipes.Recipe{ID: id, Name: "Recipe " + id, Calories: 1750},
		})
	}
	return up
}

func TestMealPlans_ReplaceActiveVersioning(t *testing.T) {
	s := newMealPlansStorage()
	ctx := context.Background()

	plan, items, err := s.ReplaceActive(ctx, "u1", 0, planUpsert(2, "a", "b"))
	if err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if plan.Version != 1 {
		t.Errorf("expected version 1, got %d", plan.Version)
	}
	if len(items) != 2 || items[0].RecipeID != "a" || items[0].Kcal != 1750 {
		t.Errorf("unexpected items: %+v", items)
	}

	// stale writer loses
	if _, _, err := s.ReplaceActive(ctx, "u1", 0, planUpsert(1, "c")); !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	plan2, _, err := s.ReplaceActive(ctx, "u1", 1, planUpsert(1, "c"))
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if plan2.Version != 2 || plan2.ID == plan.ID {
		t.Errorf("expected new plan with version 2, got %+v", plan2)
	}

	got, gotItems, found, err := s.GetActive(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("GetActive: found=%v err=%v", found, err)
	}
	if got.ID != plan2.ID || len(gotItems) != 1 || gotItems[0].RecipeID != "c" {
		t.Errorf("old plan not replaced: %+v %+v", got, gotItems)
	}
	if len(s.items) != 1 {
		t.Errorf("expected old items to be removed, have %d", len(s.items))
	}
}

func TestMealPlans_ConcurrentReplaceOneWins(t *testing.T) {
	s := newMealPlansStorage()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.ReplaceActive(ctx, "u1", 0, planUpsert(1, "a"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, storage.ErrVersionConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflicts != 19 {
		t.Errorf("expected 1 win and 19 conflicts, got %d and %d", wins, conflicts)
	}
}

func TestMealPlans_GetTodayCycles(t *testing.T) {
	s := newMealPlansStorage()
	ctx := context.Background()

	if _, _, found, _ := s.GetToday(ctx, "u1", time.Now()); found {
		t.Fatal("expected no plan")
	}

	if _, _, err := s.ReplaceActive(ctx, "u1", 0, planUpsert(3, "a", "b", "c")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		date string
		day  int
		id   string
	}{
		{"2026-03-02", 1, "a"},
		{"2026-03-03", 2, "b"},
		{"2026-03-04", 3, "c"},
		{"2026-03-05", 1, "a"},
		{"2026-03-01", 3, "c"},
	}
	for _, tt := range tests {
		date, _ := time.Parse("2006-01-02", tt.date)
		day, items, found, err := s.GetToday(ctx, "u1", date)
		if err != nil || !found {
			t.Fatalf("%s: found=%v err=%v", tt.date, found, err)
		}
		if day != tt.day || len(items) != 1 || items[0].RecipeID != tt.id {
			t.Errorf("%s: expected day %d (%s), got day %d %+v", tt.date, tt.day, tt.id, day, items)
		}
	}
}

func TestMealPlans_DeleteActive(t *testing.T) {
	s := newMealPlansStorage()
	ctx := context.Background()

	if err := s.DeleteActive(ctx, "u1"); err != nil {
		t.Fatalf("delete without plan: %v", err)
	}
	if _, _, err := s.ReplaceActive(ctx, "u1", 0, planUpsert(1, "a")); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteActive(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, _, found, _ := s.GetActive(ctx, "u1"); found {
		t.Error("plan still present after delete")
	}
	// a deleted plan resets the version sequence
	if _, _, err := s.ReplaceActive(ctx, "u1", 0, planUpsert(1, "b")); err != nil {
		t.Errorf("replace after delete: %v", err)
	}
}

func TestCustomMeals_CurrentPerMode(t *testing.T) {
	s := newCustomMealsStorage()
	ctx := context.Background()
	q := json.RawMessage(`{"ingredient":"chicken"}`)

	res, err := s.ReplaceCurrent(ctx, "u1", 0, storage.CustomMealUpsert{Mode: "ingredient", Query: q, Recipe: recipes.Recipe{ID: "r1"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReplaceCurrent(ctx, "u1", 0, storage.CustomMealUpsert{Mode: "nutrient", Recipe: recipes.Recipe{ID: "r9"}}); err != nil {
		t.Fatalf("modes must be independent: %v", err)
	}
	if _, err := s.ReplaceCurrent(ctx, "u1", 0, storage.CustomMealUpsert{Mode: "ingredient", Recipe: recipes.Recipe{ID: "r2"}}); !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	next, err := s.ReplaceCurrent(ctx, "u1", res.Version, storage.CustomMealUpsert{Mode: "ingredient", Query: q, Recipe: recipes.Recipe{ID: "r2"}})
	if err != nil {
		t.Fatal(err)
	}
	if next.Version != 2 || next.ID != res.ID {
		t.Errorf("expected same row at version 2, got %+v", next)
	}

	cur, found, _ := s.GetCurrent(ctx, "u1", "ingredient")
	if !found || cur.Recipe.ID != "r2" || string(cur.Query) != string(q) {
		t.Errorf("unexpected current: %+v", cur)
	}
	if _, found, _ := s.GetCurrent(ctx, "u2", "ingredient"); found {
		t.Error("results leaked across users")
	}
}

func TestCustomMeals_History(t *testing.T) {
	s := newCustomMealsStorage()
	ctx := context.Background()

	first, _ := s.SaveHistory(ctx, "u1", storage.CustomMealUpsert{Mode: "ingredient", Recipe: recipes.Recipe{ID: "r1"}})
	s.SaveHistory(ctx, "u1", storage.CustomMealUpsert{Mode: "nutrient", Recipe: recipes.Recipe{ID: "r2"}})
	s.SaveHistory(ctx, "u1", storage.CustomMealUpsert{Mode: "ingredient", Recipe: recipes.Recipe{ID: "r3"}})
	s.SaveHistory(ctx, "u2", storage.CustomMealUpsert{Mode: "ingredient", Recipe: recipes.Recipe{ID: "r4"}})

	all, _ := s.ListHistory(ctx, "u1", "", 10, 0)
	if len(all) != 3 || all[0].Recipe.ID != "r3" || all[2].Recipe.ID != "r1" {
		t.Errorf("expected newest first, got %+v", all)
	}

	ing, _ := s.ListHistory(ctx, "u1", "ingredient", 1, 1)
	if len(ing) != 1 || ing[0].Recipe.ID != "r1" {
		t.Errorf("unexpected page: %+v", ing)
	}

	if err := s.DeleteHistory(ctx, "u2", first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("other user must not delete, got %v", err)
	}
	if err := s.DeleteHistory(ctx, "u1", first.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteHistory(ctx, "u1", uuid.New()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestNew_SeedsCatalog(t *testing.T) {
	seed, err := recipes.SeedRecipes()
	if err != nil {
		t.Fatal(err)
	}
	m := New(seed)

	list, err := m.GetRecipesStorage().ListRecipes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != len(seed) {
		t.Errorf("expected %d recipes, got %d", len(seed), len(list))
	}
	if _, err := m.GetRecipesStorage().GetRecipe(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
