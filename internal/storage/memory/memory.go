package memory

import (
	"context"

	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/storage"
)

// MemoryStorage — in-memory реализация Storage и всех под-хранилищ
type MemoryStorage struct {
	recipes          *RecipesMemoryStorage
	mealPlans        *mealPlansStorage
	customMeals      *customMealsStorage
	nutritionTargets *nutritionTargetsStorage
	reports          *ReportsMemoryStorage
}

// New создаёт новый MemoryStorage, каталог заполняется переданными рецептами
func New(seed []recipes.Recipe) *MemoryStorage {
	rs := NewRecipesMemoryStorage()
	_, _ = rs.UpsertRecipes(context.Background(), seed)

	return &MemoryStorage{
		recipes:          rs,
		mealPlans:        newMealPlansStorage(),
		customMeals:      newCustomMealsStorage(),
		nutritionTargets: newNutritionTargetsStorage(),
		reports:          NewReportsMemoryStorage(),
	}
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStorage) Close() error {
	// no-op для memory
	return nil
}

// GetRecipesStorage returns the recipe catalog storage
func (m *MemoryStorage) GetRecipesStorage() storage.RecipesStorage {
	return m.recipes
}

// GetMealPlansStorage returns the meal plans storage
func (m *MemoryStorage) GetMealPlansStorage() storage.MealPlansStorage {
	return m.mealPlans
}

// GetCustomMealsStorage returns the custom meals storage
func (m *MemoryStorage) GetCustomMealsStorage() storage.CustomMealsStorage {
	return m.customMeals
}

// GetNutritionTargetsStorage returns the nutrition targets storage
func (m *MemoryStorage) GetNutritionTargetsStorage() storage.NutritionTargetsStorage {
	return m.nutritionTargets
}

// GetReportsStorage returns the reports storage
func (m *MemoryStorage) GetReportsStorage() storage.ReportsStorage {
	return m.reports
}
