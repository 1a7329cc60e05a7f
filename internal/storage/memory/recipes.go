package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/storage"
)

// RecipesMemoryStorage — in-memory каталог рецептов
type RecipesMemoryStorage struct {
	mu      sync.RWMutex
	recipes map[string]recipes.Recipe
}

// NewRecipesMemoryStorage создаёт пустой каталог
func NewRecipesMemoryStorage() *RecipesMemoryStorage {
	return &RecipesMemoryStorage{
		recipes: make(map[string]recipes.Recipe),
	}
}

// ListRecipes возвращает все рецепты, отсортированные по ID
func (s *RecipesMemoryStorage) ListRecipes(ctx context.Context) ([]recipes.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]recipes.Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	return list, nil
}

// GetRecipe возвращает рецепт по ID
func (s *RecipesMemoryStorage) GetRecipe(ctx context.Context, id string) (*recipes.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

// UpsertRecipes создаёт или обновляет рецепты
func (s *RecipesMemoryStorage) UpsertRecipes(ctx context.Context, list []recipes.Recipe) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range list {
		s.recipes[r.ID] = r
	}
	return len(list), nil
}
