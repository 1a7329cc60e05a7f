package custommeals

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/meal-planner/internal/regenerate"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrInvalidMode   = errors.New("mode must be 'ingredient' or 'nutrient'")
	ErrEntryNotFound = errors.New("saved custom meal not found")
)

// Service handles single-recipe searches and their history.
type Service struct {
	controller *regenerate.Controller
	storage    storage.CustomMealsStorage
}

// NewService creates a new custom meals service.
func NewService(controller *regenerate.Controller, storage storage.CustomMealsStorage) *Service {
	return &Service{controller: controller, storage: storage}
}

// Search runs q and makes the match the user's current result for its mode.
func (s *Service) Search(ctx context.Context, ownerUserID string, q regenerate.CustomQuery, save bool) (CustomMealResultDTO, error) {
	res, err := s.controller.SearchCustomMeal(ctx, ownerUserID, q, save)
	if err != nil {
		return CustomMealResultDTO{}, err
	}
	return toResultDTO(res), nil
}

// Refresh returns a different recipe for the same query.
func (s *Service) Refresh(ctx context.Context, ownerUserID string, q regenerate.CustomQuery, save bool) (CustomMealResultDTO, error) {
	res, err := s.controller.RefreshCustomMeal(ctx, ownerUserID, q, save)
	if err != nil {
		return CustomMealResultDTO{}, err
	}
	return toResultDTO(res), nil
}

// Current returns the user's current result for mode.
func (s *Service) Current(ctx context.Context, ownerUserID, mode string) (*CustomMealResultDTO, error) {
	if mode != regenerate.ModeIngredient && mode != regenerate.ModeNutrient {
		return nil, ErrInvalidMode
	}
	res, found, err := s.storage.GetCurrent(ctx, ownerUserID, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to get current custom meal: %w", err)
	}
	if !found {
		return nil, nil
	}
	dto := toResultDTO(&regenerate.CustomMeal{Result: res})
	return &dto, nil
}

// History lists saved results, newest first. An empty mode lists both.
func (s *Service) History(ctx context.Context, ownerUserID, mode string, limit, offset int) ([]SavedCustomMealDTO, error) {
	if mode != "" && mode != regenerate.ModeIngredient && mode != regenerate.ModeNutrient {
		return nil, ErrInvalidMode
	}
	list, err := s.storage.ListHistory(ctx, ownerUserID, mode, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom meal history: %w", err)
	}
	out := make([]SavedCustomMealDTO, len(list))
	for i, item := range list {
		out[i] = toSavedDTO(item)
	}
	return out, nil
}

// DeleteHistory removes one saved result.
func (s *Service) DeleteHistory(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	if err := s.storage.DeleteHistory(ctx, ownerUserID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("failed to delete custom meal: %w", err)
	}
	return nil
}
