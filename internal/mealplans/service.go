package mealplans

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fdg312/meal-planner/internal/regenerate"
)

// CalorieTargets supplies the daily calories a request omits.
type CalorieTargets interface {
	DailyCalories(ctx context.Context, ownerUserID string) (float64, error)
}

// Service handles meal plans business logic.
type Service struct {
	controller *regenerate.Controller
	targets    CalorieTargets
}

// NewService creates a new meal plans service.
func NewService(controller *regenerate.Controller, targets CalorieTargets) *Service {
	return &Service{controller: controller, targets: targets}
}

// Generate builds and stores a new plan for the user.
func (s *Service) Generate(ctx context.Context, ownerUserID string, req GeneratePlanRequest) (*MealPlanDTO, error) {
	params := req.params()
	if params.DailyCalories == 0 && s.targets != nil {
		kcal, err := s.targets.DailyCalories(ctx, ownerUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve daily calories: %w", err)
		}
		params.DailyCalories = kcal
	}

	plan, err := s.controller.GeneratePlan(ctx, ownerUserID, params)
	if err != nil {
		log.Printf("meal plan generate failed: user=%s err=%v", ownerUserID, err)
		return nil, err
	}
	return toPlanDTO(plan), nil
}

// Regenerate replaces the current plan with one sharing no recipe with it.
func (s *Service) Regenerate(ctx context.Context, ownerUserID string) (*MealPlanDTO, error) {
	plan, err := s.controller.RegeneratePlan(ctx, ownerUserID)
	if err != nil {
		log.Printf("meal plan regenerate failed: user=%s err=%v", ownerUserID, err)
		return nil, err
	}
	return toPlanDTO(plan), nil
}

// GetCurrent returns the current plan, or nil.
func (s *Service) GetCurrent(ctx context.Context, ownerUserID string) (*MealPlanDTO, error) {
	plan, found, err := s.controller.CurrentPlan(ctx, ownerUserID)
	if err != nil || !found {
		return nil, err
	}
	return toPlanDTO(plan), nil
}

// DeleteCurrent deletes the current plan.
func (s *Service) DeleteCurrent(ctx context.Context, ownerUserID string) error {
	return s.controller.DeletePlan(ctx, ownerUserID)
}

// GetToday returns the meals planned for a date; an empty dateStr means today.
func (s *Service) GetToday(ctx context.Context, ownerUserID string, dateStr string) (*GetTodayResponse, error) {
	date := time.Now().UTC()
	if dateStr != "" {
		var err error
		date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, ErrInvalidDate
		}
	}

	resp := &GetTodayResponse{Date: date.Format("2006-01-02"), Meals: []MealItemDTO{}}

	day, items, found, err := s.controller.Today(ctx, ownerUserID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get today's meals: %w", err)
	}
	if !found {
		return resp, nil
	}

	resp.DayIndex = day
	for _, item := range items {
		resp.Meals = append(resp.Meals, toItemDTO(item))
	}
	return resp, nil
}
