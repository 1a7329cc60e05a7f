package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/fdg312/meal-planner/internal/storage"
)

// ErrInvalidTargets wraps request validation failures.
var ErrInvalidTargets = errors.New("invalid nutrition targets")

// Service handles nutrition targets business logic.
type Service struct {
	targetsStorage storage.NutritionTargetsStorage
}

// NewService creates a new nutrition service.
func NewService(targetsStorage storage.NutritionTargetsStorage) *Service {
	return &Service{targetsStorage: targetsStorage}
}

// GetOrDefault returns the user's targets, or defaults if none are stored.
func (s *Service) GetOrDefault(ctx context.Context, ownerUserID string) (TargetsDTO, bool, error) {
	target, err := s.targetsStorage.Get(ctx, ownerUserID)
	if err != nil {
		return TargetsDTO{}, false, fmt.Errorf("failed to get nutrition targets: %w", err)
	}
	if target == nil {
		return GetDefaultTargets(), true, nil
	}
	return toDTO(target), false, nil
}

// Upsert creates or updates the user's targets.
func (s *Service) Upsert(ctx context.Context, ownerUserID string, req UpsertTargetsRequest) (TargetsDTO, error) {
	if err := req.Resolve(); err != nil {
		return TargetsDTO{}, fmt.Errorf("%w: %v", ErrInvalidTargets, err)
	}

	upsert := storage.NutritionTargetUpsert{
		CaloriesKcal: req.CaloriesKcal,
		ProteinG:     req.ProteinG,
		FatG:         req.FatG,
		CarbsG:       req.CarbsG,
		FiberG:       req.FiberG,
	}
	if req.Physiology != nil {
		raw, err := json.Marshal(req.Physiology)
		if err != nil {
			return TargetsDTO{}, fmt.Errorf("failed to encode physiology: %w", err)
		}
		upsert.Physiology = raw
	}

	target, err := s.targetsStorage.Upsert(ctx, ownerUserID, upsert)
	if err != nil {
		return TargetsDTO{}, fmt.Errorf("failed to upsert nutrition targets: %w", err)
	}
	return toDTO(target), nil
}

// DailyCalories is the calorie target plan generation falls back to.
func (s *Service) DailyCalories(ctx context.Context, ownerUserID string) (float64, error) {
	targets, _, err := s.GetOrDefault(ctx, ownerUserID)
	if err != nil {
		return 0, err
	}
	return float64(targets.CaloriesKcal), nil
}

func toDTO(target *storage.NutritionTarget) TargetsDTO {
	dto := TargetsDTO{
		CaloriesKcal: target.CaloriesKcal,
		ProteinG:     target.ProteinG,
		FatG:         target.FatG,
		CarbsG:       target.CarbsG,
		FiberG:       target.FiberG,
		CreatedAt:    target.CreatedAt,
		UpdatedAt:    target.UpdatedAt,
	}
	if len(target.Physiology) > 0 && string(target.Physiology) != "null" {
		var p Physiology
		if err := json.Unmarshal(target.Physiology, &p); err != nil {
			log.Printf("WARNING: stored physiology for %s is unreadable: %v", target.OwnerUserID, err)
		} else {
			dto.Physiology = &p
		}
	}
	return dto
}
