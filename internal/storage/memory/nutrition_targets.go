package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/google/uuid"
)

type nutritionTargetsStorage struct {
	mu      sync.RWMutex
	targets map[string]*storage.NutritionTarget // key: ownerUserID
}

func newNutritionTargetsStorage() *nutritionTargetsStorage {
	return &nutritionTargetsStorage{
		targets: make(map[string]*storage.NutritionTarget),
	}
}

func (s *nutritionTargetsStorage) Get(ctx context.Context, ownerUserID string) (*storage.NutritionTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.targets[ownerUserID]
	if !ok {
		return nil, nil // not found, return nil without error
	}

	copied := *target
	return &copied, nil
}

func (s *nutritionTargetsStorage) Upsert(ctx context.Context, ownerUserID string, upsert storage.NutritionTargetUpsert) (*storage.NutritionTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	existing, ok := s.targets[ownerUserID]
	if ok {
		existing.CaloriesKcal = upsert.CaloriesKcal
		existing.ProteinG = upsert.ProteinG
		existing.FatG = upsert.FatG
		existing.CarbsG = upsert.CarbsG
		existing.FiberG = upsert.FiberG
		existing.Physiology = append([]byte(nil), upsert.Physiology...)
		existing.UpdatedAt = now

		copied := *existing
		return &copied, nil
	}

	target := &storage.NutritionTarget{
		ID:           uuid.New(),
		OwnerUserID:  ownerUserID,
		CaloriesKcal: upsert.CaloriesKcal,
		ProteinG:     upsert.ProteinG,
		FatG:         upsert.FatG,
		CarbsG:       upsert.CarbsG,
		FiberG:       upsert.FiberG,
		Physiology:   append([]byte(nil), upsert.Physiology...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.targets[ownerUserID] = target

	copied := *target
	return &copied, nil
}
