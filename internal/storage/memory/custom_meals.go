package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/google/uuid"
)

type customMealsStorage struct {
	mu      sync.RWMutex
	current map[string]*storage.CustomMealResult // key: "ownerUserID:mode"
	history map[uuid.UUID]*storage.SavedCustomMeal
	// seq breaks created_at ties so history order is stable
	seq   map[uuid.UUID]int64
	clock int64
}

func newCustomMealsStorage() *customMealsStorage {
	return &customMealsStorage{
		current: make(map[string]*storage.CustomMealResult),
		history: make(map[uuid.UUID]*storage.SavedCustomMeal),
		seq:     make(map[uuid.UUID]int64),
	}
}

func currentKey(ownerUserID, mode string) string {
	return ownerUserID + ":" + mode
}

func (s *customMealsStorage) GetCurrent(ctx context.Context, ownerUserID, mode string) (storage.CustomMealResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.current[currentKey(ownerUserID, mode)]
	if !ok {
		return storage.CustomMealResult{}, false, nil
	}
	return *res, true, nil
}

func (s *customMealsStorage) ReplaceCurrent(ctx context.Context, ownerUserID string, expectedVersion int, upsert storage.CustomMealUpsert) (storage.CustomMealResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := currentKey(ownerUserID, upsert.Mode)
	current := 0
	existing, ok := s.current[key]
	if ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return storage.CustomMealResult{}, storage.ErrVersionConflict
	}

	now := time.Now().UTC()
	res := &storage.CustomMealResult{
		ID:          uuid.New().String(),
		OwnerUserID: ownerUserID,
		Mode:        upsert.Mode,
		Query:       append([]byte(nil), upsert.Query...),
		Recipe:      upsert.Recipe,
		Version:     expectedVersion + 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ok {
		res.ID = existing.ID
		res.CreatedAt = existing.CreatedAt
	}
	s.current[key] = res

	return *res, nil
}

func (s *customMealsStorage) SaveHistory(ctx context.Context, ownerUserID string, upsert storage.CustomMealUpsert) (storage.SavedCustomMeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := &storage.SavedCustomMeal{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Mode:        upsert.Mode,
		Query:       append([]byte(nil), upsert.Query...),
		Recipe:      upsert.Recipe,
		CreatedAt:   time.Now().UTC(),
	}
	s.clock++
	s.history[saved.ID] = saved
	s.seq[saved.ID] = s.clock

	return *saved, nil
}

func (s *customMealsStorage) ListHistory(ctx context.Context, ownerUserID, mode string, limit, offset int) ([]storage.SavedCustomMeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []storage.SavedCustomMeal
	for _, h := range s.history {
		if h.OwnerUserID != ownerUserID {
			continue
		}
		if mode != "" && h.Mode != mode {
			continue
		}
		filtered = append(filtered, *h)
	}

	// newest first
	sort.Slice(filtered, func(i, j int) bool {
		return s.seq[filtered[i].ID] > s.seq[filtered[j].ID]
	})

	start := offset
	if start > len(filtered) {
		return []storage.SavedCustomMeal{}, nil
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end], nil
}

func (s *customMealsStorage) DeleteHistory(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history[id]
	if !ok || h.OwnerUserID != ownerUserID {
		return storage.ErrNotFound
	}

	delete(s.history, id)
	delete(s.seq, id)
	return nil
}
