package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/google/uuid"
)

type mealPlansStorage struct {
	mu    sync.RWMutex
	plans map[string]*storage.MealPlan     // key: plan_id
	items map[string]*storage.MealPlanItem // key: item_id
	// index for owner lookups
	byOwner     map[string]string   // key: ownerUserID -> active plan_id
	itemsByPlan map[string][]string // key: plan_id -> []item_id
}

func newMealPlansStorage() *mealPlansStorage {
	return &mealPlansStorage{
		plans:       make(map[string]*storage.MealPlan),
		items:       make(map[string]*storage.MealPlanItem),
		byOwner:     make(map[string]string),
		itemsByPlan: make(map[string][]string),
	}
}

func (s *mealPlansStorage) GetActive(ctx context.Context, ownerUserID string) (storage.MealPlan, []storage.MealPlanItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.activeLocked(ownerUserID)
	if !ok {
		return storage.MealPlan{}, nil, false, nil
	}

	return *plan, s.getItemsByPlanIDLocked(plan.ID), true, nil
}

func (s *mealPlansStorage) ReplaceActive(ctx context.Context, ownerUserID string, expectedVersion int, upsert storage.MealPlanUpsert) (storage.MealPlan, []storage.MealPlanItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := 0
	existing, ok := s.activeLocked(ownerUserID)
	if ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return storage.MealPlan{}, nil, storage.ErrVersionConflict
	}

	now := time.Now().UTC()
	createdAt := now
	if ok {
		createdAt = existing.CreatedAt
		s.deletePlanAndItemsLocked(existing.ID)
	}

	newPlanID := uuid.New().String()
	plan := &storage.MealPlan{
		ID:            newPlanID,
		OwnerUserID:   ownerUserID,
		Title:         upsert.Title,
		DietaryType:   upsert.DietaryType,
		MealTypes:     append([]string(nil), upsert.MealTypes...),
		Days:          upsert.Days,
		DailyCalories: upsert.DailyCalories,
		TolerancePct:  upsert.TolerancePct,
		Version:       expectedVersion + 1,
		StartDate:     upsert.StartDate,
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	}

	s.plans[newPlanID] = plan
	s.byOwner[ownerUserID] = newPlanID

	items := make([]storage.MealPlanItem, 0, len(upsert.Items))
	for _, itemReq := range upsert.Items {
		item := storage.NewMealPlanItem(uuid.New().String(), ownerUserID, newPlanID, itemReq, now)
		s.items[item.ID] = &item
		s.itemsByPlan[newPlanID] = append(s.itemsByPlan[newPlanID], item.ID)
		items = append(items, item)
	}

	return *plan, items, nil
}

func (s *mealPlansStorage) DeleteActive(ctx context.Context, ownerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	planID, ok := s.byOwner[ownerUserID]
	if !ok {
		return nil // nothing to delete
	}

	s.deletePlanAndItemsLocked(planID)
	delete(s.byOwner, ownerUserID)

	return nil
}

func (s *mealPlansStorage) GetToday(ctx context.Context, ownerUserID string, date time.Time) (int, []storage.MealPlanItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.activeLocked(ownerUserID)
	if !ok {
		return 0, nil, false, nil
	}

	dayIndex := storage.DayIndexFor(plan.StartDate, date, plan.Days)

	var results []storage.MealPlanItem
	for _, item := range s.getItemsByPlanIDLocked(plan.ID) {
		if item.DayIndex == dayIndex {
			results = append(results, item)
		}
	}

	return dayIndex, results, true, nil
}

// Helper methods (must be called with lock held)
func (s *mealPlansStorage) activeLocked(ownerUserID string) (*storage.MealPlan, bool) {
	planID, ok := s.byOwner[ownerUserID]
	if !ok {
		return nil, false
	}
	plan, ok := s.plans[planID]
	return plan, ok
}

func (s *mealPlansStorage) getItemsByPlanIDLocked(planID string) []storage.MealPlanItem {
	itemIDs, ok := s.itemsByPlan[planID]
	if !ok {
		return []storage.MealPlanItem{}
	}

	items := make([]storage.MealPlanItem, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		if item, ok := s.items[itemID]; ok {
			items = append(items, *item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DayIndex < items[j].DayIndex
	})

	return items
}

func (s *mealPlansStorage) deletePlanAndItemsLocked(planID string) {
	if itemIDs, ok := s.itemsByPlan[planID]; ok {
		for _, itemID := range itemIDs {
			delete(s.items, itemID)
		}
		delete(s.itemsByPlan, planID)
	}

	delete(s.plans, planID)
}
