package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type mealPlansStorage struct {
	pool *pgxpool.Pool
}

func newMealPlansStorage(pool *pgxpool.Pool) *mealPlansStorage {
	return &mealPlansStorage{pool: pool}
}

const planColumns = `id, owner_user_id, title, dietary_type, meal_types, days, daily_calories,
	tolerance_pct, version, start_date, created_at, updated_at`

const itemColumns = `id, owner_user_id, plan_id, day_index, meal_type, recipe_id, title,
	calorie_allocation, kcal, protein_g, fat_g, carbs_g, recipe, created_at`

// meal_type ordering shared by every items query
const itemOrder = `
	ORDER BY day_index,
		CASE meal_type
			WHEN 'Breakfast' THEN 1
			WHEN 'Lunch' THEN 2
			WHEN 'Dinner' THEN 3
			WHEN 'Snack' THEN 4
		END
`

func (s *mealPlansStorage) GetActive(ctx context.Context, ownerUserID string) (storage.MealPlan, []storage.MealPlanItem, bool, error) {
	planQuery := `SELECT ` + planColumns + ` FROM meal_plans WHERE owner_user_id = $1`

	plan, err := scanPlan(s.pool.QueryRow(ctx, planQuery, ownerUserID))
	if err == pgx.ErrNoRows {
		return storage.MealPlan{}, nil, false, nil
	}
	if err != nil {
		return storage.MealPlan{}, nil, false, fmt.Errorf("failed to get active meal plan: %w", err)
	}

	itemsQuery := `SELECT ` + itemColumns + ` FROM meal_plan_items WHERE owner_user_id = $1 AND plan_id = $2` + itemOrder

	items, err := s.queryItems(ctx, itemsQuery, ownerUserID, plan.ID)
	if err != nil {
		return storage.MealPlan{}, nil, false, err
	}

	return plan, items, true, nil
}

func (s *mealPlansStorage) ReplaceActive(ctx context.Context, ownerUserID string, expectedVersion int, upsert storage.MealPlanUpsert) (storage.MealPlan, []storage.MealPlanItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.MealPlan{}, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the current plan row so concurrent writers serialize on it
	var currentVersion int
	err = tx.QueryRow(ctx, `SELECT version FROM meal_plans WHERE owner_user_id = $1 FOR UPDATE`, ownerUserID).Scan(&currentVersion)
	if err != nil && err != pgx.ErrNoRows {
		return storage.MealPlan{}, nil, fmt.Errorf("failed to lock meal plan: %w", err)
	}
	if currentVersion != expectedVersion {
		return storage.MealPlan{}, nil, storage.ErrVersionConflict
	}

	// CASCADE removes the items
	if _, err := tx.Exec(ctx, `DELETE FROM meal_plans WHERE owner_user_id = $1`, ownerUserID); err != nil {
		return storage.MealPlan{}, nil, fmt.Errorf("failed to delete existing meal plan: %w", err)
	}

	planQuery := `
		INSERT INTO meal_plans (owner_user_id, title, dietary_type, meal_types, days, daily_calories, tolerance_pct, version, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + planColumns

	plan, err := scanPlan(tx.QueryRow(ctx, planQuery,
		ownerUserID,
		upsert.Title,
		upsert.DietaryType,
		upsert.MealTypes,
		upsert.Days,
		upsert.DailyCalories,
		upsert.TolerancePct,
		expectedVersion+1,
		upsert.StartDate,
	))
	if isUniqueViolation(err) {
		return storage.MealPlan{}, nil, storage.ErrVersionConflict
	}
	if err != nil {
		return storage.MealPlan{}, nil, fmt.Errorf("failed to create meal plan: %w", err)
	}

	itemQuery := `
		INSERT INTO meal_plan_items (owner_user_id, plan_id, day_index, meal_type, recipe_id, title,
		                             calorie_allocation, kcal, protein_g, fat_g, carbs_g, recipe)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + itemColumns

	items := make([]storage.MealPlanItem, 0, len(upsert.Items))
	for _, itemReq := range upsert.Items {
		draft := storage.NewMealPlanItem("", ownerUserID, plan.ID, itemReq, time.Time{})
		recipeJSON, err := json.Marshal(draft.Recipe)
		if err != nil {
			return storage.MealPlan{}, nil, fmt.Errorf("failed to encode recipe %s: %w", draft.RecipeID, err)
		}

		item, err := scanItem(tx.QueryRow(ctx, itemQuery,
			ownerUserID,
			plan.ID,
			draft.DayIndex,
			draft.MealType,
			draft.RecipeID,
			draft.Title,
			draft.CalorieAllocation,
			draft.Kcal,
			draft.ProteinG,
			draft.FatG,
			draft.CarbsG,
			recipeJSON,
		))
		if err != nil {
			return storage.MealPlan{}, nil, fmt.Errorf("failed to insert meal plan item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.MealPlan{}, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return plan, items, nil
}

func (s *mealPlansStorage) DeleteActive(ctx context.Context, ownerUserID string) error {
	// No error if nothing was deleted (no active plan)
	if _, err := s.pool.Exec(ctx, `DELETE FROM meal_plans WHERE owner_user_id = $1`, ownerUserID); err != nil {
		return fmt.Errorf("failed to delete active meal plan: %w", err)
	}
	return nil
}

func (s *mealPlansStorage) GetToday(ctx context.Context, ownerUserID string, date time.Time) (int, []storage.MealPlanItem, bool, error) {
	var (
		planID    string
		days      int
		startDate time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, days, start_date FROM meal_plans WHERE owner_user_id = $1`, ownerUserID,
	).Scan(&planID, &days, &startDate)
	if err == pgx.ErrNoRows {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("failed to get today's meal plan: %w", err)
	}

	dayIndex := storage.DayIndexFor(startDate, date, days)

	query := `SELECT ` + itemColumns + ` FROM meal_plan_items WHERE plan_id = $1 AND day_index = $2` + itemOrder

	items, err := s.queryItems(ctx, query, planID, dayIndex)
	if err != nil {
		return 0, nil, false, err
	}

	return dayIndex, items, true, nil
}

func (s *mealPlansStorage) queryItems(ctx context.Context, query string, args ...any) ([]storage.MealPlanItem, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan items: %w", err)
	}
	defer rows.Close()

	var items []storage.MealPlanItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal plan item: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating meal plan items: %w", rows.Err())
	}

	return items, nil
}

func scanPlan(row pgx.Row) (storage.MealPlan, error) {
	var plan storage.MealPlan
	err := row.Scan(
		&plan.ID,
		&plan.OwnerUserID,
		&plan.Title,
		&plan.DietaryType,
		&plan.MealTypes,
		&plan.Days,
		&plan.DailyCalories,
		&plan.TolerancePct,
		&plan.Version,
		&plan.StartDate,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	return plan, err
}

func scanItem(row pgx.Row) (storage.MealPlanItem, error) {
	var (
		item       storage.MealPlanItem
		recipeJSON []byte
	)
	err := row.Scan(
		&item.ID,
		&item.OwnerUserID,
		&item.PlanID,
		&item.DayIndex,
		&item.MealType,
		&item.RecipeID,
		&item.Title,
		&item.CalorieAllocation,
		&item.Kcal,
		&item.ProteinG,
		&item.FatG,
		&item.CarbsG,
		&recipeJSON,
		&item.CreatedAt,
	)
	if err != nil {
		return storage.MealPlanItem{}, err
	}
	if err := json.Unmarshal(recipeJSON, &item.Recipe); err != nil {
		return storage.MealPlanItem{}, fmt.Errorf("decode recipe snapshot: %w", err)
	}
	return item, nil
}
