package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type customMealsStorage struct {
	pool *pgxpool.Pool
}

func newCustomMealsStorage(pool *pgxpool.Pool) *customMealsStorage {
	return &customMealsStorage{pool: pool}
}

const customResultColumns = `id, owner_user_id, mode, query, recipe, version, created_at, updated_at`

func (s *customMealsStorage) GetCurrent(ctx context.Context, ownerUserID, mode string) (storage.CustomMealResult, bool, error) {
	query := `SELECT ` + customResultColumns + ` FROM custom_meal_results WHERE owner_user_id = $1 AND mode = $2`

	res, err := scanCustomResult(s.pool.QueryRow(ctx, query, ownerUserID, mode))
	if err == pgx.ErrNoRows {
		return storage.CustomMealResult{}, false, nil
	}
	if err != nil {
		return storage.CustomMealResult{}, false, fmt.Errorf("failed to get custom meal result: %w", err)
	}
	return res, true, nil
}

func (s *customMealsStorage) ReplaceCurrent(ctx context.Context, ownerUserID string, expectedVersion int, upsert storage.CustomMealUpsert) (storage.CustomMealResult, error) {
	recipeJSON, err := json.Marshal(upsert.Recipe)
	if err != nil {
		return storage.CustomMealResult{}, fmt.Errorf("failed to encode recipe: %w", err)
	}
	queryJSON := emptyObjectIfNil(upsert.Query)

	var (
		res      storage.CustomMealResult
		queryErr error
	)
	if expectedVersion == 0 {
		insert := `
			INSERT INTO custom_meal_results (owner_user_id, mode, query, recipe, version)
			VALUES ($1, $2, $3, $4, 1)
			RETURNING ` + customResultColumns
		res, queryErr = scanCustomResult(s.pool.QueryRow(ctx, insert, ownerUserID, upsert.Mode, queryJSON, recipeJSON))
		if isUniqueViolation(queryErr) {
			return storage.CustomMealResult{}, storage.ErrVersionConflict
		}
	} else {
		// compare-and-swap on version
		update := `
			UPDATE custom_meal_results
			SET query = $3, recipe = $4, version = version + 1, updated_at = now()
			WHERE owner_user_id = $1 AND mode = $2 AND version = $5
			RETURNING ` + customResultColumns
		res, queryErr = scanCustomResult(s.pool.QueryRow(ctx, update, ownerUserID, upsert.Mode, queryJSON, recipeJSON, expectedVersion))
		if queryErr == pgx.ErrNoRows {
			return storage.CustomMealResult{}, storage.ErrVersionConflict
		}
	}
	if queryErr != nil {
		return storage.CustomMealResult{}, fmt.Errorf("failed to replace custom meal result: %w", queryErr)
	}

	return res, nil
}

func (s *customMealsStorage) SaveHistory(ctx context.Context, ownerUserID string, upsert storage.CustomMealUpsert) (storage.SavedCustomMeal, error) {
	recipeJSON, err := json.Marshal(upsert.Recipe)
	if err != nil {
		return storage.SavedCustomMeal{}, fmt.Errorf("failed to encode recipe: %w", err)
	}

	query := `
		INSERT INTO saved_custom_meals (id, owner_user_id, mode, query, recipe)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, owner_user_id, mode, query, recipe, created_at
	`

	saved, err := scanSaved(s.pool.QueryRow(ctx, query, uuid.New(), ownerUserID, upsert.Mode, emptyObjectIfNil(upsert.Query), recipeJSON))
	if err != nil {
		return storage.SavedCustomMeal{}, fmt.Errorf("failed to save custom meal: %w", err)
	}
	return saved, nil
}

func (s *customMealsStorage) ListHistory(ctx context.Context, ownerUserID, mode string, limit, offset int) ([]storage.SavedCustomMeal, error) {
	query := `
		SELECT id, owner_user_id, mode, query, recipe, created_at
		FROM saved_custom_meals
		WHERE owner_user_id = $1 AND ($2 = '' OR mode = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`

	rows, err := s.pool.Query(ctx, query, ownerUserID, mode, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved custom meals: %w", err)
	}
	defer rows.Close()

	list := []storage.SavedCustomMeal{}
	for rows.Next() {
		saved, err := scanSaved(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved custom meal: %w", err)
		}
		list = append(list, saved)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating saved custom meals: %w", rows.Err())
	}

	return list, nil
}

func (s *customMealsStorage) DeleteHistory(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM saved_custom_meals WHERE id = $1 AND owner_user_id = $2`, id, ownerUserID)
	if err != nil {
		return fmt.Errorf("failed to delete saved custom meal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func emptyObjectIfNil(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

func scanCustomResult(row pgx.Row) (storage.CustomMealResult, error) {
	var (
		res        storage.CustomMealResult
		recipeJSON []byte
	)
	err := row.Scan(
		&res.ID,
		&res.OwnerUserID,
		&res.Mode,
		&res.Query,
		&recipeJSON,
		&res.Version,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return storage.CustomMealResult{}, err
	}
	if err := json.Unmarshal(recipeJSON, &res.Recipe); err != nil {
		return storage.CustomMealResult{}, fmt.Errorf("decode recipe: %w", err)
	}
	return res, nil
}

func scanSaved(row pgx.Row) (storage.SavedCustomMeal, error) {
	var (
		saved      storage.SavedCustomMeal
		recipeJSON []byte
	)
	err := row.Scan(
		&saved.ID,
		&saved.OwnerUserID,
		&saved.Mode,
		&saved.Query,
		&recipeJSON,
		&saved.CreatedAt,
	)
	if err != nil {
		return storage.SavedCustomMeal{}, err
	}
	if err := json.Unmarshal(recipeJSON, &saved.Recipe); err != nil {
		return storage.SavedCustomMeal{}, fmt.Errorf("decode recipe: %w", err)
	}
	return saved, nil
}
