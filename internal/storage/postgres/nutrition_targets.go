package postgres

import (
	"context"
	"fmt"

	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type nutritionTargetsStorage struct {
	pool *pgxpool.Pool
}

func newNutritionTargetsStorage(pool *pgxpool.Pool) *nutritionTargetsStorage {
	return &nutritionTargetsStorage{pool: pool}
}

const targetColumns = `id, owner_user_id, calories_kcal, protein_g, fat_g, carbs_g, fiber_g, physiology, created_at, updated_at`

func (s *nutritionTargetsStorage) Get(ctx context.Context, ownerUserID string) (*storage.NutritionTarget, error) {
	query := `SELECT ` + targetColumns + ` FROM nutrition_targets WHERE owner_user_id = $1`

	target, err := scanTarget(s.pool.QueryRow(ctx, query, ownerUserID))
	if err == pgx.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nutrition targets: %w", err)
	}

	return target, nil
}

func (s *nutritionTargetsStorage) Upsert(ctx context.Context, ownerUserID string, upsert storage.NutritionTargetUpsert) (*storage.NutritionTarget, error) {
	query := `
		INSERT INTO nutrition_targets (owner_user_id, calories_kcal, protein_g, fat_g, carbs_g, fiber_g, physiology)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_user_id)
		DO UPDATE SET
			calories_kcal = EXCLUDED.calories_kcal,
			protein_g = EXCLUDED.protein_g,
			fat_g = EXCLUDED.fat_g,
			carbs_g = EXCLUDED.carbs_g,
			fiber_g = EXCLUDED.fiber_g,
			physiology = EXCLUDED.physiology,
			updated_at = now()
		RETURNING ` + targetColumns

	var physiology []byte
	if len(upsert.Physiology) > 0 {
		physiology = upsert.Physiology
	}

	target, err := scanTarget(s.pool.QueryRow(
		ctx,
		query,
		ownerUserID,
		upsert.CaloriesKcal,
		upsert.ProteinG,
		upsert.FatG,
		upsert.CarbsG,
		upsert.FiberG,
		physiology,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert nutrition targets: %w", err)
	}

	return target, nil
}

func scanTarget(row pgx.Row) (*storage.NutritionTarget, error) {
	var (
		target     storage.NutritionTarget
		physiology []byte
	)
	err := row.Scan(
		&target.ID,
		&target.OwnerUserID,
		&target.CaloriesKcal,
		&target.ProteinG,
		&target.FatG,
		&target.CarbsG,
		&target.FiberG,
		&physiology,
		&target.CreatedAt,
		&target.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	target.Physiology = physiology
	return &target, nil
}
