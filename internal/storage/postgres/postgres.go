package postgres

import (
	"context"
	"errors"

	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage — Postgres реализация Storage и всех под-хранилищ
type PostgresStorage struct {
	pool             *pgxpool.Pool
	recipes          *PostgresRecipesStorage
	mealPlans        *mealPlansStorage
	customMeals      *customMealsStorage
	nutritionTargets *nutritionTargetsStorage
	reports          *PostgresReportsStorage
}

// New создаёт PostgresStorage и проверяет соединение
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{
		pool:             pool,
		recipes:          NewPostgresRecipesStorage(pool),
		mealPlans:        newMealPlansStorage(pool),
		customMeals:      newCustomMealsStorage(pool),
		nutritionTargets: newNutritionTargetsStorage(pool),
		reports:          NewPostgresReportsStorage(pool),
	}, nil
}

func (p *PostgresStorage) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// GetRecipesStorage returns the recipe catalog storage
func (p *PostgresStorage) GetRecipesStorage() storage.RecipesStorage {
	return p.recipes
}

// GetMealPlansStorage returns meal plans storage
func (p *PostgresStorage) GetMealPlansStorage() storage.MealPlansStorage {
	return p.mealPlans
}

// GetCustomMealsStorage returns custom meals storage
func (p *PostgresStorage) GetCustomMealsStorage() storage.CustomMealsStorage {
	return p.customMeals
}

// GetNutritionTargetsStorage returns nutrition targets storage
func (p *PostgresStorage) GetNutritionTargetsStorage() storage.NutritionTargetsStorage {
	return p.nutritionTargets
}

// GetReportsStorage returns reports storage
func (p *PostgresStorage) GetReportsStorage() storage.ReportsStorage {
	return p.reports
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
