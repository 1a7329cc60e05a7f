package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecipesStorage — Postgres storage для каталога рецептов
type PostgresRecipesStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresRecipesStorage создаёт новое Postgres хранилище рецептов
func NewPostgresRecipesStorage(pool *pgxpool.Pool) *PostgresRecipesStorage {
	return &PostgresRecipesStorage{pool: pool}
}

// errInvalidRecipe marks a stored row that fails catalog normalization.
var errInvalidRecipe = errors.New("invalid recipe row")

const recipeColumns = `
	id, name, name_localized, dietary_type, calories,
	protein_g, carbs_g, fats_g, fiber_g, sodium_mg, cholesterol_mg,
	ingredients, restriction_tags, instructions, preparation_time, servings, image_url
`

// ListRecipes возвращает все рецепты каталога
func (s *PostgresRecipesStorage) ListRecipes(ctx context.Context) ([]recipes.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var list []recipes.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if errors.Is(err, errInvalidRecipe) {
			log.Printf("WARNING catalog: skipping %v", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		list = append(list, r)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", rows.Err())
	}

	return list, nil
}

// GetRecipe возвращает рецепт по ID
func (s *PostgresRecipesStorage) GetRecipe(ctx context.Context, id string) (*recipes.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`

	r, err := scanRecipe(s.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	return &r, nil
}

// UpsertRecipes создаёт или обновляет рецепты одной транзакцией
func (s *PostgresRecipesStorage) UpsertRecipes(ctx context.Context, list []recipes.Recipe) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO recipes (` + recipeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			name_localized = EXCLUDED.name_localized,
			dietary_type = EXCLUDED.dietary_type,
			calories = EXCLUDED.calories,
			protein_g = EXCLUDED.protein_g,
			carbs_g = EXCLUDED.carbs_g,
			fats_g = EXCLUDED.fats_g,
			fiber_g = EXCLUDED.fiber_g,
			sodium_mg = EXCLUDED.sodium_mg,
			cholesterol_mg = EXCLUDED.cholesterol_mg,
			ingredients = EXCLUDED.ingredients,
			restriction_tags = EXCLUDED.restriction_tags,
			instructions = EXCLUDED.instructions,
			preparation_time = EXCLUDED.preparation_time,
			servings = EXCLUDED.servings,
			image_url = EXCLUDED.image_url,
			updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, r := range list {
		ingredients, err := json.Marshal(r.Ingredients)
		if err != nil {
			return 0, fmt.Errorf("failed to encode ingredients of %s: %w", r.ID, err)
		}
		instructions, err := json.Marshal(r.Instructions)
		if err != nil {
			return 0, fmt.Errorf("failed to encode instructions of %s: %w", r.ID, err)
		}
		tags := r.RestrictionTags
		if tags == nil {
			tags = []string{}
		}
		batch.Queue(query,
			r.ID, r.Name, r.NameLocalized, string(r.DietaryType), r.Calories,
			r.Nutrients.Protein, r.Nutrients.Carbs, r.Nutrients.Fats, r.Nutrients.Fiber,
			r.Nutrients.Sodium, r.Nutrients.Cholesterol,
			ingredients, tags, instructions, r.PreparationTime, r.Servings, r.ImageURL,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to upsert recipes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(list), nil
}

func scanRecipe(row pgx.Row) (recipes.Recipe, error) {
	var (
		r                         recipes.Recipe
		dietary                   string
		ingredients, instructions []byte
	)
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.NameLocalized,
		&dietary,
		&r.Calories,
		&r.Nutrients.Protein,
		&r.Nutrients.Carbs,
		&r.Nutrients.Fats,
		&r.Nutrients.Fiber,
		&r.Nutrients.Sodium,
		&r.Nutrients.Cholesterol,
		&ingredients,
		&r.RestrictionTags,
		&instructions,
		&r.PreparationTime,
		&r.Servings,
		&r.ImageURL,
	)
	if err != nil {
		return recipes.Recipe{}, err
	}
	r.DietaryType = recipes.DietaryType(dietary)
	if err := json.Unmarshal(ingredients, &r.Ingredients); err != nil {
		return recipes.Recipe{}, fmt.Errorf("decode ingredients of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(instructions, &r.Instructions); err != nil {
		return recipes.Recipe{}, fmt.Errorf("decode instructions of %s: %w", r.ID, err)
	}

	// Строки могли попасть в таблицу в обход импорта — приводим к каноническому виду
	canonical, err := recipes.Canonicalize(r)
	if err != nil {
		return recipes.Recipe{}, fmt.Errorf("%w %q: %v", errInvalidRecipe, r.ID, err)
	}
	return canonical, nil
}
