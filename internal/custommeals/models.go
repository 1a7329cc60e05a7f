package custommeals

import (
	"encoding/json"
	"time"

	"github.com/fdg312/meal-planner/internal/matcher"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/regenerate"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/google/uuid"
)

// IngredientSearchRequest is the body of the ingredient search and refresh.
type IngredientSearchRequest struct {
	Ingredient   string   `json:"ingredient"`
	Restrictions []string `json:"restrictions"`
	DietaryType  string   `json:"dietary_type,omitempty"`
	Save         bool     `json:"save"`
}

func (r IngredientSearchRequest) query() regenerate.CustomQuery {
	return regenerate.CustomQuery{
		Mode: regenerate.ModeIngredient,
		Ingredient: matcher.IngredientQuery{
			Ingredient:   r.Ingredient,
			Restrictions: r.Restrictions,
			DietaryType:  recipes.DietaryType(r.DietaryType),
		},
	}
}

// NutrientTarget is the single nutrient constraint of a nutrient search.
type NutrientTarget struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// NutrientSearchRequest is the body of the nutrient search and refresh.
type NutrientSearchRequest struct {
	Calories float64        `json:"calories"`
	Nutrient NutrientTarget `json:"nutrient"`
	Save     bool           `json:"save"`
}

func (r NutrientSearchRequest) query() regenerate.CustomQuery {
	return regenerate.CustomQuery{
		Mode: regenerate.ModeNutrient,
		Nutrient: matcher.NutrientQuery{
			Calories: r.Calories,
			Nutrient: recipes.NutrientType(r.Nutrient.Type),
			Value:    r.Nutrient.Value,
		},
	}
}

// CustomMealResultDTO is the user's current result for a mode.
type CustomMealResultDTO struct {
	ID        string          `json:"id"`
	Mode      string          `json:"mode"`
	Query     json.RawMessage `json:"query"`
	Recipe    recipes.Recipe  `json:"recipe"`
	Version   int             `json:"version"`
	SavedID   *uuid.UUID      `json:"saved_id,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SavedCustomMealDTO is one history entry.
type SavedCustomMealDTO struct {
	ID        uuid.UUID       `json:"id"`
	Mode      string          `json:"mode"`
	Query     json.RawMessage `json:"query"`
	Recipe    recipes.Recipe  `json:"recipe"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryResponse is the body of GET /v1/custom-meals.
type HistoryResponse struct {
	Items []SavedCustomMealDTO `json:"items"`
}

func toResultDTO(m *regenerate.CustomMeal) CustomMealResultDTO {
	dto := CustomMealResultDTO{
		ID:        m.Result.ID,
		Mode:      m.Result.Mode,
		Query:     m.Result.Query,
		Recipe:    m.Result.Recipe,
		Version:   m.Result.Version,
		UpdatedAt: m.Result.UpdatedAt,
	}
	if m.Saved != nil {
		id := m.Saved.ID
		dto.SavedID = &id
	}
	return dto
}

func toSavedDTO(s storage.SavedCustomMeal) SavedCustomMealDTO {
	return SavedCustomMealDTO{
		ID:        s.ID,
		Mode:      s.Mode,
		Query:     s.Query,
		Recipe:    s.Recipe,
		CreatedAt: s.CreatedAt,
	}
}
