package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/recipes"
)

// Calorie bounds for nutrient-mode queries.
const (
	MinCalorieTarget = 100
	MaxCalorieTarget = 2000
)

// MaxIngredientLength caps the ingredient substring of a query, in characters.
const MaxIngredientLength = 100

// NutrientMax is the upper bound accepted for each nutrient target.
var NutrientMax = map[recipes.NutrientType]float64{
	recipes.Protein:     100,
	recipes.Carbs:       200,
	recipes.Fats:        100,
	recipes.Fiber:       50,
	recipes.Sodium:      2000,
	recipes.Cholesterol: 500,
}

// IngredientQuery searches by ingredient substring and restriction tags.
type IngredientQuery struct {
	Ingredient   string              `json:"ingredient"`
	Restrictions []string            `json:"restrictions"`
	DietaryType  recipes.DietaryType `json:"dietary_type,omitempty"`
}

// Validate checks the query and trims its inputs in place.
func (q *IngredientQuery) Validate() error {
	q.Ingredient = strings.TrimSpace(q.Ingredient)
	if q.Ingredient == "" {
		return planerr.InvalidQuery("Ingredient is required")
	}
	if utf8.RuneCountInString(q.Ingredient) > MaxIngredientLength {
		return planerr.InvalidQuery("Ingredient must be at most %d characters", MaxIngredientLength)
	}

	cleaned := make([]string, 0, len(q.Restrictions))
	seen := make(map[string]bool, len(q.Restrictions))
	for _, r := range q.Restrictions {
		r = strings.TrimSpace(r)
		key := strings.ToLower(r)
		if r == "" || seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, r)
	}
	q.Restrictions = cleaned

	if q.DietaryType != "" {
		dt, err := recipes.ParseDietaryType(string(q.DietaryType))
		if err != nil {
			return planerr.InvalidQuery("Dietary type %q is not supported", q.DietaryType)
		}
		q.DietaryType = dt
	}
	return nil
}

// NutrientQuery searches by calorie target plus exactly one nutrient target.
type NutrientQuery struct {
	Calories float64              `json:"calories"`
	Nutrient recipes.NutrientType `json:"nutrient"`
	Value    float64              `json:"value"`
}

// Validate checks the calorie and nutrient bounds and canonicalizes the
// nutrient name in place.
func (q *NutrientQuery) Validate() error {
	if q.Calories < MinCalorieTarget || q.Calories > MaxCalorieTarget {
		return planerr.InvalidQuery("Calories must be between %d and %d", MinCalorieTarget, MaxCalorieTarget)
	}
	nt, err := recipes.ParseNutrientType(string(q.Nutrient))
	if err != nil {
		return planerr.InvalidQuery("Nutrient type %q is not supported", q.Nutrient)
	}
	q.Nutrient = nt

	max := NutrientMax[nt]
	if q.Value < 0 || q.Value > max {
		return planerr.InvalidQuery("%s must be between 0 and %g%s", capitalize(string(nt)), max, nt.Unit())
	}
	return nil
}

// CalorieQuery is the per-slot query issued by the plan assembler. The
// dietary type is its only categorical filter.
type CalorieQuery struct {
	Target      float64
	DietaryType recipes.DietaryType
}

// Validate checks the target and the dietary type.
func (q *CalorieQuery) Validate() error {
	if q.Target <= 0 {
		return planerr.InvalidQuery("Calorie allocation must be positive")
	}
	dt, err := recipes.ParseDietaryType(string(q.DietaryType))
	if err != nil {
		return planerr.InvalidQuery("Dietary type %q is not supported", q.DietaryType)
	}
	q.DietaryType = dt
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
