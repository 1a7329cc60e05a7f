package recipes

import (
	"fmt"
	"strings"
)

// DietaryType is the categorical diet label of a recipe.
type DietaryType string

const (
	Keto          DietaryType = "Keto"
	Vegan         DietaryType = "Vegan"
	Vegetarian    DietaryType = "Vegetarian"
	NonVegetarian DietaryType = "Non-Vegetarian"
	Mediterranean DietaryType = "Mediterranean"
	Desi          DietaryType = "Desi"
)

// DietaryTypes lists every supported dietary type.
var DietaryTypes = []DietaryType{Keto, Vegan, Vegetarian, NonVegetarian, Mediterranean, Desi}

// ParseDietaryType resolves a case-insensitive label to its canonical spelling.
// Separators are ignored, so "non vegetarian" and "NON_VEGETARIAN" both resolve.
func ParseDietaryType(s string) (DietaryType, error) {
	key := foldLabel(s)
	for _, dt := range DietaryTypes {
		if foldLabel(string(dt)) == key {
			return dt, nil
		}
	}
	return "", fmt.Errorf("unknown dietary type %q", s)
}

// MealType is one of the fixed meal slots of a day.
type MealType string

const (
	Breakfast MealType = "Breakfast"
	Lunch     MealType = "Lunch"
	Dinner    MealType = "Dinner"
	Snack     MealType = "Snack"
)

// MealTypes lists meal types in their stable plan order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

// ParseMealType resolves a case-insensitive meal type label.
func ParseMealType(s string) (MealType, error) {
	key := foldLabel(s)
	for _, mt := range MealTypes {
		if foldLabel(string(mt)) == key {
			return mt, nil
		}
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

// Order returns the position of m in the stable plan order, or -1.
func (m MealType) Order() int {
	for i, mt := range MealTypes {
		if mt == m {
			return i
		}
	}
	return -1
}

// NutrientType names one field of a recipe's nutrient profile.
type NutrientType string

const (
	Protein     NutrientType = "protein"
	Carbs       NutrientType = "carbs"
	Fats        NutrientType = "fats"
	Fiber       NutrientType = "fiber"
	Sodium      NutrientType = "sodium"
	Cholesterol NutrientType = "cholesterol"
)

// NutrientTypes lists every queryable nutrient.
var NutrientTypes = []NutrientType{Protein, Carbs, Fats, Fiber, Sodium, Cholesterol}

// ParseNutrientType resolves a case-insensitive nutrient name.
func ParseNutrientType(s string) (NutrientType, error) {
	key := foldLabel(s)
	for _, nt := range NutrientTypes {
		if string(nt) == key {
			return nt, nil
		}
	}
	return "", fmt.Errorf("unknown nutrient type %q", s)
}

// Unit returns the measurement unit of the nutrient.
func (n NutrientType) Unit() string {
	if n == Sodium || n == Cholesterol {
		return "mg"
	}
	return "g"
}

// Nutrients is the per-serving nutrient profile. Sodium and cholesterol
// are in milligrams, everything else in grams.
type Nutrients struct {
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fats        float64 `json:"fats"`
	Fiber       float64 `json:"fiber"`
	Sodium      float64 `json:"sodium"`
	Cholesterol float64 `json:"cholesterol"`
}

// Get returns the value of a single nutrient.
func (n Nutrients) Get(t NutrientType) float64 {
	switch t {
	case Protein:
		return n.Protein
	case Carbs:
		return n.Carbs
	case Fats:
		return n.Fats
	case Fiber:
		return n.Fiber
	case Sodium:
		return n.Sodium
	case Cholesterol:
		return n.Cholesterol
	}
	return 0
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name          string `json:"name"`
	NameLocalized string `json:"name_localized,omitempty"`
	Quantity      string `json:"quantity,omitempty"`
}

// Recipe is a normalized catalog entry. Values are immutable once loaded.
type Recipe struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	NameLocalized   string       `json:"name_localized,omitempty"`
	Calories        int          `json:"calories"`
	Nutrients       Nutrients    `json:"nutrients"`
	DietaryType     DietaryType  `json:"dietary_type"`
	Ingredients     []Ingredient `json:"ingredients"`
	RestrictionTags []string     `json:"restriction_tags"`
	Instructions    []string     `json:"instructions"`
	PreparationTime int          `json:"preparation_time"`
	Servings        int          `json:"servings"`
	ImageURL        string       `json:"image_url,omitempty"`
}

// HasIngredient reports whether any ingredient name contains substr,
// compared case-insensitively.
func (r Recipe) HasIngredient(substr string) bool {
	needle := strings.ToLower(strings.TrimSpace(substr))
	if needle == "" {
		return false
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Name), needle) {
			return true
		}
	}
	return false
}

// SupportsRestrictions reports whether the recipe's restriction tags are a
// superset of the requested ones.
func (r Recipe) SupportsRestrictions(restrictions []string) bool {
	for _, want := range restrictions {
		if !r.hasTag(want) {
			return false
		}
	}
	return true
}

func (r Recipe) hasTag(tag string) bool {
	key := foldLabel(tag)
	for _, t := range r.RestrictionTags {
		if foldLabel(t) == key {
			return true
		}
	}
	return false
}

func foldLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}
