package recipes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// RawRecipe is the loosely-typed shape accepted from seed files and imports.
// Numbers may arrive as strings, ingredients as plain strings or objects,
// instructions as a list or one newline-separated string.
type RawRecipe struct {
	ID              looseString            `json:"id"`
	Name            string                 `json:"name"`
	NameLocalized   string                 `json:"name_localized"`
	Calories        *looseNumber           `json:"calories"`
	Nutrients       map[string]looseNumber `json:"nutrients"`
	DietaryType     string                 `json:"dietary_type"`
	Ingredients     []json.RawMessage      `json:"ingredients"`
	RestrictionTags []string               `json:"restriction_tags"`
	Instructions    json.RawMessage        `json:"instructions"`
	PreparationTime *looseNumber           `json:"preparation_time"`
	Servings        *looseNumber           `json:"servings"`
	ImageURL        string                 `json:"image_url"`
}

// Issue describes a rejected entry during Load.
type Issue struct {
	Index int
	ID    string
	Err   error
}

func (i Issue) String() string {
	if i.ID != "" {
		return fmt.Sprintf("entry %d (id=%s): %v", i.Index, i.ID, i.Err)
	}
	return fmt.Sprintf("entry %d: %v", i.Index, i.Err)
}

var nutrientAliases = map[string]NutrientType{
	"protein":       Protein,
	"proteins":      Protein,
	"carbs":         Carbs,
	"carbohydrates": Carbs,
	"fats":          Fats,
	"fat":           Fats,
	"fiber":         Fiber,
	"fibre":         Fiber,
	"sodium":        Sodium,
	"cholesterol":   Cholesterol,
}

// Normalize validates a raw entry and converts it to the explicit Recipe schema.
// Missing nutrient fields default to zero; negative values are rejected.
func Normalize(raw RawRecipe) (Recipe, error) {
	id := strings.TrimSpace(string(raw.ID))
	if id == "" {
		return Recipe{}, errors.New("id is required")
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Recipe{}, errors.New("name is required")
	}
	if raw.Calories == nil {
		return Recipe{}, errors.New("calories is required")
	}
	calories := float64(*raw.Calories)
	if calories < 0 {
		return Recipe{}, errors.New("calories must be non-negative")
	}
	dt, err := ParseDietaryType(raw.DietaryType)
	if err != nil {
		return Recipe{}, err
	}

	var nutrients Nutrients
	for key, val := range raw.Nutrients {
		nt, ok := nutrientAliases[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		v := float64(val)
		if v < 0 {
			return Recipe{}, fmt.Errorf("nutrient %s must be non-negative", nt)
		}
		setNutrient(&nutrients, nt, v)
	}

	ingredients := make([]Ingredient, 0, len(raw.Ingredients))
	for i, rawIng := range raw.Ingredients {
		ing, err := parseIngredient(rawIng)
		if err != nil {
			return Recipe{}, fmt.Errorf("ingredient %d: %w", i, err)
		}
		ingredients = append(ingredients, ing)
	}
	if len(ingredients) == 0 {
		return Recipe{}, errors.New("at least one ingredient is required")
	}

	instructions, err := parseInstructions(raw.Instructions)
	if err != nil {
		return Recipe{}, err
	}

	servings := 1
	if raw.Servings != nil && *raw.Servings > 0 {
		servings = int(math.Round(float64(*raw.Servings)))
	}
	prep := 0
	if raw.PreparationTime != nil {
		if *raw.PreparationTime < 0 {
			return Recipe{}, errors.New("preparation_time must be non-negative")
		}
		prep = int(math.Round(float64(*raw.PreparationTime)))
	}

	return Recipe{
		ID:              id,
		Name:            name,
		NameLocalized:   strings.TrimSpace(raw.NameLocalized),
		Calories:        int(math.Round(calories)),
		Nutrients:       nutrients,
		DietaryType:     dt,
		Ingredients:     ingredients,
		RestrictionTags: normalizeTags(raw.RestrictionTags),
		Instructions:    instructions,
		PreparationTime: prep,
		Servings:        servings,
		ImageURL:        strings.TrimSpace(raw.ImageURL),
	}, nil
}

// Canonicalize applies the Normalize rules to an already typed recipe, as
// read back from a store. The dietary type is resolved to its canonical
// spelling; negative or NaN amounts are rejected.
func Canonicalize(r Recipe) (Recipe, error) {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return Recipe{}, errors.New("id is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return Recipe{}, errors.New("name is required")
	}
	if r.Calories < 0 {
		return Recipe{}, errors.New("calories must be non-negative")
	}
	dt, err := ParseDietaryType(string(r.DietaryType))
	if err != nil {
		return Recipe{}, err
	}
	r.DietaryType = dt

	for _, nt := range NutrientTypes {
		v := r.Nutrients.Get(nt)
		if v < 0 || math.IsNaN(v) {
			return Recipe{}, fmt.Errorf("nutrient %s must be non-negative", nt)
		}
	}

	ingredients := make([]Ingredient, 0, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" {
			return Recipe{}, fmt.Errorf("ingredient %d: name is empty", i)
		}
		ingredients = append(ingredients, ing)
	}
	if len(ingredients) == 0 {
		return Recipe{}, errors.New("at least one ingredient is required")
	}
	r.Ingredients = ingredients

	if r.PreparationTime < 0 {
		return Recipe{}, errors.New("preparation_time must be non-negative")
	}
	if r.Servings < 1 {
		r.Servings = 1
	}
	r.NameLocalized = strings.TrimSpace(r.NameLocalized)
	r.RestrictionTags = normalizeTags(r.RestrictionTags)
	r.ImageURL = strings.TrimSpace(r.ImageURL)
	return r, nil
}

// Load decodes a JSON array of raw recipes. Non-conforming entries are
// skipped and reported as issues; a malformed document is an error.
func Load(r io.Reader) ([]Recipe, []Issue, error) {
	var raws []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, nil, fmt.Errorf("decode recipes: %w", err)
	}

	out := make([]Recipe, 0, len(raws))
	var issues []Issue
	seen := make(map[string]bool, len(raws))
	for i, data := range raws {
		var raw RawRecipe
		if err := json.Unmarshal(data, &raw); err != nil {
			issues = append(issues, Issue{Index: i, Err: err})
			continue
		}
		rec, err := Normalize(raw)
		if err != nil {
			issues = append(issues, Issue{Index: i, ID: string(raw.ID), Err: err})
			continue
		}
		if seen[rec.ID] {
			issues = append(issues, Issue{Index: i, ID: rec.ID, Err: errors.New("duplicate id")})
			continue
		}
		seen[rec.ID] = true
		out = append(out, rec)
	}
	return out, issues, nil
}

func setNutrient(n *Nutrients, t NutrientType, v float64) {
	switch t {
	case Protein:
		n.Protein = v
	case Carbs:
		n.Carbs = v
	case Fats:
		n.Fats = v
	case Fiber:
		n.Fiber = v
	case Sodium:
		n.Sodium = v
	case Cholesterol:
		n.Cholesterol = v
	}
}

func parseIngredient(data json.RawMessage) (Ingredient, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return Ingredient{}, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return Ingredient{}, errors.New("name is empty")
		}
		return Ingredient{Name: name}, nil
	}

	var obj struct {
		Name          string      `json:"name"`
		NameLocalized string      `json:"name_localized"`
		Quantity      looseString `json:"quantity"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return Ingredient{}, err
	}
	name := strings.TrimSpace(obj.Name)
	if name == "" {
		return Ingredient{}, errors.New("name is empty")
	}
	return Ingredient{
		Name:          name,
		NameLocalized: strings.TrimSpace(obj.NameLocalized),
		Quantity:      strings.TrimSpace(string(obj.Quantity)),
	}, nil
}

func parseInstructions(data json.RawMessage) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return []string{}, nil
	}

	var steps []string
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return nil, fmt.Errorf("instructions: %w", err)
		}
		steps = strings.Split(text, "\n")
	} else if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("instructions: %w", err)
	}

	out := make([]string, 0, len(steps))
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[foldLabel(t)] {
			continue
		}
		seen[foldLabel(t)] = true
		out = append(out, t)
	}
	return out
}

// looseString accepts a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

// looseNumber accepts a JSON number or a numeric string with an optional
// unit suffix, e.g. "12.5g" or "300 mg".
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		s = strings.TrimRight(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ ")
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = looseNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = looseNumber(v)
	return nil
}
