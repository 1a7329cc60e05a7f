package recipes

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
)

//go:embed seed/recipes.json
var seedData []byte

// Catalog is an immutable snapshot of recipes ordered by id. It is safe
// for unbounded concurrent reads; callers must not modify returned slices.
type Catalog struct {
	recipes []Recipe
	byID    map[string]int
}

// NewCatalog builds a snapshot from normalized recipes. Duplicate ids are rejected.
func NewCatalog(list []Recipe) (*Catalog, error) {
	sorted := make([]Recipe, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[string]int, len(sorted))
	for i, r := range sorted {
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate recipe id %q", r.ID)
		}
		byID[r.ID] = i
	}
	return &Catalog{recipes: sorted, byID: byID}, nil
}

// All returns every recipe in id order.
func (c *Catalog) All() []Recipe {
	return c.recipes
}

// Len returns the number of recipes.
func (c *Catalog) Len() int {
	return len(c.recipes)
}

// Get returns the recipe with the given id.
func (c *Catalog) Get(id string) (Recipe, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Recipe{}, false
	}
	return c.recipes[i], true
}

// ByDietaryType returns the recipes tagged with dt, in id order.
func (c *Catalog) ByDietaryType(dt DietaryType) []Recipe {
	var out []Recipe
	for _, r := range c.recipes {
		if r.DietaryType == dt {
			out = append(out, r)
		}
	}
	return out
}

// SeedRecipes returns the normalized recipes bundled with the binary.
func SeedRecipes() ([]Recipe, error) {
	list, issues, err := Load(bytes.NewReader(seedData))
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("seed catalog has %d invalid entries, first: %s", len(issues), issues[0])
	}
	return list, nil
}

// Seed builds a catalog from the bundled recipes.
func Seed() (*Catalog, error) {
	list, err := SeedRecipes()
	if err != nil {
		return nil, err
	}
	return NewCatalog(list)
}
