// Package matcher filters and ranks catalog recipes against ingredient,
// nutrient and per-slot calorie queries. Matching is pure: it never widens
// a tolerance band and never mutates the catalog.
package matcher

import (
	"fmt"
	"math"
	"sort"

	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/recipes"
)

const bandEpsilon = 1e-9

// Tolerances are proportional bands around a query's numeric targets.
type Tolerances struct {
	CaloriePct  float64 `json:"calorie_pct" yaml:"calorie_pct"`
	NutrientPct float64 `json:"nutrient_pct" yaml:"nutrient_pct"`
}

// DefaultTolerances is ±10% on calories and ±15% on the nutrient target.
var DefaultTolerances = Tolerances{CaloriePct: 0.10, NutrientPct: 0.15}

// Validate rejects negative or absurd bands.
func (t Tolerances) Validate() error {
	if t.CaloriePct <= 0 || t.CaloriePct >= 1 {
		return fmt.Errorf("calorie tolerance must be in (0, 1), got %g", t.CaloriePct)
	}
	if t.NutrientPct <= 0 || t.NutrientPct >= 1 {
		return fmt.Errorf("nutrient tolerance must be in (0, 1), got %g", t.NutrientPct)
	}
	return nil
}

// CalorieBand returns the inclusive calorie range accepted around target.
func (t Tolerances) CalorieBand(target float64) (lo, hi float64) {
	d := target * t.CaloriePct
	return target - d, target + d
}

// NutrientBand returns the inclusive range accepted around a nutrient target.
func (t Tolerances) NutrientBand(value float64) (lo, hi float64) {
	d := value * t.NutrientPct
	return value - d, value + d
}

// Candidate is a recipe that satisfied every hard constraint of a query,
// with its normalized distance from the targets.
type Candidate struct {
	Recipe   recipes.Recipe
	Distance float64
}

// Matcher runs queries against a catalog snapshot.
type Matcher struct {
	tol Tolerances
}

// New creates a matcher with the given tolerance bands.
func New(tol Tolerances) *Matcher {
	return &Matcher{tol: tol}
}

// Tolerances returns the bands the matcher applies.
func (m *Matcher) Tolerances() Tolerances {
	return m.tol
}

// Ingredient returns recipes containing the ingredient substring whose
// restriction tags cover every requested restriction, in id order.
func (m *Matcher) Ingredient(cat *recipes.Catalog, q IngredientQuery) ([]Candidate, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var out []Candidate
	for _, r := range cat.All() {
		if q.DietaryType != "" && r.DietaryType != q.DietaryType {
			continue
		}
		if !r.HasIngredient(q.Ingredient) || !r.SupportsRestrictions(q.Restrictions) {
			continue
		}
		out = append(out, Candidate{Recipe: r})
	}
	if len(out) == 0 {
		return nil, planerr.NoMatch(fmt.Sprintf("no recipe contains %q with the requested restrictions", q.Ingredient))
	}
	return out, nil
}

// Nutrient returns recipes inside both the calorie band and the nutrient
// band, ranked by combined normalized distance.
func (m *Matcher) Nutrient(cat *recipes.Catalog, q NutrientQuery) ([]Candidate, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var out []Candidate
	for _, r := range cat.All() {
		cal := float64(r.Calories)
		val := r.Nutrients.Get(q.Nutrient)
		if !m.inCalorieBand(cal, q.Calories) || !m.inNutrientBand(val, q.Value) {
			continue
		}
		d := relDistance(cal, q.Calories, q.Calories) + relDistance(val, q.Value, NutrientMax[q.Nutrient])
		out = append(out, Candidate{Recipe: r, Distance: d})
	}
	if len(out) == 0 {
		return nil, planerr.NoMatch(fmt.Sprintf("no recipe near %g kcal with %g%s %s",
			q.Calories, q.Value, q.Nutrient.Unit(), q.Nutrient))
	}
	rank(out)
	return out, nil
}

// Calories returns recipes of the query's dietary type inside the calorie
// band, ranked by distance from the target.
func (m *Matcher) Calories(cat *recipes.Catalog, q CalorieQuery) ([]Candidate, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var out []Candidate
	for _, r := range cat.All() {
		if r.DietaryType != q.DietaryType {
			continue
		}
		cal := float64(r.Calories)
		if !m.inCalorieBand(cal, q.Target) {
			continue
		}
		out = append(out, Candidate{Recipe: r, Distance: relDistance(cal, q.Target, q.Target)})
	}
	if len(out) == 0 {
		lo, hi := m.tol.CalorieBand(q.Target)
		return nil, planerr.NoMatch(fmt.Sprintf("no %s recipe between %.0f and %.0f kcal", q.DietaryType, lo, hi))
	}
	rank(out)
	return out, nil
}

func (m *Matcher) inCalorieBand(actual, target float64) bool {
	return math.Abs(actual-target) <= target*m.tol.CaloriePct+bandEpsilon
}

func (m *Matcher) inNutrientBand(actual, target float64) bool {
	return math.Abs(actual-target) <= target*m.tol.NutrientPct+bandEpsilon
}

// relDistance is |actual-target| scaled by target, or by fallback when the
// target is zero.
func relDistance(actual, target, fallback float64) float64 {
	scale := target
	if scale == 0 {
		scale = fallback
	}
	if scale == 0 {
		return 0
	}
	return math.Abs(actual-target) / scale
}

// rank orders by ascending distance, then id.
func rank(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Distance != c[j].Distance {
			return c[i].Distance < c[j].Distance
		}
		return c[i].Recipe.ID < c[j].Recipe.ID
	})
}
