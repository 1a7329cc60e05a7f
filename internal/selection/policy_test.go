package selection

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/meal-planner/internal/matcher"
	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/recipes"
)

func cands(distances ...float64) []matcher.Candidate {
	out := make([]matcher.Candidate, len(distances))
	for i, d := range distances {
		out[i] = matcher.Candidate{Recipe: recipes.Recipe{ID: string(rune('a' + i))}, Distance: d}
	}
	return out
}

func TestSelectDefaultPicksFirstEligible(t *testing.T) {
	p := NewPolicy(3, rand.NewPCG(1, 2))

	r, err := p.Select(cands(0, 0.1, 0.2), nil, ModeDefault)
	require.NoError(t, err)
	assert.Equal(t, "a", r.ID)

	r, err = p.Select(cands(0, 0.1, 0.2), NewExcludeSet("a"), ModeDefault)
	require.NoError(t, err)
	assert.Equal(t, "b", r.ID)
}

func TestSelectNeverReturnsExcluded(t *testing.T) {
	p := NewPolicy(5, rand.NewPCG(7, 7))
	excluded := NewExcludeSet("a", "c")

	for i := 0; i < 200; i++ {
		r, err := p.Select(cands(0, 0.1, 0.2, 0.3), excluded, ModeRegenerate)
		require.NoError(t, err)
		assert.False(t, excluded.Has(r.ID))
	}
}

func TestSelectAllExcludedIsNoMatch(t *testing.T) {
	p := NewPolicy(5, nil)
	for _, mode := range []Mode{ModeDefault, ModeRegenerate} {
		_, err := p.Select(cands(0, 0.1), NewExcludeSet("a", "b"), mode)
		require.Error(t, err, mode.String())
		assert.True(t, planerr.Is(err, planerr.CodeNoMatchFound))
	}

	_, err := p.Select(nil, nil, ModeDefault)
	assert.True(t, planerr.Is(err, planerr.CodeNoMatchFound))
}

func TestSelectRegenerateStaysInTopK(t *testing.T) {
	p := NewPolicy(2, rand.NewPCG(3, 4))
	seen := map[string]int{}
	for i := 0; i < 500; i++ {
		r, err := p.Select(cands(0, 0.1, 0.2, 0.3), nil, ModeRegenerate)
		require.NoError(t, err)
		seen[r.ID]++
	}
	assert.Len(t, seen, 2)
	assert.Positive(t, seen["a"])
	assert.Positive(t, seen["b"])
}

func TestSelectRegeneratePoolCoversTies(t *testing.T) {
	p := NewPolicy(2, rand.NewPCG(5, 6))
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		r, err := p.Select(cands(0, 0, 0, 0, 0.5), nil, ModeRegenerate)
		require.NoError(t, err)
		seen[r.ID] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true, "d": true}, seen)
}

func TestSelectDeterministicWithSeed(t *testing.T) {
	pick := func() []string {
		p := NewPolicy(5, rand.NewPCG(42, 42))
		var ids []string
		for i := 0; i < 10; i++ {
			r, _ := p.Select(cands(0, 0.1, 0.2, 0.3, 0.4, 0.5), nil, ModeRegenerate)
			ids = append(ids, r.ID)
		}
		return ids
	}
	assert.Equal(t, pick(), pick())
}

func TestExcludeSetUnion(t *testing.T) {
	a := NewExcludeSet("x", "")
	b := NewExcludeSet("y")
	u := a.Union(b)

	assert.Len(t, u, 2)
	assert.True(t, u.Has("x"))
	assert.True(t, u.Has("y"))
	assert.False(t, a.Has("y"))
	assert.False(t, ExcludeSet(nil).Has("x"))
}
