// Package selection picks one recipe from ranked matcher candidates.
package selection

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/fdg312/meal-planner/internal/matcher"
	"github.com/fdg312/meal-planner/internal/planerr"
	"github.com/fdg312/meal-planner/internal/recipes"
)

// Mode controls how a candidate is chosen.
type Mode int

const (
	// ModeDefault picks the best-ranked eligible candidate.
	ModeDefault Mode = iota
	// ModeRegenerate picks uniformly among the top eligible candidates.
	ModeRegenerate
)

func (m Mode) String() string {
	if m == ModeRegenerate {
		return "regenerate"
	}
	return "default"
}

// DefaultTopK is the regeneration pool size.
const DefaultTopK = 5

// ExcludeSet holds recipe ids that must not be selected.
type ExcludeSet map[string]struct{}

// NewExcludeSet builds a set from ids.
func NewExcludeSet(ids ...string) ExcludeSet {
	s := make(ExcludeSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. Empty ids are ignored.
func (s ExcludeSet) Add(id string) {
	if id != "" {
		s[id] = struct{}{}
	}
}

// Has reports whether id is excluded. A nil set excludes nothing.
func (s ExcludeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set containing the ids of s and other.
func (s ExcludeSet) Union(other ExcludeSet) ExcludeSet {
	out := make(ExcludeSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Policy selects candidates. It is safe for concurrent use.
type Policy struct {
	topK int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy creates a policy with the given regeneration pool size. A nil
// src seeds from the runtime's random source.
func NewPolicy(topK int, src rand.Source) *Policy {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Policy{topK: topK, rng: rand.New(src)}
}

// TopK returns the regeneration pool size.
func (p *Policy) TopK() int {
	return p.topK
}

// Select picks one recipe from cands, which must be ranked best first.
// Excluded candidates are never returned; when every candidate is
// excluded Select fails with a no-match error.
func (p *Policy) Select(cands []matcher.Candidate, excluded ExcludeSet, mode Mode) (recipes.Recipe, error) {
	eligible := make([]matcher.Candidate, 0, len(cands))
	for _, c := range cands {
		if !excluded.Has(c.Recipe.ID) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return recipes.Recipe{}, planerr.NoMatch(fmt.Sprintf("all %d matching recipes were already used", len(cands)))
	}

	if mode != ModeRegenerate {
		return eligible[0].Recipe, nil
	}

	pool := p.poolSize(eligible)
	p.mu.Lock()
	i := p.rng.IntN(pool)
	p.mu.Unlock()
	return eligible[i].Recipe, nil
}

// poolSize is min(topK, len(eligible)), grown to cover every candidate
// tied at the best distance.
func (p *Policy) poolSize(eligible []matcher.Candidate) int {
	n := min(p.topK, len(eligible))
	best := eligible[0].Distance
	for n < len(eligible) && eligible[n].Distance == best {
		n++
	}
	return n
}
