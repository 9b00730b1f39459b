// Pool generation: each shop day draws its visitor roster up front, weighted by
// archetype frequency, with a budget resolved per visitor.
package customers

import (
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/cozycorner/shopsim/internal/catalog"
)

// Pool size rule: a base crowd that grows with reputation, capped by attractiveness.
const (
	basePoolSize      = 5
	poolPerReputation = 2
)

// PoolSize returns min(floor(5 + 2*reputation), maxCustomers), never negative.
func PoolSize(reputation float64, maxCustomers int) int {
	n := int(math.Floor(basePoolSize + reputation*poolPerReputation))
	n = min(n, maxCustomers)
	return max(n, 0)
}

// Generator draws customers for the day's pool.
type Generator struct {
	rng   Rand
	newID func() string
}

// NewGenerator creates a generator using rng for every draw.
func NewGenerator(rng Rand) *Generator {
	return &Generator{rng: rng, newID: uuid.NewString}
}

// SetIDFunc replaces the id source (tests use sequential ids).
func (g *Generator) SetIDFunc(fn func() string) {
	g.newID = fn
}

// Generate produces the ordered pool for one day. With no archetypes, or only
// zero-weight ones, the pool is empty.
func (g *Generator) Generate(archetypes []catalog.Archetype, reputation float64, maxCustomers int) []*Customer {
	size := PoolSize(reputation, maxCustomers)
	if len(archetypes) == 0 || totalFrequency(archetypes) <= 0 {
		slog.Warn("no weighted customer archetypes configured, pool is empty", "archetypes", len(archetypes))
		return nil
	}

	pool := make([]*Customer, 0, size)
	for i := 0; i < size; i++ {
		a := g.PickArchetype(archetypes)
		pool = append(pool, FromArchetype(g.newID(), a, g.drawBudget(a)))
	}

	slog.Debug("customer pool generated", "size", len(pool), "reputation", reputation, "max_customers", maxCustomers)
	return pool
}

// PickArchetype performs one weighted draw. archetypes must be non-empty.
// The walk subtracts each weight from r until it reaches zero; rounding at the
// upper boundary falls back to the first archetype.
func (g *Generator) PickArchetype(archetypes []catalog.Archetype) catalog.Archetype {
	r := g.rng.Float64() * totalFrequency(archetypes)
	for _, a := range archetypes {
		r -= a.Frequency
		if r <= 0 {
			return a
		}
	}
	return archetypes[0]
}

// drawBudget returns floor(min + r*(max-min)), an integer in [min, max).
func (g *Generator) drawBudget(a catalog.Archetype) int {
	span := float64(a.BudgetMax - a.BudgetMin)
	return a.BudgetMin + int(math.Floor(g.rng.Float64()*span))
}

func totalFrequency(archetypes []catalog.Archetype) float64 {
	total := 0.0
	for _, a := range archetypes {
		total += a.Frequency
	}
	return total
}
