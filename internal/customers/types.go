// Package customers models shop visitors: the per-visit Customer instance and
// the Generator that draws a day's pool from the catalog archetypes.
package customers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cozycorner/shopsim/internal/catalog"
)

// Rand is the randomness the package needs. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Customer is one concrete visitor drawn from an archetype. It owns copies of
// the archetype's preferences and shares no mutable state with the catalog.
type Customer struct {
	ID                  string        `json:"id"`
	ArchetypeID         string        `json:"archetype_id"`
	Name                string        `json:"name"`
	Budget              int           `json:"budget"` // Resolved coins for this visit
	PreferredCategories catalog.Set   `json:"preferred_categories"`
	PreferredTags       catalog.Set   `json:"preferred_tags"`
	Patience            float64       `json:"patience"`
	Generosity          float64       `json:"generosity"`
	TimeInShop          time.Duration `json:"time_in_shop"`
}

// FromArchetype builds a customer with the given id and resolved budget.
func FromArchetype(id string, a catalog.Archetype, budget int) *Customer {
	return &Customer{
		ID:                  id,
		ArchetypeID:         a.ID,
		Name:                a.Name,
		Budget:              budget,
		PreferredCategories: a.PreferredCategories.Clone(),
		PreferredTags:       a.PreferredTags.Clone(),
		Patience:            a.Patience,
		Generosity:          a.Generosity,
	}
}

// EffectiveBudget is the affordability ceiling: budget inflated by generosity.
func (c *Customer) EffectiveBudget() decimal.Decimal {
	return decimal.NewFromInt(int64(c.Budget)).Mul(decimal.NewFromFloat(1 + c.Generosity))
}

// CanAfford reports whether price fits within the effective budget (inclusive).
func (c *Customer) CanAfford(price decimal.Decimal) bool {
	return price.LessThanOrEqual(c.EffectiveBudget())
}
