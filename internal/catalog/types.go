// Package catalog holds the static reference data the shop runs on: item
// definitions, customer archetypes and purchasable decorations.
// All values are read-only once a Catalog has been built.
package catalog

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// ErrInvalidDefinition is returned when a catalog record breaks an invariant.
var ErrInvalidDefinition = errors.New("invalid catalog definition")

// Set is a small ordered set of strings (categories or tags).
// Order is preserved so that JSON output and iteration stay stable.
type Set []string

// NewSet builds a Set from values, dropping empties and duplicates.
func NewSet(values ...string) Set {
	s := make(Set, 0, len(values))
	for _, v := range values {
		if v == "" || slices.Contains(s, v) {
			continue
		}
		s = append(s, v)
	}
	return s
}

// Has reports whether v is a member.
func (s Set) Has(v string) bool {
	return slices.Contains(s, v)
}

// Intersects reports whether the two sets share at least one member.
func (s Set) Intersects(other Set) bool {
	for _, v := range s {
		if other.Has(v) {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	return slices.Clone(s)
}

// Item is a sellable product definition.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Tags        Set             `json:"tags"`
	BasePrice   decimal.Decimal `json:"base_price"` // Wholesale cost in coins
	Popularity  float64         `json:"popularity"` // 0.0–1.0
	Description string          `json:"description,omitempty"`
}

// NewItem validates and builds an Item. Tags are copied.
func NewItem(id, name, category string, tags []string, basePrice decimal.Decimal, popularity float64) (Item, error) {
	if id == "" {
		return Item{}, fmt.Errorf("%w: item id is empty", ErrInvalidDefinition)
	}
	if category == "" {
		return Item{}, fmt.Errorf("%w: item %s has no category", ErrInvalidDefinition, id)
	}
	if basePrice.IsNegative() {
		return Item{}, fmt.Errorf("%w: item %s has negative base price %s", ErrInvalidDefinition, id, basePrice)
	}
	if popularity < 0 || popularity > 1 {
		return Item{}, fmt.Errorf("%w: item %s popularity %.2f outside [0,1]", ErrInvalidDefinition, id, popularity)
	}
	return Item{
		ID:         id,
		Name:       name,
		Category:   category,
		Tags:       NewSet(tags...),
		BasePrice:  basePrice,
		Popularity: popularity,
	}, nil
}

// Archetype is a customer template from which concrete visitors are drawn.
type Archetype struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	BudgetMin           int     `json:"budget_min"` // Coins, inclusive
	BudgetMax           int     `json:"budget_max"` // Coins, exclusive upper bound of the draw
	PreferredCategories Set     `json:"preferred_categories"`
	PreferredTags       Set     `json:"preferred_tags"`
	Patience            float64 `json:"patience"`   // 0.0–1.0
	Generosity          float64 `json:"generosity"` // 0.0–1.0, multiplicative budget slack
	Frequency           float64 `json:"frequency"`  // Relative weight, >= 0
}

// ArchetypeSpec carries the raw fields for NewArchetype.
type ArchetypeSpec struct {
	ID                  string
	Name                string
	BudgetMin           int
	BudgetMax           int
	PreferredCategories []string
	PreferredTags       []string
	Patience            float64
	Generosity          float64
	Frequency           float64
}

// NewArchetype validates spec and returns an Archetype that shares no slices with it.
func NewArchetype(spec ArchetypeSpec) (Archetype, error) {
	if spec.ID == "" {
		return Archetype{}, fmt.Errorf("%w: archetype id is empty", ErrInvalidDefinition)
	}
	// Budgets are drawn from [min, max), so the range must be non-empty.
	if spec.BudgetMin < 0 || spec.BudgetMin >= spec.BudgetMax {
		return Archetype{}, fmt.Errorf("%w: archetype %s budget range [%d,%d]", ErrInvalidDefinition, spec.ID, spec.BudgetMin, spec.BudgetMax)
	}
	if !unit(spec.Patience) {
		return Archetype{}, fmt.Errorf("%w: archetype %s patience %.2f outside [0,1]", ErrInvalidDefinition, spec.ID, spec.Patience)
	}
	if !unit(spec.Generosity) {
		return Archetype{}, fmt.Errorf("%w: archetype %s generosity %.2f outside [0,1]", ErrInvalidDefinition, spec.ID, spec.Generosity)
	}
	if spec.Frequency < 0 {
		return Archetype{}, fmt.Errorf("%w: archetype %s has negative frequency", ErrInvalidDefinition, spec.ID)
	}
	return Archetype{
		ID:                  spec.ID,
		Name:                spec.Name,
		BudgetMin:           spec.BudgetMin,
		BudgetMax:           spec.BudgetMax,
		PreferredCategories: NewSet(spec.PreferredCategories...),
		PreferredTags:       NewSet(spec.PreferredTags...),
		Patience:            spec.Patience,
		Generosity:          spec.Generosity,
		Frequency:           spec.Frequency,
	}, nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }

// Decoration boost types.
const (
	BoostAttractiveness = "attractiveness"
	BoostMood           = "mood"
)

// CategoryWallpaper decorations are mutually exclusive when active.
const CategoryWallpaper = "Wallpaper"

// Decoration is a purchasable shop embellishment.
type Decoration struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Price      decimal.Decimal `json:"price"`
	BoostType  string          `json:"boost_type"`
	BoostValue float64         `json:"boost_value"`
}
