package catalog

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Catalog is the read-only provider of reference data, keyed by id.
type Catalog struct {
	items       []Item
	itemIndex   map[string]int
	archetypes  []Archetype
	decorations []Decoration
}

// New builds a Catalog. Duplicate ids are rejected.
func New(items []Item, archetypes []Archetype, decorations []Decoration) (*Catalog, error) {
	c := &Catalog{
		items:       slices.Clone(items),
		itemIndex:   make(map[string]int, len(items)),
		archetypes:  slices.Clone(archetypes),
		decorations: slices.Clone(decorations),
	}
	for i, it := range c.items {
		if _, dup := c.itemIndex[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %s", ErrInvalidDefinition, it.ID)
		}
		c.itemIndex[it.ID] = i
	}
	seen := make(map[string]bool, len(c.archetypes))
	for _, a := range c.archetypes {
		if seen[a.ID] {
			return nil, fmt.Errorf("%w: duplicate archetype id %s", ErrInvalidDefinition, a.ID)
		}
		seen[a.ID] = true
	}
	return c, nil
}

// Item looks up an item definition.
func (c *Catalog) Item(id string) (Item, bool) {
	i, ok := c.itemIndex[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Items returns all item definitions in catalog order.
func (c *Catalog) Items() []Item {
	return slices.Clone(c.items)
}

// Archetypes returns customer archetypes in their fixed catalog order.
// The order matters: weighted selection walks this list.
func (c *Catalog) Archetypes() []Archetype {
	return slices.Clone(c.archetypes)
}

// Archetype looks up an archetype by id.
func (c *Catalog) Archetype(id string) (Archetype, bool) {
	for _, a := range c.archetypes {
		if a.ID == id {
			return a, true
		}
	}
	return Archetype{}, false
}

// Decoration looks up a decoration definition.
func (c *Catalog) Decoration(id string) (Decoration, bool) {
	for _, d := range c.decorations {
		if d.ID == id {
			return d, true
		}
	}
	return Decoration{}, false
}

// Decorations returns all decoration definitions.
func (c *Catalog) Decorations() []Decoration {
	return slices.Clone(c.decorations)
}

// Default returns the shipped catalog. It panics only if the built-in tables are broken.
func Default() *Catalog {
	c, err := New(defaultItems(), defaultArchetypes(), defaultDecorations())
	if err != nil {
		panic(err)
	}
	return c
}

type itemRow struct {
	id, name, category string
	tags               []string
	price              int64
	popularity         float64
	description        string
}

var itemRows = []itemRow{
	{"plushie_cat", "Cat Plushie", "Toys", []string{"cute", "soft", "animal"}, 15, 0.7, "A soft, huggable cat plushie."},
	{"plushie_bunny", "Bunny Plushie", "Toys", []string{"cute", "soft", "animal"}, 12, 0.6, "An adorable bunny with floppy ears."},
	{"teacup_pink", "Pink Teacup", "Kitchenware", []string{"kitchen", "elegant", "gift"}, 8, 0.5, "A delicate pink teacup with gold trim."},
	{"notebook_floral", "Floral Notebook", "Stationery", []string{"stationery", "gift", "floral"}, 10, 0.8, "A pretty notebook with floral patterns."},
	{"candle_lavender", "Lavender Candle", "Home", []string{"home", "relaxing", "scented"}, 14, 0.7, "A soothing lavender-scented candle."},
}

func defaultItems() []Item {
	items := make([]Item, 0, len(itemRows))
	for _, r := range itemRows {
		it, err := NewItem(r.id, r.name, r.category, r.tags, decimal.NewFromInt(r.price), r.popularity)
		if err != nil {
			panic(err)
		}
		it.Description = r.description
		items = append(items, it)
	}
	return items
}

var archetypeSpecs = []ArchetypeSpec{
	{
		ID: "student", Name: "Student",
		BudgetMin: 10, BudgetMax: 25,
		PreferredCategories: []string{"Stationery", "Books"},
		PreferredTags:       []string{"cute", "gift"},
		Patience:            0.6,
		Generosity:          0.4,
		Frequency:           0.7,
	},
	{
		ID: "collector", Name: "Collector",
		BudgetMin: 20, BudgetMax: 50,
		PreferredCategories: []string{"Toys", "Collectibles"},
		PreferredTags:       []string{"rare", "limited"},
		Patience:            0.8,
		Generosity:          0.9,
		Frequency:           0.3,
	},
	{
		ID: "parent", Name: "Parent",
		BudgetMin: 15, BudgetMax: 40,
		PreferredCategories: []string{"Toys", "Books"},
		PreferredTags:       []string{"educational", "cute", "gift"},
		Patience:            0.5,
		Generosity:          0.6,
		Frequency:           0.5,
	},
}

func defaultArchetypes() []Archetype {
	out := make([]Archetype, 0, len(archetypeSpecs))
	for _, s := range archetypeSpecs {
		a, err := NewArchetype(s)
		if err != nil {
			panic(err)
		}
		out = append(out, a)
	}
	return out
}

func defaultDecorations() []Decoration {
	return []Decoration{
		{
			ID: "wallpaper_pink", Name: "Pink Wallpaper", Category: CategoryWallpaper,
			Price: decimal.NewFromInt(50), BoostType: BoostAttractiveness, BoostValue: 0.1,
		},
		{
			ID: "plant_succulent", Name: "Succulent Plant", Category: "Plants",
			Price: decimal.NewFromInt(25), BoostType: BoostMood, BoostValue: 0.05,
		},
	}
}
