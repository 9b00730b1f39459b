package economy

import (
	"fmt"
	"slices"

	"github.com/cozycorner/shopsim/internal/catalog"
)

// OwnedDecoration is a decoration the player has bought.
type OwnedDecoration struct {
	catalog.Decoration
	Active   bool     `json:"active"`
	Position Position `json:"position"`
}

// Decorations tracks owned decorations and which of them are active.
type Decorations struct {
	owned []OwnedDecoration
}

// NewDecorations restores a decoration set.
func NewDecorations(owned ...OwnedDecoration) *Decorations {
	return &Decorations{owned: slices.Clone(owned)}
}

// List returns a snapshot of owned decorations.
func (d *Decorations) List() []OwnedDecoration {
	return slices.Clone(d.owned)
}

// Owns reports whether id has been bought.
func (d *Decorations) Owns(id string) bool {
	return d.index(id) >= 0
}

func (d *Decorations) index(id string) int {
	return slices.IndexFunc(d.owned, func(o OwnedDecoration) bool { return o.ID == id })
}

// Add records a newly bought decoration and activates it.
func (d *Decorations) Add(def catalog.Decoration) error {
	if d.Owns(def.ID) {
		return d.Activate(def.ID)
	}
	d.owned = append(d.owned, OwnedDecoration{Decoration: def, Position: Position{X: 100, Y: 100}})
	return d.Activate(def.ID)
}

// Activate turns a decoration on. Activating a wallpaper switches off every other wallpaper.
func (d *Decorations) Activate(id string) error {
	i := d.index(id)
	if i < 0 {
		return fmt.Errorf("activate %s: %w", id, ErrUnknownDecoration)
	}
	if d.owned[i].Category == catalog.CategoryWallpaper {
		for j := range d.owned {
			if d.owned[j].Category == catalog.CategoryWallpaper {
				d.owned[j].Active = false
			}
		}
	}
	d.owned[i].Active = true
	return nil
}

// Deactivate turns a decoration off.
func (d *Decorations) Deactivate(id string) error {
	i := d.index(id)
	if i < 0 {
		return fmt.Errorf("deactivate %s: %w", id, ErrUnknownDecoration)
	}
	d.owned[i].Active = false
	return nil
}

// ActiveBoost sums the boost values of active decorations.
func (d *Decorations) ActiveBoost() float64 {
	total := 0.0
	for _, o := range d.owned {
		if o.Active {
			total += o.BoostValue
		}
	}
	return total
}
