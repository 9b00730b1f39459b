package economy

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// InventoryEntry is a backroom holding not yet on display.
type InventoryEntry struct {
	ItemID   string          `json:"item_id" db:"item_id"`
	Quantity int             `json:"quantity" db:"quantity"`
	Price    decimal.Decimal `json:"price" db:"price"` // Default selling price when displayed
}

// Inventory holds every item the player owns but has not displayed.
type Inventory struct {
	entries []InventoryEntry
}

// NewInventory creates an inventory from existing entries.
func NewInventory(entries ...InventoryEntry) *Inventory {
	inv := &Inventory{}
	for _, e := range entries {
		if e.Quantity > 0 {
			inv.entries = append(inv.entries, e)
		}
	}
	return inv
}

// List returns a snapshot in acquisition order.
func (inv *Inventory) List() []InventoryEntry {
	return slices.Clone(inv.entries)
}

// Find returns the entry for itemID.
func (inv *Inventory) Find(itemID string) (InventoryEntry, bool) {
	if i := inv.index(itemID); i >= 0 {
		return inv.entries[i], true
	}
	return InventoryEntry{}, false
}

func (inv *Inventory) index(itemID string) int {
	return slices.IndexFunc(inv.entries, func(e InventoryEntry) bool { return e.ItemID == itemID })
}

// Add stores qty of itemID. New lines default to defaultPrice.
func (inv *Inventory) Add(itemID string, qty int, defaultPrice decimal.Decimal) error {
	if qty <= 0 {
		return fmt.Errorf("inventory add %s: %w", itemID, ErrInvalidQuantity)
	}
	if i := inv.index(itemID); i >= 0 {
		inv.entries[i].Quantity += qty
		return nil
	}
	inv.entries = append(inv.entries, InventoryEntry{ItemID: itemID, Quantity: qty, Price: defaultPrice})
	return nil
}

// Remove takes qty of itemID out, deleting the line at zero.
func (inv *Inventory) Remove(itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("inventory remove %s: %w", itemID, ErrInvalidQuantity)
	}
	i := inv.index(itemID)
	if i < 0 {
		return fmt.Errorf("inventory remove %s: %w", itemID, ErrNotInInventory)
	}
	if inv.entries[i].Quantity < qty {
		return fmt.Errorf("inventory remove %s by %d (have %d): %w", itemID, qty, inv.entries[i].Quantity, ErrInsufficientQuantity)
	}
	inv.entries[i].Quantity -= qty
	if inv.entries[i].Quantity == 0 {
		inv.entries = slices.Delete(inv.entries, i, i+1)
	}
	return nil
}
