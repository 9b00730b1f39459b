// Package economy provides the shop's mutable trade state: the display stock,
// the backroom inventory, the coin wallet, decorations and per-day counters.
package economy

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Boundary validation errors. Callers check them with errors.Is.
var (
	ErrUnknownItem          = errors.New("unknown item")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrNotOnDisplay         = errors.New("item not on display")
	ErrNotInInventory       = errors.New("item not in inventory")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrUnknownDecoration    = errors.New("unknown decoration")
)

// Position is a cosmetic placement on the shop floor. The simulation ignores it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StockEntry is one item line on display. An entry with zero quantity never exists.
type StockEntry struct {
	ItemID   string          `json:"item_id" db:"item_id"`
	Quantity int             `json:"quantity" db:"quantity"`
	Price    decimal.Decimal `json:"price" db:"price"` // Selling price, may diverge from base price
	Position Position        `json:"position"`
}

// Stock is the ordered collection of items on display.
// Order is display order and is preserved across updates.
type Stock struct {
	entries []StockEntry
}

// NewStock creates a stock from existing entries, dropping empty lines.
func NewStock(entries ...StockEntry) *Stock {
	s := &Stock{}
	for _, e := range entries {
		if e.Quantity > 0 {
			s.entries = append(s.entries, e)
		}
	}
	return s
}

// List returns a snapshot of the entries in display order.
func (s *Stock) List() []StockEntry {
	return slices.Clone(s.entries)
}

// Len returns the number of distinct lines on display.
func (s *Stock) Len() int {
	return len(s.entries)
}

// Find returns the entry for itemID.
func (s *Stock) Find(itemID string) (StockEntry, bool) {
	if i := s.index(itemID); i >= 0 {
		return s.entries[i], true
	}
	return StockEntry{}, false
}

func (s *Stock) index(itemID string) int {
	return slices.IndexFunc(s.entries, func(e StockEntry) bool { return e.ItemID == itemID })
}

// Add puts qty of itemID on display at price. An existing line accumulates
// and takes the new price.
func (s *Stock) Add(itemID string, qty int, price decimal.Decimal) error {
	if qty <= 0 {
		return fmt.Errorf("add %s: %w", itemID, ErrInvalidQuantity)
	}
	if price.IsNegative() {
		return fmt.Errorf("add %s: %w: %s", itemID, ErrInvalidPrice, price)
	}
	if i := s.index(itemID); i >= 0 {
		s.entries[i].Quantity += qty
		s.entries[i].Price = price
		return nil
	}
	s.entries = append(s.entries, StockEntry{ItemID: itemID, Quantity: qty, Price: price})
	return nil
}

// Decrement removes qty units of itemID, deleting the line when it reaches zero.
// It reports whether the line was removed.
func (s *Stock) Decrement(itemID string, qty int) (removed bool, err error) {
	if qty <= 0 {
		return false, fmt.Errorf("decrement %s: %w", itemID, ErrInvalidQuantity)
	}
	i := s.index(itemID)
	if i < 0 {
		return false, fmt.Errorf("decrement %s: %w", itemID, ErrNotOnDisplay)
	}
	if s.entries[i].Quantity < qty {
		return false, fmt.Errorf("decrement %s by %d (have %d): %w", itemID, qty, s.entries[i].Quantity, ErrInsufficientQuantity)
	}
	s.entries[i].Quantity -= qty
	if s.entries[i].Quantity == 0 {
		s.entries = slices.Delete(s.entries, i, i+1)
		return true, nil
	}
	return false, nil
}

// SetPrice changes the selling price of a displayed item. Price must be positive.
func (s *Stock) SetPrice(itemID string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("set price %s: %w: %s", itemID, ErrInvalidPrice, price)
	}
	i := s.index(itemID)
	if i < 0 {
		return fmt.Errorf("set price %s: %w", itemID, ErrNotOnDisplay)
	}
	s.entries[i].Price = price
	return nil
}

// Categories returns the distinct categories among displayed items.
func (s *Stock) Categories(items ItemLookup) []string {
	var cats []string
	for _, e := range s.entries {
		it, ok := items.Item(e.ItemID)
		if !ok || slices.Contains(cats, it.Category) {
			continue
		}
		cats = append(cats, it.Category)
	}
	return cats
}
