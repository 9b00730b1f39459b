package economy

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/cozycorner/shopsim/internal/catalog"
)

// Shopfront bundles the player's trade state and exposes the boundary
// operations (display, pricing, restocking, decorations) plus the narrow
// contract the sale path uses: List, Decrement and Credit.
// Every mutation that can change variety or decorations recomputes attractiveness.
type Shopfront struct {
	Catalog     *catalog.Catalog
	Stock       *Stock
	Inventory   *Inventory
	Wallet      *Wallet
	Decorations *Decorations

	attractiveness float64
	maxCustomers   int
}

// NewShopfront assembles a shopfront and computes its initial attractiveness.
func NewShopfront(cat *catalog.Catalog, stock *Stock, inv *Inventory, wallet *Wallet, decor *Decorations) *Shopfront {
	sf := &Shopfront{
		Catalog:     cat,
		Stock:       stock,
		Inventory:   inv,
		Wallet:      wallet,
		Decorations: decor,
	}
	sf.recompute()
	return sf
}

// StarterShopfront returns the new-game shopfront: 100 coins and a small backroom.
func StarterShopfront(cat *catalog.Catalog) *Shopfront {
	sf := NewShopfront(cat, NewStock(), NewInventory(), NewWallet(decimal.NewFromInt(100)), NewDecorations())
	starter := []struct {
		id  string
		qty int
	}{
		{"plushie_cat", 2},
		{"notebook_floral", 3},
		{"teacup_pink", 2},
	}
	for _, s := range starter {
		it, ok := cat.Item(s.id)
		if !ok {
			continue
		}
		_ = sf.Inventory.Add(s.id, s.qty, it.BasePrice)
	}
	return sf
}

// Attractiveness returns the cached score and customer cap.
func (sf *Shopfront) Attractiveness() (float64, int) {
	return sf.attractiveness, sf.maxCustomers
}

// MaxCustomers is the cap consumed by the next pool generation.
func (sf *Shopfront) MaxCustomers() int {
	return sf.maxCustomers
}

func (sf *Shopfront) recompute() {
	sf.attractiveness, sf.maxCustomers = Attractiveness(sf.Stock.List(), sf.Catalog, sf.Decorations.ActiveBoost())
	slog.Debug("shop attractiveness updated",
		"attractiveness", fmt.Sprintf("%.2f", sf.attractiveness),
		"max_customers", sf.maxCustomers,
	)
}

// List returns the displayed stock.
func (sf *Shopfront) List() []StockEntry {
	return sf.Stock.List()
}

// Find returns the displayed entry for itemID.
func (sf *Shopfront) Find(itemID string) (StockEntry, bool) {
	return sf.Stock.Find(itemID)
}

// Decrement takes qty units off display.
func (sf *Shopfront) Decrement(itemID string, qty int) error {
	removed, err := sf.Stock.Decrement(itemID, qty)
	if err != nil {
		return err
	}
	if removed {
		sf.recompute()
	}
	return nil
}

// Credit adds sale proceeds to the wallet.
func (sf *Shopfront) Credit(amount decimal.Decimal) error {
	return sf.Wallet.Credit(amount)
}

// Display moves qty from the backroom onto the shop floor. A zero price keeps
// the inventory's default price.
func (sf *Shopfront) Display(itemID string, qty int, price decimal.Decimal) error {
	if _, ok := sf.Catalog.Item(itemID); !ok {
		return fmt.Errorf("display %s: %w", itemID, ErrUnknownItem)
	}
	if qty <= 0 {
		return fmt.Errorf("display %s: %w", itemID, ErrInvalidQuantity)
	}
	if price.IsNegative() {
		return fmt.Errorf("display %s: %w: %s", itemID, ErrInvalidPrice, price)
	}
	held, ok := sf.Inventory.Find(itemID)
	if !ok {
		return fmt.Errorf("display %s: %w", itemID, ErrNotInInventory)
	}
	if held.Quantity < qty {
		return fmt.Errorf("display %s: %w", itemID, ErrInsufficientQuantity)
	}
	if price.IsZero() {
		price = held.Price
	}
	if err := sf.Inventory.Remove(itemID, qty); err != nil {
		return fmt.Errorf("display %s: %w", itemID, err)
	}
	if err := sf.Stock.Add(itemID, qty, price); err != nil {
		return fmt.Errorf("display %s: %w", itemID, err)
	}
	sf.recompute()
	return nil
}

// Undisplay returns qty of a displayed item to the backroom.
func (sf *Shopfront) Undisplay(itemID string, qty int) error {
	entry, ok := sf.Stock.Find(itemID)
	if !ok {
		return fmt.Errorf("undisplay %s: %w", itemID, ErrNotOnDisplay)
	}
	if qty <= 0 {
		return fmt.Errorf("undisplay %s: %w", itemID, ErrInvalidQuantity)
	}
	if entry.Quantity < qty {
		return fmt.Errorf("undisplay %s: %w", itemID, ErrInsufficientQuantity)
	}
	if _, err := sf.Stock.Decrement(itemID, qty); err != nil {
		return fmt.Errorf("undisplay %s: %w", itemID, err)
	}
	if err := sf.Inventory.Add(itemID, qty, entry.Price); err != nil {
		return fmt.Errorf("undisplay %s: %w", itemID, err)
	}
	sf.recompute()
	return nil
}

// SetPrice reprices a displayed item.
func (sf *Shopfront) SetPrice(itemID string, price decimal.Decimal) error {
	return sf.Stock.SetPrice(itemID, price)
}

// BuyItem purchases qty units wholesale at base price into the backroom.
func (sf *Shopfront) BuyItem(itemID string, qty int) (decimal.Decimal, error) {
	it, ok := sf.Catalog.Item(itemID)
	if !ok {
		return decimal.Zero, fmt.Errorf("buy %s: %w", itemID, ErrUnknownItem)
	}
	if qty <= 0 {
		return decimal.Zero, fmt.Errorf("buy %s: %w", itemID, ErrInvalidQuantity)
	}
	cost := it.BasePrice.Mul(decimal.NewFromInt(int64(qty)))
	if err := sf.Wallet.Debit(cost); err != nil {
		return decimal.Zero, fmt.Errorf("buy %s: %w", itemID, err)
	}
	if err := sf.Inventory.Add(itemID, qty, it.BasePrice); err != nil {
		return decimal.Zero, fmt.Errorf("buy %s: %w", itemID, err)
	}
	return cost, nil
}

// BuyDecoration purchases and activates a decoration. Owned decorations are
// simply re-activated at no cost.
func (sf *Shopfront) BuyDecoration(id string) error {
	def, ok := sf.Catalog.Decoration(id)
	if !ok {
		return fmt.Errorf("buy decoration %s: %w", id, ErrUnknownDecoration)
	}
	if !sf.Decorations.Owns(id) {
		if err := sf.Wallet.Debit(def.Price); err != nil {
			return fmt.Errorf("buy decoration %s: %w", id, err)
		}
	}
	if err := sf.Decorations.Add(def); err != nil {
		return err
	}
	sf.recompute()
	return nil
}

// ApplyDecoration activates an owned decoration.
func (sf *Shopfront) ApplyDecoration(id string) error {
	if err := sf.Decorations.Activate(id); err != nil {
		return err
	}
	sf.recompute()
	return nil
}

// RemoveDecoration deactivates an owned decoration.
func (sf *Shopfront) RemoveDecoration(id string) error {
	if err := sf.Decorations.Deactivate(id); err != nil {
		return err
	}
	sf.recompute()
	return nil
}
