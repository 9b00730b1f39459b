package economy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Wallet is the player's coin balance. It never goes negative.
type Wallet struct {
	coins decimal.Decimal
}

// NewWallet creates a wallet holding coins.
func NewWallet(coins decimal.Decimal) *Wallet {
	return &Wallet{coins: coins}
}

// Balance returns the current coin count.
func (w *Wallet) Balance() decimal.Decimal {
	return w.coins
}

// Credit adds a non-negative amount.
func (w *Wallet) Credit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("credit %s: %w", amount, ErrInvalidPrice)
	}
	w.coins = w.coins.Add(amount)
	return nil
}

// Debit removes amount, refusing to overdraw.
func (w *Wallet) Debit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("debit %s: %w", amount, ErrInvalidPrice)
	}
	if w.coins.LessThan(amount) {
		return fmt.Errorf("debit %s from %s: %w", amount, w.coins, ErrInsufficientFunds)
	}
	w.coins = w.coins.Sub(amount)
	return nil
}
