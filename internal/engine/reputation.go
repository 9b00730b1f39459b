// Reputation feedback: the day's results move reputation, which sizes the
// next day's customer pool.
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/cozycorner/shopsim/internal/economy"
)

var profitTarget = decimal.NewFromInt(100)

// Reputation bounds.
const (
	MinReputation     = 1.0
	MaxReputation     = 10.0
	StartReputation   = 5.0
	reputationStep    = 0.5
	reputationPenalty = 1.0
)

// CloseDay applies the end-of-day rules to current and returns the new
// reputation, clamped to [1, 10]. All rules are independent and additive.
func CloseDay(stats economy.DayStats, current float64) float64 {
	ratio := stats.SalesRatio()
	change := 0.0

	if ratio > 0.7 {
		change += reputationStep // Most visitors bought something
	}
	if stats.Sales > 5 {
		change += reputationStep
	}
	if stats.Profit.GreaterThan(profitTarget) {
		change += reputationStep
	}
	if ratio < 0.3 && stats.Customers > 3 {
		change -= reputationStep
	}
	if stats.Sales == 0 && stats.Customers > 0 {
		change -= reputationPenalty
	}

	return ClampReputation(current + change)
}

// ClampReputation bounds r to [1, 10].
func ClampReputation(r float64) float64 {
	return min(max(r, MinReputation), MaxReputation)
}
