package economy

import (
	"math"

	"github.com/cozycorner/shopsim/internal/catalog"
)

// ItemLookup resolves item definitions by id.
type ItemLookup interface {
	Item(id string) (catalog.Item, bool)
}

const (
	categoryBonusPerCategory = 0.5
	customersPerAttractive   = 8
)

// Attractiveness scores the shop from displayed variety and active decorations,
// and derives the customer cap for the next pool. Reputation is applied separately
// by the pool size rule.
func Attractiveness(stock []StockEntry, items ItemLookup, decorationBoost float64) (score float64, maxCustomers int) {
	seen := make(map[string]bool)
	for _, e := range stock {
		if e.Quantity <= 0 {
			continue
		}
		if it, ok := items.Item(e.ItemID); ok {
			seen[it.Category] = true
		}
	}
	score = 1 + categoryBonusPerCategory*float64(len(seen)) + decorationBoost
	return score, int(math.Floor(customersPerAttractive * score))
}
