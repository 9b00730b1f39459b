// Purchase decisions: match stock against a customer's preferences, pick a
// candidate, test affordability and commit the sale.
package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/cozycorner/shopsim/internal/catalog"
	"github.com/cozycorner/shopsim/internal/customers"
	"github.com/cozycorner/shopsim/internal/economy"
)

// ErrSoldOut is returned when the chosen line is gone at commit time.
var ErrSoldOut = errors.New("sold out")

// LeaveReason explains why a customer departed.
type LeaveReason string

const (
	ReasonNone         LeaveReason = ""
	ReasonNoMatch      LeaveReason = "nothing interests me"
	ReasonTooExpensive LeaveReason = "too expensive"
	ReasonSoldOut      LeaveReason = "sold out"
	ReasonPurchased    LeaveReason = "purchased"
	ReasonClosed       LeaveReason = "shop closed"
)

// SelectionPolicy decides which candidate a customer goes for.
type SelectionPolicy uint8

const (
	// SelectUniform picks uniformly among all candidates; relevance only orders the list.
	SelectUniform SelectionPolicy = iota
	// SelectBestRelevance picks uniformly among the candidates sharing the top relevance.
	SelectBestRelevance
)

// Candidate is a stocked item that matches a customer's preferences.
type Candidate struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	BasePrice decimal.Decimal `json:"base_price"`
	Relevance int             `json:"relevance"` // 2 for category, +1 for any tag
}

// Outcome is the result kind of an evaluation.
type Outcome uint8

const (
	OutcomeLeave Outcome = iota
	OutcomePurchase
)

// Decision is what a customer resolves to do.
type Decision struct {
	Outcome   Outcome
	Candidate Candidate   // Set when Outcome is OutcomePurchase, or when too expensive
	Reason    LeaveReason // Set when Outcome is OutcomeLeave
}

// FindCandidates lists stock entries matching the customer's categories or tags,
// sorted by relevance descending. Ties keep stock order. Entries whose item
// is missing from the catalog are skipped.
func FindCandidates(c *customers.Customer, stock []economy.StockEntry, items economy.ItemLookup) []Candidate {
	var out []Candidate
	for _, e := range stock {
		it, ok := items.Item(e.ItemID)
		if !ok || e.Quantity <= 0 {
			continue
		}
		categoryMatch := c.PreferredCategories.Has(it.Category)
		tagMatch := c.PreferredTags.Intersects(it.Tags)
		if !categoryMatch && !tagMatch {
			continue
		}
		out = append(out, Candidate{
			ItemID:    it.ID,
			Name:      it.Name,
			Category:  it.Category,
			Price:     e.Price,
			BasePrice: it.BasePrice,
			Relevance: relevance(categoryMatch, tagMatch),
		})
	}
	slices.SortStableFunc(out, func(a, b Candidate) int { return b.Relevance - a.Relevance })
	return out
}

func relevance(categoryMatch, tagMatch bool) int {
	r := 0
	if categoryMatch {
		r += 2
	}
	if tagMatch {
		r++
	}
	return r
}

// Choose picks one candidate under policy and applies the affordability test.
func Choose(c *customers.Customer, candidates []Candidate, rng customers.Rand, policy SelectionPolicy) Decision {
	if len(candidates) == 0 {
		return Decision{Outcome: OutcomeLeave, Reason: ReasonNoMatch}
	}
	pool := candidates
	if policy == SelectBestRelevance {
		top := candidates[0].Relevance
		n := 1
		for n < len(candidates) && candidates[n].Relevance == top {
			n++
		}
		pool = candidates[:n]
	}
	pick := pool[pickIndex(rng, len(pool))]

	if !c.CanAfford(pick.Price) {
		return Decision{Outcome: OutcomeLeave, Candidate: pick, Reason: ReasonTooExpensive}
	}
	return Decision{Outcome: OutcomePurchase, Candidate: pick}
}

func pickIndex(rng customers.Rand, n int) int {
	i := int(math.Floor(rng.Float64() * float64(n)))
	return min(max(i, 0), n-1)
}

// Evaluate runs matching, selection and affordability in one step.
func Evaluate(c *customers.Customer, stock []economy.StockEntry, items economy.ItemLookup, rng customers.Rand, policy SelectionPolicy) Decision {
	return Choose(c, FindCandidates(c, stock, items), rng, policy)
}

// Storefront is the stock and coin contract the sale path writes through.
type Storefront interface {
	List() []economy.StockEntry
	Find(itemID string) (economy.StockEntry, bool)
	Decrement(itemID string, qty int) error
	Credit(amount decimal.Decimal) error
	MaxCustomers() int
}

// Sale is a committed purchase.
type Sale struct {
	ItemID string
	Price  decimal.Decimal
	Profit decimal.Decimal
}

// CommitSale re-checks the chosen line, takes one unit, credits the current
// selling price and records the sale. A vanished line yields ErrSoldOut with
// nothing mutated.
func CommitSale(front Storefront, stats *economy.DayStats, cand Candidate) (Sale, error) {
	entry, ok := front.Find(cand.ItemID)
	if !ok || entry.Quantity <= 0 {
		return Sale{}, fmt.Errorf("commit %s: %w", cand.ItemID, ErrSoldOut)
	}
	if err := front.Decrement(cand.ItemID, 1); err != nil {
		if errors.Is(err, economy.ErrNotOnDisplay) || errors.Is(err, economy.ErrInsufficientQuantity) {
			return Sale{}, fmt.Errorf("commit %s: %w", cand.ItemID, ErrSoldOut)
		}
		return Sale{}, fmt.Errorf("commit %s: %w", cand.ItemID, err)
	}
	if err := front.Credit(entry.Price); err != nil {
		return Sale{}, fmt.Errorf("commit %s: %w", cand.ItemID, err)
	}
	stats.RecordSale(entry.Price, cand.BasePrice)
	return Sale{
		ItemID: cand.ItemID,
		Price:  entry.Price,
		Profit: entry.Price.Sub(cand.BasePrice),
	}, nil
}

// describe is a short label for notifications.
func (c Candidate) describe() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ItemID
}

var _ economy.ItemLookup = (*catalog.Catalog)(nil)
