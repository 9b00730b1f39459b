package economy

import "github.com/shopspring/decimal"

// DayStats holds the counters for one shop day. Reset at opening, read at closing.
// Customers, Sales and Revenue only grow within a day. Profit only drops when an
// item is sold below its base price.
type DayStats struct {
	Customers int             `json:"customers" db:"customers"`
	Sales     int             `json:"sales" db:"sales"`
	Revenue   decimal.Decimal `json:"revenue" db:"revenue"`
	Profit    decimal.Decimal `json:"profit" db:"profit"`
}

// RecordCustomer counts an admitted visitor.
func (d *DayStats) RecordCustomer() {
	d.Customers++
}

// RecordSale counts a sale at price for an item costing basePrice.
func (d *DayStats) RecordSale(price, basePrice decimal.Decimal) {
	d.Sales++
	d.Revenue = d.Revenue.Add(price)
	d.Profit = d.Profit.Add(price.Sub(basePrice))
}

// SalesRatio is sales per admitted customer, 0 when nobody came.
func (d DayStats) SalesRatio() float64 {
	if d.Customers == 0 {
		return 0
	}
	return float64(d.Sales) / float64(d.Customers)
}
