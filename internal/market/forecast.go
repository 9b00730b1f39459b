// Package market produces the daily "items trending today" forecast. Each item
// traces a smooth noise curve over days, so trends drift rather than jump.
// The forecast is informational; it never changes how customers buy.
package market

import (
	"cmp"
	"hash/fnv"
	"slices"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/cozycorner/shopsim/internal/catalog"
)

// Noise sampling parameters.
const (
	dayFrequency = 0.35
	trendOctaves = 3
	falloff      = 0.5
	itemSpread   = 17.0 // Distance between item rows in noise space
)

// Trend thresholds on the [0,1] score.
const (
	hotAbove  = 0.6
	coldBelow = 0.4
)

// Outlook labels a trend score.
type Outlook string

const (
	OutlookHot    Outlook = "hot"
	OutlookSteady Outlook = "steady"
	OutlookCold   Outlook = "cold"
)

// Trend is one item's forecast for a day.
type Trend struct {
	ItemID  string  `json:"item_id"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Outlook Outlook `json:"outlook"`
}

// Forecaster samples item trends from seeded simplex noise.
type Forecaster struct {
	noise opensimplex.Noise
}

// NewForecaster creates a forecaster. The same seed yields the same forecasts.
func NewForecaster(seed int64) *Forecaster {
	return &Forecaster{noise: opensimplex.NewNormalized(seed)}
}

// Score returns the trend score in [0,1] for itemID on day.
func (f *Forecaster) Score(itemID string, day int) float64 {
	return octaveNoise(f.noise, float64(day), itemRow(itemID), trendOctaves, dayFrequency, falloff)
}

// Forecast scores every item for day and returns the top n, highest first.
// n <= 0 returns all items.
func (f *Forecaster) Forecast(day int, items []catalog.Item, n int) []Trend {
	trends := make([]Trend, 0, len(items))
	for _, it := range items {
		score := f.Score(it.ID, day)
		trends = append(trends, Trend{
			ItemID:  it.ID,
			Name:    it.Name,
			Score:   score,
			Outlook: outlook(score),
		})
	}
	slices.SortStableFunc(trends, func(a, b Trend) int { return cmp.Compare(b.Score, a.Score) })
	if n > 0 && n < len(trends) {
		trends = trends[:n]
	}
	return trends
}

func outlook(score float64) Outlook {
	switch {
	case score >= hotAbove:
		return OutlookHot
	case score <= coldBelow:
		return OutlookCold
	}
	return OutlookSteady
}

// itemRow places an item on its own row of the noise field, independent of catalog order.
func itemRow(itemID string) float64 {
	h := fnv.New32a()
	h.Write([]byte(itemID))
	return float64(h.Sum32()%1024) * itemSpread
}

// octaveNoise layers several frequencies of noise and normalizes by total amplitude.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for range octaves {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
