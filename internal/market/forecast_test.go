package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozycorner/shopsim/internal/catalog"
)

func TestForecastDeterministic(t *testing.T) {
	items := catalog.Default().Items()
	a := NewForecaster(7).Forecast(3, items, 0)
	b := NewForecaster(7).Forecast(3, items, 0)
	assert.Equal(t, a, b)
	assert.Len(t, a, len(items))
}

func TestForecastSortedAndLimited(t *testing.T) {
	items := catalog.Default().Items()
	f := NewForecaster(11)

	top := f.Forecast(5, items, 3)
	require.Len(t, top, 3)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Score, top[i].Score)
	}
	all := f.Forecast(5, items, 0)
	assert.Equal(t, all[:3], top)
}

func TestScoreInRangeAndDrifts(t *testing.T) {
	f := NewForecaster(1)
	varied := false
	prev := f.Score("plushie_cat", 1)
	for day := 1; day <= 60; day++ {
		s := f.Score("plushie_cat", day)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		if s != prev {
			varied = true
		}
		prev = s
	}
	assert.True(t, varied)
}

func TestOutlook(t *testing.T) {
	assert.Equal(t, OutlookHot, outlook(0.75))
	assert.Equal(t, OutlookSteady, outlook(0.5))
	assert.Equal(t, OutlookCold, outlook(0.1))
}
