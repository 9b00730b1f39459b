package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozycorner/shopsim/internal/notify"
)

func TestSinkCountsEvents(t *testing.T) {
	arrived := testutil.ToFloat64(CustomersArrivedTotal)
	sold := testutil.ToFloat64(SalesTotal.WithLabelValues("teacup_pink"))
	revenue := testutil.ToFloat64(RevenueCoinsTotal)
	left := testutil.ToFloat64(CustomersLeftTotal.WithLabelValues("sold out"))

	s := Sink{}
	ctx := context.Background()
	require.NoError(t, s.Emit(ctx, notify.Event{Kind: notify.KindCustomerArrived}))
	require.NoError(t, s.Emit(ctx, notify.Event{Kind: notify.KindSaleCompleted, ItemID: "teacup_pink", Amount: decimal.RequireFromString("8.5")}))
	require.NoError(t, s.Emit(ctx, notify.Event{Kind: notify.KindCustomerLeft, Reason: "sold out"}))
	require.NoError(t, s.Emit(ctx, notify.Event{Kind: notify.KindReputationChanged, Reputation: 6.5}))
	require.NoError(t, s.Emit(ctx, notify.Event{Kind: notify.KindShopOpened}))

	assert.Equal(t, arrived+1, testutil.ToFloat64(CustomersArrivedTotal))
	assert.Equal(t, sold+1, testutil.ToFloat64(SalesTotal.WithLabelValues("teacup_pink")))
	assert.InDelta(t, revenue+8.5, testutil.ToFloat64(RevenueCoinsTotal), 1e-9)
	assert.Equal(t, left+1, testutil.ToFloat64(CustomersLeftTotal.WithLabelValues("sold out")))
	assert.Equal(t, 6.5, testutil.ToFloat64(Reputation))
	assert.Equal(t, 1.0, testutil.ToFloat64(Open))

	require.NoError(t, s.Emit(ctx, notify.Event{Kind: notify.KindShopClosed}))
	assert.Zero(t, testutil.ToFloat64(Open))
}

func TestObserve(t *testing.T) {
	Observe(Gauges{Open: true, Reputation: 4, Coins: 120.5, Active: 2, Waiting: 7})
	assert.Equal(t, 1.0, testutil.ToFloat64(Open))
	assert.Equal(t, 4.0, testutil.ToFloat64(Reputation))
	assert.Equal(t, 120.5, testutil.ToFloat64(Coins))
	assert.Equal(t, 2.0, testutil.ToFloat64(CustomersInShop))
	assert.Equal(t, 7.0, testutil.ToFloat64(CustomersWaiting))
}

func TestMiddlewareRecordsPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/stock", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Middleware(mux)

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "GET /api/v1/stock", "418"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stock", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "GET /api/v1/stock", "418")))
}
