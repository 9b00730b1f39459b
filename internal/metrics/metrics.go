// Package metrics exports shop counters and gauges for Prometheus scraping.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cozycorner/shopsim/internal/notify"
)

var (
	CustomersArrivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_customers_arrived_total",
		Help: "Total number of customers admitted into the shop",
	})

	CustomersLeftTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_customers_left_total",
		Help: "Total number of customer departures",
	}, []string{"reason"})

	SalesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_sales_total",
		Help: "Total number of completed sales",
	}, []string{"item"})

	RevenueCoinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_revenue_coins_total",
		Help: "Total coins taken at the till",
	})

	DaysClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_days_closed_total",
		Help: "Total number of shop days closed",
	})

	RushHoursTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_rush_hours_total",
		Help: "Total number of rush hours started",
	})

	Reputation = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shop_reputation",
		Help: "Current shop reputation (1-10)",
	})

	Coins = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shop_coins",
		Help: "Current wallet balance",
	})

	Open = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shop_open",
		Help: "1 while the shop is open",
	})

	CustomersInShop = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shop_customers_in_shop",
		Help: "Customers currently browsing",
	})

	CustomersWaiting = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shop_customers_waiting",
		Help: "Customers still in today's pool",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

// Sink turns shop notifications into counter increments.
type Sink struct{}

// Emit implements notify.Sink.
func (Sink) Emit(_ context.Context, e notify.Event) error {
	switch e.Kind {
	case notify.KindCustomerArrived:
		CustomersArrivedTotal.Inc()
	case notify.KindCustomerLeft:
		CustomersLeftTotal.WithLabelValues(e.Reason).Inc()
	case notify.KindSaleCompleted:
		SalesTotal.WithLabelValues(e.ItemID).Inc()
		RevenueCoinsTotal.Add(e.Amount.InexactFloat64())
	case notify.KindShopOpened:
		Open.Set(1)
	case notify.KindShopClosed:
		Open.Set(0)
		DaysClosedTotal.Inc()
	case notify.KindRushHour:
		RushHoursTotal.Inc()
	case notify.KindReputationChanged:
		Reputation.Set(e.Reputation)
	}
	return nil
}

// Gauges is a point-in-time reading of the shop.
type Gauges struct {
	Open       bool
	Reputation float64
	Coins      float64
	Active     int
	Waiting    int
}

// Observe sets every gauge from g.
func Observe(g Gauges) {
	if g.Open {
		Open.Set(1)
	} else {
		Open.Set(0)
	}
	Reputation.Set(g.Reputation)
	Coins.Set(g.Coins)
	CustomersInShop.Set(float64(g.Active))
	CustomersWaiting.Set(float64(g.Waiting))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency by route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(rec.status)
		HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}
