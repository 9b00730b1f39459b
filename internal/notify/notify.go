// Package notify carries one-way shop notifications (customer thoughts, sales,
// reputation changes) to presentation and telemetry consumers.
// Emission never blocks the simulation and failures are never fatal.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
)

// Kind classifies a notification.
type Kind string

const (
	KindShopOpened        Kind = "shop_opened"
	KindShopClosed        Kind = "shop_closed"
	KindRushHour          Kind = "rush_hour"
	KindCustomerArrived   Kind = "customer_arrived"
	KindCustomerThought   Kind = "customer_thought"
	KindCustomerLeft      Kind = "customer_left"
	KindSaleCompleted     Kind = "sale_completed"
	KindReputationChanged Kind = "reputation_changed"
	KindAchievement       Kind = "achievement"
	KindAutosave          Kind = "autosave"
)

// Event is a single notification.
type Event struct {
	Kind       Kind            `json:"kind"`
	Day        int             `json:"day"`
	SimTime    string          `json:"sim_time"`
	CustomerID string          `json:"customer_id,omitempty"`
	ItemID     string          `json:"item_id,omitempty"`
	Message    string          `json:"message"`
	Reason     string          `json:"reason,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitzero"`
	Reputation float64         `json:"reputation,omitempty"`
}

// Sink receives notifications.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, e Event) error { return f(ctx, e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })

// Fanout delivers to several sinks. A failing sink does not stop the others;
// all failures are joined into the returned error.
type Fanout []Sink

// Emit delivers e to every sink.
func (f Fanout) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to slog. Thoughts and arrivals go to debug.
type LogSink struct {
	Logger *slog.Logger
}

// Emit logs e.
func (l LogSink) Emit(ctx context.Context, e Event) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch e.Kind {
	case KindCustomerThought, KindCustomerArrived, KindCustomerLeft:
		level = slog.LevelDebug
	}
	attrs := []any{"kind", e.Kind, "day", e.Day, "time", e.SimTime}
	if e.CustomerID != "" {
		attrs = append(attrs, "customer", e.CustomerID)
	}
	if e.ItemID != "" {
		attrs = append(attrs, "item", e.ItemID)
	}
	if e.Reason != "" {
		attrs = append(attrs, "reason", e.Reason)
	}
	if !e.Amount.IsZero() {
		attrs = append(attrs, "amount", e.Amount.String())
	}
	logger.Log(ctx, level, e.Message, attrs...)
	return nil
}

// Buffer keeps the most recent events in memory for the API.
type Buffer struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewBuffer creates a buffer holding up to limit events.
func NewBuffer(limit int) *Buffer {
	return &Buffer{limit: limit}
}

// Emit records e, evicting the oldest event when full.
func (b *Buffer) Emit(_ context.Context, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	if b.limit > 0 && len(b.events) > b.limit {
		b.events = b.events[len(b.events)-b.limit:]
	}
	return nil
}

// Events returns a copy of the buffered events, oldest first.
func (b *Buffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Of returns buffered events of the given kind.
func (b *Buffer) Of(kind Kind) []Event {
	var out []Event
	for _, e := range b.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
