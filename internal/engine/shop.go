// Shop ties the day's systems together: it owns the open/closed state, the
// customer pool and active set, the day counters and reputation, and wires the
// scheduler, purchase engine and feedback rules to one event queue.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cozycorner/shopsim/internal/catalog"
	"github.com/cozycorner/shopsim/internal/customers"
	"github.com/cozycorner/shopsim/internal/economy"
	"github.com/cozycorner/shopsim/internal/notify"
)

// Opening errors.
var (
	ErrNoStock     = errors.New("no items on display")
	ErrAlreadyOpen = errors.New("shop is already open")
)

// CatalogProvider is the read-only reference data the shop needs.
type CatalogProvider interface {
	economy.ItemLookup
	Archetypes() []catalog.Archetype
}

// DaySummary is the record of one closed shop day.
type DaySummary struct {
	Day              int             `json:"day" db:"day"`
	Customers        int             `json:"customers" db:"customers"`
	Sales            int             `json:"sales" db:"sales"`
	Revenue          decimal.Decimal `json:"revenue" db:"revenue"`
	Profit           decimal.Decimal `json:"profit" db:"profit"`
	ReputationBefore float64         `json:"reputation_before" db:"reputation_before"`
	ReputationAfter  float64         `json:"reputation_after" db:"reputation_after"`
}

// visit tracks one active customer.
type visit struct {
	customer   *customers.Customer
	arrived    time.Duration
	candidates []Candidate
}

// Shop is the explicitly owned simulation context for one shop.
type Shop struct {
	Catalog CatalogProvider
	Front   Storefront
	Sink    notify.Sink
	Queue   *Queue

	Clock      DayClock
	Reputation float64
	Stats      economy.DayStats
	History    []DaySummary
	FirstSale  bool

	TimeScale  float64 // Simulated minutes per scheduler second
	Autosave   bool
	Selection  SelectionPolicy
	OnAutosave func() // Called at noon and after closing when Autosave is set

	rng       customers.Rand
	generator *customers.Generator
	open      bool
	session   Session
	pool      []*customers.Customer
	active    []*visit
}

// NewShop creates a closed shop on day 1 with starting reputation.
func NewShop(cat CatalogProvider, front Storefront, rng customers.Rand) *Shop {
	return &Shop{
		Catalog:    cat,
		Front:      front,
		Sink:       notify.Discard,
		Queue:      NewQueue(),
		Clock:      NewDayClock(),
		Reputation: StartReputation,
		TimeScale:  1,
		Autosave:   true,
		rng:        rng,
		generator:  customers.NewGenerator(rng),
	}
}

// Generator exposes the pool generator (tests swap its id source).
func (s *Shop) Generator() *customers.Generator {
	return s.generator
}

// IsOpen reports whether the shop is trading.
func (s *Shop) IsOpen() bool {
	return s.open
}

// Session returns the current (or last) day session.
func (s *Shop) Session() Session {
	return s.session
}

// Pool returns the customers still waiting to arrive, in arrival order.
func (s *Shop) Pool() []*customers.Customer {
	return slices.Clone(s.pool)
}

// Active returns the customers currently in the shop, in arrival order.
func (s *Shop) Active() []*customers.Customer {
	out := make([]*customers.Customer, 0, len(s.active))
	for _, v := range s.active {
		out = append(out, v.customer)
	}
	return out
}

// Open starts a shop day: resets the counters, draws the pool and starts the
// clock and arrival timers. Opening requires something on display.
func (s *Shop) Open() error {
	if s.open {
		return ErrAlreadyOpen
	}
	if len(s.Front.List()) == 0 {
		slog.Info("shop not opened", "day", s.Clock.Day, "reason", ErrNoStock)
		return ErrNoStock
	}

	s.open = true
	s.session++
	s.Stats = economy.DayStats{}

	s.scheduleClock()
	s.pool = s.generator.Generate(s.Catalog.Archetypes(), s.Reputation, s.Front.MaxCustomers())
	s.ScheduleNextArrival()

	slog.Info("shop opened",
		"day", s.Clock.Day,
		"time", s.Clock.String(),
		"reputation", s.Reputation,
		"max_customers", s.Front.MaxCustomers(),
		"pool", len(s.pool),
	)
	s.emit(notify.Event{Kind: notify.KindShopOpened, Message: "Shop is now open for business!"})
	return nil
}

// Close ends the shop day. Every pending timer of the day is dropped and every
// active customer is sent home, so nothing can touch stock or coins afterwards.
// Reputation is then updated from the day's results. Closing a closed shop is a no-op.
func (s *Shop) Close() bool {
	if !s.open {
		return false
	}
	s.open = false

	dropped := s.Queue.CancelSession(s.session)
	for len(s.active) > 0 {
		s.depart(s.active[0], ReasonClosed)
	}
	s.pool = nil

	before := s.Reputation
	s.Reputation = CloseDay(s.Stats, before)
	summary := DaySummary{
		Day:              s.Clock.Day,
		Customers:        s.Stats.Customers,
		Sales:            s.Stats.Sales,
		Revenue:          s.Stats.Revenue,
		Profit:           s.Stats.Profit,
		ReputationBefore: before,
		ReputationAfter:  s.Reputation,
	}
	s.History = append(s.History, summary)

	slog.Info("shop closed",
		"day", summary.Day,
		"customers", summary.Customers,
		"sales", summary.Sales,
		"revenue", summary.Revenue.String(),
		"profit", summary.Profit.String(),
		"reputation", s.Reputation,
		"timers_cancelled", dropped,
	)
	s.emit(notify.Event{
		Kind:    notify.KindShopClosed,
		Message: fmt.Sprintf("Shop is now closed. %d customers, %d sales, %s coins revenue.", summary.Customers, summary.Sales, summary.Revenue),
		Amount:  summary.Revenue,
	})

	switch {
	case s.Reputation > before:
		s.emit(notify.Event{Kind: notify.KindReputationChanged, Message: "Your shop reputation increased!", Reputation: s.Reputation})
	case s.Reputation < before:
		s.emit(notify.Event{Kind: notify.KindReputationChanged, Message: "Your shop reputation decreased.", Reputation: s.Reputation})
	}

	// An automatic close at closing time saves the next morning, not this evening.
	if s.Clock.pastClosing() {
		s.Clock.nextMorning()
	}
	if s.Autosave {
		s.autosave()
	}
	return true
}

// Advance moves the simulation forward by d of scheduler time.
func (s *Shop) Advance(d time.Duration) int {
	return s.Queue.Advance(d)
}

func (s *Shop) scheduleClock() {
	s.Queue.Schedule(s.session, TickLength, eventClock, s.tickClock)
}

// tickClock advances the day clock by timeScale minutes per scheduler second.
func (s *Shop) tickClock() {
	if !s.open {
		return
	}
	if s.Clock.advance(s.TimeScale) {
		s.onHourChange()
	}
	if s.Clock.pastClosing() {
		s.Close()
		return
	}
	s.scheduleClock()
}

func (s *Shop) onHourChange() {
	hour := s.Clock.Hour
	if slices.Contains(RushHours, hour) {
		s.emit(notify.Event{Kind: notify.KindRushHour, Message: "It's getting busy!"})
		s.ScheduleRushHourArrivals()
	}
	if hour == AutosaveHour && s.Autosave {
		s.autosave()
	}
}

func (s *Shop) autosave() {
	if s.OnAutosave != nil {
		s.OnAutosave()
	}
	s.emit(notify.Event{Kind: notify.KindAutosave, Message: "Game auto-saved."})
}

// emit stamps and delivers a notification. Sink failures are logged and dropped.
func (s *Shop) emit(e notify.Event) {
	if s.Sink == nil {
		return
	}
	e.Day = s.Clock.Day
	e.SimTime = s.Clock.String()
	if err := s.Sink.Emit(context.Background(), e); err != nil {
		slog.Warn("notification delivery failed", "kind", e.Kind, "error", err)
	}
}

// ShopState is the persisted slice of shop state. Pool, active set and the
// day counters are not persisted.
type ShopState struct {
	Day        int          `json:"day"`
	Hour       int          `json:"hour"`
	Minute     float64      `json:"minute"`
	Reputation float64      `json:"reputation"`
	FirstSale  bool         `json:"first_sale"`
	TimeScale  float64      `json:"time_scale"`
	Autosave   bool         `json:"autosave"`
	History    []DaySummary `json:"history,omitempty"`
}

// Snapshot captures the persistable state.
func (s *Shop) Snapshot() ShopState {
	return ShopState{
		Day:        s.Clock.Day,
		Hour:       s.Clock.Hour,
		Minute:     s.Clock.Minute,
		Reputation: s.Reputation,
		FirstSale:  s.FirstSale,
		TimeScale:  s.TimeScale,
		Autosave:   s.Autosave,
		History:    slices.Clone(s.History),
	}
}

// Restore loads persisted state into a closed shop.
func (s *Shop) Restore(st ShopState) {
	s.Clock = DayClock{Day: max(st.Day, 1), Hour: st.Hour, Minute: st.Minute}
	if s.Clock.Hour < OpeningHour || s.Clock.Hour >= ClosingHour {
		s.Clock.Hour, s.Clock.Minute = OpeningHour, 0
	}
	s.Reputation = ClampReputation(st.Reputation)
	s.FirstSale = st.FirstSale
	if st.TimeScale > 0 {
		s.TimeScale = st.TimeScale
	}
	s.Autosave = st.Autosave
	s.History = slices.Clone(st.History)
}
