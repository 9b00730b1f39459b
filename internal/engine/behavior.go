package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cozycorner/shopsim/internal/notify"
)

// Customer timeline in simulated time.
const (
	lookAroundDelay = 2 * time.Second
	browseMin       = 30 * time.Second
	browseMax       = 60 * time.Second
	commitDelay     = 3 * time.Second
	departureDwell  = 5 * time.Second
)

// browse snapshots what matches the customer and schedules the decision.
// With nothing matching the customer leaves straight away.
func (s *Shop) browse(v *visit) {
	v.candidates = FindCandidates(v.customer, s.Front.List(), s.Catalog)
	if len(v.candidates) == 0 {
		s.thought(v, "Nothing interests me...")
		s.leaveAfter(v, ReasonNoMatch)
		return
	}
	s.after(v, lookAroundDelay, eventThought, func() {
		s.thought(v, "Let me see what they have...")
	})
	s.after(v, s.browseTime(), eventDecide, func() { s.decide(v) })
}

func (s *Shop) browseTime() time.Duration {
	return browseMin + time.Duration(s.rng.Float64()*float64(browseMax-browseMin))
}

// decide picks a candidate and tests affordability.
func (s *Shop) decide(v *visit) {
	d := Choose(v.customer, v.candidates, s.rng, s.Selection)
	if d.Outcome != OutcomePurchase {
		s.thought(v, "That's too expensive for me...")
		s.leaveAfter(v, d.Reason)
		return
	}
	cand := d.Candidate
	s.thought(v, fmt.Sprintf("I'll take the %s!", cand.describe()))
	s.after(v, commitDelay, eventCommit, func() { s.commit(v, cand) })
}

// commit takes the unit off the shelf, or sends the customer home if another
// customer got there first.
func (s *Shop) commit(v *visit, cand Candidate) {
	sale, err := CommitSale(s.Front, &s.Stats, cand)
	if err != nil {
		if !errors.Is(err, ErrSoldOut) {
			slog.Warn("sale failed", "customer", v.customer.ID, "item", cand.ItemID, "error", err)
		}
		s.thought(v, "Oh, it's sold out...")
		s.leaveAfter(v, ReasonSoldOut)
		return
	}

	s.emit(notify.Event{
		Kind:       notify.KindSaleCompleted,
		CustomerID: v.customer.ID,
		ItemID:     sale.ItemID,
		Message:    fmt.Sprintf("Sold %s for %s coins!", cand.describe(), sale.Price),
		Amount:     sale.Price,
	})
	if !s.FirstSale {
		s.FirstSale = true
		s.emit(notify.Event{Kind: notify.KindAchievement, Message: "Achievement unlocked: First Sale!"})
	}
	s.thought(v, "Thank you!")
	s.leaveAfter(v, ReasonPurchased)
}

// after schedules fn for an active customer. The callback is skipped if the
// customer has left by the time it fires.
func (s *Shop) after(v *visit, delay time.Duration, name string, fn func()) {
	s.Queue.Schedule(s.session, delay, name, func() {
		if s.isActive(v) {
			fn()
		}
	})
}

func (s *Shop) leaveAfter(v *visit, reason LeaveReason) {
	s.after(v, departureDwell, eventDepart, func() { s.depart(v, reason) })
}

func (s *Shop) isActive(v *visit) bool {
	return slices.Contains(s.active, v)
}

// depart removes a customer from the active set.
func (s *Shop) depart(v *visit, reason LeaveReason) {
	i := slices.Index(s.active, v)
	if i < 0 {
		return
	}
	s.active = slices.Delete(s.active, i, i+1)
	v.customer.TimeInShop = s.Queue.Now() - v.arrived

	s.emit(notify.Event{
		Kind:       notify.KindCustomerLeft,
		CustomerID: v.customer.ID,
		Reason:     string(reason),
		Message:    v.customer.Name + " left the shop.",
	})
}

func (s *Shop) thought(v *visit, msg string) {
	s.emit(notify.Event{
		Kind:       notify.KindCustomerThought,
		CustomerID: v.customer.ID,
		Message:    msg,
	})
}
