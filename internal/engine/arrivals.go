// Arrival scheduling: customers leave the pool one at a time at random
// intervals, and rush hours push a short burst through on top.
package engine

import (
	"time"

	"github.com/cozycorner/shopsim/internal/notify"
)

// Arrival timing in simulated time, before dividing by the time scale.
const (
	arrivalMin  = 2 * time.Minute
	arrivalMax  = 5 * time.Minute
	rushSpacing = 10 * time.Second
)

// Queue event names.
const (
	eventClock   = "clock"
	eventArrival = "arrival"
	eventRush    = "rush-arrival"
	eventThought = "thought"
	eventDecide  = "decide"
	eventCommit  = "commit"
	eventDepart  = "depart"
)

// ScheduleNextArrival queues the next pool arrival. When it fires, the front
// of the pool is admitted and, if the pool is not empty, the following
// arrival is queued. Nothing is queued while closed or with an empty pool.
func (s *Shop) ScheduleNextArrival() {
	if !s.open || len(s.pool) == 0 {
		return
	}
	s.Queue.Schedule(s.session, s.arrivalDelay(), eventArrival, func() {
		s.admitNext()
		s.ScheduleNextArrival()
	})
}

// ScheduleRushHourArrivals queues two or three extra arrivals ten seconds
// apart. It stops early when the pool is smaller than the burst.
func (s *Shop) ScheduleRushHourArrivals() {
	if !s.open {
		return
	}
	count := int(s.rng.Float64()*2) + 2
	for i := range count {
		if i >= len(s.pool) {
			break
		}
		s.Queue.Schedule(s.session, time.Duration(i)*rushSpacing, eventRush, s.admitNext)
	}
}

// arrivalDelay draws from [arrivalMin, arrivalMax) and divides by the time scale.
func (s *Shop) arrivalDelay() time.Duration {
	span := float64(arrivalMax - arrivalMin)
	d := float64(arrivalMin) + s.rng.Float64()*span
	scale := s.TimeScale
	if scale <= 0 {
		scale = 1
	}
	return time.Duration(d / scale)
}

// admitNext moves the front of the pool into the shop. Each customer is
// admitted at most once; a closed shop or empty pool makes this a no-op.
func (s *Shop) admitNext() {
	if !s.open || len(s.pool) == 0 {
		return
	}
	c := s.pool[0]
	s.pool[0] = nil
	s.pool = s.pool[1:]

	v := &visit{customer: c, arrived: s.Queue.Now()}
	s.active = append(s.active, v)
	s.Stats.RecordCustomer()

	s.emit(notify.Event{
		Kind:       notify.KindCustomerArrived,
		CustomerID: c.ID,
		Message:    "A " + c.Name + " has entered your shop!",
	})
	s.browse(v)
}
