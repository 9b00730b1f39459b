// Deferred-event queue on a virtual clock. Every scheduled action carries a
// simulated timestamp and the session that owns it; the queue runs actions in
// timestamp order (FIFO among equal timestamps), one at a time, each to
// completion. Closing a session drops everything it still has pending.
package engine

import (
	"slices"
	"time"
)

// Session tags the events belonging to one shop day.
type Session uint64

// EventID identifies a scheduled event for cancellation.
type EventID uint64

type pending struct {
	at      time.Duration
	seq     uint64
	id      EventID
	session Session
	name    string
	fn      func()
}

// Queue is a sorted list of pending events on a virtual clock.
// It is not safe for concurrent use; the Engine serializes access.
type Queue struct {
	now    time.Duration
	seq    uint64
	nextID EventID
	events []pending // Sorted by (at, seq)
}

// NewQueue creates an empty queue at time zero.
func NewQueue() *Queue {
	return &Queue{}
}

// Now returns the current virtual time.
func (q *Queue) Now() time.Duration {
	return q.now
}

// Schedule runs fn after delay (negative delays run at the current time).
func (q *Queue) Schedule(session Session, delay time.Duration, name string, fn func()) EventID {
	delay = max(delay, 0)
	q.seq++
	q.nextID++
	ev := pending{
		at:      q.now + delay,
		seq:     q.seq,
		id:      q.nextID,
		session: session,
		name:    name,
		fn:      fn,
	}
	i, _ := slices.BinarySearchFunc(q.events, ev, comparePending)
	q.events = slices.Insert(q.events, i, ev)
	return ev.id
}

func comparePending(a, b pending) int {
	if a.at != b.at {
		if a.at < b.at {
			return -1
		}
		return 1
	}
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

// Cancel removes one pending event. It reports whether the event was pending.
func (q *Queue) Cancel(id EventID) bool {
	i := slices.IndexFunc(q.events, func(p pending) bool { return p.id == id })
	if i < 0 {
		return false
	}
	q.events = slices.Delete(q.events, i, i+1)
	return true
}

// CancelSession drops every pending event owned by session and returns how many were dropped.
func (q *Queue) CancelSession(session Session) int {
	before := len(q.events)
	q.events = slices.DeleteFunc(q.events, func(p pending) bool { return p.session == session })
	return before - len(q.events)
}

// Pending returns the number of queued events.
func (q *Queue) Pending() int {
	return len(q.events)
}

// PendingFor counts queued events owned by session, optionally filtered by name.
func (q *Queue) PendingFor(session Session, name string) int {
	n := 0
	for _, p := range q.events {
		if p.session == session && (name == "" || p.name == name) {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every event that falls due,
// including events scheduled by those events. It returns the number run.
func (q *Queue) Advance(d time.Duration) int {
	target := q.now + max(d, 0)
	ran := 0
	for len(q.events) > 0 && q.events[0].at <= target {
		ev := q.events[0]
		q.events = q.events[1:]
		q.now = ev.at
		ev.fn()
		ran++
	}
	q.now = target
	return ran
}

// RunNext jumps to the next pending event and runs it.
func (q *Queue) RunNext() bool {
	if len(q.events) == 0 {
		return false
	}
	ev := q.events[0]
	q.events = q.events[1:]
	q.now = ev.at
	ev.fn()
	return true
}
