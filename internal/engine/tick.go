// Package engine runs the shop simulation: a virtual-clock event queue, the
// real-time tick driver, and the shop day itself (customer arrivals, purchase
// decisions and reputation feedback).
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TickLength is the scheduler time covered by one engine tick.
const TickLength = time.Second

// Engine drives the simulation forward in real time. Each tick advances the
// virtual clock by TickLength. All simulation access goes through Do so that
// ticks and API calls never interleave.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval (default 1 second)
	Running  bool

	// OnTick runs every tick with the engine lock held.
	OnTick func(tick uint64, step time.Duration)

	mu sync.Mutex
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Speed:    1.0,
		Interval: time.Second,
	}
}

// Do runs fn with the simulation lock held.
func (e *Engine) Do(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// SetSpeed changes the fast-forward multiplier.
func (e *Engine) SetSpeed(speed float64) {
	e.Do(func() { e.Speed = speed })
}

// CurrentSpeed returns the multiplier.
func (e *Engine) CurrentSpeed() float64 {
	var s float64
	e.Do(func() { s = e.Speed })
	return s
}

// Run starts the simulation loop. Blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.Do(func() { e.Running = true })
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed)

	for {
		speed := e.CurrentSpeed()
		wait := 100 * time.Millisecond // Paused: check again shortly.
		if speed > 0 {
			start := time.Now()
			e.Step()
			wait = time.Duration(float64(e.Interval)/speed) - time.Since(start)
		}

		select {
		case <-ctx.Done():
			e.Do(func() { e.Running = false })
			slog.Info("simulation engine stopped", "tick", e.Tick)
			return
		case <-time.After(max(wait, 0)):
		}
	}
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	e.Do(func() {
		e.Tick++
		if e.OnTick != nil {
			e.OnTick(e.Tick, TickLength)
		}
	})
}
