// Shop-day clock. While the shop is open every scheduler second advances the
// clock by timeScale minutes; the shop closes itself at 20:00.
package engine

import (
	"fmt"
	"math"
)

// Opening hours.
const (
	OpeningHour = 8
	ClosingHour = 20
)

// Rush hours bring bursts of extra arrivals.
var RushHours = []int{12, 17}

// AutosaveHour triggers the midday autosave.
const AutosaveHour = 12

// DayClock is the in-game calendar position.
type DayClock struct {
	Day    int     `json:"day"`
	Hour   int     `json:"hour"`
	Minute float64 `json:"minute"`
}

// NewDayClock returns day 1 at opening time.
func NewDayClock() DayClock {
	return DayClock{Day: 1, Hour: OpeningHour}
}

// advance adds minutes and reports whether the hour rolled over. Minutes past
// the hour are dropped on rollover.
func (c *DayClock) advance(minutes float64) (hourChanged bool) {
	c.Minute += minutes
	if c.Minute >= 60 {
		c.Hour++
		c.Minute = 0
		return true
	}
	return false
}

// pastClosing reports whether the clock has reached closing time.
func (c DayClock) pastClosing() bool {
	return c.Hour >= ClosingHour
}

// nextMorning rolls to the following day at opening time.
func (c *DayClock) nextMorning() {
	c.Day++
	c.Hour = OpeningHour
	c.Minute = 0
}

// String formats the clock as "Day 3, 14:05".
func (c DayClock) String() string {
	return SimTime(c.Day, c.Hour, c.Minute)
}

// SimTime returns a human-readable clock string.
func SimTime(day, hour int, minute float64) string {
	return fmt.Sprintf("Day %d, %d:%02d", day, hour, int(math.Floor(minute)))
}
