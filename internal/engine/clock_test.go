package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDayClockRollsHours(t *testing.T) {
	c := NewDayClock()
	assert.Equal(t, "Day 1, 8:00", c.String())

	for range 59 {
		assert.False(t, c.advance(1))
	}
	assert.Equal(t, "Day 1, 8:59", c.String())
	assert.True(t, c.advance(1))
	assert.Equal(t, 9, c.Hour)
	assert.Zero(t, c.Minute)
}

func TestDayClockFractionalScale(t *testing.T) {
	c := NewDayClock()
	c.advance(0.5)
	c.advance(0.5)
	c.advance(0.5)
	assert.Equal(t, "Day 1, 8:01", c.String())
}

func TestDayClockClosingAndNextMorning(t *testing.T) {
	c := DayClock{Day: 3, Hour: 19, Minute: 59}
	assert.False(t, c.pastClosing())
	c.advance(1)
	assert.True(t, c.pastClosing())

	c.nextMorning()
	assert.Equal(t, DayClock{Day: 4, Hour: OpeningHour}, c)
}

func TestSimTime(t *testing.T) {
	assert.Equal(t, "Day 12, 17:05", SimTime(12, 17, 5.9))
}
