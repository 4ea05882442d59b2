package a2ui

import (
	"sync"
	"time"
)

// Clock supplies timestamps for constructed messages.
//
// Timestamps are informational only: the resolver orders writes by arrival,
// never by the time embedded in a message.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// monotonicClock wraps a Clock so that successive readings are UTC and never
// go backwards, even if the wall clock is stepped.
type monotonicClock struct {
	mu   sync.Mutex
	src  Clock
	last time.Time
}

func newMonotonicClock(src Clock) *monotonicClock {
	if src == nil {
		src = ClockFunc(time.Now)
	}
	return &monotonicClock{src: src}
}

func (c *monotonicClock) Now() time.Time {
	now := c.src.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}

// systemClock is shared by every dispatcher created without WithClock, so the
// non-decreasing guarantee holds per process rather than per session.
var systemClock = newMonotonicClock(nil)
