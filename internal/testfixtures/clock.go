package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source. Services receive its NowFunc in
// place of time.Now so tests control every timestamp they observe.
type Clock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewClock starts a clock at the given instant, or at ReferenceTime when the
// zero value is passed.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now reports the instant the clock currently points at.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// NowFunc adapts Now to the func() time.Time shape services take as their
// time source. A nil clock falls back to time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set points the clock at an absolute instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and reports the resulting instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Current is a readability alias for Now in assertions that compare against
// a timestamp the clock already produced.
func (c *Clock) Current() time.Time {
	return c.Now()
}
