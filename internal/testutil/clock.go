package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first time returned by a clock built without a base.
var DefaultEpoch = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock that advances a fixed step per call.
//
// The same scenario with the same clock stamps identical created_at values
// on every run, which keeps golden traces stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	base  time.Time
	step  time.Duration
	ticks int64
}

// NewDeterministicClock creates a clock starting at base (DefaultEpoch if
// zero) that advances by step (one second if zero) on every Now call.
func NewDeterministicClock(base time.Time, step time.Duration) *DeterministicClock {
	if base.IsZero() {
		base = DefaultEpoch
	}
	if step == 0 {
		step = time.Second
	}
	return &DeterministicClock{base: base, step: step}
}

// Now returns the current time and advances the clock.
// The first call returns base.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Ticks returns how many times Now has been called.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to base.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
