package sim

import (
	"sync"
	"time"
)

// Clock is the single monotonic time source every actor reads.
type Clock interface {
	Now() time.Duration
}

// WallClock measures time since it was created.
type WallClock struct {
	start time.Time
}

// NewWallClock starts a wall clock at zero.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Now returns the monotonic time elapsed since creation.
func (c *WallClock) Now() time.Duration {
	return time.Since(c.start)
}

// ManualClock only moves when told to. It is safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewManualClock creates a clock reading start.
func NewManualClock(start time.Duration) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward. Negative durations are ignored.
func (c *ManualClock) Advance(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d > 0 {
		c.now += d
	}

	return c.now
}
