package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time DeterministicClock starts at.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a resettable clock for tests. It serves both a
// logical sequence (Next) for trace events and a wall time (Now) that
// advances by a fixed step per call, for run timestamps.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	mu   sync.Mutex
	seq  int64
	now  time.Time
	step time.Duration
}

// NewDeterministicClock creates a clock at seq 0 and wall time Epoch that
// advances one second per Now call.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{now: Epoch, step: time.Second}
}

// Next increments and returns the sequence. The first call returns 1.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the sequence without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Now returns the current wall time and then advances it by one step.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Reset rewinds both the sequence and the wall time.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
	c.now = Epoch
}
