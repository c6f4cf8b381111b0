package scheduler

import "sync/atomic"

// Clock hands out strictly increasing sequence numbers. Task handles come
// from it, so handles are unique for the lifetime of a scheduler and also
// order tasks that are due at the same instant.
//
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Uint64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() uint64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() uint64 {
	return c.seq.Load()
}
