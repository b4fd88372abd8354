package engine

import "sync/atomic"

// DispatchID identifies one submitted request for diagnostics.
// Ordering between requests is enforced by serialization, not by ids.
type DispatchID = int64

// Clock hands out strictly increasing dispatch ids.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next id is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next id. Calls are linearizable: each call returns a
// unique, increasing value.
func (c *Clock) Next() DispatchID {
	return c.seq.Add(1)
}

// Current returns the last id handed out.
func (c *Clock) Current() DispatchID {
	return c.seq.Load()
}
