package engine

import "sync/atomic"

// Clock hands out the logical sequence numbers that order transitions.
//
// Every action processed by the Run loop is stamped with Next(); the first
// transition is seq 1. Wall-clock time is never used for ordering.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next() is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock whose first Next() is start+1.
// The harness uses it to continue numbering a recorded trace.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
