package engine

import "sync/atomic"

// SeqSource stamps firings with sequence numbers. Successive calls to Next
// must return strictly increasing values.
type SeqSource interface {
	Next() int64
}

// Clock is the logical clock behind firing seq numbers. Wall time never
// enters a firing, so a replay of the same program stamps the same seqs.
//
// The zero Clock is ready to use; its first Next returns 1. Clock is safe
// for concurrent use even though one executor only ever calls it from a
// single goroutine.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// newClockAt returns a clock that continues after last, so its first Next
// returns last+1.
func newClockAt(last int64) *Clock {
	c := new(Clock)
	c.last.Store(last)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.last.Add(1)
}

// Current returns the last seq handed out, or the starting point if Next
// has not been called.
func (c *Clock) Current() int64 {
	return c.last.Load()
}
