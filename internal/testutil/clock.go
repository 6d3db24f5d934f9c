package testutil

import (
	"slices"
	"sync"
)

// DeterministicClock is an engine.SeqSource for tests that can be rewound
// and that remembers every seq it handed out.
//
// Running a scenario, calling Reset and running it again must stamp the
// same seqs; Issued makes that easy to assert.
type DeterministicClock struct {
	mu     sync.Mutex
	issued []int64
}

// NewDeterministicClock returns a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next returns one more than the previous seq.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := int64(len(c.issued)) + 1
	c.issued = append(c.issued, seq)
	return seq
}

// Current returns the last seq handed out, or 0.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.issued))
}

// Issued returns every seq handed out since construction or the last Reset.
func (c *DeterministicClock) Issued() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.issued)
}

// Reset rewinds the clock so the next call to Next returns 1 again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued = nil
}
