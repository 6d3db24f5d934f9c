package compiler

import (
	"strconv"

	"github.com/roach88/forge/internal/ir"
)

// NameAllocator issues synthetic item names that never collide.
//
// Fresh returns "<category>#<n>" with a per-category counter starting at 0.
// Because n is always the integer suffix after the last '#', names are
// distinct across categories as well as within one.
//
// One allocator must be threaded through an entire compilation. It is
// stateful and not safe for concurrent use.
type NameAllocator struct {
	counters map[string]int
	taken    map[ir.Item]bool
}

// NewNameAllocator creates an empty allocator.
func NewNameAllocator() *NameAllocator {
	return &NameAllocator{
		counters: make(map[string]int),
		taken:    make(map[ir.Item]bool),
	}
}

// Fresh returns the next unused name in category.
// Names reserved with Reserve are skipped.
func (a *NameAllocator) Fresh(category string) ir.Item {
	for {
		n := a.counters[category]
		a.counters[category] = n + 1
		name := ir.Item(category + "#" + strconv.Itoa(n))
		if !a.taken[name] {
			a.taken[name] = true
			return name
		}
	}
}

// Reserve marks user-chosen item names so Fresh never returns them.
func (a *NameAllocator) Reserve(items ...ir.Item) {
	for _, item := range items {
		a.taken[item] = true
	}
}

// issued returns how many names have been handed out for category,
// including any skipped because they were reserved.
func (a *NameAllocator) issued(category string) int {
	return a.counters[category]
}
