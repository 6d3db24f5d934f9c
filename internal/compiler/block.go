// Package compiler lowers structured building blocks (sequencing, guarded
// calls, bounded loops, copy and transfer) into recipes and limits for the
// engine.
//
// Every block implements Block. Compilation is referentially transparent
// apart from the NameAllocator passed in: the same blocks compiled with
// equally fresh allocators produce identical recipe lists.
package compiler

import (
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Block kinds.
const (
	KindSequence = "sequence"
	KindFunction = "function"
	KindGuard    = "guard"
	KindLoop     = "loop"
	KindCopy     = "copy"
	KindTransfer = "transfer"
	KindRules    = "rules"
	KindCompare  = "compare"
)

// Block is one building block.
type Block interface {
	// Kind returns the block's kind name, e.g. "copy".
	Kind() string

	// Compile lowers the block into recipes and limits. Synthetic items are
	// drawn from alloc.
	Compile(alloc *NameAllocator) (ir.CodeBlock, error)

	// Items returns the user-named items the block refers to.
	Items() []ir.Item
}

// CompileBlock compiles b with alloc.
func CompileBlock(b Block, alloc *NameAllocator) (ir.CodeBlock, error) {
	if b == nil {
		return ir.CodeBlock{}, fmt.Errorf("compile: nil block")
	}
	if alloc == nil {
		return ir.CodeBlock{}, fmt.Errorf("compile %s: nil allocator", b.Kind())
	}
	return b.Compile(alloc)
}
