package compiler

import (
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Source is a whole program before lowering: initial storage, global limits,
// hand-written recipes and building blocks.
type Source struct {
	Initial ir.Multiset
	Limits  []ir.Limit
	Recipes []ir.Recipe
	Blocks  []Block
}

// Items returns every user-named item in s, sorted. Nil blocks are skipped;
// Compile reports them.
func (s Source) Items() []ir.Item {
	seen := make(ir.Multiset)
	for _, item := range (ir.Program{Initial: s.Initial, Limits: s.Limits, Recipes: s.Recipes}).Items() {
		seen[item] = 1
	}
	for _, b := range s.Blocks {
		if b == nil {
			continue
		}
		for _, item := range b.Items() {
			seen[item] = 1
		}
	}
	return seen.Items()
}

// Compile lowers s into a program.
//
// Every user-named item is reserved in alloc first so synthetic names never
// shadow them. Hand-written recipes come first, then each block's recipes in
// declaration order; limits follow the same order. A nil alloc uses a fresh
// allocator.
func (s Source) Compile(alloc *NameAllocator) (ir.Program, error) {
	if alloc == nil {
		alloc = NewNameAllocator()
	}
	alloc.Reserve(s.Items()...)

	out := ir.CodeBlock{Recipes: s.Recipes, Limits: s.Limits}.Clone()
	for i, b := range s.Blocks {
		cb, err := CompileBlock(b, alloc)
		if err != nil {
			return ir.Program{}, fmt.Errorf("block %d (%s): %w", i, blockKind(b), err)
		}
		out = out.Append(cb)
	}

	return ir.Program{
		Initial: s.Initial.Clone(),
		Limits:  out.Limits,
		Recipes: out.Recipes,
	}, nil
}

func blockKind(b Block) string {
	if b == nil {
		return "nil"
	}
	return b.Kind()
}
