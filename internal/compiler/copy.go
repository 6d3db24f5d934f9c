package compiler

import (
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Copy duplicates the quantity of From into To without changing From.
//
// Three fresh items are drawn from the allocator: a capacity marker L
// ("limit"), an active token I ("copy.active") and a buffer B ("copy.buffer").
// The recipes, in order:
//
//	0            -> 1 L + 1 I            seed, fires once (L <= 1)
//	1 I + 1 From -> 1 To + 1 I + 1 B     move one unit, remember it in B
//	1 I          -> 0                    retire I once From is empty
//	1 B          -> 1 From               restore From from the buffer
//
// At quiescence From is unchanged and To has gained From's original amount.
// The seed never re-fires, so each Copy runs once per program.
type Copy struct {
	From ir.Item `json:"from" yaml:"from"`
	To   ir.Item `json:"to" yaml:"to"`
}

// Kind implements Block.
func (c Copy) Kind() string { return KindCopy }

// Items implements Block.
func (c Copy) Items() []ir.Item { return []ir.Item{c.From, c.To} }

// Compile implements Block.
func (c Copy) Compile(alloc *NameAllocator) (ir.CodeBlock, error) {
	if err := requireItem(KindCopy, "from", c.From); err != nil {
		return ir.CodeBlock{}, err
	}
	if err := requireItem(KindCopy, "to", c.To); err != nil {
		return ir.CodeBlock{}, err
	}
	if c.From == c.To {
		return ir.CodeBlock{}, &CompileError{
			Block:   KindCopy,
			Field:   "to",
			Message: fmt.Sprintf("cannot copy %q onto itself", c.From),
		}
	}

	limit := alloc.Fresh("limit")
	active := alloc.Fresh("copy.active")
	buffer := alloc.Fresh("copy.buffer")

	return ir.CodeBlock{
		Recipes: []ir.Recipe{
			{Inputs: ir.Multiset{}, Outputs: ir.Multiset{limit: 1, active: 1}},
			{Inputs: ir.Multiset{active: 1, c.From: 1}, Outputs: ir.Multiset{c.To: 1, active: 1, buffer: 1}},
			{Inputs: ir.Multiset{active: 1}, Outputs: ir.Multiset{}},
			{Inputs: ir.Multiset{buffer: 1}, Outputs: ir.Multiset{c.From: 1}},
		},
		Limits: []ir.Limit{
			{Coefficients: ir.Multiset{limit: 1}, Bound: 1},
		},
	}, nil
}
