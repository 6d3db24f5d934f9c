package compiler

import (
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Sequence calls its targets strictly left to right once Name is present.
//
// Call 0 consumes Name. Every later call consumes the token produced by the
// call before it, so call i cannot fire until call i-1 has. Tokens are fresh
// items in category "<Name>.token".
type Sequence struct {
	Name  ir.Item           `json:"name" yaml:"name"`
	Calls []ir.FunctionCall `json:"calls" yaml:"calls"`
}

// Kind implements Block.
func (s Sequence) Kind() string { return KindSequence }

// Items implements Block.
func (s Sequence) Items() []ir.Item {
	items := []ir.Item{s.Name}
	for _, c := range s.Calls {
		items = append(items, c.Target)
		items = append(items, c.Args.Items()...)
	}
	return items
}

// Compile implements Block.
func (s Sequence) Compile(alloc *NameAllocator) (ir.CodeBlock, error) {
	if err := requireItem(KindSequence, "name", s.Name); err != nil {
		return ir.CodeBlock{}, err
	}
	if len(s.Calls) == 0 {
		return ir.CodeBlock{}, &CompileError{
			Block:   KindSequence,
			Field:   "calls",
			Message: fmt.Sprintf("sequence %q needs at least one call", s.Name),
		}
	}
	for i, c := range s.Calls {
		if err := requireItem(KindSequence, fmt.Sprintf("calls[%d].target", i), c.Target); err != nil {
			return ir.CodeBlock{}, err
		}
	}

	category := string(s.Name) + ".token"
	out := ir.CodeBlock{Recipes: make([]ir.Recipe, 0, len(s.Calls))}

	prev := s.Name
	for i, c := range s.Calls {
		in := ir.Multiset{prev: 1}
		produced := c.Outputs()
		if i < len(s.Calls)-1 {
			token := alloc.Fresh(category)
			produced.Add(token, 1)
			prev = token
		}
		out.Recipes = append(out.Recipes, ir.Recipe{Inputs: in, Outputs: produced})
	}
	return out, nil
}
