package compiler

import (
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Function wraps a body so it only runs while the Name flag is present.
//
// Every body recipe additionally consumes and re-produces one Name, and a
// terminal recipe `1 Name -> 0` retires the flag.
//
// Known hazard: nothing forces the terminal recipe to wait for the body. It
// is eligible as soon as Name is present, so once the body's recipes stop
// being the earliest eligible ones the flag is retired, possibly before work
// that a caller considers part of the body has happened. Compose with care.
type Function struct {
	Name ir.Item
	Body []Block
}

// Kind implements Block.
func (f Function) Kind() string { return KindFunction }

// Items implements Block.
func (f Function) Items() []ir.Item {
	items := []ir.Item{f.Name}
	for _, b := range f.Body {
		if b != nil {
			items = append(items, b.Items()...)
		}
	}
	return items
}

// Compile implements Block.
func (f Function) Compile(alloc *NameAllocator) (ir.CodeBlock, error) {
	if err := requireItem(KindFunction, "name", f.Name); err != nil {
		return ir.CodeBlock{}, err
	}

	parts := make([]ir.CodeBlock, 0, len(f.Body))
	for i, b := range f.Body {
		cb, err := CompileBlock(b, alloc)
		if err != nil {
			return ir.CodeBlock{}, fmt.Errorf("function %q body[%d]: %w", f.Name, i, err)
		}
		parts = append(parts, cb)
	}
	body := ir.Concat(parts...)

	for i := range body.Recipes {
		body.Recipes[i].Inputs.Add(f.Name, 1)
		body.Recipes[i].Outputs.Add(f.Name, 1)
	}
	body.Recipes = append(body.Recipes, ir.Recipe{
		Inputs:  ir.Multiset{f.Name: 1},
		Outputs: ir.Multiset{},
	})
	return body, nil
}
