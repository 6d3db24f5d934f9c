package compiler

import (
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Transfer moves Source into Target one unit at a time, leaving Source empty.
type Transfer struct {
	Target ir.Item `json:"target" yaml:"target"`
	Source ir.Item `json:"source" yaml:"source"`
}

// Kind implements Block.
func (t Transfer) Kind() string { return KindTransfer }

// Items implements Block.
func (t Transfer) Items() []ir.Item { return []ir.Item{t.Target, t.Source} }

// Compile implements Block.
func (t Transfer) Compile(_ *NameAllocator) (ir.CodeBlock, error) {
	if err := requireItem(KindTransfer, "target", t.Target); err != nil {
		return ir.CodeBlock{}, err
	}
	if err := requireItem(KindTransfer, "source", t.Source); err != nil {
		return ir.CodeBlock{}, err
	}
	if t.Source == t.Target {
		return ir.CodeBlock{}, &CompileError{
			Block:   KindTransfer,
			Field:   "source",
			Message: fmt.Sprintf("source and target are both %q", t.Source),
		}
	}
	r := ir.Recipe{
		Inputs:  ir.Multiset{t.Source: 1},
		Outputs: ir.Multiset{t.Target: 1},
	}
	return ir.CodeBlock{Recipes: []ir.Recipe{r}}, nil
}
