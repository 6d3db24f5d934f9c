package compiler

import (
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Guard produces Target while every condition item is at least 1.
// Conditions are read, never consumed.
type Guard struct {
	Target     ir.Item   `json:"target" yaml:"target"`
	Conditions []ir.Item `json:"conditions" yaml:"conditions"`
}

// Kind implements Block.
func (g Guard) Kind() string { return KindGuard }

// Items implements Block.
func (g Guard) Items() []ir.Item {
	return append([]ir.Item{g.Target}, g.Conditions...)
}

// Compile implements Block.
func (g Guard) Compile(_ *NameAllocator) (ir.CodeBlock, error) {
	if err := requireItem(KindGuard, "target", g.Target); err != nil {
		return ir.CodeBlock{}, err
	}
	if len(g.Conditions) == 0 {
		return ir.CodeBlock{}, &CompileError{
			Block:   KindGuard,
			Field:   "conditions",
			Message: fmt.Sprintf("guard for %q needs at least one condition", g.Target),
		}
	}

	conds := make(ir.Multiset, len(g.Conditions))
	for i, c := range g.Conditions {
		if err := requireItem(KindGuard, fmt.Sprintf("conditions[%d]", i), c); err != nil {
			return ir.CodeBlock{}, err
		}
		if conds[c] > 0 {
			return ir.CodeBlock{}, &CompileError{
				Block:   KindGuard,
				Field:   fmt.Sprintf("conditions[%d]", i),
				Message: fmt.Sprintf("duplicate condition %q", c),
			}
		}
		conds[c] = 1
	}

	r := ir.Recipe{
		Inputs:  conds.Clone(),
		Outputs: conds.Clone().Add(g.Target, 1),
	}
	return ir.CodeBlock{Recipes: []ir.Recipe{r}}, nil
}
