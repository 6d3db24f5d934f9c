package compiler

import (
	"github.com/roach88/forge/internal/ir"
)

// Loop invokes Call once per unit of Counter.
//
// The single recipe `1 Counter -> 1 Target + Args` fires until Counter is
// exhausted, so a counter starting at n invokes the target exactly n times.
type Loop struct {
	Call    ir.FunctionCall `json:"call" yaml:"call"`
	Counter ir.Item         `json:"counter" yaml:"counter"`
}

// Kind implements Block.
func (l Loop) Kind() string { return KindLoop }

// Items implements Block.
func (l Loop) Items() []ir.Item {
	return append([]ir.Item{l.Counter, l.Call.Target}, l.Call.Args.Items()...)
}

// Compile implements Block.
func (l Loop) Compile(_ *NameAllocator) (ir.CodeBlock, error) {
	if err := requireItem(KindLoop, "counter", l.Counter); err != nil {
		return ir.CodeBlock{}, err
	}
	if err := requireItem(KindLoop, "call.target", l.Call.Target); err != nil {
		return ir.CodeBlock{}, err
	}
	r := ir.Recipe{
		Inputs:  ir.Multiset{l.Counter: 1},
		Outputs: l.Call.Outputs(),
	}
	return ir.CodeBlock{Recipes: []ir.Recipe{r}}, nil
}
