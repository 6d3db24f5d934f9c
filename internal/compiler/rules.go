package compiler

import (
	"github.com/roach88/forge/internal/ir"
)

// Rules passes hand-written recipes and limits through unchanged, so they can
// appear alongside other blocks, e.g. inside a Function body.
type Rules struct {
	Recipes []ir.Recipe `json:"recipes" yaml:"recipes"`
	Limits  []ir.Limit  `json:"limits,omitempty" yaml:"limits,omitempty"`
}

// Kind implements Block.
func (r Rules) Kind() string { return KindRules }

// Items implements Block.
func (r Rules) Items() []ir.Item {
	return ir.Program{Limits: r.Limits, Recipes: r.Recipes}.Items()
}

// Compile implements Block.
func (r Rules) Compile(_ *NameAllocator) (ir.CodeBlock, error) {
	return ir.CodeBlock{Recipes: r.Recipes, Limits: r.Limits}.Clone(), nil
}
