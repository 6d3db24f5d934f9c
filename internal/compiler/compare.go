package compiler

import (
	"github.com/roach88/forge/internal/ir"
)

// Compare would set Output according to whether Left holds more than Right.
// No lowering exists; Compile always fails with *NotImplementedError.
type Compare struct {
	Left   ir.Item `json:"left" yaml:"left"`
	Right  ir.Item `json:"right" yaml:"right"`
	Output ir.Item `json:"output" yaml:"output"`
}

// Kind implements Block.
func (c Compare) Kind() string { return KindCompare }

// Items implements Block.
func (c Compare) Items() []ir.Item { return []ir.Item{c.Left, c.Right, c.Output} }

// Compile implements Block.
func (c Compare) Compile(_ *NameAllocator) (ir.CodeBlock, error) {
	return ir.CodeBlock{}, &NotImplementedError{Block: KindCompare}
}
