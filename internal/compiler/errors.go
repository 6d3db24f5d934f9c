package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/forge/internal/ir"
)

// ErrNotImplemented is matched by every *NotImplementedError via errors.Is.
var ErrNotImplemented = errors.New("not implemented")

// CompileError reports an invalid building block input.
// Pos is set when the block came from a CUE document.
type CompileError struct {
	Block   string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s.%s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Block, e.Field, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Block, e.Field, e.Message)
}

// NotImplementedError is returned by building blocks whose lowering does not
// exist yet. It never degrades to an empty rule set.
type NotImplementedError struct {
	Block string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: building block %s", ErrNotImplemented, e.Block)
}

// Is reports whether target is ErrNotImplemented.
func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

// IsCompileError returns true if err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

func requireItem(block, field string, item ir.Item) error {
	if item == "" {
		return &CompileError{Block: block, Field: field, Message: "item name is required"}
	}
	return nil
}
