package frontend

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/forge/internal/compiler"
)

// ParseCUE evaluates a CUE program document and decodes it.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The document may put the program at the top level or under a `program`
// field. Errors carry CUE source positions.
func ParseCUE(data []byte, filename string) (compiler.Source, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return compiler.Source{}, formatCUEError(err)
	}

	if p := v.LookupPath(cue.ParsePath("program")); p.Exists() {
		v = p
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return compiler.Source{}, formatCUEError(err)
	}

	var doc Document
	if err := v.Decode(&doc); err != nil {
		return compiler.Source{}, formatCUEError(err)
	}

	blocks := v.LookupPath(cue.ParsePath("blocks"))
	return doc.source(func(i int) token.Pos {
		return blocks.LookupPath(cue.MakePath(cue.Index(i))).Pos()
	})
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	first := errs[0]
	positions := cueerrors.Positions(first)
	if len(positions) > 0 {
		return &compiler.CompileError{
			Block:   "document",
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return fmt.Errorf("cue: %w", err)
}
