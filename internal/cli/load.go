package cli

import (
	"errors"
	"os"

	"github.com/roach88/forge/internal/compiler"
	"github.com/roach88/forge/internal/frontend"
	"github.com/roach88/forge/internal/ir"
)

// Error codes reported in CLI responses for failures outside validation.
const (
	ErrCodeGeneric     = "E_GENERIC"
	ErrCodeNotFound    = "E_NOT_FOUND"
	ErrCodeParse       = "E_PARSE"
	ErrCodeCompile     = "E_COMPILE"
	ErrCodeUnsupported = "E_NOT_IMPLEMENTED"
	ErrCodeWriteFailed = "E_WRITE"
	ErrCodeDatabase    = "E_DATABASE"
	ErrCodeDivergence  = "E_DIVERGENCE"
	ErrCodeStepLimit   = "E_STEP_LIMIT"
)

// LoadError is a failure to load or compile a program file.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// loadProgram reads path with the front-end picked by its extension and
// compiles every block with a fresh allocator.
func loadProgram(path string) (ir.Program, error) {
	if _, err := os.Stat(path); err != nil {
		return ir.Program{}, &LoadError{Code: ErrCodeNotFound, Message: err.Error(), Err: err}
	}

	src, err := frontend.LoadFile(path)
	if err != nil {
		return ir.Program{}, &LoadError{Code: ErrCodeParse, Message: err.Error(), Err: err}
	}

	p, err := src.Compile(compiler.NewNameAllocator())
	if err != nil {
		code := ErrCodeCompile
		if errors.Is(err, compiler.ErrNotImplemented) {
			code = ErrCodeUnsupported
		}
		return ir.Program{}, &LoadError{Code: code, Message: err.Error(), Err: err}
	}
	return p, nil
}

// outputLoadError reports a loadProgram failure and returns the matching
// ExitError.
func outputLoadError(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
	}
	if outErr := formatter.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "failed to load program", err)
}
