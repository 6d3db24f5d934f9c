package compiler

import (
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Validation error codes (E101-E109)
const (
	ErrNegativeInitial      = "E101" // initial storage holds a negative quantity
	ErrEmptyIdentifier      = "E102" // empty item identifier
	ErrNegativeRecipe       = "E103" // recipe side holds a negative quantity
	ErrNoOpRecipe           = "E104" // recipe inputs equal outputs
	ErrInitialViolatesLimit = "E105" // initial storage already breaks a limit
)

// ValidationError represents a program validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled program.
// Returns all errors found (does not fail-fast).
func Validate(p ir.Program) []ValidationError {
	var errs []ValidationError

	for _, item := range p.Initial.Items() {
		field := fmt.Sprintf("storage[%q]", item)
		// E102: empty identifier
		if item == "" {
			errs = append(errs, emptyIdentifier(field))
		}
		// E101: negative initial quantity
		if qty := p.Initial[item]; qty < 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("initial quantity %d is negative", qty),
				Code:    ErrNegativeInitial,
			})
		}
	}

	for i, l := range p.Limits {
		for _, item := range l.Coefficients.Items() {
			if item == "" {
				errs = append(errs, emptyIdentifier(fmt.Sprintf("limits[%d]", i)))
			}
		}
	}

	for i, r := range p.Recipes {
		errs = append(errs, validateRecipe(i, r)...)
	}

	// E105: initial storage violates a limit. Only firings that bring the
	// total back within bound can ever commit.
	for i, l := range p.Limits {
		if total := l.Total(p.Initial); total > l.Bound {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("limits[%d]", i),
				Message: fmt.Sprintf("initial storage totals %d, above bound %d (%s)", total, l.Bound, l),
				Code:    ErrInitialViolatesLimit,
			})
		}
	}

	return errs
}

func validateRecipe(i int, r ir.Recipe) []ValidationError {
	var errs []ValidationError

	sides := []struct {
		name string
		m    ir.Multiset
	}{{"in", r.Inputs}, {"out", r.Outputs}}

	for _, side := range sides {
		for _, item := range side.m.Items() {
			field := fmt.Sprintf("recipes[%d].%s", i, side.name)
			// E102: empty identifier
			if item == "" {
				errs = append(errs, emptyIdentifier(field))
			}
			// E103: negative quantity
			if qty := side.m[item]; qty < 0 {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("quantity %d of %q is negative", qty, item),
					Code:    ErrNegativeRecipe,
				})
			}
		}
	}

	// E104: a no-op recipe stays eligible forever once eligible.
	if r.Inputs.Equal(r.Outputs) {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("recipes[%d]", i),
			Message: fmt.Sprintf("recipe %q consumes exactly what it produces", r),
			Code:    ErrNoOpRecipe,
		})
	}

	return errs
}

func emptyIdentifier(field string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: "item identifier is empty",
		Code:    ErrEmptyIdentifier,
	}
}
