package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/forge/internal/ir"
	"github.com/roach88/forge/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace for context; nil for storage assertions
}

// maxTraceLines caps how much of the trace an AssertionError prints.
const maxTraceLines = 20

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for i, event := range e.Trace {
			if i == maxTraceLines {
				fmt.Fprintf(&buf, "  ... %d more\n", len(e.Trace)-maxTraceLines)
				break
			}
			fmt.Fprintf(&buf, "  [%d] recipe %d: %s\n", event.Seq, event.Index, event.Recipe)
		}
	}

	return buf.String()
}

// assertState checks how the run ended.
func assertState(result *Result, assertion Assertion) error {
	if result.State == assertion.State {
		return nil
	}
	return &AssertionError{
		Type:     AssertState,
		Expected: assertion.State,
		Actual:   fmt.Sprintf("%s after %d firings", result.State, result.Steps),
	}
}

// assertFiringCount checks the total number of firings.
func assertFiringCount(trace []TraceEvent, assertion Assertion) error {
	if len(trace) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertFiringCount,
		Expected: fmt.Sprintf("%d firings", assertion.Count),
		Actual:   fmt.Sprintf("%d firings", len(trace)),
		Trace:    trace,
	}
}

// assertRecipeCount checks how many times one recipe fired.
func assertRecipeCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Index == assertion.Recipe {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertRecipeCount,
			Expected: fmt.Sprintf("%d firings of recipe %d", assertion.Count, assertion.Recipe),
			Actual:   fmt.Sprintf("%d firings", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFiringOrder checks that recipes first fire in the given order.
// Firings need not be consecutive (intervening firings are allowed).
func assertFiringOrder(trace []TraceEvent, assertion Assertion) error {
	// Step 1: Find first position of each expected recipe
	positions := make(map[int]int)
	for i, event := range trace {
		if _, seen := positions[event.Index]; !seen {
			positions[event.Index] = i + 1 // 1-indexed for readability
		}
	}

	// Step 2: Verify all recipes fired
	for _, idx := range assertion.Recipes {
		if positions[idx] == 0 {
			return &AssertionError{
				Type:     AssertFiringOrder,
				Expected: fmt.Sprintf("all recipes fire: %v", assertion.Recipes),
				Actual:   fmt.Sprintf("recipe %d never fired", idx),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Recipes); i++ {
		prev := assertion.Recipes[i-1]
		curr := assertion.Recipes[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertFiringOrder,
				Expected: fmt.Sprintf("recipes first fire in order: %v", assertion.Recipes),
				Actual: fmt.Sprintf("recipe %d (pos %d) should be before recipe %d (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertFinalStorage checks item quantities in the final storage recorded in
// the run log. Only listed items are checked; an unregistered item counts as
// zero.
func assertFinalStorage(ctx context.Context, st *store.Store, runID string, assertion Assertion) error {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalStorage,
			Expected: fmt.Sprintf("run %s in the log", runID),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	items := make([]string, 0, len(assertion.Expect))
	for item := range assertion.Expect {
		items = append(items, item)
	}
	slices.Sort(items) // Deterministic failure messages

	var mismatches []string
	for _, item := range items {
		want := assertion.Expect[item]
		got := run.Final[ir.Item(item)]
		if got != want {
			mismatches = append(mismatches, fmt.Sprintf("%s = %d (want %d)", item, got, want))
		}
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertFinalStorage,
			Expected: formatExpect(items, assertion.Expect),
			Actual:   strings.Join(mismatches, ", "),
		}
	}
	return nil
}

func formatExpect(items []string, expect map[string]int64) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s = %d", item, expect[item])
	}
	return strings.Join(parts, ", ")
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides run log access for final_storage assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertState:
			err = assertState(result, assertion)
		case AssertFiringCount:
			err = assertFiringCount(result.Trace, assertion)
		case AssertRecipeCount:
			err = assertRecipeCount(result.Trace, assertion)
		case AssertFiringOrder:
			err = assertFiringOrder(result.Trace, assertion)
		case AssertFinalStorage:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_storage requires run log context", i)
			} else {
				err = assertFinalStorage(actx.Ctx, actx.Store, actx.RunID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
