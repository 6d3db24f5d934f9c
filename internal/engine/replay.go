package engine

import (
	"context"
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// Replay and determinism
//
// Determinism is STRUCTURAL: the executor has no hidden inputs. The firing
// sequence is a pure function of (recipe order, initial storage, limits), so
// re-running the same program must reproduce every firing index and the same
// final storage. Replay uses the normal executor code path; there is no
// special replay mode.

// Divergence describes the first point where a replay departed from the
// recorded run.
type Divergence struct {
	// Step is the zero-based firing position, or -1 for a final-storage mismatch.
	Step     int    `json:"step"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// ReplayResult reports whether a replayed run matched its record.
type ReplayResult struct {
	Match      bool        `json:"match"`
	Steps      int         `json:"steps"`
	Final      ir.Multiset `json:"final"`
	Divergence *Divergence `json:"divergence,omitempty"`
}

// Replay re-executes p and compares its firings and final storage against a
// recorded run.
//
// Firings are compared by recipe index in order. expectedFinal may be nil to
// skip the final-storage comparison. The replay is bounded by the recorded
// length plus one so a replay that would run longer than the record stops
// instead of looping.
func Replay(ctx context.Context, p ir.Program, recorded []Firing, expectedFinal ir.Multiset, opts ...Option) (*ReplayResult, error) {
	var actual []Firing
	capture := ObserverFunc(func(f Firing) error {
		actual = append(actual, f)
		return nil
	})

	opts = append([]Option{WithMaxSteps(len(recorded) + 1)}, opts...)
	opts = append(opts, WithObserver(capture))
	res, err := RunProgram(ctx, p, opts...)
	if err != nil && !IsStepsExceededError(err) {
		return nil, fmt.Errorf("replay: %w", err)
	}

	out := &ReplayResult{
		Match: true,
		Steps: len(actual),
	}
	if res != nil {
		out.Final = res.Final
	}

	for i := 0; i < len(recorded) || i < len(actual); i++ {
		exp, act := "<end>", "<end>"
		if i < len(recorded) {
			exp = fmt.Sprintf("recipe %d", recorded[i].Index)
		}
		if i < len(actual) {
			act = fmt.Sprintf("recipe %d", actual[i].Index)
		}
		if exp != act {
			out.Match = false
			out.Divergence = &Divergence{Step: i, Expected: exp, Actual: act}
			return out, nil
		}
	}

	if expectedFinal != nil && !expectedFinal.Equal(out.Final) {
		out.Match = false
		out.Divergence = &Divergence{
			Step:     -1,
			Expected: expectedFinal.String(),
			Actual:   out.Final.String(),
		}
	}
	return out, nil
}
