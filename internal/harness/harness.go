package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/forge/internal/compiler"
	"github.com/roach88/forge/internal/engine"
	"github.com/roach88/forge/internal/frontend"
	"github.com/roach88/forge/internal/ir"
	"github.com/roach88/forge/internal/store"
	"github.com/roach88/forge/internal/testutil"
)

// DefaultRunID is the run id used when a scenario does not set one.
const DefaultRunID = "test-run-default"

// TraceEvent is one firing as it appears in a scenario trace.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Index  int    `json:"index"`
	Recipe string `json:"recipe"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	RunID string      `json:"run_id"`
	State string      `json:"state"`
	Steps int         `json:"steps"`
	Final ir.Multiset `json:"final"`

	// Trace holds every firing in commit order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// OnFiring appends f to the trace. It lets a Result observe an executor.
func (r *Result) OnFiring(f engine.Firing) error {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    f.Seq,
		Index:  f.Index,
		Recipe: f.Recipe.String(),
	})
	return nil
}

// Harness runs scenarios against a run log.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Load and compile the program
//  2. Execute it with a deterministic clock and fixed run id, logging every
//     firing to the store
//  3. Evaluate assertions against the trace and the logged final storage
//
// A run stopped by max_steps is not an error; it ends in the limited state,
// which a state assertion can expect.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	p, err := compileScenario(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.execute(ctx, scenario, p)
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario, p ir.Program) (*Result, error) {
	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}

	result := NewResult()
	res, err := store.RecordRun(ctx, h.store, p, scenario.Program, scenario.MaxSteps,
		engine.WithClock(h.clock),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
		engine.WithObserver(result),
		engine.WithLogger(h.logger),
	)
	if err != nil && !engine.IsQuotaError(err) {
		return nil, fmt.Errorf("failed to execute program: %w", err)
	}

	result.RunID = res.RunID
	result.State = res.State.String()
	result.Steps = res.Steps
	result.Final = res.Final

	actx := &AssertionContext{
		Store: h.store,
		Ctx:   ctx,
		RunID: res.RunID,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// compileScenario loads the scenario's program and compiles its blocks.
func compileScenario(s *Scenario) (ir.Program, error) {
	var (
		src compiler.Source
		err error
	)
	if s.Program != "" {
		src, err = frontend.LoadFile(s.Program)
	} else {
		format := frontend.FormatText
		if s.Format != "" {
			if format, err = frontend.ParseFormat(s.Format); err != nil {
				return ir.Program{}, err
			}
		}
		src, err = frontend.Parse([]byte(s.Source), format, s.Name)
	}
	if err != nil {
		return ir.Program{}, fmt.Errorf("failed to load program: %w", err)
	}

	p, err := src.Compile(nil)
	if err != nil {
		return ir.Program{}, fmt.Errorf("failed to compile program: %w", err)
	}
	return p, nil
}

var _ engine.Observer = (*Result)(nil)
