package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/forge/internal/ir"
)

// State is the lifecycle state of an Executor.
type State int

const (
	// Running means the last scan fired a recipe; more may follow.
	Running State = iota

	// Quiescent means a full scan found no eligible recipe. Terminal.
	Quiescent

	// Limited means the run was stopped by the step quota before quiescence.
	Limited
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Quiescent:
		return "quiescent"
	case Limited:
		return "limited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Firing records one committed recipe application.
type Firing struct {
	RunID  string    `json:"run_id"`
	Seq    int64     `json:"seq"`
	Index  int       `json:"index"`
	Recipe ir.Recipe `json:"recipe"`
}

// Observer receives every firing, in commit order.
// An observer error aborts the run.
type Observer interface {
	OnFiring(f Firing) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(f Firing) error

// OnFiring calls fn(f).
func (fn ObserverFunc) OnFiring(f Firing) error {
	return fn(f)
}

// Result summarizes a finished run.
type Result struct {
	RunID string
	State State
	Steps int
	Final ir.Multiset
}

// Executor drives a recipe list against Storage until no recipe can fire.
//
// Each step scans the recipes in list order and fires the first one whose
// TryApply succeeds, then restarts from the top. Earlier recipes therefore
// always win over later ones. A scan that fires nothing makes the executor
// Quiescent.
//
// INVARIANTS:
//   - the recipe list is copied at construction and its order never changes
//   - every recipe item is registered in storage
//   - exactly one recipe fires per step
//
// Executor is not safe for concurrent use.
type Executor struct {
	recipes   []ir.Recipe
	storage   *Storage
	state     State
	steps     int
	runID     string
	runIDs    RunIDGenerator
	clock     SeqSource
	quota     *QuotaEnforcer
	observers []Observer
	logger    *slog.Logger
	maxSteps  int
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxSteps bounds the number of firings in a run.
//
// Default: 0 (unbounded). A run that exceeds the bound stops in the Limited
// state and returns *StepsExceededError. Use it for programs that may never
// quiesce, e.g. `0 -> 1 A`.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Executor) {
		e.maxSteps = maxSteps
	}
}

// WithObserver registers an observer for every firing.
// Observers are called in registration order.
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		e.observers = append(e.observers, o)
	}
}

// WithClock sets the source of firing sequence numbers.
func WithClock(c SeqSource) Option {
	return func(e *Executor) {
		e.clock = c
	}
}

// WithRunID sets the run identifier stamped on every firing.
// Default: a fresh UUIDv7.
func WithRunID(id string) Option {
	return func(e *Executor) {
		e.runID = id
	}
}

// WithRunIDGenerator sets the generator used when no explicit run id is
// given.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Executor) {
		e.runIDs = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// NewExecutor creates an executor over recipes and storage.
//
// The recipe slice is copied so callers cannot reorder it afterwards. Every
// item a recipe mentions must already be registered in storage, which holds
// whenever storage was built by NewStorage from the same recipes; otherwise
// *UnregisteredItemError is returned. Negative recipe quantities are
// rejected with *RuntimeError.
func NewExecutor(recipes []ir.Recipe, storage *Storage, opts ...Option) (*Executor, error) {
	if storage == nil {
		return nil, fmt.Errorf("executor requires storage")
	}

	recipesCopy := make([]ir.Recipe, len(recipes))
	for i, r := range recipes {
		if err := checkRecipe(fmt.Sprintf("recipe %d", i), r); err != nil {
			return nil, err
		}
		for _, item := range r.Items() {
			if !storage.Registered(item) {
				return nil, &UnregisteredItemError{Item: item, Recipe: i}
			}
		}
		recipesCopy[i] = r.Clone()
	}

	e := &Executor{
		recipes: recipesCopy,
		storage: storage,
		state:   Running,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = NewClock()
	}
	if e.runIDs == nil {
		e.runIDs = UUIDv7Generator{}
	}
	if e.runID == "" {
		e.runID = e.runIDs.Generate()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.quota = NewQuotaEnforcer(e.maxSteps)

	return e, nil
}

// RunID returns the identifier stamped on this executor's firings.
func (e *Executor) RunID() string {
	return e.runID
}

// State returns the current state.
func (e *Executor) State() State {
	return e.state
}

// Steps returns the number of firings so far.
func (e *Executor) Steps() int {
	return e.steps
}

// Storage returns the storage the executor drives.
func (e *Executor) Storage() *Storage {
	return e.storage
}

// Step performs one scan. It returns the firing and true if a recipe fired,
// or false once the executor is quiescent (or was stopped by the quota).
func (e *Executor) Step() (Firing, bool, error) {
	if e.state != Running {
		return Firing{}, false, nil
	}

	for i, r := range e.recipes {
		candidate, ok, err := e.storage.next(i, r)
		if err != nil {
			return Firing{}, false, fmt.Errorf("apply recipe %d: %w", i, err)
		}
		if !ok {
			continue
		}

		// The quota is checked before commit so a Limited run leaves storage
		// as it was after the last permitted firing.
		if err := e.quota.Check(e.runID); err != nil {
			e.state = Limited
			return Firing{}, false, err
		}
		e.storage.quantities = candidate
		e.steps++

		f := Firing{
			RunID:  e.runID,
			Seq:    e.clock.Next(),
			Index:  i,
			Recipe: r.Clone(),
		}
		e.logger.Debug("recipe fired",
			"run_id", e.runID,
			"seq", f.Seq,
			"index", i,
			"recipe", r.String(),
		)
		for _, o := range e.observers {
			if err := o.OnFiring(f); err != nil {
				return f, true, fmt.Errorf("observer at seq %d: %w", f.Seq, err)
			}
		}
		return f, true, nil
	}

	e.state = Quiescent
	return Firing{}, false, nil
}

// Run steps until the executor is quiescent.
//
// The context is checked between firings; cancellation leaves storage in the
// state after the last committed firing. With the default unbounded quota a
// program that never quiesces runs until ctx is cancelled.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	e.logger.Info("run started",
		"run_id", e.runID,
		"recipes", len(e.recipes),
		"max_steps", e.maxSteps,
	)

	for {
		if err := ctx.Err(); err != nil {
			return e.result(), fmt.Errorf("context cancelled: %w", err)
		}
		_, fired, err := e.Step()
		if err != nil {
			if IsStepsExceededError(err) {
				e.logger.Warn("run stopped by step quota",
					"run_id", e.runID,
					"steps", e.steps,
				)
			}
			return e.result(), err
		}
		if !fired {
			break
		}
	}

	e.logger.Info("run quiescent",
		"run_id", e.runID,
		"steps", e.steps,
	)
	return e.result(), nil
}

func (e *Executor) result() *Result {
	return &Result{
		RunID: e.runID,
		State: e.state,
		Steps: e.steps,
		Final: e.storage.Snapshot(),
	}
}

// Run builds an executor over recipes and storage and runs it to quiescence.
func Run(ctx context.Context, recipes []ir.Recipe, storage *Storage, opts ...Option) (*Result, error) {
	e, err := NewExecutor(recipes, storage, opts...)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx)
}

// RunProgram builds storage for p and runs its recipes to quiescence.
func RunProgram(ctx context.Context, p ir.Program, opts ...Option) (*Result, error) {
	s, err := NewStorage(p.Initial, p.Limits, p.Recipes)
	if err != nil {
		return nil, fmt.Errorf("build storage: %w", err)
	}
	return Run(ctx, p.Recipes, s, opts...)
}
