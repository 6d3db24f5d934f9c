package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/forge/internal/ir"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestExecutor builds storage from p and an executor with a fixed run id,
// a fresh clock and a discarding logger.
func newTestExecutor(t *testing.T, p ir.Program, opts ...Option) *Executor {
	t.Helper()
	s, err := NewStorage(p.Initial, p.Limits, p.Recipes)
	require.NoError(t, err)

	base := []Option{
		WithRunID("run-test"),
		WithClock(NewClock()),
		WithLogger(discardLogger()),
	}
	e, err := NewExecutor(p.Recipes, s, append(base, opts...)...)
	require.NoError(t, err)
	return e
}

// firingRecorder collects firings in order.
type firingRecorder struct {
	firings []Firing
}

func (r *firingRecorder) OnFiring(f Firing) error {
	r.firings = append(r.firings, f)
	return nil
}

func (r *firingRecorder) indices() []int {
	out := make([]int, len(r.firings))
	for i, f := range r.firings {
		out[i] = f.Index
	}
	return out
}

func TestExecutor_SimpleConversion(t *testing.T) {
	p := ir.Program{
		Initial: ir.Of("A", 2),
		Recipes: []ir.Recipe{ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1))},
	}
	e := newTestExecutor(t, p)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Quiescent, res.State)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, "run-test", res.RunID)
	assert.Equal(t, ir.Of("A", 0, "B", 2), res.Final)
}

func TestExecutor_NeverQuiescesWithoutBound(t *testing.T) {
	p := ir.Program{
		Initial: ir.Of("A", 0),
		Recipes: []ir.Recipe{ir.NewRecipe(ir.Multiset{}, ir.Of("A", 1))},
	}
	e := newTestExecutor(t, p, WithMaxSteps(100))

	res, err := e.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))
	assert.True(t, IsQuotaError(err))

	assert.Equal(t, Limited, res.State)
	assert.Equal(t, Limited, e.State())
	assert.Equal(t, 100, res.Steps)
	assert.Equal(t, int64(100), res.Final["A"], "storage reflects only permitted firings")

	var se *StepsExceededError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "run-test", se.RunID)
	assert.Equal(t, 100, se.Limit)
}

func TestExecutor_EarlierRecipeWins(t *testing.T) {
	p := ir.Program{
		Initial: ir.Of("A", 1),
		Recipes: []ir.Recipe{
			ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1)),
			ir.NewRecipe(ir.Of("A", 1), ir.Of("C", 1)),
		},
	}
	res, err := newTestExecutor(t, p).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Final["B"])
	assert.Equal(t, int64(0), res.Final["C"])
}

// TestExecutor_LimitExclusionFollowsOrder verifies that when two recipes are
// eligible but mutually exclusive under a limit, list order decides.
func TestExecutor_LimitExclusionFollowsOrder(t *testing.T) {
	toB := ir.NewRecipe(ir.Of("T", 1), ir.Of("B", 1))
	toC := ir.NewRecipe(ir.Of("T", 1), ir.Of("C", 1))
	limits := []ir.Limit{ir.NewLimit(ir.Of("B", 1, "C", 1), 1)}

	tests := []struct {
		name    string
		recipes []ir.Recipe
		want    ir.Multiset
	}{
		{"B first", []ir.Recipe{toB, toC}, ir.Of("T", 1, "B", 1)},
		{"C first", []ir.Recipe{toC, toB}, ir.Of("T", 1, "C", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ir.Program{Initial: ir.Of("T", 2), Limits: limits, Recipes: tt.recipes}
			res, err := newTestExecutor(t, p).Run(context.Background())
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(res.Final), "got %s", res.Final)
		})
	}
}

func TestExecutor_RestartsScanAfterFiring(t *testing.T) {
	p := ir.Program{
		Initial: ir.Of("A", 2),
		Recipes: []ir.Recipe{
			ir.NewRecipe(ir.Of("X", 1), ir.Of("Y", 1)),
			ir.NewRecipe(ir.Of("A", 1), ir.Of("X", 1)),
		},
	}
	rec := &firingRecorder{}
	res, err := newTestExecutor(t, p, WithObserver(rec)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0, 1, 0}, rec.indices())
	assert.Equal(t, ir.Of("A", 0, "X", 0, "Y", 2), res.Final)
}

func TestExecutor_FiringsStampedWithClockAndRunID(t *testing.T) {
	p := ir.Program{
		Initial: ir.Of("A", 3),
		Recipes: []ir.Recipe{ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1))},
	}
	rec := &firingRecorder{}
	_, err := newTestExecutor(t, p, WithObserver(rec), WithClock(newClockAt(10))).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rec.firings, 3)
	for i, f := range rec.firings {
		assert.Equal(t, int64(11+i), f.Seq)
		assert.Equal(t, "run-test", f.RunID)
		assert.Equal(t, "1 A -> 1 B", f.Recipe.String())
	}
}

func TestExecutor_RunIDGenerator(t *testing.T) {
	s, err := NewStorage(nil, nil, nil)
	require.NoError(t, err)

	e, err := NewExecutor(nil, s, WithRunIDGenerator(NewFixedGenerator("gen-1")), WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Equal(t, "gen-1", e.RunID())

	e, err = NewExecutor(nil, s, WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Len(t, e.RunID(), 36, "default run id is a UUID")
}

func TestExecutor_EmptyRecipeListIsQuiescent(t *testing.T) {
	res, err := newTestExecutor(t, ir.Program{Initial: ir.Of("A", 1)}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Quiescent, res.State)
	assert.Equal(t, 0, res.Steps)
}

func TestExecutor_StepAfterQuiescence(t *testing.T) {
	p := ir.Program{
		Initial: ir.Of("A", 1),
		Recipes: []ir.Recipe{ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1))},
	}
	e := newTestExecutor(t, p)

	f, fired, err := e.Step()
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 0, f.Index)
	assert.Equal(t, Running, e.State())

	_, fired, err = e.Step()
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, Quiescent, e.State())

	_, fired, err = e.Step()
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, 1, e.Steps())
}

func TestNewExecutor_UnregisteredItem(t *testing.T) {
	s, err := NewStorage(ir.Of("A", 1), nil, nil)
	require.NoError(t, err)

	_, err = NewExecutor([]ir.Recipe{ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1))}, s)
	require.Error(t, err)

	var ue *UnregisteredItemError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ir.Item("B"), ue.Item)
	assert.Equal(t, 0, ue.Recipe)
}

func TestNewExecutor_NegativeQuantity(t *testing.T) {
	s, err := NewStorage(ir.Of("A", 1), nil, nil)
	require.NoError(t, err)

	_, err = NewExecutor([]ir.Recipe{ir.NewRecipe(ir.Of("A", -1), ir.Multiset{})}, s)
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeNegativeQuantity, re.Code)
}

func TestNewExecutor_NilStorage(t *testing.T) {
	_, err := NewExecutor(nil, nil)
	assert.Error(t, err)
}

func TestNewExecutor_CopiesRecipes(t *testing.T) {
	recipes := []ir.Recipe{
		ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1)),
		ir.NewRecipe(ir.Of("A", 1), ir.Of("C", 1)),
	}
	s, err := NewStorage(ir.Of("A", 1), nil, recipes)
	require.NoError(t, err)
	e, err := NewExecutor(recipes, s, WithLogger(discardLogger()))
	require.NoError(t, err)

	recipes[0], recipes[1] = recipes[1], recipes[0]
	recipes[1].Outputs["B"] = 5

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Final["B"])
	assert.Equal(t, int64(0), res.Final["C"])
}

func TestExecutor_ObserverErrorAborts(t *testing.T) {
	p := ir.Program{
		Initial: ir.Of("A", 3),
		Recipes: []ir.Recipe{ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1))},
	}
	boom := errors.New("boom")
	obs := ObserverFunc(func(f Firing) error {
		if f.Seq == 2 {
			return boom
		}
		return nil
	})

	res, err := newTestExecutor(t, p, WithObserver(obs)).Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, res.Steps)
}

func TestExecutor_ContextCancelled(t *testing.T) {
	p := ir.Program{
		Recipes: []ir.Recipe{ir.NewRecipe(ir.Multiset{}, ir.Of("A", 1))},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestExecutor(t, p).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Steps)
	assert.Equal(t, Running, res.State)
}

func TestRun_Helper(t *testing.T) {
	recipes := []ir.Recipe{ir.NewRecipe(ir.Of("A", 2), ir.Of("B", 1))}
	s, err := NewStorage(ir.Of("A", 5), nil, recipes)
	require.NoError(t, err)

	res, err := Run(context.Background(), recipes, s, WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Equal(t, ir.Of("A", 1, "B", 2), res.Final)
}

func TestRunProgram_InvalidStorage(t *testing.T) {
	_, err := RunProgram(context.Background(), ir.Program{Initial: ir.Of("A", -2)})
	require.Error(t, err)

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeNegativeQuantity, re.Code)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "quiescent", Quiescent.String())
	assert.Equal(t, "limited", Limited.String())
	assert.Equal(t, "state(9)", State(9).String())
}
