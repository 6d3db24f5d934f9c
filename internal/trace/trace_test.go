package trace

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/forge/internal/engine"
	"github.com/roach88/forge/internal/ir"
)

func TestWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	want := []engine.Firing{
		{RunID: "run-1", Seq: 1, Index: 0, Recipe: ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1))},
		{RunID: "run-1", Seq: 2, Index: 1, Recipe: ir.NewRecipe(ir.Of("B", 2), nil)},
	}
	for _, f := range want {
		require.NoError(t, w.OnFiring(f))
	}
	assert.Equal(t, 2, w.Count())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second Close is a no-op")

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].Seq, got[i].Seq)
		assert.Equal(t, want[i].Index, got[i].Index)
		assert.Equal(t, want[i].Recipe.String(), got[i].Recipe.String())
	}
}

func TestWriter_ClosedRejectsWrites(t *testing.T) {
	w, err := NewWriter(io.Discard)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.OnFiring(engine.Firing{RunID: "run-1", Seq: 1})
	assert.Error(t, err)
}

func TestWriter_AsExecutorObserver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run"+Extension)
	w, err := Create(path)
	require.NoError(t, err)

	p := ir.Program{
		Initial: ir.Of("A", 3),
		Recipes: []ir.Recipe{ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1))},
	}
	res, err := engine.RunProgram(context.Background(), p,
		engine.WithRunID("run-1"),
		engine.WithObserver(w),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, res.Steps)
	for i, f := range got {
		assert.Equal(t, "run-1", f.RunID)
		assert.Equal(t, int64(i+1), f.Seq)
	}
}

func TestRead_EmptyTrace(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRead_CorruptLine(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.w.WriteString("{not json}\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = Read(&buf)
	assert.ErrorContains(t, err, "trace line 1")
}
