package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/forge/internal/engine"
	"github.com/roach88/forge/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// transferProgram moves every A into B, one per firing.
func transferProgram(n int) ir.Program {
	return ir.Program{
		Initial: ir.Of("A", n),
		Recipes: []ir.Recipe{
			ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1)),
		},
	}
}

func testOptions(runID string) []engine.Option {
	return []engine.Option{
		engine.WithRunID(runID),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
}

func createTestFiring(runID string, seq int64, index int) engine.Firing {
	return engine.Firing{
		RunID:  runID,
		Seq:    seq,
		Index:  index,
		Recipe: ir.NewRecipe(ir.Of("A", 1), ir.Of("B", 1)),
	}
}

func mustCreateRun(t *testing.T, s *Store, id string, p ir.Program) {
	t.Helper()
	if err := s.CreateRun(context.Background(), id, p, "test.yaml", 0); err != nil {
		t.Fatalf("CreateRun(%s) failed: %v", id, err)
	}
}
