package store

import (
	"context"
	"fmt"

	"github.com/roach88/forge/internal/engine"
	"github.com/roach88/forge/internal/ir"
)

// WriteFirings appends firings to the log in a single transaction.
// A firing whose (run_id, seq) is already present is skipped.
func (s *Store) WriteFirings(ctx context.Context, firings []engine.Firing) error {
	if len(firings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin firings tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO firings (run_id, seq, recipe_index, recipe_hash, recipe)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare firing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range firings {
		hash, err := ir.RecipeHash(f.Recipe)
		if err != nil {
			return fmt.Errorf("write firing %s/%d: %w", f.RunID, f.Seq, err)
		}
		recipe, err := marshalRecipe(f.Recipe)
		if err != nil {
			return fmt.Errorf("write firing %s/%d: %w", f.RunID, f.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx, f.RunID, f.Seq, f.Index, hash, recipe); err != nil {
			return fmt.Errorf("write firing %s/%d: %w", f.RunID, f.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit firings: %w", err)
	}
	return nil
}

// ReadFirings returns the firings of a run in seq order.
// Returns an empty slice (not nil) when the run has no firings.
func (s *Store) ReadFirings(ctx context.Context, runID string) ([]engine.Firing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, recipe_index, recipe
		FROM firings
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read firings %s: %w", runID, err)
	}
	defer rows.Close()

	firings := []engine.Firing{}
	for rows.Next() {
		var (
			f      engine.Firing
			recipe string
		)
		if err := rows.Scan(&f.RunID, &f.Seq, &f.Index, &recipe); err != nil {
			return nil, fmt.Errorf("read firings %s: %w", runID, err)
		}
		r, err := unmarshalRecipe(recipe)
		if err != nil {
			return nil, fmt.Errorf("read firings %s seq %d: %w", runID, f.Seq, err)
		}
		f.Recipe = r
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read firings %s: %w", runID, err)
	}
	return firings, nil
}

// CountFirings returns how many firings a run has recorded.
func (s *Store) CountFirings(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM firings WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count firings %s: %w", runID, err)
	}
	return n, nil
}

// DefaultBatchSize is the number of firings a Recorder buffers before it
// writes them.
const DefaultBatchSize = 256

// Recorder is an engine.Observer that appends firings to the log in batches.
//
// Call Flush after the run to write the tail of the buffer. Recorder is not
// safe for concurrent use; it belongs to a single executor.
type Recorder struct {
	ctx     context.Context
	store   *Store
	batch   int
	pending []engine.Firing
	written int
}

// NewRecorder creates a recorder writing to s. A batch size below 1 uses
// DefaultBatchSize.
func NewRecorder(ctx context.Context, s *Store, batch int) *Recorder {
	if batch < 1 {
		batch = DefaultBatchSize
	}
	return &Recorder{ctx: ctx, store: s, batch: batch}
}

// OnFiring buffers f and writes the buffer once it is full.
func (r *Recorder) OnFiring(f engine.Firing) error {
	r.pending = append(r.pending, f)
	if len(r.pending) >= r.batch {
		return r.Flush()
	}
	return nil
}

// Flush writes every buffered firing.
func (r *Recorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.store.WriteFirings(r.ctx, r.pending); err != nil {
		return err
	}
	r.written += len(r.pending)
	r.pending = r.pending[:0]
	return nil
}

// Written returns the number of firings flushed so far.
func (r *Recorder) Written() int {
	return r.written
}
