package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/forge/internal/engine"
	"github.com/roach88/forge/internal/ir"
)

// RecordRun executes p and logs the run and every firing to s.
//
// The run row is created before the first firing and finished with the
// executor's outcome, including runs stopped by the step quota. A quota stop
// is still returned as an error so callers can report it. maxSteps is both
// recorded and passed to the executor; 0 means unbounded.
func RecordRun(ctx context.Context, s *Store, p ir.Program, source string, maxSteps int, opts ...engine.Option) (*engine.Result, error) {
	storage, err := engine.NewStorage(p.Initial, p.Limits, p.Recipes)
	if err != nil {
		return nil, fmt.Errorf("build storage: %w", err)
	}

	rec := NewRecorder(ctx, s, DefaultBatchSize)
	opts = append(opts, engine.WithObserver(rec), engine.WithMaxSteps(maxSteps))
	exec, err := engine.NewExecutor(p.Recipes, storage, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.CreateRun(ctx, exec.RunID(), p, source, maxSteps); err != nil {
		return nil, err
	}

	res, runErr := exec.Run(ctx)
	if runErr != nil && !engine.IsQuotaError(runErr) {
		// Keep what was committed so the log matches storage.
		if err := rec.Flush(); err != nil {
			return res, errors.Join(runErr, err)
		}
		return res, runErr
	}

	if err := rec.Flush(); err != nil {
		return res, err
	}
	if err := s.FinishRun(ctx, res.RunID, res.State.String(), res.Steps, res.Final); err != nil {
		return res, err
	}
	return res, runErr
}

// ReplayRun re-executes a recorded run and compares it with its log.
func ReplayRun(ctx context.Context, s *Store, runID string, opts ...engine.Option) (*engine.ReplayResult, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	firings, err := s.ReadFirings(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.State == StateRunning {
		return nil, fmt.Errorf("replay run %s: run was never finished", runID)
	}
	if run.MaxSteps > 0 {
		opts = append(opts, engine.WithMaxSteps(run.MaxSteps))
	}
	return engine.Replay(ctx, run.Program, firings, run.Final, opts...)
}
