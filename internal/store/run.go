package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/forge/internal/ir"
)

// ErrRunNotFound is returned when a run id has no row in the log.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded execution.
//
// State is "running" until FinishRun records the outcome, after which it
// holds the executor state name ("quiescent" or "limited") and Final holds
// the storage the run ended with.
type Run struct {
	ID            string
	ProgramHash   string
	Program       ir.Program
	Source        string
	MaxSteps      int
	State         string
	Steps         int
	Final         ir.Multiset
	EngineVersion string
	IRVersion     string
}

// StateRunning is the state of a run that has not been finished.
const StateRunning = "running"

// CreateRun inserts a new run for p.
// The program hash is computed here; callers only supply the id and source.
func (s *Store) CreateRun(ctx context.Context, id string, p ir.Program, source string, maxSteps int) error {
	if id == "" {
		return fmt.Errorf("create run: empty run id")
	}
	hash, err := ir.ProgramHash(p)
	if err != nil {
		return fmt.Errorf("create run %s: %w", id, err)
	}
	program, err := marshalProgram(p)
	if err != nil {
		return fmt.Errorf("create run %s: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, program_hash, program, source, max_steps, state, steps, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, id, hash, program, source, maxSteps, StateRunning, ir.EngineVersion, ir.IRVersion)
	if err != nil {
		return fmt.Errorf("create run %s: %w", id, err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, id, state string, steps int, final ir.Multiset) error {
	finalJSON, err := marshalMultiset(final)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET state = ?, steps = ?, final_storage = ?
		WHERE id = ?
	`, state, steps, finalJSON, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// ReadRun returns the run with the given id, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, program_hash, program, source, max_steps, state, steps, final_storage, engine_version, ir_version
		FROM runs
		WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// ListRuns returns every run ordered by id.
// Returns an empty slice (not nil) when the log is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.listRuns(ctx, "")
}

// ListFinishedRuns returns the runs that reached quiescence or were stopped
// by their step quota, ordered by id. Runs still marked running were never
// finished and cannot be replayed.
func (s *Store) ListFinishedRuns(ctx context.Context) ([]Run, error) {
	return s.listRuns(ctx, "WHERE state != '"+StateRunning+"'")
}

func (s *Store) listRuns(ctx context.Context, where string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program_hash, program, source, max_steps, state, steps, final_storage, engine_version, ir_version
		FROM runs
		`+where+`
		ORDER BY id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r       Run
		program string
		final   sql.NullString
	)
	if err := row.Scan(&r.ID, &r.ProgramHash, &program, &r.Source, &r.MaxSteps,
		&r.State, &r.Steps, &final, &r.EngineVersion, &r.IRVersion); err != nil {
		return Run{}, err
	}

	p, err := unmarshalProgram(program)
	if err != nil {
		return Run{}, err
	}
	r.Program = p

	if final.Valid {
		m, err := unmarshalMultiset(final.String)
		if err != nil {
			return Run{}, err
		}
		r.Final = m
	}
	return r, nil
}
