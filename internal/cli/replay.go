package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/forge/internal/engine"
	"github.com/roach88/forge/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID      string             `json:"run_id"`
	State      string             `json:"state"`
	Steps      int                `json:"steps"`
	Match      bool               `json:"match"`
	Divergence *engine.Divergence `json:"divergence,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs     []ReplayRunResult `json:"runs"`
	Total    int               `json:"total"`
	AllMatch bool              `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Re-execute logged runs and verify determinism",
		Long: `Re-execute runs from the run log and verify that every firing and the
final storage are identical to what was recorded.

Without a run id every finished run in the log is replayed.

Exit codes:
  0 - All runs replayed identically
  1 - A replay diverged from its log
  2 - Command error (database not found, unknown run, etc.)

Examples:
  forge replay --db runs.db
  forge replay --db runs.db 0192d0c4-5b7e-7c3a-9f1e-2a4b6c8d0e1f
  forge replay --db runs.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runReplay(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()
	logger := opts.Logger()

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if runID != "" {
		run, err := st.ReadRun(ctx, runID)
		if errors.Is(err, store.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("unknown run %s", runID), err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListFinishedRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:     make([]ReplayRunResult, 0, len(runs)),
		Total:    len(runs),
		AllMatch: true,
	}

	for _, run := range runs {
		replayed, err := store.ReplayRun(ctx, st, run.ID, engine.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		logger.Debug("run replayed", "run_id", run.ID, "match", replayed.Match)

		result.Runs = append(result.Runs, ReplayRunResult{
			RunID:      run.ID,
			State:      run.State,
			Steps:      run.Steps,
			Match:      replayed.Match,
			Divergence: replayed.Divergence,
		})
		if !replayed.Match {
			result.AllMatch = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

// openExisting opens a run log that must already exist, so a typo in --db
// does not silently create an empty database.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllMatch {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDivergence,
			Message: "replay diverged from the run log",
		}
	}

	if err := encodeJSON(cmd.OutOrStdout(), response); err != nil {
		return err
	}

	if !result.AllMatch {
		return NewExitError(ExitFailure, "replay diverged from the run log")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	if result.Total == 0 {
		fmt.Fprintln(w, "No finished runs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.Total)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Match {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		fmt.Fprintf(w, "  Firings: %d (%s)\n", run.Steps, run.State)

		if d := run.Divergence; d != nil {
			if d.Step < 0 {
				fmt.Fprintf(w, "  Final storage differs: expected %s, got %s\n", d.Expected, d.Actual)
			} else {
				fmt.Fprintf(w, "  Diverged at firing %d: expected %s, got %s\n", d.Step, d.Expected, d.Actual)
			}
		}
		fmt.Fprintln(w)
	}

	if result.AllMatch {
		fmt.Fprintln(w, "✓ All runs replayed identically")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay diverged from the run log")
	return NewExitError(ExitFailure, "replay diverged from the run log")
}
