package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/forge/internal/engine"
	"github.com/roach88/forge/internal/store"
	"github.com/roach88/forge/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	File     string
	Recipe   int // optional - filter to one recipe index; -1 for all
}

// TraceEvent represents a single firing in the trace timeline.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Index  int    `json:"index"`
	Recipe string `json:"recipe"`
}

// RecipeCount is how often one recipe fired.
type RecipeCount struct {
	Index   int `json:"index"`
	Firings int `json:"firings"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID    string        `json:"run_id"`
	State    string        `json:"state,omitempty"`
	Timeline []TraceEvent  `json:"timeline"`
	Counts   []RecipeCount `json:"counts"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show the firing sequence of a run",
		Long: `Show the firing sequence of a logged run, in seq order.

Firings come from the run log (--db with a run id) or from a compressed
trace file written by run --trace (--file).

The output includes:
- Timeline: every firing with its seq, recipe index and recipe
- Counts: how many times each recipe fired

Examples:
  forge trace --db runs.db 0192d0c4-5b7e-7c3a-9f1e-2a4b6c8d0e1f
  forge trace --db runs.db 0192d0c4-5b7e-7c3a-9f1e-2a4b6c8d0e1f --recipe 2
  forge trace --file loop.jsonl.zst --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runTrace(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log")
	cmd.Flags().StringVar(&opts.File, "file", "", "path to a zstd JSONL trace file")
	cmd.Flags().IntVar(&opts.Recipe, "recipe", -1, "filter to one recipe index")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	firings, result, err := loadTrace(opts, runID)
	if err != nil {
		return err
	}

	result.Timeline = make([]TraceEvent, 0, len(firings))
	counts := make(map[int]int)
	for _, f := range firings {
		counts[f.Index]++
		if opts.Recipe >= 0 && f.Index != opts.Recipe {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:    f.Seq,
			Index:  f.Index,
			Recipe: f.Recipe.String(),
		})
	}
	result.Counts = sortedCounts(counts)

	if opts.Format == "json" {
		return encodeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}
	outputTraceText(cmd, result)
	return nil
}

// loadTrace reads firings from the run log or a trace file.
func loadTrace(opts *TraceOptions, runID string) ([]engine.Firing, TraceResult, error) {
	switch {
	case opts.File != "" && opts.Database != "":
		return nil, TraceResult{}, NewExitError(ExitCommandError, "--db and --file are mutually exclusive")
	case opts.File != "":
		firings, err := trace.ReadFile(opts.File)
		if err != nil {
			return nil, TraceResult{}, WrapExitError(ExitCommandError, "failed to read trace", err)
		}
		result := TraceResult{RunID: runID}
		if len(firings) > 0 && result.RunID == "" {
			result.RunID = firings[0].RunID
		}
		return firings, result, nil
	case opts.Database != "":
		if runID == "" {
			return nil, TraceResult{}, NewExitError(ExitCommandError, "a run id is required with --db")
		}
		return loadLoggedTrace(opts.Database, runID)
	default:
		return nil, TraceResult{}, NewExitError(ExitCommandError, "one of --db or --file is required")
	}
}

func loadLoggedTrace(path, runID string) ([]engine.Firing, TraceResult, error) {
	ctx := context.Background()

	st, err := openExisting(path)
	if err != nil {
		return nil, TraceResult{}, err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return nil, TraceResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("unknown run %s", runID), err)
	}
	if err != nil {
		return nil, TraceResult{}, WrapExitError(ExitCommandError, "failed to read run", err)
	}

	firings, err := st.ReadFirings(ctx, runID)
	if err != nil {
		return nil, TraceResult{}, WrapExitError(ExitCommandError, "failed to read firings", err)
	}
	return firings, TraceResult{RunID: run.ID, State: run.State}, nil
}

func sortedCounts(counts map[int]int) []RecipeCount {
	out := make([]RecipeCount, 0, len(counts))
	for idx, n := range counts {
		out = append(out, RecipeCount{Index: idx, Firings: n})
	}
	slices.SortFunc(out, func(a, b RecipeCount) int { return a.Index - b.Index })
	return out
}

func outputTraceText(cmd *cobra.Command, result TraceResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run: %s\n", result.RunID)
	if result.State != "" {
		fmt.Fprintf(w, "State: %s\n", result.State)
	}
	fmt.Fprintln(w)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No firings.")
		return
	}

	fmt.Fprintln(w, "Timeline:")
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  [%d] recipe %d: %s\n", e.Seq, e.Index, e.Recipe)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Counts:")
	for _, c := range result.Counts {
		fmt.Fprintf(w, "  recipe %d: %d\n", c.Index, c.Firings)
	}
}
