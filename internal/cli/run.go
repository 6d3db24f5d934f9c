package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/forge/internal/engine"
	"github.com/roach88/forge/internal/ir"
	"github.com/roach88/forge/internal/store"
	"github.com/roach88/forge/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	MaxSteps int
	Trace    string

	// RunIDs overrides run id generation (tests). Default: UUIDv7.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the outcome of the run command.
type RunSummary struct {
	RunID    string      `json:"run_id"`
	State    string      `json:"state"`
	Steps    int         `json:"steps"`
	Final    ir.Multiset `json:"final"`
	Database string      `json:"database,omitempty"`
	Trace    string      `json:"trace,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Compile a program and run it to quiescence",
		Long: `Compile a program and run its recipes until none can fire.

With --db every firing and the final storage are logged to a SQLite run log
that replay and trace read back. With --trace firings are also written as
zstd-compressed JSON lines. --max-steps bounds programs that never quiesce.

Exit codes:
  0 - Program reached quiescence
  1 - Stopped by --max-steps
  2 - Command error

Examples:
  forge run chain.yaml
  forge run chain.yaml --db runs.db
  forge run loop.txt --max-steps 1000 --trace loop.jsonl.zst`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "stop after this many firings (0 = unbounded)")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "write a zstd JSONL firing trace to this file")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.Logger()

	if opts.MaxSteps < 0 {
		return NewExitError(ExitCommandError, "--max-steps must be non-negative")
	}

	p, err := loadProgram(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	logger.Info("program compiled", "path", path, "recipes", len(p.Recipes))

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	execOpts := []engine.Option{
		engine.WithLogger(logger),
	}
	if opts.RunIDs != nil {
		execOpts = append(execOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}

	var tw *trace.Writer
	if opts.Trace != "" {
		tw, err = trace.Create(opts.Trace)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create trace", err)
		}
		execOpts = append(execOpts, engine.WithObserver(tw))
	}

	res, runErr := execute(ctx, opts, p, path, execOpts)

	if tw != nil {
		if err := tw.Close(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil && !engine.IsQuotaError(runErr) {
		return WrapExitError(ExitCommandError, "run failed", runErr)
	}

	summary := RunSummary{
		RunID:    res.RunID,
		State:    res.State.String(),
		Steps:    res.Steps,
		Final:    res.Final,
		Database: opts.Database,
		Trace:    opts.Trace,
	}
	if err := outputRunSummary(formatter, summary); err != nil {
		return err
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "step limit reached", runErr)
	}
	return nil
}

// execute runs p, logging to the run log when --db is set.
func execute(ctx context.Context, opts *RunOptions, p ir.Program, path string, execOpts []engine.Option) (*engine.Result, error) {
	if opts.Database == "" {
		return engine.RunProgram(ctx, p, append(execOpts, engine.WithMaxSteps(opts.MaxSteps))...)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger().Error("error closing database", "error", closeErr)
		}
	}()

	return store.RecordRun(ctx, st, p, path, opts.MaxSteps, execOpts...)
}

func outputRunSummary(formatter *OutputFormatter, s RunSummary) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: s, RunID: s.RunID}
		if s.State == engine.Limited.String() {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeStepLimit, Message: "step limit reached"}
		}
		return encodeJSON(formatter.Writer, resp)
	}

	w := formatter.Writer
	mark := "✓"
	if s.State != engine.Quiescent.String() {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s after %d firing(s)\n", mark, s.State, s.Steps)
	fmt.Fprintf(w, "Run ID: %s\n", s.RunID)
	if s.Database != "" {
		fmt.Fprintf(w, "Logged to %s\n", s.Database)
	}
	if s.Trace != "" {
		fmt.Fprintf(w, "Trace written to %s\n", s.Trace)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Final storage:")
	for _, item := range s.Final.Items() {
		fmt.Fprintf(w, "  %s: %d\n", item, s.Final[item])
	}
	return nil
}
