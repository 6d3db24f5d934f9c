package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/forge/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Strict bool // treat termination warnings as failures
}

// ValidationReport is the JSON payload of the validate command.
type ValidationReport struct {
	Valid    bool                          `json:"valid"`
	Errors   []compiler.ValidationError    `json:"errors"`
	Warnings []compiler.TerminationWarning `json:"warnings"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Validate a compiled program and check for non-termination",
		Long: `Compile a program, check it against the structural rules, and run
the static termination analysis.

Validation errors (negative quantities, empty identifiers, no-op recipes,
initial storage outside a limit) fail the command. Termination findings are
reported as warnings and only fail the command with --strict.

Exit codes:
  0 - Program is valid
  1 - Termination warnings with --strict
  2 - Program failed to load, compile or validate`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on termination warnings")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)

	p, err := loadProgram(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Compiled %s: %d recipe(s), %d limit(s)", path, len(p.Recipes), len(p.Limits))

	report := ValidationReport{
		Errors:   compiler.Validate(p),
		Warnings: compiler.AnalyzeTermination(p),
	}
	if report.Errors == nil {
		report.Errors = []compiler.ValidationError{}
	}
	if report.Warnings == nil {
		report.Warnings = []compiler.TerminationWarning{}
	}
	report.Valid = len(report.Errors) == 0

	if formatter.Format == "json" {
		if err := outputValidateJSON(formatter, report); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, report)
	}

	if !report.Valid {
		return NewExitError(ExitCommandError, fmt.Sprintf("validation failed with %d error(s)", len(report.Errors)))
	}
	if opts.Strict && countLevel(report.Warnings, "warning") > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d termination warning(s)", countLevel(report.Warnings, "warning")))
	}
	return nil
}

func outputValidateJSON(formatter *OutputFormatter, report ValidationReport) error {
	if report.Valid {
		return formatter.Success(report)
	}
	return formatter.Error(report.Errors[0].Code, fmt.Sprintf("validation failed with %d error(s)", len(report.Errors)), report)
}

func outputValidateText(formatter *OutputFormatter, report ValidationReport) {
	w := formatter.Writer

	if report.Valid {
		fmt.Fprintln(w, "✓ Program is valid")
	} else {
		fmt.Fprintf(w, "✗ Validation failed with %d error(s):\n\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
		}
	}

	if len(report.Warnings) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "  %s: recipes %s: %s\n", warn.Level, joinInts(warn.Recipes), warn.Message)
	}
}

func countLevel(warnings []compiler.TerminationWarning, level string) int {
	n := 0
	for _, w := range warnings {
		if w.Level == level {
			n++
		}
	}
	return n
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}
