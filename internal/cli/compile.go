package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/forge/internal/frontend"
	"github.com/roach88/forge/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the JSON payload of a successful compile.
type CompilationResult struct {
	ProgramHash string     `json:"program_hash"`
	Program     ir.Program `json:"program"`
	Output      string     `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <program>",
		Short: "Compile a program's blocks into recipes",
		Long: `Compile every block of a program into recipes and limits.

The program format is chosen by extension: .yaml/.yml, .json, .cue, or the
text grammar for anything else. The compiled program is printed in the text
grammar, or written to --output, and loads back through the text front-end.

Examples:
  forge compile chain.yaml
  forge compile chain.yaml -o chain.txt
  forge compile chain.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.newFormatter(cmd)
	logger := opts.Logger()

	p, err := loadProgram(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	logger.Debug("program compiled",
		"path", path,
		"recipes", len(p.Recipes),
		"limits", len(p.Limits),
	)

	hash, err := ir.ProgramHash(p)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash program", err)
	}

	if opts.Output != "" {
		if err := writeProgramFile(p, opts.Output); err != nil {
			if outErr := formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	if formatter.Format == "json" {
		return formatter.Success(CompilationResult{
			ProgramHash: hash,
			Program:     p,
			Output:      opts.Output,
		})
	}

	w := formatter.Writer
	if opts.Output == "" {
		return frontend.WriteText(w, p)
	}
	fmt.Fprintf(w, "✓ Compiled %d recipe(s), %d limit(s)\n", len(p.Recipes), len(p.Limits))
	fmt.Fprintf(w, "Program hash: %s\n", hash)
	fmt.Fprintf(w, "Wrote program to %s\n", opts.Output)
	return nil
}

// writeProgramFile renders p in the text grammar and writes it to path.
func writeProgramFile(p ir.Program, path string) error {
	var buf bytes.Buffer
	if err := frontend.WriteText(&buf, p); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
