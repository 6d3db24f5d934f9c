package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/forge/internal/compiler"
	"github.com/roach88/forge/internal/frontend"
	"github.com/roach88/forge/internal/ir"
)

func TestCompile_TextToStdout(t *testing.T) {
	path := writeFile(t, t.TempDir(), "transfer.txt", transferProgram)

	out, err := executeCommand(NewCompileCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Equal(t, "Initial storage:\n2 A\n\nLimits:\n\nInstructions:\n1 A -> 1 B\n", out)
}

func TestCompile_OutputFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chain.yaml", `storage:
  x: 3
blocks:
  - copy: {from: x, to: y}
`)
	outPath := filepath.Join(dir, "chain.txt")

	out, err := executeCommand(NewCompileCommand(&RootOptions{Format: "text"}), path, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled")
	assert.Contains(t, out, "Wrote program to "+outPath)

	want, err := loadProgram(path)
	require.NoError(t, err)

	src, err := frontend.LoadFile(outPath)
	require.NoError(t, err)
	got, err := src.Compile(compiler.NewNameAllocator())
	require.NoError(t, err)

	wantHash, err := ir.ProgramHash(want)
	require.NoError(t, err)
	gotHash, err := ir.ProgramHash(got)
	require.NoError(t, err)
	assert.Equal(t, wantHash, gotHash, "written program must load back unchanged")
}

func TestCompile_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "transfer.txt", transferProgram)

	out, err := executeCommand(NewCompileCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Program.Recipes, 1)
	assert.Equal(t, "1 A -> 1 B", resp.Data.Program.Recipes[0].String())

	p, err := loadProgram(path)
	require.NoError(t, err)
	hash, err := ir.ProgramHash(p)
	require.NoError(t, err)
	assert.Equal(t, hash, resp.Data.ProgramHash)
}

func TestCompile_MissingFile(t *testing.T) {
	out, err := executeCommand(NewCompileCommand(&RootOptions{Format: "text"}),
		filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestCompile_ParseError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.txt", "Instructions:\n1 A => 1 B\n")

	out, err := executeCommand(NewCompileCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParse, resp.Error.Code)
}

func TestCompile_UnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "transfer.txt", transferProgram)
	outPath := filepath.Join(dir, "no-such-dir", "out.txt")

	out, err := executeCommand(NewCompileCommand(&RootOptions{Format: "text"}), path, "-o", outPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeWriteFailed)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}
