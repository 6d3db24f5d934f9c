package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// transferProgram moves every A into B, one at a time.
const transferProgram = `// two transfers
Initial storage:
2 A

Instructions:
1 A -> 1 B
`

// sourceProgram never quiesces.
const sourceProgram = `Initial storage:

Instructions:
0 -> 1 A
`

// noOpProgram fails validation with E104.
const noOpProgram = `Initial storage:
1 A

Instructions:
1 A -> 1 A
`

// writeFile writes content to name inside dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// executeCommand runs cmd with args and returns everything written to stdout.
func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// testCommand returns a bare command whose output goes to buf, for calling
// run functions directly with options the flags cannot set.
func testCommand(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}
