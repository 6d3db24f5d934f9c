// Command forge compiles control-flow blocks into recipes and runs them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/forge/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
