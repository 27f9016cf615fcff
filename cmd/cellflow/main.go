// Command cellflow drives a cellflow kernel from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/randalmurphal/cellflow/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
