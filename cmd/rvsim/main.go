// Package main provides the entry point for rvsim, a cycle-accurate
// 5-stage RV32 pipeline simulator.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit status.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCommand(stdin)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(stdin io.Reader) *cobra.Command {
	root := &cobra.Command{
		Use:           "rvsim",
		Short:         "Cycle-accurate 5-stage RV32 pipeline simulator",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newRunCommand(stdin),
		newCompareCommand(),
		newConfigCommand(),
		newBenchCommand(),
	)

	return root
}
