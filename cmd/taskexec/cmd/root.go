// Package cmd implements the taskexec command line.
package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	GitCommit = "development"
	BuildDate = "unknown"
)

// NewRootCommand assembles the taskexec command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskexec",
		Short: "Single-worker FIFO command executor",
		Long: `taskexec runs commands one at a time, in submission order, on a single
background worker.

Commands:
  run    - run the executor with scheduled jobs and a /metrics endpoint
  bench  - measure throughput and verify ordering under concurrent producers`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCommand(), newBenchCommand(), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "taskexec v%s\n", Version)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
