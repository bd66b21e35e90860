package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitFailed  = 1
	ExitError   = 2
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(format string, args ...any) error {
	return &exitError{code: ExitError, err: fmt.Errorf(format, args...)}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "probekit",
		Short:         "Probe composition and aggregation for test runs",
		Long:          `probekit replays recorded instrumentation events through declared probes, one test at a time, and reports statuses, summaries and thresholds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringP("config", "c", "probekit.yaml", "path to YAML or TOML config file")

	root.AddCommand(newRunCmd(stdout, stderr))
	root.AddCommand(newListCmd(stdout))
	return root
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.code == ExitFailed {
			return ExitFailed
		}
		fmt.Fprintf(stderr, "error: %v\n", exit.err)
		return exit.code
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return ExitError
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
