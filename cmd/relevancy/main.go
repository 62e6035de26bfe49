// Command relevancy checks the answer relevancy of cases from a YAML file.
//
//	relevancy check -f cases.yaml
//
// It exits 0 when every case passes, 1 when a case scores below the threshold
// and 2 when the evaluation model could not score a case or the input is invalid.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

const (
	exitPass  = 0
	exitBelow = 1
	exitFault = 2
)

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitPass
	}
	fmt.Fprintln(stderr, "Error:", err)

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFault
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "relevancy",
		Short: "Evaluate how relevant LLM answers are to their questions",
		Long: `relevancy scores each case's actual output against its input with a
language-model judge and fails cases that score below the threshold.

The judge is configured with RELEVANCY_* environment variables and the
provider's credentials, e.g. OPENAI_API_KEY.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newCheckCmd())
	root.AddCommand(newValidateCmd())
	return root
}
