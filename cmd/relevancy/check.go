package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	relevancy "github.com/evalkit/relevancy-go"
	"github.com/evalkit/relevancy-go/config"
	"github.com/evalkit/relevancy-go/eval"
	"github.com/evalkit/relevancy-go/report"
)

type checkFlags struct {
	file        string
	parallelism int
	threshold   float64
	model       string
	provider    string
}

func newCheckCmd() *cobra.Command {
	var flags checkFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Score every case in a file and fail on low relevancy",
		Example: `  relevancy check -f cases.yaml
  RELEVANCY_PROVIDER=ollama relevancy check -f cases.yaml --model llama3.1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "YAML file with a top-level cases list")
	cmd.Flags().IntVarP(&flags.parallelism, "parallelism", "p", 1, "number of cases scored concurrently")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", 0, "minimum passing score (overrides RELEVANCY_THRESHOLD)")
	cmd.Flags().StringVar(&flags.model, "model", "", "evaluation model (overrides RELEVANCY_MODEL)")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "model provider (overrides RELEVANCY_PROVIDER)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runCheck(cmd *cobra.Command, flags checkFlags) error {
	ctx := cmd.Context()

	cases, err := loadCases(flags.file)
	if err != nil {
		return &exitError{code: exitFault, err: err}
	}

	cfg := config.FromEnv()
	if cmd.Flags().Changed("threshold") {
		cfg.Threshold = flags.threshold
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if flags.provider != "" {
		cfg.Provider = flags.provider
	}

	h, err := relevancy.New(ctx, cfg)
	if err != nil {
		return &exitError{code: exitFault, err: err}
	}
	defer func() {
		if err := h.Shutdown(ctx); err != nil {
			cfg.Logger.Warn("failed to flush traces", "error", err)
		}
	}()

	result, runErr := h.Run(ctx, eval.NewDataset(cases), flags.parallelism)
	if result == nil {
		return &exitError{code: exitFault, err: runErr}
	}

	if err := report.All(ctx, result, h.Sinks(cmd.OutOrStdout())...); err != nil {
		return &exitError{code: exitFault, err: err}
	}
	if runErr != nil {
		return &exitError{code: exitFault, err: runErr}
	}
	if failed := result.Failed(); failed > 0 {
		return &exitError{
			code: exitBelow,
			err:  fmt.Errorf("%d of %d cases scored below the relevancy threshold", failed, len(result.Cases)),
		}
	}
	return nil
}

func loadCases(path string) ([]eval.Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cases, err := eval.LoadCases(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}
