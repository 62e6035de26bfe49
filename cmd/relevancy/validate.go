package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a cases file without calling a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := loadCases(file)
			if err != nil {
				return &exitError{code: exitFault, err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d cases\n", file, len(cases))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a top-level cases list")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
