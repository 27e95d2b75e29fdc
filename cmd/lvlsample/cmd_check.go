// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvlsample/config"
)

func newCheckCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a study file without running it",
		Long: `Check loads and validates a study, builds its sampler and model and prints
a summary. It exits non-zero on the first problem found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checkStudy(cmd.OutOrStdout(), path)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "Study file (.yaml, .yml or .toml)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func checkStudy(w io.Writer, path string) error {
	study, err := config.Load(path)
	if err != nil {
		return err
	}
	if _, err = study.Strategy(nil, nil); err != nil {
		return err
	}
	if _, err = study.BuildModel(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: ok\n", path)
	fmt.Fprintf(w, "  sampler   %s\n", study.Sampler)
	fmt.Fprintf(w, "  model     %s\n", study.Model.Name)
	fmt.Fprintf(w, "  targets   %v\n", study.Targets)
	fmt.Fprintf(w, "  variables %d\n", len(study.Variables))
	for _, v := range study.Variables {
		fmt.Fprintf(w, "    %-12s %s\n", v.Name, v.Distribution)
	}
	fmt.Fprintf(w, "  workers   %d\n", study.Executor.Workers)

	return nil
}
