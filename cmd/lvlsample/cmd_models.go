// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvlsample/config"
	"github.com/katalvlaran/lvlsample/models"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the built-in models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, name := range models.Names() {
				m, err := models.Lookup(name, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%-12s inputs %v, output %q\n", name, m.Inputs(), models.Target)
			}
			fmt.Fprintf(w, "%-12s inputs: the study variables, outputs %q %q %q\n", config.FailureTreeModel,
				models.OutputFailures, models.OutputSystemFailure, models.OutputEndTime)

			return nil
		},
	}
}
