// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lvlsample",
		Short: "Adaptive sparse-grid, cut-HDMR and dynamic event tree sampling",
		Long: "lvlsample refines surrogate models of a sampled model adaptively: sparse grids\n" +
			"with polynomial chaos, Sobol cut-HDMR decompositions, and dynamic event trees.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(newRunCmd(), newCheckCmd(), newModelsCmd())

	return root
}
