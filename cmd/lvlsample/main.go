// SPDX-License-Identifier: MIT

// lvlsample runs adaptive sampling studies against the built-in models.
//
// Usage:
//
//	lvlsample run -c study.yaml [--metrics-addr :9090] [--log-level debug]
//	lvlsample check -c study.toml
//	lvlsample models
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
