// SPDX-License-Identifier: MIT

// Package lvlsample is an adaptive sampling engine that builds surrogate
// models of expensive simulations one batch of runs at a time.
//
// What is in the box?
//
//	Three refinement strategies behind one non-blocking interface:
//		• Adaptive sparse grids with polynomial chaos (refine)
//		• Sobol cut-HDMR composition of sparse-grid subsets (sobol)
//		• Dynamic event trees with threshold branching (det)
//
// Why another sampler?
//
//   - Runs are requested, not executed: any dispatcher can drive a strategy
//   - Deterministic: identical inputs give identical run order and surrogates
//   - Failures are isolated per run and retried up to a configurable bound
//   - Structured logging (log/slog) and Prometheus metrics throughout
//
// Package layout:
//
//	sampler/    - Input, Result, Strategy and the shared error taxonomy
//	dist/       - univariate distributions (gonum) with Quantile/CDF
//	space/      - feature binding, reference point, derived variables
//	quadrature/ - Gauss-Legendre/Hermite, Clenshaw-Curtis and CDF rules
//	indexset/   - admissible multi-index sets
//	sparsegrid/ - Smolyak combination coefficients and merged grids
//	rom/        - polynomial chaos expansions, projection and regression
//	impact/     - expected-impact estimation
//	ledger/     - point store and run queues
//	refine/     - the adaptive sparse-grid controller
//	sobol/      - the cut-HDMR composer
//	det/        - the dynamic event tree manager and trigger files
//	executor/   - bounded worker pool and the Runner loop
//	models/     - analytic test functions and the failure-tree model
//	config/     - YAML/TOML studies, validation and builders
//
// Quick sketch:
//
//	  reference ─► seed grid ─► train ─► pick max impact ─► request points
//	                  ▲                                        │
//	                  └──────────────── collect ◄──────────────┘
//
// The strategy loops until the residual impact drops below the tolerance,
// the run budget is spent or it is stopped.
//
//	go install github.com/katalvlaran/lvlsample/cmd/lvlsample@latest
package lvlsample
