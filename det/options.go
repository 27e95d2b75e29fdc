// SPDX-License-Identifier: MIT

package det

import (
	"log/slog"

	"github.com/katalvlaran/lvlsample/metrics"
)

// Defaults.
const (
	// DefaultRootName is the prefix of the root branch; children append "-<n>".
	DefaultRootName = "1"

	// DefaultMaxRuns bounds the number of branches started.
	DefaultMaxRuns = 10000

	// DefaultMaxAttempts is how many times a branch is dispatched before it fails.
	DefaultMaxAttempts = 2
)

const (
	panicRootProbability = "det: WithRootProbability: probability must be in (0,1]"
	panicMaxRuns         = "det: WithMaxRuns: budget must be >= 1"
	panicMaxDepth        = "det: WithMaxDepth: depth must be >= 0"
	panicMaxAttempts     = "det: WithMaxAttempts: attempts must be >= 1"
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	rootPb      float64
	rootName    string
	maxRuns     int
	maxDepth    int // 0: unlimited
	maxAttempts int
	logger      *slog.Logger
	metrics     *metrics.Recorder
}

func defaultOptions() options {
	return options{
		rootPb:      1,
		rootName:    DefaultRootName,
		maxRuns:     DefaultMaxRuns,
		maxAttempts: DefaultMaxAttempts,
	}
}

// WithRootProbability sets the probability of reaching the root branch.
func WithRootProbability(p float64) Option {
	if !(p > 0 && p <= 1) {
		panic(panicRootProbability)
	}

	return func(o *options) { o.rootPb = p }
}

// WithRootName sets the root branch prefix.
func WithRootName(name string) Option { return func(o *options) { o.rootName = name } }

// WithMaxRuns bounds how many branches are started. Reaching it has the
// effect of Stop once the running branches are collected.
func WithMaxRuns(n int) Option {
	if n < 1 {
		panic(panicMaxRuns)
	}

	return func(o *options) { o.maxRuns = n }
}

// WithMaxDepth truncates the tree: children deeper than n are created as
// Truncated leaves and never run. 0 disables the limit.
func WithMaxDepth(n int) Option {
	if n < 0 {
		panic(panicMaxDepth)
	}

	return func(o *options) { o.maxDepth = n }
}

// WithMaxAttempts sets how many dispatches a branch gets.
func WithMaxAttempts(n int) Option {
	if n < 1 {
		panic(panicMaxAttempts)
	}

	return func(o *options) { o.maxAttempts = n }
}

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics injects a metrics recorder.
func WithMetrics(m *metrics.Recorder) Option { return func(o *options) { o.metrics = m } }
