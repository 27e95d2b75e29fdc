// SPDX-License-Identifier: MIT

package sobol

import (
	"log/slog"
	"math"

	"github.com/katalvlaran/lvlsample/metrics"
	"github.com/katalvlaran/lvlsample/quadrature"
	"github.com/katalvlaran/lvlsample/rom"
	"github.com/katalvlaran/lvlsample/sampler"
)

// Defaults.
const (
	// DefaultTolerance stops the composition once the residual drops below it.
	DefaultTolerance = 1e-4

	// DefaultMaxRuns bounds the number of existing points.
	DefaultMaxRuns = 1000

	// DefaultMaxOrder caps each polynomial axis order inside a subset.
	DefaultMaxOrder = 8

	// DefaultMaxSobolOrder caps subset cardinality.
	DefaultMaxSobolOrder = 2

	// DefaultProgress balances polynomial refinement and new subsets.
	DefaultProgress = 1.0
)

const (
	panicTolerance = "sobol: WithTolerance: tolerance must be finite and >= 0"
	panicMaxRuns   = "sobol: WithMaxRuns: budget must be >= 1"
	panicProgress  = "sobol: WithProgress: progress parameter must be in [0,2]"
	panicNil       = "sobol: option argument must not be nil"
)

// Option configures a Composer.
type Option func(*options)

type options struct {
	tolerance     float64
	maxRuns       int
	maxOrder      int
	maxSobolOrder int
	maxAttempts   int
	progress      float64
	weights       map[string]float64
	family        quadrature.Family
	trainer       rom.Trainer
	keyDigits     int
	logger        *slog.Logger
	metrics       *metrics.Recorder
}

func defaultOptions() options {
	return options{
		tolerance:     DefaultTolerance,
		maxRuns:       DefaultMaxRuns,
		maxOrder:      DefaultMaxOrder,
		maxSobolOrder: DefaultMaxSobolOrder,
		maxAttempts:   2,
		progress:      DefaultProgress,
		trainer:       rom.Projection{},
		keyDigits:     sampler.DefaultKeyDigits,
	}
}

// WithTolerance sets the convergence tolerance on the residual.
func WithTolerance(tol float64) Option {
	if tol < 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
		panic(panicTolerance)
	}

	return func(o *options) { o.tolerance = tol }
}

// WithMaxRuns sets the run budget shared by every subset.
func WithMaxRuns(n int) Option {
	if n < 1 {
		panic(panicMaxRuns)
	}

	return func(o *options) { o.maxRuns = n }
}

// WithMaxOrder caps each polynomial axis order inside a subset.
func WithMaxOrder(n int) Option { return func(o *options) { o.maxOrder = n } }

// WithMaxSobolOrder caps subset cardinality. Values < 1 are reported by New
// as ErrSobolOrder; values above the feature count are clamped.
func WithMaxSobolOrder(n int) Option { return func(o *options) { o.maxSobolOrder = n } }

// WithMaxAttempts sets how many dispatches a point gets before its candidate
// (or its subset, during seeding) is dropped.
func WithMaxAttempts(n int) Option { return func(o *options) { o.maxAttempts = n } }

// WithProgress sets the progress parameter p in [0,2]: 0 refines existing
// subsets only while any polynomial candidate exists, 2 adds subsets first.
func WithProgress(p float64) Option {
	if !(p >= 0 && p <= 2) {
		panic(panicProgress)
	}

	return func(o *options) { o.progress = p }
}

// WithImportanceWeights sets per-feature importance weights of the subset index sets.
func WithImportanceWeights(w map[string]float64) Option {
	return func(o *options) { o.weights = w }
}

// WithQuadrature forces one quadrature family for every feature.
func WithQuadrature(f quadrature.Family) Option { return func(o *options) { o.family = f } }

// WithTrainer sets the surrogate trainer of every subset.
func WithTrainer(t rom.Trainer) Option {
	if t == nil {
		panic(panicNil)
	}

	return func(o *options) { o.trainer = t }
}

// WithKeyDigits sets the point-dedup precision.
func WithKeyDigits(d int) Option { return func(o *options) { o.keyDigits = d } }

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics injects a metrics recorder.
func WithMetrics(m *metrics.Recorder) Option { return func(o *options) { o.metrics = m } }
