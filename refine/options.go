// SPDX-License-Identifier: MIT

package refine

import (
	"log/slog"
	"math"

	"github.com/katalvlaran/lvlsample/indexset"
	"github.com/katalvlaran/lvlsample/ledger"
	"github.com/katalvlaran/lvlsample/metrics"
	"github.com/katalvlaran/lvlsample/quadrature"
	"github.com/katalvlaran/lvlsample/rom"
	"github.com/katalvlaran/lvlsample/sampler"
)

// Defaults.
const (
	// DefaultTolerance stops refinement once the residual drops below it.
	DefaultTolerance = 1e-4

	// DefaultMaxRuns bounds the number of existing points.
	DefaultMaxRuns = 1000

	// DefaultMaxOrder caps each polynomial axis order.
	DefaultMaxOrder = 8

	// DefaultMaxAttempts is how many times one point is dispatched before the
	// candidate that needs it is rejected (one retry).
	DefaultMaxAttempts = 2
)

const (
	panicTolerance   = "refine: WithTolerance: tolerance must be finite and >= 0"
	panicMaxRuns     = "refine: WithMaxRuns: budget must be >= 1"
	panicMaxAttempts = "refine: WithMaxAttempts: attempts must be >= 1"
	panicNil         = "refine: option argument must not be nil"
)

// Plane embeds the controller's own coordinates into the full variable space.
// A controller built with a Plane refines only the axes the plane exposes and
// keeps every other coordinate at the plane's anchor.
type Plane interface {
	// Axes returns the full-space positions of the plane's coordinates.
	Axes() []int
	// Expand maps a plane point to the full space.
	Expand(sub sampler.Point) (sampler.Point, error)
	// Extract maps a full point onto the plane.
	Extract(full sampler.Point) (sampler.Point, error)
}

// Option configures a Controller. Constructors panic only on nonsensical values.
type Option func(*options)

type options struct {
	tolerance   float64
	maxRuns     int
	maxOrder    int
	maxAttempts int
	weights     map[string]float64
	family      quadrature.Family
	rules       map[string]*quadrature.Rule
	trainer     rom.Trainer
	store       *ledger.Store
	seed        []indexset.MultiIndex
	manual      bool
	plane       Plane
	prefixer    *sampler.Prefixer
	samplerType string
	keyDigits   int
	logger      *slog.Logger
	metrics     *metrics.Recorder
}

func defaultOptions() options {
	return options{
		tolerance:   DefaultTolerance,
		maxRuns:     DefaultMaxRuns,
		maxOrder:    DefaultMaxOrder,
		maxAttempts: DefaultMaxAttempts,
		trainer:     rom.Projection{},
		samplerType: sampler.TypeAdaptiveSparseGrid,
		keyDigits:   sampler.DefaultKeyDigits,
	}
}

// WithTolerance sets the convergence tolerance on the residual.
func WithTolerance(tol float64) Option {
	if tol < 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
		panic(panicTolerance)
	}

	return func(o *options) { o.tolerance = tol }
}

// WithMaxRuns sets the run budget.
func WithMaxRuns(n int) Option {
	if n < 1 {
		panic(panicMaxRuns)
	}

	return func(o *options) { o.maxRuns = n }
}

// WithMaxOrder caps each axis order. Values < 1 are reported by New as
// indexset.ErrMaxOrder.
func WithMaxOrder(n int) Option { return func(o *options) { o.maxOrder = n } }

// WithMaxAttempts sets how many dispatches a point gets.
func WithMaxAttempts(n int) Option {
	if n < 1 {
		panic(panicMaxAttempts)
	}

	return func(o *options) { o.maxAttempts = n }
}

// WithImportanceWeights sets per-feature importance weights (missing => 1).
func WithImportanceWeights(w map[string]float64) Option {
	return func(o *options) { o.weights = w }
}

// WithQuadrature forces one family for every feature that has no explicit rule.
func WithQuadrature(f quadrature.Family) Option { return func(o *options) { o.family = f } }

// WithRules sets explicit per-feature rules.
func WithRules(rules map[string]*quadrature.Rule) Option {
	return func(o *options) { o.rules = rules }
}

// WithTrainer sets the surrogate trainer (default rom.Projection).
func WithTrainer(t rom.Trainer) Option {
	if t == nil {
		panic(panicNil)
	}

	return func(o *options) { o.trainer = t }
}

// WithStore shares an existing-points store between controllers.
func WithStore(s *ledger.Store) Option {
	if s == nil {
		panic(panicNil)
	}

	return func(o *options) { o.store = s }
}

// WithSeed seeds the accepted set (must be downward closed and hold the zero index).
func WithSeed(seed []indexset.MultiIndex) Option { return func(o *options) { o.seed = seed } }

// WithManual hands candidate selection to the owner (see Refine).
func WithManual() Option { return func(o *options) { o.manual = true } }

// WithPlane restricts the controller to a cut plane of the variable space.
func WithPlane(p Plane) Option {
	if p == nil {
		panic(panicNil)
	}

	return func(o *options) { o.plane = p }
}

// WithPrefixer shares a run-prefix generator.
func WithPrefixer(p *sampler.Prefixer) Option {
	if p == nil {
		panic(panicNil)
	}

	return func(o *options) { o.prefixer = p }
}

// WithSamplerType overrides the SamplerType label of generated inputs.
func WithSamplerType(s string) Option { return func(o *options) { o.samplerType = s } }

// WithKeyDigits sets the point-dedup precision of an owned store and the grid.
func WithKeyDigits(d int) Option { return func(o *options) { o.keyDigits = d } }

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics injects a metrics recorder.
func WithMetrics(m *metrics.Recorder) Option { return func(o *options) { o.metrics = m } }
