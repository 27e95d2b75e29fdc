// SPDX-License-Identifier: MIT

package refine

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/katalvlaran/lvlsample/impact"
	"github.com/katalvlaran/lvlsample/indexset"
	"github.com/katalvlaran/lvlsample/ledger"
	"github.com/katalvlaran/lvlsample/logging"
	"github.com/katalvlaran/lvlsample/metrics"
	"github.com/katalvlaran/lvlsample/quadrature"
	"github.com/katalvlaran/lvlsample/rom"
	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/space"
	"github.com/katalvlaran/lvlsample/sparsegrid"
)

// Candidate is an active index with its expected impact.
type Candidate struct {
	Index    indexset.MultiIndex
	Expected float64
}

// Controller is the IndexSetRefinement strategy.
type Controller struct {
	opts     options
	space    *space.Space
	targets  []string
	features []string // controller coordinates (plane axes or all features)

	builder  *sparsegrid.Builder
	set      *indexset.Set
	record   *impact.Record
	store    *ledger.Store
	queue    *ledger.Queue
	prefixer *sampler.Prefixer

	state      State
	training   indexset.MultiIndex // candidate whose points are requested
	current    *rom.PCE            // trained on the accepted set
	residual   float64             // running minimum of rawResidual
	raw        float64
	failed     bool // a point of the seed or candidate failed permanently
	errs       []error
	log        *slog.Logger
	metrics    *metrics.Recorder
	stopReason string
}

var _ sampler.Strategy = (*Controller)(nil)

// New builds a controller over sp for the given response targets and queues
// the seed points.
//
// Errors:
//   - ErrNoTargets, space validation errors (sampler.ErrConfiguration).
//   - indexset configuration errors (maxOrder < 1, bad weights or seed).
//   - quadrature.ErrFamily for a family that cannot serve a distribution.
//   - sparsegrid errors while building the seed grid.
func New(sp *space.Space, targets []string, opts ...Option) (*Controller, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if err := sp.Validate(targets...); err != nil {
		return nil, err
	}

	all := sp.Features()
	axes := make([]int, len(all))
	for i := range axes {
		axes[i] = i
	}
	if o.plane != nil {
		axes = o.plane.Axes()
	}
	features := make([]string, len(axes))
	rules := make([]*quadrature.Rule, len(axes))
	weights := make([]float64, len(axes))
	for i, a := range axes {
		if a < 0 || a >= len(all) {
			return nil, sampler.Dimf("refine: plane axis %d outside %d features", a, len(all))
		}
		name := all[a]
		features[i] = name
		r, err := ruleFor(name, sp, o)
		if err != nil {
			return nil, err
		}
		rules[i] = r
		weights[i] = 1
		if w, ok := o.weights[name]; ok {
			weights[i] = w
		}
	}

	builder, err := sparsegrid.NewBuilder(features, rules, sparsegrid.WithKeyDigits(o.keyDigits))
	if err != nil {
		return nil, err
	}
	var set *indexset.Set
	if o.seed != nil {
		set, err = indexset.InitializeWith(features, weights, o.maxOrder, o.seed)
	} else {
		set, err = indexset.Initialize(features, weights, o.maxOrder)
	}
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		store = ledger.NewStore(o.keyDigits)
	}
	prefixer := o.prefixer
	if prefixer == nil {
		prefixer = sampler.NewPrefixer("")
	}
	c := &Controller{
		opts:     o,
		space:    sp,
		targets:  append([]string(nil), targets...),
		features: features,
		builder:  builder,
		set:      set,
		record:   impact.NewRecord(targets),
		store:    store,
		queue:    ledger.NewQueue(store),
		prefixer: prefixer,
		state:    Seeding,
		residual: math.Inf(1),
		raw:      math.Inf(1),
		log:      logging.Component(o.logger, "refine"),
		metrics:  o.metrics,
	}

	seed, err := builder.Build(set.Accepted(), nil)
	if err != nil {
		return nil, err
	}
	if err = c.need(seed); err != nil {
		return nil, err
	}
	c.log.Debug("seeded", "features", features, "points", seed.Len(), "needed", c.queue.Needed())

	return c, nil
}

func ruleFor(name string, sp *space.Space, o options) (*quadrature.Rule, error) {
	if r, ok := o.rules[name]; ok {
		return r, nil
	}
	d, ok := sp.Distribution(name)
	if !ok {
		return nil, sampler.Configf("refine: feature %q has no distribution", name)
	}
	if o.family == "" {
		return quadrature.Default(d), nil
	}

	return quadrature.New(o.family, d)
}

// full maps a controller point to the full space.
func (c *Controller) full(p sampler.Point) (sampler.Point, error) {
	if c.opts.plane == nil {
		return p, nil
	}

	return c.opts.plane.Expand(p)
}

// need queues every node of grid, mapped to the full space.
func (c *Controller) need(grid *sparsegrid.Grid) error {
	nodes := grid.Nodes()
	points := make([]sampler.Point, len(nodes))
	for i, n := range nodes {
		p, err := c.full(n.Point)
		if err != nil {
			return err
		}
		points[i] = p
	}
	for i, n := range nodes {
		c.queue.Need(points[i], n.Weight)
	}

	return nil
}

// values is the trainer's view of the store in controller coordinates.
func (c *Controller) values() rom.Lookup {
	return rom.LookupFunc(func(p sampler.Point) (map[string]float64, bool) {
		fp, err := c.full(p)
		if err != nil {
			return nil, false
		}

		return c.store.Values(fp)
	})
}

// StillReady advances any pending transition and reports whether a needed
// point is waiting for GenerateNextInput. It never blocks and is idempotent.
func (c *Controller) StillReady() (bool, error) {
	if err := c.advance(); err != nil {
		return false, err
	}

	return !c.state.Terminal() && c.queue.Needed() > 0, nil
}

// advance runs the automatic transitions until the controller has to wait
// for points, for its owner (manual mode) or has terminated.
func (c *Controller) advance() error {
	for {
		switch c.state {
		case Seeding:
			if !c.queue.Idle() {
				return nil
			}
			if c.failed {
				c.transition(Failed)
				return nil
			}
			if err := c.trainSeed(); err != nil {
				c.transition(Failed)
				return err
			}
			c.transition(Selecting)

		case WaitingForPoints:
			if !c.queue.Idle() {
				return nil
			}
			c.transition(Training)

		case Training:
			if err := c.trainCandidate(); err != nil {
				c.transition(Failed)
				return err
			}
			c.transition(Selecting)

		case Selecting:
			if c.opts.manual {
				return nil
			}
			if err := c.selectNext(); err != nil {
				return err
			}
			if c.state != WaitingForPoints || !c.queue.Idle() {
				return nil
			}

		default:
			return nil
		}
	}
}

func (c *Controller) transition(to State) {
	if to == c.state {
		return
	}
	c.log.Debug("state", "from", c.state.String(), "to", to.String())
	c.state = to
}

// trainSeed trains on the seed set and records its indices' actual impacts.
func (c *Controller) trainSeed() error {
	accepted := c.set.Accepted()
	pce, err := c.opts.trainer.Train(c.builder, accepted, c.targets, c.values())
	if err != nil {
		return fmt.Errorf("refine: seed training: %w", err)
	}
	c.current = pce
	for _, idx := range accepted {
		c.record.Resolve(idx, c.actual(pce, idx))
	}
	c.reestimate()

	return nil
}

// trainCandidate retrains with the in-flight candidate and accepts it, or
// rejects it when one of its points failed permanently.
func (c *Controller) trainCandidate() error {
	idx := c.training
	c.training = nil
	if c.failed {
		c.failed = false
		if err := c.set.Reject(idx); err != nil {
			return err
		}
		c.record.Drop(idx)
		c.log.Warn("candidate rejected", "index", idx.Key())
		c.reestimate()

		return nil
	}

	pce, err := c.opts.trainer.Train(c.builder, append(c.set.Accepted(), idx), c.targets, c.values())
	if err != nil {
		return fmt.Errorf("refine: training %s: %w", idx, err)
	}
	act := c.actual(pce, idx)
	c.record.Resolve(idx, act)
	if err = c.set.Accept(idx); err != nil {
		return err
	}
	if _, err = c.set.Forward(c.opts.maxOrder); err != nil {
		return err
	}
	c.current = pce
	c.metrics.Accepted(c.opts.samplerType)
	c.log.Info("index accepted", "index", idx.Key(), "actual", act, "existing", c.store.Len())
	c.reestimate()

	return nil
}

func (c *Controller) actual(pce *rom.PCE, idx indexset.MultiIndex) map[string]float64 {
	out := make(map[string]float64, len(c.targets))
	for _, t := range c.targets {
		out[t] = impact.Actual(idx, pce.Coefficients(t))
	}

	return out
}

// reestimate refreshes expected impacts of the frontier and the residual.
func (c *Controller) reestimate() {
	c.record.Estimate(c.set.Active())
	c.raw = c.record.Residual()
	c.residual = math.Min(c.residual, c.raw)
	c.metrics.Residual(c.opts.samplerType, c.residual)
}

// selectNext applies the termination rules, then requests the best candidate.
func (c *Controller) selectNext() error {
	active := c.set.Active()
	if len(active) == 0 {
		c.stop(Resolved, "frontier empty")
		return nil
	}
	if c.raw < c.opts.tolerance {
		c.stop(Converged, "residual below tolerance")
		return nil
	}
	best, score, _ := c.record.Best(active)
	if c.store.Len() >= c.opts.maxRuns {
		c.stop(BudgetExceeded, "existing points reached the budget")
		return nil
	}
	cost, err := c.Cost(best)
	if err != nil {
		return err
	}
	if c.store.Len()+cost > c.opts.maxRuns {
		c.stop(BudgetExceeded, "next index would exceed the budget")
		return nil
	}
	c.log.Debug("selected", "index", best.Key(), "expected", score, "new_points", cost)

	return c.request(best)
}

func (c *Controller) stop(to State, reason string) {
	c.stopReason = reason
	c.log.Info("refinement finished", "state", to.String(), "reason", reason,
		"accepted", len(c.set.Accepted()), "existing", c.store.Len(), "residual", c.residual)
	c.transition(to)
}

// request queues the grid points idx adds and waits for them.
func (c *Controller) request(idx indexset.MultiIndex) error {
	grid, err := c.builder.Build(c.set.Accepted(), idx)
	if err != nil {
		return err
	}
	if err = c.need(grid); err != nil {
		return err
	}
	c.training = idx.Clone()
	c.transition(WaitingForPoints)

	return nil
}

// Cost returns how many new model runs refining idx would need.
func (c *Controller) Cost(idx indexset.MultiIndex) (int, error) {
	grid, err := c.builder.Build(c.set.Accepted(), idx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range grid.Points() {
		fp, err := c.full(p)
		if err != nil {
			return 0, err
		}
		if !c.store.Has(fp) {
			n++
		}
	}

	return n, nil
}

// Refine requests the points of the active index idx (manual mode, or any
// mode while Selecting and idle).
//
// Errors: ErrNotSelecting, indexset.ErrNotActive.
func (c *Controller) Refine(idx indexset.MultiIndex) error {
	if c.state != Selecting || !c.queue.Idle() {
		return fmt.Errorf("%w (state %s)", ErrNotSelecting, c.state)
	}
	if !c.set.IsActive(idx) {
		return fmt.Errorf("%w: %s", indexset.ErrNotActive, idx)
	}
	if err := c.request(idx); err != nil {
		return err
	}

	return c.advance()
}

// GenerateNextInput pops the oldest needed point and returns its model input.
//
// Errors: ErrNothingNeeded; space errors for a malformed point.
func (c *Controller) GenerateNextInput() (sampler.Input, error) {
	if c.state.Terminal() || c.queue.Needed() == 0 {
		return sampler.Input{}, ErrNothingNeeded
	}
	p, _ := c.queue.Pop(c.prefixer.Next())
	vars, pbs, prob, err := c.space.Vars(p.Point)
	if err != nil {
		return sampler.Input{}, err
	}
	c.metrics.Submitted(c.opts.samplerType)

	return sampler.Input{
		Prefix:            p.Prefix,
		SamplerType:       c.opts.samplerType,
		Point:             p.Point.Clone(),
		SampledVars:       vars,
		SampledVarsPb:     pbs,
		PointProbability:  prob,
		ProbabilityWeight: p.Weight,
		ConditionalPb:     1,
	}, nil
}

// Owns reports whether prefix is a run this controller submitted.
func (c *Controller) Owns(prefix string) bool { return c.queue.Owns(prefix) }

// OnPointsCollected records finished runs. Failed runs are retried up to
// MaxAttempts dispatches; a permanent failure rejects the candidate (or fails
// seeding) and is kept in Errors. Unknown prefixes are reported as
// ledger.ErrUnknownRun after every known result was processed.
func (c *Controller) OnPointsCollected(results []sampler.Result) error {
	var unknown []error
	for _, r := range results {
		if !c.queue.Owns(r.Prefix) {
			unknown = append(unknown, fmt.Errorf("%w: %q", ledger.ErrUnknownRun, r.Prefix))
			continue
		}
		if r.Err == nil {
			if _, err := c.queue.Complete(r.Prefix, r.Outputs.Values); err != nil {
				return err
			}
			c.metrics.Collected(c.opts.samplerType, metrics.StatusOK)
			continue
		}
		p, retry, err := c.queue.Fail(r.Prefix, c.opts.maxAttempts)
		if err != nil {
			return err
		}
		if retry {
			c.metrics.Collected(c.opts.samplerType, metrics.StatusRetried)
			c.log.Warn("run failed, retrying", "prefix", r.Prefix, "point", p.Point.Key(), "err", r.Err)
			continue
		}
		c.metrics.Collected(c.opts.samplerType, metrics.StatusFailed)
		vars, _, _, _ := c.space.Vars(p.Point)
		evalErr := &sampler.EvaluationError{
			Prefix: r.Prefix, Point: p.Point, Vars: vars, Attempts: p.Attempts, Cause: r.Err,
		}
		c.errs = append(c.errs, evalErr)
		c.log.Warn("run failed permanently", "prefix", r.Prefix, "point", p.Point.Key(), "err", r.Err)
		if !c.state.Terminal() {
			c.failed = true
			c.queue.DropNeeded()
		}
	}
	if err := c.advance(); err != nil {
		return err
	}

	return errors.Join(unknown...)
}

// Done reports whether a terminal state was reached.
func (c *Controller) Done() bool { return c.state.Terminal() }

// Stop ends the refinement keeping the accepted set. Needed points are
// discarded; results of runs already submitted are still recorded.
func (c *Controller) Stop() {
	if c.state.Terminal() {
		return
	}
	c.queue.DropNeeded()
	if c.current == nil {
		c.stop(Failed, "stopped before the seed was trained")
		return
	}
	c.training = nil
	c.stop(Stopped, "stop requested")
}

// Finalize returns the surrogate trained on the accepted indices only.
//
// Errors: ErrNoSurrogate when the seed never trained.
func (c *Controller) Finalize() (*rom.PCE, error) {
	if c.current == nil {
		return nil, ErrNoSurrogate
	}

	return c.current, nil
}

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Reason returns why the controller terminated ("" while running).
func (c *Controller) Reason() string { return c.stopReason }

// Residual returns the running minimum of the global residual (+Inf before
// the seed is trained). It never increases.
func (c *Controller) Residual() float64 { return c.residual }

// RawResidual returns the residual of the current frontier.
func (c *Controller) RawResidual() float64 { return c.raw }

// Errors returns the permanent evaluation failures seen so far.
func (c *Controller) Errors() []error { return append([]error(nil), c.errs...) }

// Features returns the controller's coordinates.
func (c *Controller) Features() []string { return append([]string(nil), c.features...) }

// Targets returns the response names.
func (c *Controller) Targets() []string { return append([]string(nil), c.targets...) }

// Accepted returns the accepted indices in acceptance order.
func (c *Controller) Accepted() []indexset.MultiIndex { return c.set.Accepted() }

// Active returns the frontier.
func (c *Controller) Active() []indexset.MultiIndex { return c.set.Active() }

// Training returns the in-flight candidate, or nil.
func (c *Controller) Training() indexset.MultiIndex { return c.training.Clone() }

// Idle reports that the controller waits for a selection and has no
// outstanding points (manual mode).
func (c *Controller) Idle() bool { return c.state == Selecting && c.queue.Idle() }

// Needed returns the number of points waiting for GenerateNextInput.
func (c *Controller) Needed() int { return c.queue.Needed() }

// Pending reports whether runs are needed or submitted.
func (c *Controller) Pending() bool { return !c.queue.Idle() }

// Candidates returns the frontier with expected impacts, best first (ties
// by lexicographic index).
func (c *Controller) Candidates() []Candidate {
	active := c.set.Active()
	out := make([]Candidate, 0, len(active))
	for _, idx := range active {
		out = append(out, Candidate{Index: idx, Expected: c.record.Expected(idx)})
	}
	slices.SortStableFunc(out, func(a, b Candidate) int { return cmp.Compare(b.Expected, a.Expected) })

	return out
}

// BestCandidate returns the highest-impact active index.
func (c *Controller) BestCandidate() (Candidate, bool) {
	idx, score, ok := c.record.Best(c.set.Active())
	if !ok {
		return Candidate{}, false
	}

	return Candidate{Index: idx, Expected: score}, true
}

// Store returns the existing-points store.
func (c *Controller) Store() *ledger.Store { return c.store }
