// SPDX-License-Identifier: MIT

package sobol

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/katalvlaran/lvlsample/indexset"
	"github.com/katalvlaran/lvlsample/ledger"
	"github.com/katalvlaran/lvlsample/logging"
	"github.com/katalvlaran/lvlsample/metrics"
	"github.com/katalvlaran/lvlsample/quadrature"
	"github.com/katalvlaran/lvlsample/refine"
	"github.com/katalvlaran/lvlsample/rom"
	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/space"
)

// ActionKind distinguishes the two competing refinements.
type ActionKind int

// Action kinds.
const (
	ActionPolynomial ActionKind = iota // refine an accepted subset's frontier
	ActionSubset                       // add a proposed subset
)

// String implements fmt.Stringer.
func (k ActionKind) String() string {
	if k == ActionSubset {
		return "subset"
	}

	return "polynomial"
}

// Action is one candidate step of the composer.
type Action struct {
	Kind   ActionKind
	Subset Subset
	Index  indexset.MultiIndex // polynomial actions only
	Score  float64
}

// Proposal is a subset not yet accepted and its expected impact.
type Proposal struct {
	Subset   Subset
	Expected float64
}

// SubsetStatus describes a subset known to the composer.
type SubsetStatus struct {
	Subset   Subset
	Names    []string
	Actual   float64
	Accepted bool // false while the subset is seeding
}

type component struct {
	subset   Subset
	ctrl     *refine.Controller // nil for the empty subset
	accepted bool
	actual   float64
}

// Composer is the SubsetRefinement strategy.
type Composer struct {
	opts     options
	space    *space.Space
	features []string
	targets  []string
	rules    map[string]*quadrature.Rule
	ruleList []*quadrature.Rule
	ref      sampler.Point

	store    *ledger.Store
	refQueue *ledger.Queue
	prefixer *sampler.Prefixer

	constant  *rom.PCE
	comps     []*component // creation order; comps[0] is the empty subset once seeded
	byKey     map[string]*component
	proposals map[string]Proposal
	rejected  map[string]bool
	retired   []*component // discarded on Stop; absorbs late results

	state      refine.State
	pending    *component
	kind       ActionKind
	residual   float64
	raw        float64
	errs       []error
	stopReason string
	log        *slog.Logger
	metrics    *metrics.Recorder
}

var _ sampler.Strategy = (*Composer)(nil)

// New builds a composer over sp and queues the reference point.
//
// Errors: ErrNoTargets, ErrSobolOrder, space validation errors and
// quadrature.ErrFamily (all sampler.ErrConfiguration).
func New(sp *space.Space, targets []string, opts ...Option) (*Composer, error) {
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
	if o.maxSobolOrder < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrSobolOrder, o.maxSobolOrder)
	}
	if o.maxOrder < 1 {
		return nil, fmt.Errorf("%w (got %d)", indexset.ErrMaxOrder, o.maxOrder)
	}
	features := sp.Features()
	o.maxSobolOrder = min(o.maxSobolOrder, len(features))

	c := &Composer{
		opts:      o,
		space:     sp,
		features:  features,
		targets:   append([]string(nil), targets...),
		rules:     make(map[string]*quadrature.Rule, len(features)),
		ref:       sp.Reference(),
		store:     ledger.NewStore(o.keyDigits),
		prefixer:  sampler.NewPrefixer(""),
		byKey:     make(map[string]*component),
		proposals: make(map[string]Proposal),
		rejected:  make(map[string]bool),
		state:     refine.Seeding,
		residual:  math.Inf(1),
		raw:       math.Inf(1),
		log:       logging.Component(o.logger, "sobol"),
		metrics:   o.metrics,
	}
	for _, f := range features {
		d, _ := sp.Distribution(f)
		r := quadrature.Default(d)
		if o.family != "" {
			var err error
			if r, err = quadrature.New(o.family, d); err != nil {
				return nil, err
			}
		}
		c.rules[f] = r
		c.ruleList = append(c.ruleList, r)
	}
	c.refQueue = ledger.NewQueue(c.store)
	c.refQueue.Need(c.ref, 1)
	c.log.Debug("reference queued", "point", c.ref.Key())

	return c, nil
}

// StillReady advances pending transitions and reports whether a point is
// waiting for GenerateNextInput. Idempotent.
func (c *Composer) StillReady() (bool, error) {
	if err := c.advance(); err != nil {
		return false, err
	}

	return !c.state.Terminal() && c.needed() > 0, nil
}

func (c *Composer) needed() int {
	n := c.refQueue.Needed()
	for _, comp := range c.comps {
		if comp.ctrl != nil {
			n += comp.ctrl.Needed()
		}
	}

	return n
}

func (c *Composer) advance() error {
	for {
		switch c.state {
		case refine.Seeding:
			if !c.refQueue.Idle() {
				return nil
			}
			values, ok := c.store.Values(c.ref)
			if !ok {
				c.finish(refine.Failed, "reference point failed")
				return nil
			}
			if err := c.seed(values); err != nil {
				c.finish(refine.Failed, "reference surrogate")
				return err
			}
			c.state = refine.Selecting

		case refine.WaitingForPoints:
			done, err := c.settlePending()
			if err != nil || !done {
				return err
			}
			c.state = refine.Selecting

		case refine.Selecting:
			if err := c.selectNext(); err != nil {
				return err
			}
			if c.state != refine.WaitingForPoints {
				return nil
			}

		default:
			return nil
		}
	}
}

// seed installs the constant component from the reference outputs.
func (c *Composer) seed(values map[string]float64) error {
	coeffs := make(map[string][]float64, len(c.targets))
	for _, t := range c.targets {
		v, ok := values[t]
		if !ok {
			return fmt.Errorf("%w: %q at the reference point", rom.ErrMissingTarget, t)
		}
		coeffs[t] = []float64{v}
	}
	pce, err := rom.NewPCE(nil, nil, c.targets, []indexset.MultiIndex{{}}, coeffs)
	if err != nil {
		return err
	}
	c.constant = pce
	empty := &component{subset: Subset{}, accepted: true, actual: 1}
	c.comps = append(c.comps, empty)
	c.byKey[empty.subset.Key()] = empty
	c.GenerateSubsets(empty.subset)

	return c.recompute()
}

// settlePending reports whether the in-flight action finished and applies it.
func (c *Composer) settlePending() (bool, error) {
	comp := c.pending
	switch c.kind {
	case ActionSubset:
		switch {
		case comp.ctrl.State() == refine.Failed:
			c.reject(comp)
		case comp.ctrl.Idle():
			comp.accepted = true
			c.metrics.Accepted(sampler.TypeAdaptiveSobol)
			c.log.Info("subset accepted", "subset", comp.subset.Key(), "names", comp.subset.Names(c.features),
				"existing", c.store.Len())
			c.GenerateSubsets(comp.subset)
		default:
			return false, nil
		}
	case ActionPolynomial:
		if !comp.ctrl.Idle() && !comp.ctrl.Done() {
			return false, nil
		}
	}
	c.pending = nil

	return true, c.recompute()
}

func (c *Composer) reject(comp *component) {
	key := comp.subset.Key()
	c.rejected[key] = true
	delete(c.byKey, key)
	c.comps = slices.DeleteFunc(c.comps, func(x *component) bool { return x == comp })
	c.retired = append(c.retired, comp)
	c.errs = append(c.errs, comp.ctrl.Errors()...)
	c.log.Warn("subset rejected", "subset", key, "names", comp.subset.Names(c.features))
}

// GenerateSubsets proposes every cardinality-(k+1) superset of the accepted
// subset u whose k-subsets are all accepted, within MaxSobolOrder. It returns
// the new proposals; their expected impacts are set by the next recompute.
func (c *Composer) GenerateSubsets(u Subset) []Proposal {
	var out []Proposal
	if len(u)+1 > c.opts.maxSobolOrder {
		return nil
	}
	for j := range c.features {
		if u.Contains(j) {
			continue
		}
		v := u.With(j)
		key := v.Key()
		if _, ok := c.byKey[key]; ok || c.rejected[key] {
			continue
		}
		if _, ok := c.proposals[key]; ok {
			continue
		}
		if !c.parentsAccepted(v) {
			continue
		}
		p := Proposal{Subset: v, Expected: c.expected(v)}
		c.proposals[key] = p
		out = append(out, p)
	}

	return out
}

func (c *Composer) parentsAccepted(v Subset) bool {
	for _, p := range v.Parents() {
		comp, ok := c.byKey[p.Key()]
		if !ok || !comp.accepted {
			return false
		}
	}

	return true
}

// expected is the product of the actual impacts of v's immediate sub-subsets.
func (c *Composer) expected(v Subset) float64 {
	e := 1.0
	for _, p := range v.Parents() {
		if comp, ok := c.byKey[p.Key()]; ok {
			e *= comp.actual
		}
	}

	return e
}

// cut returns the cut surrogate g_u of an accepted component.
func (c *Composer) cut(comp *component) (*rom.PCE, error) {
	if comp.ctrl == nil {
		return c.constant, nil
	}

	return comp.ctrl.Finalize()
}

// hdmrComponent builds f_u = Σ_{v ⊆ u} (-1)^{|u|-|v|} g_v over u's features.
func (c *Composer) hdmrComponent(u Subset) (*rom.PCE, error) {
	var terms []rom.Term
	for _, comp := range c.comps {
		if !comp.accepted || !comp.subset.Within(u) {
			continue
		}
		g, err := c.cut(comp)
		if err != nil {
			return nil, err
		}
		w := 1.0
		if (len(u)-len(comp.subset))%2 == 1 {
			w = -1
		}
		terms = append(terms, rom.Term{Weight: w, Surrogate: g})
	}
	rules := make([]*quadrature.Rule, len(u))
	for i, name := range u.Names(c.features) {
		rules[i] = c.rules[name]
	}

	return rom.Sum(u.Names(c.features), rules, c.targets, terms...)
}

// recompute refreshes subset actual impacts, proposal expectations and the residual.
func (c *Composer) recompute() error {
	type share struct {
		comp *component
		vars map[string]float64
	}
	var shares []share
	total := make(map[string]float64, len(c.targets))
	for _, comp := range c.comps {
		if !comp.accepted || comp.ctrl == nil {
			continue
		}
		f, err := c.hdmrComponent(comp.subset)
		if err != nil {
			return err
		}
		s := share{comp: comp, vars: make(map[string]float64, len(c.targets))}
		for _, t := range c.targets {
			v := f.Variance(t)
			s.vars[t] = v
			total[t] += v
		}
		shares = append(shares, s)
	}
	for _, s := range shares {
		a := 0.0
		for _, t := range c.targets {
			if total[t] > 0 {
				a = max(a, s.vars[t]/total[t])
			}
		}
		s.comp.actual = a
	}
	for key, p := range c.proposals {
		p.Expected = c.expected(p.Subset)
		c.proposals[key] = p
	}

	raw := 0.0
	for _, p := range c.proposals {
		raw += p.Expected
	}
	for _, comp := range c.comps {
		if comp.accepted && comp.ctrl != nil && len(comp.ctrl.Active()) > 0 {
			raw += comp.actual * comp.ctrl.RawResidual()
		}
	}
	c.raw = raw
	c.residual = math.Min(c.residual, raw)
	c.metrics.Residual(sampler.TypeAdaptiveSobol, c.residual)

	return nil
}

// SelectNextAction returns the highest-scoring action: polynomial refinement
// scores (subsetActual × polyExpected)^p, a new subset subsetExpected^(2-p).
// Ties go to polynomial refinement; within a kind, to the earliest accepted
// subset or the smallest proposed subset.
func (c *Composer) SelectNextAction() (Action, bool) {
	p := c.opts.progress
	var poly, sub Action
	hasPoly, hasSub := false, false
	for _, comp := range c.comps {
		if !comp.accepted || comp.ctrl == nil || !comp.ctrl.Idle() {
			continue
		}
		cand, ok := comp.ctrl.BestCandidate()
		if !ok {
			continue
		}
		score := math.Pow(comp.actual*cand.Expected, p)
		if !hasPoly || score > poly.Score {
			poly = Action{Kind: ActionPolynomial, Subset: comp.subset, Index: cand.Index, Score: score}
			hasPoly = true
		}
	}
	for _, prop := range c.Proposals() {
		score := math.Pow(prop.Expected, 2-p)
		if !hasSub || score > sub.Score {
			sub = Action{Kind: ActionSubset, Subset: prop.Subset, Score: score}
			hasSub = true
		}
	}
	switch {
	case hasPoly && (!hasSub || poly.Score >= sub.Score):
		return poly, true
	case hasSub:
		return sub, true
	}

	return Action{}, false
}

func (c *Composer) selectNext() error {
	act, ok := c.SelectNextAction()
	if !ok {
		c.finish(refine.Resolved, "no action left")
		return nil
	}
	if c.raw < c.opts.tolerance {
		c.finish(refine.Converged, "residual below tolerance")
		return nil
	}
	if c.store.Len() >= c.opts.maxRuns {
		c.finish(refine.BudgetExceeded, "existing points reached the budget")
		return nil
	}

	switch act.Kind {
	case ActionPolynomial:
		comp := c.byKey[act.Subset.Key()]
		cost, err := comp.ctrl.Cost(act.Index)
		if err != nil {
			return err
		}
		if c.store.Len()+cost > c.opts.maxRuns {
			c.finish(refine.BudgetExceeded, "next action would exceed the budget")
			return nil
		}
		c.log.Debug("refining subset", "subset", act.Subset.Key(), "index", act.Index.Key(), "score", act.Score)
		if err = comp.ctrl.Refine(act.Index); err != nil {
			return err
		}
		c.pending, c.kind = comp, ActionPolynomial

	case ActionSubset:
		comp, err := c.newComponent(act.Subset)
		if err != nil {
			return err
		}
		if c.store.Len()+comp.ctrl.Needed() > c.opts.maxRuns {
			c.finish(refine.BudgetExceeded, "next subset would exceed the budget")
			return nil
		}
		c.log.Debug("adding subset", "subset", act.Subset.Key(), "score", act.Score)
		delete(c.proposals, act.Subset.Key())
		c.comps = append(c.comps, comp)
		c.byKey[act.Subset.Key()] = comp
		c.pending, c.kind = comp, ActionSubset
		// the seed may be fully known already
		if _, err = comp.ctrl.StillReady(); err != nil {
			return err
		}
	}
	c.state = refine.WaitingForPoints

	return nil
}

// newComponent builds the manual controller of subset u on its cut plane,
// seeded with {0,1}^k.
func (c *Composer) newComponent(u Subset) (*component, error) {
	plane, err := NewCutPlane(u, c.ref)
	if err != nil {
		return nil, err
	}
	seed := []indexset.MultiIndex{indexset.Zero(len(u))}
	for k := range u {
		n := len(seed)
		for i := 0; i < n; i++ {
			m := seed[i].Clone()
			m[k] = 1
			seed = append(seed, m)
		}
	}
	opts := []refine.Option{
		refine.WithPlane(plane),
		refine.WithManual(),
		refine.WithSeed(seed),
		refine.WithStore(c.store),
		refine.WithPrefixer(c.prefixer),
		refine.WithSamplerType(sampler.TypeAdaptiveSobol),
		refine.WithRules(c.rules),
		refine.WithTrainer(c.opts.trainer),
		refine.WithMaxOrder(c.opts.maxOrder),
		refine.WithMaxAttempts(c.opts.maxAttempts),
		refine.WithImportanceWeights(c.opts.weights),
		refine.WithKeyDigits(c.opts.keyDigits),
		refine.WithLogger(c.log.With(slog.String("subset", u.Key()))),
		refine.WithMetrics(c.metrics),
	}
	ctrl, err := refine.New(c.space, c.targets, opts...)
	if err != nil {
		return nil, err
	}

	return &component{subset: u, ctrl: ctrl}, nil
}

// GenerateNextInput returns the next needed point: the reference first, then
// the in-flight subset's points.
//
// Errors: ErrNothingNeeded.
func (c *Composer) GenerateNextInput() (sampler.Input, error) {
	if c.state.Terminal() {
		return sampler.Input{}, ErrNothingNeeded
	}
	if c.refQueue.Needed() > 0 {
		p, _ := c.refQueue.Pop(c.prefixer.Next())
		vars, pbs, prob, err := c.space.Vars(p.Point)
		if err != nil {
			return sampler.Input{}, err
		}
		c.metrics.Submitted(sampler.TypeAdaptiveSobol)

		return sampler.Input{
			Prefix:            p.Prefix,
			SamplerType:       sampler.TypeAdaptiveSobol,
			Point:             p.Point.Clone(),
			SampledVars:       vars,
			SampledVarsPb:     pbs,
			PointProbability:  prob,
			ProbabilityWeight: p.Weight,
			ConditionalPb:     1,
		}, nil
	}
	for _, comp := range c.comps {
		if comp.ctrl != nil && comp.ctrl.Needed() > 0 {
			return comp.ctrl.GenerateNextInput()
		}
	}

	return sampler.Input{}, ErrNothingNeeded
}

// OnPointsCollected routes results to the reference queue or the subset
// controller that submitted them.
func (c *Composer) OnPointsCollected(results []sampler.Result) error {
	batches := make(map[*component][]sampler.Result)
	var order []*component
	var errs []error
	owners := append(append([]*component(nil), c.comps...), c.retired...)
	for _, r := range results {
		if c.refQueue.Owns(r.Prefix) {
			if err := c.collectReference(r); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		idx := slices.IndexFunc(owners, func(x *component) bool { return x.ctrl != nil && x.ctrl.Owns(r.Prefix) })
		if idx < 0 {
			errs = append(errs, fmt.Errorf("%w: %q", ledger.ErrUnknownRun, r.Prefix))
			continue
		}
		comp := owners[idx]
		if _, seen := batches[comp]; !seen {
			order = append(order, comp)
		}
		batches[comp] = append(batches[comp], r)
	}
	for _, comp := range order {
		if err := comp.ctrl.OnPointsCollected(batches[comp]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.advance(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// collectReference settles one run of the reference point.
//
// Errors: ledger.ErrUnknownRun.
func (c *Composer) collectReference(r sampler.Result) error {
	if r.Err == nil {
		if _, err := c.refQueue.Complete(r.Prefix, r.Outputs.Values); err != nil {
			return err
		}
		c.metrics.Collected(sampler.TypeAdaptiveSobol, metrics.StatusOK)

		return nil
	}
	p, retry, err := c.refQueue.Fail(r.Prefix, c.opts.maxAttempts)
	if err != nil {
		return err
	}
	if retry {
		c.metrics.Collected(sampler.TypeAdaptiveSobol, metrics.StatusRetried)
		c.log.Warn("reference run failed, retrying", "prefix", r.Prefix, "err", r.Err)

		return nil
	}
	c.metrics.Collected(sampler.TypeAdaptiveSobol, metrics.StatusFailed)
	vars, _, _, _ := c.space.Vars(p.Point)
	c.errs = append(c.errs, &sampler.EvaluationError{
		Prefix: r.Prefix, Point: p.Point, Vars: vars, Attempts: p.Attempts, Cause: r.Err,
	})
	c.log.Warn("reference run failed permanently", "prefix", r.Prefix, "err", r.Err)

	return nil
}

// Done reports whether a terminal state was reached.
func (c *Composer) Done() bool { return c.state.Terminal() }

// Stop ends the composition. A subset still seeding is discarded; a subset
// refining its frontier keeps its accepted indices.
func (c *Composer) Stop() {
	if c.state.Terminal() {
		return
	}
	c.refQueue.DropNeeded()
	if comp := c.pending; comp != nil {
		comp.ctrl.Stop()
		if c.kind == ActionSubset {
			delete(c.byKey, comp.subset.Key())
			c.comps = slices.DeleteFunc(c.comps, func(x *component) bool { return x == comp })
			c.retired = append(c.retired, comp)
		}
		c.pending = nil
	}
	if c.constant == nil {
		c.finish(refine.Failed, "stopped before the reference point ran")
		return
	}
	c.finish(refine.Stopped, "stop requested")
}

func (c *Composer) finish(to refine.State, reason string) {
	c.stopReason = reason
	c.state = to
	accepted := 0
	for _, comp := range c.comps {
		if comp.accepted {
			accepted++
		}
	}
	c.log.Info("composition finished", "state", to.String(), "reason", reason,
		"subsets", accepted, "existing", c.store.Len(), "residual", c.residual)
}

// Finalize composes the HDMR surrogate from the accepted subsets. A subset
// that never finished seeding is not part of it.
//
// Errors: ErrNoSurrogate when the reference point never ran.
func (c *Composer) Finalize() (*HDMR, error) {
	if c.constant == nil {
		return nil, ErrNoSurrogate
	}
	var accepted []*component
	for _, comp := range c.comps {
		if comp.accepted {
			accepted = append(accepted, comp)
		}
	}
	var (
		terms []rom.Term
		parts []Component
	)
	for _, v := range accepted {
		w := 0.0
		for _, u := range accepted {
			if !v.subset.Within(u.subset) {
				continue
			}
			if (len(u.subset)-len(v.subset))%2 == 0 {
				w++
			} else {
				w--
			}
		}
		g, err := c.cut(v)
		if err != nil {
			return nil, err
		}
		parts = append(parts, Component{
			Subset:    slices.Clone(v.subset),
			Names:     v.subset.Names(c.features),
			Weight:    w,
			Actual:    v.actual,
			Surrogate: g,
		})
		if w != 0 {
			terms = append(terms, rom.Term{Weight: w, Surrogate: g})
		}
	}
	pce, err := rom.Sum(c.features, c.ruleList, c.targets, terms...)
	if err != nil {
		return nil, err
	}

	return &HDMR{PCE: pce, components: parts}, nil
}

// State returns the lifecycle state.
func (c *Composer) State() refine.State { return c.state }

// Reason returns why the composer terminated ("" while running).
func (c *Composer) Reason() string { return c.stopReason }

// Residual returns the running minimum of the summed expected impact of
// every unresolved action (+Inf before the reference point ran).
func (c *Composer) Residual() float64 { return c.residual }

// RawResidual returns the current summed expected impact.
func (c *Composer) RawResidual() float64 { return c.raw }

// Reference returns the reference point.
func (c *Composer) Reference() sampler.Point { return c.ref.Clone() }

// Store returns the shared existing-points store.
func (c *Composer) Store() *ledger.Store { return c.store }

// Features returns the full feature order.
func (c *Composer) Features() []string { return append([]string(nil), c.features...) }

// Subsets returns every non-empty subset that is accepted or seeding, in
// creation order.
func (c *Composer) Subsets() []SubsetStatus {
	var out []SubsetStatus
	for _, comp := range c.comps {
		if len(comp.subset) == 0 {
			continue
		}
		out = append(out, SubsetStatus{
			Subset:   slices.Clone(comp.subset),
			Names:    comp.subset.Names(c.features),
			Actual:   comp.actual,
			Accepted: comp.accepted,
		})
	}

	return out
}

// Proposals returns the proposed subsets, smallest first.
func (c *Composer) Proposals() []Proposal {
	out := make([]Proposal, 0, len(c.proposals))
	for _, p := range c.proposals {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Proposal) int { return Compare(a.Subset, b.Subset) })

	return out
}

// Controller returns the controller of the accepted or seeding subset u.
func (c *Composer) Controller(u Subset) (*refine.Controller, bool) {
	comp, ok := c.byKey[u.Key()]
	if !ok || comp.ctrl == nil {
		return nil, false
	}

	return comp.ctrl, true
}

// Errors returns the permanent evaluation failures of the reference point,
// of rejected subsets and of every subset controller.
func (c *Composer) Errors() []error {
	out := append([]error(nil), c.errs...)
	for _, comp := range c.comps {
		if comp.ctrl != nil {
			out = append(out, comp.ctrl.Errors()...)
		}
	}

	return out
}
