// SPDX-License-Identifier: MIT

package det

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"

	"github.com/katalvlaran/lvlsample/logging"
	"github.com/katalvlaran/lvlsample/metrics"
	"github.com/katalvlaran/lvlsample/sampler"
)

// probEps absorbs rounding when explicit probabilities sum to exactly 1.
const probEps = 1e-12

// State is the tree-level lifecycle state.
type State int

// Manager states.
const (
	Branching      State = iota // branches queued or running
	Exhausted                   // every history ended
	BudgetExceeded              // MaxRuns reached; remaining branches unfinished
	Stopped                     // Stop was called
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Branching:
		return "Branching"
	case Exhausted:
		return "Exhausted"
	case BudgetExceeded:
		return "BudgetExceeded"
	case Stopped:
		return "Stopped"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

type thresholds struct {
	probs  []float64
	values []float64
}

// Manager is the BranchRefinement strategy.
type Manager struct {
	opts   options
	names  []string // distribution order
	th     map[string]thresholds
	arena  []Branch
	byName map[string]BranchID

	queue   []BranchID
	running map[string]BranchID
	started int
	state   State
	errs    []error

	log     *slog.Logger
	metrics *metrics.Recorder
}

var _ sampler.Strategy = (*Manager)(nil)

// New validates the branching distributions and queues the root branch.
//
// Errors: ErrNoVariables, ErrDuplicate, ErrThresholds (all sampler.ErrConfiguration).
func New(vars []Variable, opts ...Option) (*Manager, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if len(vars) == 0 {
		return nil, ErrNoVariables
	}
	m := &Manager{
		opts:    o,
		th:      make(map[string]thresholds, len(vars)),
		byName:  make(map[string]BranchID),
		running: make(map[string]BranchID),
		log:     logging.Component(o.logger, "det"),
		metrics: o.metrics,
	}
	for _, v := range vars {
		if v.Distribution == nil {
			return nil, fmt.Errorf("%w: variable without distribution", ErrNoVariables)
		}
		name := v.Distribution.Name()
		if _, dup := m.th[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, name)
		}
		t, err := convert(v)
		if err != nil {
			return nil, fmt.Errorf("%w (distribution %q)", err, name)
		}
		m.th[name] = t
		m.names = append(m.names, name)
	}

	levels := make(map[string]int, len(m.names))
	for _, n := range m.names {
		levels[n] = 0
	}
	m.add(Branch{
		Parent:        NoParent,
		Name:          o.rootName,
		Status:        Queued,
		ConditionalPb: o.rootPb,
		BranchPb:      o.rootPb,
		Levels:        levels,
		ChangedParams: map[string]string{},
	})

	return m, nil
}

func convert(v Variable) (thresholds, error) {
	if len(v.Thresholds) == 0 {
		return thresholds{}, ErrThresholds
	}
	t := thresholds{
		probs:  make([]float64, len(v.Thresholds)),
		values: make([]float64, len(v.Thresholds)),
	}
	prev := 0.0
	for i, x := range v.Thresholds {
		p := x
		if v.Mode == ByValue {
			p = v.Distribution.CDF(x)
		}
		if !(p > prev && p < 1) {
			return thresholds{}, fmt.Errorf("%w: threshold %d is %v after %v", ErrThresholds, i, p, prev)
		}
		t.probs[i] = p
		if v.Mode == ByValue {
			t.values[i] = x
		} else {
			t.values[i] = v.Distribution.Quantile(p)
		}
		prev = p
	}

	return t, nil
}

// add appends b to the arena and queues it unless it is Truncated.
func (m *Manager) add(b Branch) BranchID {
	b.ID = BranchID(len(m.arena))
	m.arena = append(m.arena, b)
	m.byName[b.Name] = b.ID
	if b.Status == Queued {
		m.queue = append(m.queue, b.ID)
	}

	return b.ID
}

// StillReady reports whether a queued branch may be started now.
func (m *Manager) StillReady() (bool, error) {
	m.settle()

	return m.state == Branching && len(m.queue) > 0 && m.started < m.opts.maxRuns, nil
}

// settle applies the tree-level terminal transitions.
func (m *Manager) settle() {
	if m.state != Branching || len(m.running) > 0 {
		return
	}
	switch {
	case len(m.queue) == 0:
		m.finish(Exhausted)
	case m.started >= m.opts.maxRuns:
		m.abandonQueued()
		m.finish(BudgetExceeded)
	}
}

func (m *Manager) finish(s State) {
	m.state = s
	sum := m.Finalize()
	m.log.Info("event tree finished", "state", s.String(), "branches", len(m.arena),
		"completed", sum.Completed, "failed", sum.Failed, "truncated", sum.Truncated,
		"unfinished", sum.Unfinished, "leaf_probability", sum.LeafProbability)
}

func (m *Manager) abandonQueued() {
	for _, id := range m.queue {
		m.arena[id].Status = Unfinished
		m.metrics.Branch(Unfinished.String())
	}
	m.queue = nil
}

// GenerateNextInput starts the oldest queued branch.
//
// Errors: ErrNothingQueued.
func (m *Manager) GenerateNextInput() (sampler.Input, error) {
	if m.state != Branching || len(m.queue) == 0 || m.started >= m.opts.maxRuns {
		return sampler.Input{}, ErrNothingQueued
	}
	id := m.queue[0]
	m.queue = m.queue[1:]
	b := &m.arena[id]
	b.Status = Running
	b.Attempts++
	if b.Attempts == 1 {
		m.started++
	}
	m.running[b.Name] = id
	m.metrics.Submitted(sampler.TypeDynamicEventTree)
	m.log.Debug("branch started", "branch", b.Name, "depth", b.Depth, "conditional_pb", b.ConditionalPb)

	return m.input(b), nil
}

func (m *Manager) input(b *Branch) sampler.Input {
	vars := make(map[string]float64, len(m.names))
	pbs := make(map[string]float64, len(m.names))
	next := make(map[string]sampler.Threshold, len(m.names))
	for _, n := range m.names {
		lvl := b.Levels[n]
		t := m.th[n]
		if lvl >= len(t.probs) {
			continue
		}
		next[n] = sampler.Threshold{Level: lvl, Probability: t.probs[lvl], Value: t.values[lvl]}
		vars[n] = t.values[lvl]
		pbs[n] = t.probs[lvl]
	}
	parent := ""
	if b.Parent != NoParent {
		parent = m.arena[b.Parent].Name
	}

	return sampler.Input{
		Prefix:            b.Name,
		SamplerType:       sampler.TypeDynamicEventTree,
		SampledVars:       vars,
		SampledVarsPb:     pbs,
		PointProbability:  b.ConditionalPb,
		ProbabilityWeight: b.ConditionalPb,
		ConditionalPb:     b.ConditionalPb,
		Branch: &sampler.BranchInfo{
			Name:                b.Name,
			ParentName:          parent,
			Depth:               b.Depth,
			StartTime:           b.StartTime,
			StartTimeStep:       b.StartTimeStep,
			TriggerDistribution: b.TriggerDistribution,
			ChangedParams:       maps.Clone(b.ChangedParams),
			Thresholds:          next,
		},
	}
}

// Owns reports whether prefix names a running branch.
func (m *Manager) Owns(prefix string) bool {
	_, ok := m.running[prefix]

	return ok
}

// OnPointsCollected finalizes finished branches. Results for branches the
// tree abandoned on Stop are ignored; other unknown prefixes are reported as
// ErrUnknownBranch after every known result was processed.
func (m *Manager) OnPointsCollected(results []sampler.Result) error {
	var unknown []error
	for _, r := range results {
		id, ok := m.running[r.Prefix]
		if !ok {
			if known, has := m.byName[r.Prefix]; has && m.arena[known].Status == Unfinished {
				m.log.Debug("late result ignored", "branch", r.Prefix)
				continue
			}
			unknown = append(unknown, fmt.Errorf("%w: %q", ErrUnknownBranch, r.Prefix))
			continue
		}
		delete(m.running, r.Prefix)
		if r.Err != nil {
			m.fail(id, r.Err)
			continue
		}
		m.arena[id].Outputs = maps.Clone(r.Outputs.Values)
		trig, err := readOutputs(r.Outputs)
		if err != nil {
			m.fail(id, err)
			continue
		}
		if err = m.FinalizeBranch(id, trig); err != nil {
			m.fail(id, err)
		}
	}
	m.settle()

	return errors.Join(unknown...)
}

// readOutputs extracts the trigger of a finished run: in-memory data first,
// then the trigger file. A missing file means no trigger.
func readOutputs(out sampler.Outputs) (*Trigger, error) {
	switch {
	case len(out.TriggerData) > 0:
		return ParseTrigger(out.TriggerData)
	case out.TriggerPath != "":
		t, err := ReadTrigger(out.TriggerPath)
		if errors.Is(err, sampler.ErrBranchFileMissing) {
			return nil, nil
		}

		return t, err
	}

	return nil, nil
}

// FinalizeBranch ends the running branch id with trigger. A nil or unfired
// trigger completes the history; otherwise the children are created.
//
// For the fired distribution d at level k with thresholds t (t_{-1} = 0):
//
//	p          = (t_k - t_{k-1}) / (1 - t_{k-1})
//	unchanged  = 1 - sum(alternatives), at level k+1
//	alternative i = p/n, or the explicit probability attribute
//
// On the last threshold of d the unchanged child is omitted and the
// alternatives are renormalized to 1. Child conditional probability is the
// parent's times its branch probability.
//
// Errors: ErrTrigger; ErrUnknownBranch when id is not running or ended.
func (m *Manager) FinalizeBranch(id BranchID, trig *Trigger) error {
	if id < 0 || int(id) >= len(m.arena) {
		return fmt.Errorf("%w: id %d", ErrUnknownBranch, id)
	}
	if st := m.arena[id].Status; st != Running {
		return fmt.Errorf("%w: %q is %s", ErrUnknownBranch, m.arena[id].Name, st)
	}
	if err := trig.validate(); err != nil {
		return fmt.Errorf("branch %q: %w", m.arena[id].Name, err)
	}
	delete(m.running, m.arena[id].Name)
	if trig != nil {
		m.arena[id].EndTime = trig.EndTime
		m.arena[id].EndTimeStep = trig.EndTimeStep
	}
	if !trig.Fired() {
		m.arena[id].Status = Completed
		m.metrics.Collected(sampler.TypeDynamicEventTree, metrics.StatusOK)
		m.metrics.Branch(Completed.String())
		m.log.Debug("history ended", "branch", m.arena[id].Name)

		return nil
	}

	children, err := m.children(m.arena[id], trig)
	if err != nil {
		// keep it running so that the caller can fail or retry it
		m.running[m.arena[id].Name] = id
		return err
	}
	m.arena[id].Status = Branched
	m.metrics.Collected(sampler.TypeDynamicEventTree, metrics.StatusOK)
	m.metrics.Branch(Branched.String())
	for _, c := range children {
		cid := m.add(c)
		m.arena[id].Children = append(m.arena[id].Children, cid)
		if c.Status == Truncated {
			m.metrics.Branch(Truncated.String())
		}
	}
	m.log.Info("branched", "branch", m.arena[id].Name, "distribution", trig.Distribution,
		"level", m.arena[id].Levels[trig.Distribution], "children", len(children))

	return nil
}

func (m *Manager) children(parent Branch, trig *Trigger) ([]Branch, error) {
	d := trig.Distribution
	t, ok := m.th[d]
	if !ok {
		return nil, fmt.Errorf("%w: unknown distribution %q", ErrTrigger, d)
	}
	k := parent.Levels[d]
	if k >= len(t.probs) {
		return nil, fmt.Errorf("%w: distribution %q has no threshold left", ErrTrigger, d)
	}
	n := trig.Alternatives()
	if n == 0 {
		return nil, fmt.Errorf("%w: distribution %q offers no alternative", ErrTrigger, d)
	}
	prev := 0.0
	if k > 0 {
		prev = t.probs[k-1]
	}
	p := (t.probs[k] - prev) / (1 - prev)
	last := k == len(t.probs)-1

	alt := make([]float64, n)
	explicit := false
	for _, pc := range trig.Params {
		if len(pc.Probabilities) > 0 {
			copy(alt, pc.Probabilities)
			explicit = true
			break
		}
	}
	if !explicit {
		for i := range alt {
			alt[i] = p / float64(n)
		}
	}
	sum := 0.0
	for _, v := range alt {
		sum += v
	}
	if !(sum <= 1+probEps) {
		return nil, fmt.Errorf("%w: alternative probabilities sum to %v", ErrTrigger, sum)
	}
	if last {
		if sum <= 0 {
			return nil, fmt.Errorf("%w: last threshold of %q with zero alternative probability", ErrTrigger, d)
		}
		for i := range alt {
			alt[i] /= sum
		}
	}

	child := func(pb float64, changed map[string]string) Branch {
		levels := maps.Clone(parent.Levels)
		levels[d] = k + 1
		c := Branch{
			Parent:              parent.ID,
			Depth:               parent.Depth + 1,
			Status:              Queued,
			ConditionalPb:       parent.ConditionalPb * pb,
			BranchPb:            pb,
			Levels:              levels,
			ChangedParams:       changed,
			TriggerDistribution: d,
			StartTime:           trig.EndTime,
			StartTimeStep:       trig.EndTimeStep,
		}
		if m.opts.maxDepth > 0 && c.Depth > m.opts.maxDepth {
			c.Status = Truncated
		}

		return c
	}

	var out []Branch
	if !last {
		if rest := 1 - sum; rest > probEps {
			out = append(out, child(rest, maps.Clone(parent.ChangedParams)))
		}
	}
	for i := 0; i < n; i++ {
		changed := maps.Clone(parent.ChangedParams)
		if changed == nil {
			changed = map[string]string{}
		}
		for _, pc := range trig.Params {
			changed[pc.Name] = pc.ActualValues[i]
		}
		out = append(out, child(alt[i], changed))
	}
	for i := range out {
		out[i].Name = parent.Name + "-" + strconv.Itoa(i+1)
	}

	return out, nil
}

// fail re-queues the branch or, once its attempts are used up, marks it Failed.
func (m *Manager) fail(id BranchID, cause error) {
	b := &m.arena[id]
	delete(m.running, b.Name)
	if b.Attempts < m.opts.maxAttempts {
		b.Status = Queued
		m.queue = append(m.queue, id)
		m.metrics.Collected(sampler.TypeDynamicEventTree, metrics.StatusRetried)
		m.log.Warn("branch failed, retrying", "branch", b.Name, "attempt", b.Attempts, "err", cause)

		return
	}
	b.Status = Failed
	in := m.input(b)
	m.errs = append(m.errs, &sampler.EvaluationError{
		Prefix: b.Name, Vars: in.SampledVars, Attempts: b.Attempts, Cause: cause,
	})
	m.metrics.Collected(sampler.TypeDynamicEventTree, metrics.StatusFailed)
	m.metrics.Branch(Failed.String())
	m.log.Warn("branch failed permanently", "branch", b.Name, "attempts", b.Attempts, "err", cause)
}

// Done reports whether the tree reached a terminal state.
func (m *Manager) Done() bool {
	m.settle()

	return m.state != Branching
}

// Stop marks every queued and running branch Unfinished and ends the tree.
// Results that arrive later for those branches are ignored.
func (m *Manager) Stop() {
	if m.state != Branching {
		return
	}
	m.abandonQueued()
	for name, id := range m.running {
		m.arena[id].Status = Unfinished
		m.metrics.Branch(Unfinished.String())
		delete(m.running, name)
	}
	m.finish(Stopped)
}

// State returns the tree-level state.
func (m *Manager) State() State { return m.state }

// Errors returns the permanent branch failures.
func (m *Manager) Errors() []error { return append([]error(nil), m.errs...) }

// Len returns the number of branches in the arena.
func (m *Manager) Len() int { return len(m.arena) }

// Started returns the number of branches dispatched at least once.
func (m *Manager) Started() int { return m.started }

// Branch returns a copy of branch id.
func (m *Manager) Branch(id BranchID) (Branch, bool) {
	if id < 0 || int(id) >= len(m.arena) {
		return Branch{}, false
	}

	return m.arena[id].clone(), true
}

// Lookup returns the id of the branch named name.
func (m *Manager) Lookup(name string) (BranchID, bool) {
	id, ok := m.byName[name]

	return id, ok
}

// LeafProbability sums the conditional probability of every childless branch.
func (m *Manager) LeafProbability() float64 {
	s := 0.0
	for i := range m.arena {
		if m.arena[i].Leaf() {
			s += m.arena[i].ConditionalPb
		}
	}

	return s
}

// Finalize summarizes the tree. It may be called at any time; leaves that are
// still queued or running are reported as they are.
func (m *Manager) Finalize() Summary {
	s := Summary{Branches: make([]Branch, len(m.arena))}
	for i := range m.arena {
		b := &m.arena[i]
		s.Branches[i] = b.clone()
		switch b.Status {
		case Failed:
			s.Failed++
		case Truncated:
			s.Truncated++
		case Unfinished:
			s.Unfinished++
		case Completed:
			s.Completed++
			s.EndedProbability += b.ConditionalPb
		}
		if b.Leaf() {
			s.Leaves = append(s.Leaves, b.ID)
			s.LeafProbability += b.ConditionalPb
		}
	}

	return s
}
