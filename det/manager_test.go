package det_test

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/lvlsample/det"
	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/rng"
	"github.com/katalvlaran/lvlsample/sampler"
)

func uniform(t *testing.T, name string) dist.Distribution {
	t.Helper()
	d, err := dist.NewUniform(name, 0, 1)
	require.NoError(t, err)

	return d
}

// fire builds a trigger document for distribution d with the given
// alternatives of parameter "state".
func fire(t *testing.T, d string, end float64, values ...string) sampler.Outputs {
	t.Helper()
	data, err := det.MarshalTrigger(&det.Trigger{
		EndTime:      end,
		EndTimeStep:  int(end * 10),
		Distribution: d,
		Params:       []det.ParamChange{{Name: "state", Type: "auxiliar", OldValue: "ok", ActualValues: values}},
	})
	require.NoError(t, err)

	return sampler.Outputs{TriggerData: data}
}

func next(t *testing.T, m *det.Manager) sampler.Input {
	t.Helper()
	ready, err := m.StillReady()
	require.NoError(t, err)
	require.True(t, ready)
	in, err := m.GenerateNextInput()
	require.NoError(t, err)

	return in
}

type ManagerSuite struct {
	suite.Suite
	pump dist.Distribution
}

func (s *ManagerSuite) SetupTest() {
	s.pump = uniform(s.T(), "pump")
}

func (s *ManagerSuite) newManager(opts ...det.Option) *det.Manager {
	m, err := det.New([]det.Variable{{Distribution: s.pump, Thresholds: []float64{0.3, 0.7}}}, opts...)
	s.Require().NoError(err)

	return m
}

// TestLastThresholdSingleChild is the dead-end rule on thresholds [0.3, 0.7].
func (s *ManagerSuite) TestLastThresholdSingleChild() {
	m := s.newManager()

	root := next(s.T(), m)
	s.Equal("1", root.Prefix)
	s.Equal(sampler.TypeDynamicEventTree, root.SamplerType)
	s.InDelta(0.3, root.SampledVars["pump"], 1e-12)
	s.InDelta(0.3, root.SampledVarsPb["pump"], 1e-12)
	s.Equal(0, root.Branch.Thresholds["pump"].Level)
	s.Empty(root.Branch.ParentName)
	s.Equal(1.0, root.ConditionalPb)

	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: "1", Outputs: fire(s.T(), "pump", 5, "failed")}}))
	rb, _ := m.Branch(0)
	s.Equal(det.Branched, rb.Status)
	s.Len(rb.Children, 2, "first threshold: unchanged + one alternative")

	unchanged := next(s.T(), m)
	s.Equal("1-1", unchanged.Prefix)
	s.InDelta(0.7, unchanged.ConditionalPb, 1e-12)
	s.InDelta(0.7, unchanged.SampledVars["pump"], 1e-12)
	s.Equal(1, unchanged.Branch.Thresholds["pump"].Level)
	s.Equal("1", unchanged.Branch.ParentName)
	s.Equal(5.0, unchanged.Branch.StartTime)
	s.Equal(50, unchanged.Branch.StartTimeStep)
	s.Empty(unchanged.Branch.ChangedParams)

	alt := next(s.T(), m)
	s.Equal("1-2", alt.Prefix)
	s.InDelta(0.3, alt.ConditionalPb, 1e-12)
	s.Equal(map[string]string{"state": "failed"}, alt.Branch.ChangedParams)
	s.Equal("pump", alt.Branch.TriggerDistribution)

	s.Require().NoError(m.OnPointsCollected([]sampler.Result{
		{Prefix: "1-1", Outputs: fire(s.T(), "pump", 9, "failed")},
		{Prefix: "1-2"},
	}))
	id, ok := m.Lookup("1-1")
	s.Require().True(ok)
	b, _ := m.Branch(id)
	s.Require().Len(b.Children, 1, "last threshold: exactly one child")
	child, _ := m.Branch(b.Children[0])
	s.Equal("1-1-1", child.Name)
	s.InDelta(1.0, child.BranchPb, 1e-12)
	s.InDelta(0.7, child.ConditionalPb, 1e-12)

	last := next(s.T(), m)
	s.Empty(last.SampledVars, "every threshold is consumed")
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: last.Prefix}}))

	s.True(m.Done())
	s.Equal(det.Exhausted, m.State())
	sum := m.Finalize()
	s.Equal(2, sum.Completed)
	s.InDelta(1.0, sum.LeafProbability, 1e-12)
	s.InDelta(1.0, sum.EndedProbability, 1e-12)
}

// TestExplicitProbabilities uses absolute alternative probabilities; the
// unchanged continuation gets the remainder.
func (s *ManagerSuite) TestExplicitProbabilities() {
	m := s.newManager(det.WithRootProbability(0.5))
	next(s.T(), m)
	data, err := det.MarshalTrigger(&det.Trigger{
		Distribution: "pump",
		Params: []det.ParamChange{{
			Name: "state", ActualValues: []string{"a", "b"}, Probabilities: []float64{0.1, 0.2},
		}},
	})
	s.Require().NoError(err)
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: "1", Outputs: sampler.Outputs{TriggerData: data}}}))

	var pbs []float64
	root, _ := m.Branch(0)
	for _, id := range root.Children {
		b, _ := m.Branch(id)
		pbs = append(pbs, b.BranchPb)
	}
	s.InDeltaSlice([]float64{0.7, 0.1, 0.2}, pbs, 1e-12)
	s.InDelta(0.5, m.LeafProbability(), 1e-12)
}

// TestEqualShare splits the event probability between alternatives.
func (s *ManagerSuite) TestEqualShare() {
	m := s.newManager()
	next(s.T(), m)
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: "1", Outputs: fire(s.T(), "pump", 1, "a", "b", "c")}}))
	root, _ := m.Branch(0)
	s.Require().Len(root.Children, 4)
	for i, id := range root.Children {
		b, _ := m.Branch(id)
		want := 0.1
		if i == 0 {
			want = 0.7
		}
		s.InDelta(want, b.BranchPb, 1e-12, b.Name)
	}
}

// TestRetryThenFail retries a failed branch once.
func (s *ManagerSuite) TestRetryThenFail() {
	m := s.newManager()
	cause := errors.New("code crashed")
	for i := 0; i < det.DefaultMaxAttempts; i++ {
		in := next(s.T(), m)
		s.Equal("1", in.Prefix)
		s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: in.Prefix, Err: cause}}))
	}
	s.True(m.Done())
	errs := m.Errors()
	s.Require().Len(errs, 1)
	s.ErrorIs(errs[0], sampler.ErrEvaluation)
	s.ErrorIs(errs[0], cause)
	sum := m.Finalize()
	s.Equal(1, sum.Failed)
	s.Equal(1, m.Started())
	s.InDelta(1.0, sum.LeafProbability, 1e-12, "a failed leaf keeps its probability")
}

// TestInvalidTrigger fails the branch like a model error.
func (s *ManagerSuite) TestInvalidTrigger() {
	m := s.newManager(det.WithMaxAttempts(1))
	next(s.T(), m)
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: "1", Outputs: fire(s.T(), "valve", 1, "stuck")}}))
	errs := m.Errors()
	s.Require().Len(errs, 1)
	s.ErrorIs(errs[0], det.ErrTrigger)
}

// TestNaNProbabilityFailsBranch keeps probability conservation when a
// trigger carries a NaN branch probability.
func (s *ManagerSuite) TestNaNProbabilityFailsBranch() {
	m := s.newManager(det.WithMaxAttempts(1))
	next(s.T(), m)
	doc := `<Branch_info end_time="5" end_ts="50"><Distribution_trigger name="pump">` +
		`<Variable type="auxiliar" actual_value="failed" old_value="ok" probability="NaN">state</Variable>` +
		`</Distribution_trigger></Branch_info>`
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: "1", Outputs: sampler.Outputs{TriggerData: []byte(doc)}}}))

	errs := m.Errors()
	s.Require().Len(errs, 1)
	s.ErrorIs(errs[0], det.ErrTrigger)
	rb, _ := m.Branch(0)
	s.Equal(det.Failed, rb.Status)
	s.Empty(rb.Children)
	sum := m.Finalize()
	s.InDelta(1.0, sum.LeafProbability, 1e-12)
}

// TestFinalizeBranch_Misaligned rejects a trigger built in code whose
// parameters disagree on the number of alternatives.
func (s *ManagerSuite) TestFinalizeBranch_Misaligned() {
	m := s.newManager()
	next(s.T(), m)
	trig := &det.Trigger{
		Distribution: "pump",
		Params: []det.ParamChange{
			{Name: "a", ActualValues: []string{"x", "y"}},
			{Name: "b", ActualValues: []string{"z"}},
		},
	}
	var err error
	s.NotPanics(func() { err = m.FinalizeBranch(0, trig) })
	s.ErrorIs(err, det.ErrTrigger)

	trig.Params[1].ActualValues = []string{"z", "w"}
	trig.Params[0].Probabilities = []float64{0.1, math.NaN()}
	s.ErrorIs(m.FinalizeBranch(0, trig), det.ErrTrigger)

	rb, _ := m.Branch(0)
	s.Equal(det.Running, rb.Status, "a rejected trigger leaves the branch to its caller")
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: "1"}}))
	rb, _ = m.Branch(0)
	s.Equal(det.Completed, rb.Status)
}

// TestMaxDepth creates grandchildren as truncated leaves.
func (s *ManagerSuite) TestMaxDepth() {
	m := s.newManager(det.WithMaxDepth(1))
	next(s.T(), m)
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: "1", Outputs: fire(s.T(), "pump", 1, "x")}}))
	in := next(s.T(), m)
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: in.Prefix, Outputs: fire(s.T(), "pump", 2, "y")}}))
	in = next(s.T(), m)
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: in.Prefix}}))

	s.True(m.Done())
	sum := m.Finalize()
	s.Equal(1, sum.Truncated)
	s.InDelta(1.0, sum.LeafProbability, 1e-12)
}

// TestMaxRuns stops starting branches once the budget is used.
func (s *ManagerSuite) TestMaxRuns() {
	m := s.newManager(det.WithMaxRuns(2))
	next(s.T(), m)
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: "1", Outputs: fire(s.T(), "pump", 1, "x")}}))
	in := next(s.T(), m)
	ready, err := m.StillReady()
	s.Require().NoError(err)
	s.False(ready)
	s.False(m.Done(), "a branch is still running")

	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: in.Prefix}}))
	s.True(m.Done())
	s.Equal(det.BudgetExceeded, m.State())
	sum := m.Finalize()
	s.Equal(1, sum.Unfinished)
	s.Equal(1, sum.Completed)
	s.InDelta(1.0, sum.LeafProbability, 1e-12)
}

// TestStop accounts queued and running branches as unfinished and ignores
// their late results.
func (s *ManagerSuite) TestStop() {
	m := s.newManager()
	next(s.T(), m)
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: "1", Outputs: fire(s.T(), "pump", 1, "x")}}))
	in := next(s.T(), m)

	m.Stop()
	s.True(m.Done())
	s.Equal(det.Stopped, m.State())
	s.Equal(2, m.Finalize().Unfinished)

	s.NoError(m.OnPointsCollected([]sampler.Result{{Prefix: in.Prefix}}))
	s.Equal(2, m.Finalize().Unfinished)
	_, err := m.GenerateNextInput()
	s.ErrorIs(err, det.ErrNothingQueued)
}

// TestTriggerFile reads the trigger from a file; a missing file ends the history.
func (s *ManagerSuite) TestTriggerFile() {
	m := s.newManager()
	next(s.T(), m)
	dir := s.T().TempDir()
	path := filepath.Join(dir, "1.xml")
	s.Require().NoError(os.WriteFile(path, []byte(`<Branch_info end_time="2" end_ts="20">
  <Distribution_trigger name="pump"><Variable actual_value="failed">state</Variable></Distribution_trigger>
</Branch_info>`), 0o600))
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{Prefix: "1", Outputs: sampler.Outputs{TriggerPath: path}}}))
	s.Equal(3, m.Len())

	in := next(s.T(), m)
	s.Require().NoError(m.OnPointsCollected([]sampler.Result{{
		Prefix: in.Prefix, Outputs: sampler.Outputs{TriggerPath: filepath.Join(dir, "nothing.xml")},
	}}))
	id, _ := m.Lookup(in.Prefix)
	b, _ := m.Branch(id)
	s.Equal(det.Completed, b.Status)
}

// TestUnknownPrefix reports results of runs the tree never started.
func (s *ManagerSuite) TestUnknownPrefix() {
	m := s.newManager()
	err := m.OnPointsCollected([]sampler.Result{{Prefix: "42"}})
	s.ErrorIs(err, det.ErrUnknownBranch)
	s.ErrorIs(m.FinalizeBranch(7, nil), det.ErrUnknownBranch)
	s.ErrorIs(m.FinalizeBranch(0, nil), det.ErrUnknownBranch, "root is queued, not running")
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

// TestProbabilityConservation grows random trees and checks that the leaves
// always carry the root probability.
func TestProbabilityConservation(t *testing.T) {
	a, b := uniform(t, "a"), uniform(t, "b")
	c, err := dist.NewNormal("c", 0, 1)
	require.NoError(t, err)
	vars := []det.Variable{
		{Distribution: a, Thresholds: []float64{0.1, 0.4, 0.8}},
		{Distribution: b, Thresholds: []float64{0.5, 0.9}},
		{Distribution: c, Thresholds: []float64{-1, 0, 1.5}, Mode: det.ByValue},
	}
	for seed := int64(1); seed <= 20; seed++ {
		r := rng.New(seed)
		const rootPb = 0.8
		m, err := det.New(vars, det.WithRootProbability(rootPb), det.WithMaxRuns(400))
		require.NoError(t, err)
		for step := 0; !m.Done() && step < 1000; step++ {
			var batch []sampler.Result
			for {
				ready, err := m.StillReady()
				require.NoError(t, err)
				if !ready {
					break
				}
				in, err := m.GenerateNextInput()
				require.NoError(t, err)
				batch = append(batch, randomOutcome(t, r, in))
			}
			require.NoError(t, m.OnPointsCollected(batch))
			require.InEpsilon(t, rootPb, m.LeafProbability(), 1e-9, "seed %d step %d", seed, step)
		}
		require.True(t, m.Done())
		assert.InEpsilon(t, rootPb, m.Finalize().LeafProbability, 1e-9)
	}
}

func randomOutcome(t *testing.T, r *rand.Rand, in sampler.Input) sampler.Result {
	res := sampler.Result{Prefix: in.Prefix}
	var open []string
	for name := range in.Branch.Thresholds {
		open = append(open, name)
	}
	sort.Strings(open)
	switch u := r.Float64(); {
	case u < 0.05:
		res.Err = errors.New("random failure")
	case len(open) == 0 || u < 0.3:
		res.Outputs.Values = map[string]float64{"pb": in.ConditionalPb}
	default:
		n := 1 + r.Intn(3)
		values := make([]string, n)
		for i := range values {
			values[i] = string(rune('a' + i))
		}
		pc := det.ParamChange{Name: "state", ActualValues: values}
		if r.Float64() < 0.3 {
			for range values {
				pc.Probabilities = append(pc.Probabilities, math.Round(r.Float64()*0.9/float64(n)*1e6)/1e6)
			}
		}
		data, err := det.MarshalTrigger(&det.Trigger{Distribution: open[r.Intn(len(open))], Params: []det.ParamChange{pc}})
		require.NoError(t, err)
		res.Outputs.TriggerData = data
	}

	return res
}

func TestNew_Errors(t *testing.T) {
	d := uniform(t, "d")
	_, err := det.New(nil)
	assert.ErrorIs(t, err, det.ErrNoVariables)

	_, err = det.New([]det.Variable{{Distribution: d}})
	assert.ErrorIs(t, err, det.ErrThresholds)

	_, err = det.New([]det.Variable{{Distribution: d, Thresholds: []float64{0.5, 0.5}}})
	assert.ErrorIs(t, err, det.ErrThresholds)

	_, err = det.New([]det.Variable{{Distribution: d, Thresholds: []float64{0.2, 1}}})
	assert.ErrorIs(t, err, sampler.ErrConfiguration)

	_, err = det.New([]det.Variable{
		{Distribution: d, Thresholds: []float64{0.5}},
		{Distribution: d, Thresholds: []float64{0.5}},
	})
	assert.ErrorIs(t, err, det.ErrDuplicate)

	assert.Panics(t, func() { det.WithRootProbability(0) })
	assert.Panics(t, func() { det.WithMaxRuns(0) })
	assert.Panics(t, func() { det.WithMaxDepth(-1) })
	assert.Panics(t, func() { det.WithMaxAttempts(0) })
}

func TestByValueThresholds(t *testing.T) {
	d, err := dist.NewUniform("t", 0, 10)
	require.NoError(t, err)
	m, err := det.New([]det.Variable{{Distribution: d, Thresholds: []float64{2, 5}, Mode: det.ByValue}})
	require.NoError(t, err)
	in, err := m.GenerateNextInput()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, in.SampledVars["t"], 1e-12)
	assert.InDelta(t, 0.2, in.SampledVarsPb["t"], 1e-12)
}
