package refine_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/indexset"
	"github.com/katalvlaran/lvlsample/ledger"
	"github.com/katalvlaran/lvlsample/refine"
	"github.com/katalvlaran/lvlsample/rom"
	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/space"
)

func mi(v ...int) indexset.MultiIndex { return indexset.MultiIndex(v) }

type modelFunc func(p sampler.Point) (map[string]float64, error)

// bilinear is f = 1 + x + y + xy.
func bilinear(p sampler.Point) (map[string]float64, error) {
	x, y := p[0], p[1]

	return map[string]float64{"f": 1 + x + y + x*y}, nil
}

func uniformSpace(t *testing.T, names ...string) *space.Space {
	t.Helper()
	sp := space.New()
	for _, n := range names {
		d, err := dist.NewUniform(n, -1, 1)
		require.NoError(t, err)
		require.NoError(t, sp.Bind(n, d))
	}

	return sp
}

// drive runs the controller to completion (or to an idle manual selection)
// dispatching every ready input as one batch. It returns the residual seen
// after each batch.
func drive(t *testing.T, c *refine.Controller, f modelFunc) []float64 {
	t.Helper()
	var residuals []float64
	for round := 0; round < 10000 && !c.Done(); round++ {
		ready, err := c.StillReady()
		require.NoError(t, err)
		if !ready {
			break
		}
		var batch []sampler.Result
		for ready {
			in, err := c.GenerateNextInput()
			require.NoError(t, err)
			out, ferr := f(in.Point)
			batch = append(batch, sampler.Result{Prefix: in.Prefix, Outputs: sampler.Outputs{Values: out}, Err: ferr})
			ready, err = c.StillReady()
			require.NoError(t, err)
		}
		require.NoError(t, c.OnPointsCollected(batch))
		residuals = append(residuals, c.Residual())
	}

	return residuals
}

type ControllerSuite struct {
	suite.Suite
	sp *space.Space
}

func (s *ControllerSuite) SetupTest() {
	s.sp = uniformSpace(s.T(), "x", "y")
}

// TestConvergesOnBilinear walks the refinement of 1 + x + y + xy: the x² and
// y² directions carry zero impact, the mixed term is found from its parents.
func (s *ControllerSuite) TestConvergesOnBilinear() {
	c, err := refine.New(s.sp, []string{"f"}, refine.WithTolerance(1e-6))
	s.Require().NoError(err)
	s.Equal(refine.Seeding, c.State())
	s.True(math.IsInf(c.Residual(), 1))

	drive(s.T(), c, bilinear)
	s.Equal(refine.Converged, c.State())
	s.True(c.Done())
	s.Less(c.RawResidual(), 1e-6)

	s.ElementsMatch([]indexset.MultiIndex{
		mi(0, 0), mi(0, 1), mi(0, 2), mi(1, 0), mi(1, 1), mi(2, 0),
	}, c.Accepted())

	pce, err := c.Finalize()
	s.Require().NoError(err)
	s.InDelta(1.0, pce.Mean("f"), 1e-12)
	s.InDelta(7.0/9, pce.Variance("f"), 1e-12)
	got, err := pce.Evaluate(sampler.Point{0.3, -0.4})
	s.Require().NoError(err)
	s.InDelta(1+0.3-0.4-0.12, got["f"], 1e-12)
}

// TestAcceptanceOrder pins the tie-breaking: equal expected impacts go to the
// lexicographically smallest index, so y is refined before x.
func (s *ControllerSuite) TestAcceptanceOrder() {
	c, err := refine.New(s.sp, []string{"f"})
	s.Require().NoError(err)
	drive(s.T(), c, bilinear)

	acc := c.Accepted()
	s.Require().GreaterOrEqual(len(acc), 4)
	s.Equal([]indexset.MultiIndex{mi(0, 0), mi(0, 1), mi(0, 2), mi(1, 0)}, acc[:4])
}

// TestResidualMonotone checks the reported residual never grows although the
// raw frontier sum does.
func (s *ControllerSuite) TestResidualMonotone() {
	c, err := refine.New(s.sp, []string{"f"})
	s.Require().NoError(err)
	res := drive(s.T(), c, bilinear)
	s.Require().NotEmpty(res)
	for i := 1; i < len(res); i++ {
		s.LessOrEqual(res[i], res[i-1], "round %d", i)
	}
}

// TestStillReadyIdempotent polls twice without dispatching.
func (s *ControllerSuite) TestStillReadyIdempotent() {
	c, err := refine.New(s.sp, []string{"f"})
	s.Require().NoError(err)
	for i := 0; i < 3; i++ {
		ready, err := c.StillReady()
		s.Require().NoError(err)
		s.True(ready)
	}
	in, err := c.GenerateNextInput()
	s.Require().NoError(err)
	s.Equal("1", in.Prefix)
	s.Equal(sampler.TypeAdaptiveSparseGrid, in.SamplerType)
	s.Require().Len(in.Point, 2)
	s.InDelta(0, in.Point[0], 1e-15)
	s.InDelta(0, in.Point[1], 1e-15)
	s.InDelta(1.0, in.ProbabilityWeight, 1e-15)
	s.InDelta(0.25, in.PointProbability, 1e-15)
	s.Len(in.SampledVars, 2)

	ready, err := c.StillReady()
	s.Require().NoError(err)
	s.False(ready, "the seed point is submitted, nothing else is needed")
	_, err = c.GenerateNextInput()
	s.ErrorIs(err, refine.ErrNothingNeeded)
	s.ErrorIs(err, sampler.ErrState)
}

// TestBudget stops before the index that would exceed MaxRuns.
func (s *ControllerSuite) TestBudget() {
	c, err := refine.New(s.sp, []string{"f"}, refine.WithMaxRuns(3))
	s.Require().NoError(err)
	drive(s.T(), c, bilinear)
	s.Equal(refine.BudgetExceeded, c.State())
	s.LessOrEqual(c.Store().Len(), 3)
	s.Equal([]indexset.MultiIndex{mi(0, 0), mi(0, 1)}, c.Accepted())

	_, err = c.Finalize()
	s.NoError(err)
}

// TestFailureRetryThenReject fails every point with y > 0.5 twice: the y
// candidate is rejected and only x is refined.
func (s *ControllerSuite) TestFailureRetryThenReject() {
	cause := errors.New("solver diverged")
	calls := map[string]int{}
	model := func(p sampler.Point) (map[string]float64, error) {
		calls[p.Key()]++
		if p[1] > 0.5 {
			return nil, cause
		}

		return bilinear(p)
	}
	c, err := refine.New(s.sp, []string{"f"})
	s.Require().NoError(err)
	drive(s.T(), c, model)

	s.Equal(refine.Converged, c.State())
	s.NotContains(c.Accepted(), mi(0, 1))
	s.NotContains(c.Active(), mi(0, 1))
	s.Contains(c.Accepted(), mi(1, 0))

	errs := c.Errors()
	s.Require().Len(errs, 1)
	s.ErrorIs(errs[0], sampler.ErrEvaluation)
	s.ErrorIs(errs[0], cause)
	var ev *sampler.EvaluationError
	s.Require().ErrorAs(errs[0], &ev)
	s.Equal(refine.DefaultMaxAttempts, ev.Attempts)
	s.Equal(refine.DefaultMaxAttempts, calls[ev.Point.Key()])
}

// TestSeedFailure ends in Failed with no surrogate.
func (s *ControllerSuite) TestSeedFailure() {
	c, err := refine.New(s.sp, []string{"f"}, refine.WithMaxAttempts(1))
	s.Require().NoError(err)
	drive(s.T(), c, func(sampler.Point) (map[string]float64, error) {
		return nil, errors.New("boom")
	})
	s.Equal(refine.Failed, c.State())
	s.Len(c.Errors(), 1)
	_, err = c.Finalize()
	s.ErrorIs(err, refine.ErrNoSurrogate)
}

// TestStop keeps the accepted set.
func (s *ControllerSuite) TestStop() {
	c, err := refine.New(s.sp, []string{"f"}, refine.WithManual())
	s.Require().NoError(err)
	drive(s.T(), c, bilinear)
	s.Require().Equal(refine.Selecting, c.State())

	c.Stop()
	s.Equal(refine.Stopped, c.State())
	s.True(c.Done())
	ready, err := c.StillReady()
	s.NoError(err)
	s.False(ready)
	pce, err := c.Finalize()
	s.Require().NoError(err)
	s.InDelta(1.0, pce.Mean("f"), 1e-12)

	c.Stop()
	s.Equal(refine.Stopped, c.State(), "stop is idempotent")
}

// TestStopBeforeSeed fails the controller: nothing was trained.
func (s *ControllerSuite) TestStopBeforeSeed() {
	c, err := refine.New(s.sp, []string{"f"})
	s.Require().NoError(err)
	c.Stop()
	s.Equal(refine.Failed, c.State())
}

// TestManual hands selection to the caller.
func (s *ControllerSuite) TestManual() {
	c, err := refine.New(s.sp, []string{"f"}, refine.WithManual())
	s.Require().NoError(err)
	drive(s.T(), c, bilinear)
	s.Require().True(c.Idle())

	cands := c.Candidates()
	s.Require().Len(cands, 2)
	s.Equal(mi(0, 1), cands[0].Index, "stable order keeps ties lexicographic")
	s.Equal(1.0, cands[0].Expected)

	best, ok := c.BestCandidate()
	s.Require().True(ok)
	s.Equal(mi(0, 1), best.Index)

	cost, err := c.Cost(mi(1, 0))
	s.Require().NoError(err)
	s.Equal(2, cost)

	s.ErrorIs(c.Refine(mi(2, 0)), indexset.ErrNotActive)
	s.Require().NoError(c.Refine(mi(1, 0)))
	s.Equal(refine.WaitingForPoints, c.State())
	s.Equal(mi(1, 0), c.Training())
	s.ErrorIs(c.Refine(mi(0, 1)), refine.ErrNotSelecting)

	drive(s.T(), c, bilinear)
	s.True(c.Idle())
	s.Contains(c.Accepted(), mi(1, 0))
	s.Nil(c.Training())
}

// TestUnknownPrefix reports foreign results after processing the rest.
func (s *ControllerSuite) TestUnknownPrefix() {
	c, err := refine.New(s.sp, []string{"f"}, refine.WithManual())
	s.Require().NoError(err)
	in, err := c.GenerateNextInput()
	s.Require().NoError(err)
	s.True(c.Owns(in.Prefix))

	out, _ := bilinear(in.Point)
	err = c.OnPointsCollected([]sampler.Result{
		{Prefix: "stranger"},
		{Prefix: in.Prefix, Outputs: sampler.Outputs{Values: out}},
	})
	s.ErrorIs(err, ledger.ErrUnknownRun)
	s.Equal(refine.Selecting, c.State(), "the seed result was still recorded")
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

// TestSharedStore reuses existing points across controllers.
func TestSharedStore(t *testing.T) {
	sp := uniformSpace(t, "x", "y")
	store := ledger.NewStore(0)
	a, err := refine.New(sp, []string{"f"}, refine.WithStore(store))
	require.NoError(t, err)
	drive(t, a, bilinear)
	n := store.Len()

	b, err := refine.New(sp, []string{"f"}, refine.WithStore(store), refine.WithTrainer(rom.Regression{}))
	require.NoError(t, err)
	ready, err := b.StillReady()
	require.NoError(t, err)
	assert.False(t, ready, "every point the second run needs already exists")
	drive(t, b, bilinear)
	assert.Equal(t, n, store.Len())
	assert.Equal(t, a.Accepted(), b.Accepted())
}

func TestNew_Errors(t *testing.T) {
	sp := uniformSpace(t, "x")
	_, err := refine.New(sp, nil)
	assert.ErrorIs(t, err, refine.ErrNoTargets)

	_, err = refine.New(sp, []string{"x"})
	assert.ErrorIs(t, err, sampler.ErrConfiguration)

	_, err = refine.New(sp, []string{"f"}, refine.WithMaxOrder(0))
	assert.ErrorIs(t, err, indexset.ErrMaxOrder)

	_, err = refine.New(space.New(), []string{"f"})
	assert.ErrorIs(t, err, sampler.ErrConfiguration)

	assert.Panics(t, func() { refine.WithTolerance(-1) })
	assert.Panics(t, func() { refine.WithMaxRuns(0) })
	assert.Panics(t, func() { refine.WithMaxAttempts(0) })
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "BudgetExceeded", refine.BudgetExceeded.String())
	assert.Equal(t, "State(?)", refine.State(42).String())
	assert.False(t, refine.Selecting.Terminal())
	assert.True(t, refine.Converged.Terminal())
}
