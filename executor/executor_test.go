package executor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/executor"
	"github.com/katalvlaran/lvlsample/metrics"
	"github.com/katalvlaran/lvlsample/refine"
	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/sobol"
	"github.com/katalvlaran/lvlsample/space"
)

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

var bilinear = executor.ModelFunc(func(_ context.Context, in sampler.Input) (sampler.Outputs, error) {
	x, y := in.SampledVars["x"], in.SampledVars["y"]

	return sampler.Outputs{Values: map[string]float64{"f": 1 + x + y + x*y}}, nil
})

func TestRunner_Controller(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	require.NoError(t, err)

	c, err := refine.New(uniformSpace(t, "x", "y"), []string{"f"}, refine.WithTolerance(1e-6), refine.WithMetrics(rec))
	require.NoError(t, err)
	d := executor.NewLocalDispatcher(bilinear, executor.WithWorkers(3), executor.WithDispatcherMetrics(rec))
	r := executor.NewRunner(c, d)

	require.NoError(t, r.Run(context.Background()))
	require.NoError(t, d.Close())

	assert.Equal(t, refine.Converged, c.State())
	assert.Equal(t, c.Store().Len(), r.Submitted())
	assert.Equal(t, r.Submitted(), r.Collected())

	pce, err := c.Finalize()
	require.NoError(t, err)
	assert.InDelta(t, 7.0/9.0, pce.Variance("f"), 1e-9)

	n, err := testutil.GatherAndCount(reg, "lvlsample_model_run_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunner_Composer(t *testing.T) {
	c, err := sobol.New(uniformSpace(t, "x", "y", "z"), []string{"f"}, sobol.WithTolerance(1e-6))
	require.NoError(t, err)
	d := executor.NewLocalDispatcher(bilinear)
	defer d.Close()

	require.NoError(t, executor.NewRunner(c, d).Run(context.Background()))
	assert.Equal(t, refine.Converged, c.State())

	h, err := c.Finalize()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, h.Mean("f"), 1e-9)
}

func TestRunner_Cancel(t *testing.T) {
	started := make(chan struct{}, 16)
	blocking := executor.ModelFunc(func(ctx context.Context, _ sampler.Input) (sampler.Outputs, error) {
		started <- struct{}{}
		<-ctx.Done()

		return sampler.Outputs{}, ctx.Err()
	})
	c, err := refine.New(uniformSpace(t, "x"), []string{"f"})
	require.NoError(t, err)
	d := executor.NewLocalDispatcher(blocking)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- executor.NewRunner(c, d).Run(ctx) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("model never started")
	}
	cancel()

	select {
	case err = <-errc:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not return after cancel")
	}
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, c.Done())
	assert.Zero(t, d.InFlight())
	_, err = c.Finalize()
	assert.ErrorIs(t, err, refine.ErrNoSurrogate)
}

func TestLocalDispatcher_Panic(t *testing.T) {
	d := executor.NewLocalDispatcher(executor.ModelFunc(func(context.Context, sampler.Input) (sampler.Outputs, error) {
		panic("boom")
	}))
	id, err := d.Submit(context.Background(), sampler.Input{Prefix: "1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	results, err := d.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].Prefix)
	assert.Equal(t, id, results[0].JobID)
	assert.ErrorIs(t, results[0].Err, executor.ErrModelPanic)
	assert.ErrorIs(t, results[0].Err, sampler.ErrEvaluation)

	require.NoError(t, d.Close())
	_, err = d.Submit(context.Background(), sampler.Input{Prefix: "2"})
	assert.ErrorIs(t, err, executor.ErrClosed)
}

func TestLocalDispatcher_BoundedPool(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})
	model := executor.ModelFunc(func(context.Context, sampler.Input) (sampler.Outputs, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)

		return sampler.Outputs{}, nil
	})
	d := executor.NewLocalDispatcher(model, executor.WithWorkers(2))

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()
	for i := 0; i < 5; i++ {
		_, err := d.Submit(context.Background(), sampler.Input{})
		require.NoError(t, err)
	}
	require.NoError(t, d.Close())

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Len(t, d.Poll(), 5)
	assert.Zero(t, d.InFlight())
}

func TestRunner_FailuresAreIsolated(t *testing.T) {
	var calls atomic.Int32
	flaky := executor.ModelFunc(func(ctx context.Context, in sampler.Input) (sampler.Outputs, error) {
		if calls.Add(1) == 1 {
			return sampler.Outputs{}, errors.New("transient")
		}

		return bilinear(ctx, in)
	})
	c, err := refine.New(uniformSpace(t, "x", "y"), []string{"f"}, refine.WithTolerance(1e-6))
	require.NoError(t, err)
	d := executor.NewLocalDispatcher(flaky, executor.WithWorkers(1))
	defer d.Close()

	r := executor.NewRunner(c, d)
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, refine.Converged, c.State())
	assert.Empty(t, c.Errors())
	assert.Equal(t, c.Store().Len()+1, r.Submitted())
}
