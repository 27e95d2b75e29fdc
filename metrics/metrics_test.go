package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlsample/metrics"
)

// TestRecorder_Counts records a few events on a private registry.
func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := metrics.New(reg)
	require.NoError(t, err)

	r.Submitted("AdaptiveSparseGrid")
	r.Submitted("AdaptiveSparseGrid")
	r.Collected("AdaptiveSparseGrid", metrics.StatusFailed)
	r.Accepted("AdaptiveSparseGrid")
	r.Residual("AdaptiveSparseGrid", 0.25)
	r.Branch("completedHistory")
	r.ModelDuration("AdaptiveSparseGrid", 3*time.Millisecond)

	n, err := testutil.GatherAndCount(reg, "lvlsample_points_submitted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Re-registering on the same registry reuses the collectors.
	r2, err := metrics.New(reg)
	require.NoError(t, err)
	r2.Submitted("AdaptiveSparseGrid")

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "lvlsample_points_submitted_total" {
			assert.Equal(t, 3.0, f.GetMetric()[0].GetCounter().GetValue())
		}
		if f.GetName() == "lvlsample_residual_impact" {
			assert.Equal(t, 0.25, f.GetMetric()[0].GetGauge().GetValue())
		}
	}
}

// TestRecorder_NilSafe verifies the no-op recorder.
func TestRecorder_NilSafe(t *testing.T) {
	var r *metrics.Recorder
	assert.NotPanics(t, func() {
		r.Submitted("x")
		r.Collected("x", metrics.StatusOK)
		r.Accepted("x")
		r.Residual("x", 1)
		r.Branch("failed")
		r.ModelDuration("x", time.Second)
	})
}
