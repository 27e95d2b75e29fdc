// SPDX-License-Identifier: MIT

// Package metrics exposes refinement progress as Prometheus collectors.
//
// A Recorder is registered on an injected prometheus.Registerer (never the
// global default inside library code). Every method is nil-safe, so
// strategies built without metrics pay nothing.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lvlsample"

// Run statuses used as label values.
const (
	StatusOK      = "ok"
	StatusRetried = "retried"
	StatusFailed  = "failed"
)

// Recorder holds the sampler collectors. The zero value is not usable; a nil
// *Recorder is a valid no-op.
type Recorder struct {
	submitted *prometheus.CounterVec
	collected *prometheus.CounterVec
	accepted  *prometheus.CounterVec
	residual  *prometheus.GaugeVec
	branches  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
// Collectors already registered on reg (same descriptor) are reused.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "points_submitted_total",
			Help: "Model runs handed to the dispatcher, by sampler.",
		}, []string{"sampler"}),
		collected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "points_collected_total",
			Help: "Model runs collected, by sampler and status.",
		}, []string{"sampler", "status"}),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "refinements_accepted_total",
			Help: "Indices or subsets accepted into a surrogate, by sampler.",
		}, []string{"sampler"}),
		residual: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "residual_impact",
			Help: "Current global residual (sum of expected impacts), by sampler.",
		}, []string{"sampler"}),
		branches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "det_branches_total",
			Help: "Dynamic event tree branches reaching a terminal status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "model_run_seconds",
			Help:    "Wall time of one model evaluation.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"sampler"}),
	}
	if reg == nil {
		return r, nil
	}
	var err error
	if r.submitted, err = register(reg, r.submitted); err != nil {
		return nil, err
	}
	if r.collected, err = register(reg, r.collected); err != nil {
		return nil, err
	}
	if r.accepted, err = register(reg, r.accepted); err != nil {
		return nil, err
	}
	if r.residual, err = register(reg, r.residual); err != nil {
		return nil, err
	}
	if r.branches, err = register(reg, r.branches); err != nil {
		return nil, err
	}
	if r.duration, err = register(reg, r.duration); err != nil {
		return nil, err
	}

	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, fmt.Errorf("metrics: register: %w", err)
}

// Submitted counts one dispatched run.
func (r *Recorder) Submitted(sampler string) {
	if r == nil {
		return
	}
	r.submitted.WithLabelValues(sampler).Inc()
}

// Collected counts one collected run with its status.
func (r *Recorder) Collected(sampler, status string) {
	if r == nil {
		return
	}
	r.collected.WithLabelValues(sampler, status).Inc()
}

// Accepted counts one accepted refinement.
func (r *Recorder) Accepted(sampler string) {
	if r == nil {
		return
	}
	r.accepted.WithLabelValues(sampler).Inc()
}

// Residual sets the current residual.
func (r *Recorder) Residual(sampler string, v float64) {
	if r == nil {
		return
	}
	r.residual.WithLabelValues(sampler).Set(v)
}

// Branch counts one DET branch reaching status.
func (r *Recorder) Branch(status string) {
	if r == nil {
		return
	}
	r.branches.WithLabelValues(status).Inc()
}

// ModelDuration observes the wall time of one model run.
func (r *Recorder) ModelDuration(sampler string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(sampler).Observe(d.Seconds())
}
