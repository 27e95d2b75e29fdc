// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lvlsample/logging"
	"github.com/katalvlaran/lvlsample/metrics"
	"github.com/katalvlaran/lvlsample/sampler"
)

// DefaultWorkers bounds concurrent model runs of a LocalDispatcher.
const DefaultWorkers = 4

// Model evaluates one input.
type Model interface {
	Evaluate(ctx context.Context, in sampler.Input) (sampler.Outputs, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, in sampler.Input) (sampler.Outputs, error)

// Evaluate implements Model.
func (f ModelFunc) Evaluate(ctx context.Context, in sampler.Input) (sampler.Outputs, error) {
	return f(ctx, in)
}

// Dispatcher runs inputs asynchronously and hands back finished runs.
type Dispatcher interface {
	// Submit starts a run and returns its job id. It may block while the
	// dispatcher is saturated.
	Submit(ctx context.Context, in sampler.Input) (string, error)

	// Poll returns the runs finished since the last Poll or Wait, without blocking.
	Poll() []sampler.Result

	// Wait blocks until at least one run finished (returning every finished
	// run), no run is in flight, or ctx is done.
	Wait(ctx context.Context) ([]sampler.Result, error)

	// InFlight returns the number of submitted runs not yet returned by Poll or Wait.
	InFlight() int
}

// LocalDispatcher evaluates a Model on an errgroup-bounded pool of goroutines.
type LocalDispatcher struct {
	model   Model
	g       errgroup.Group
	log     *slog.Logger
	metrics *metrics.Recorder

	mu       sync.Mutex
	finished []sampler.Result
	inflight int
	closed   bool
	notify   chan struct{}
}

var _ Dispatcher = (*LocalDispatcher)(nil)

// DispatcherOption configures a LocalDispatcher.
type DispatcherOption func(*LocalDispatcher)

// WithWorkers bounds the concurrent runs (panics when n < 1).
func WithWorkers(n int) DispatcherOption {
	if n < 1 {
		panic("executor: WithWorkers: workers must be >= 1")
	}

	return func(d *LocalDispatcher) { d.g.SetLimit(n) }
}

// WithDispatcherLogger injects a structured logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *LocalDispatcher) { d.log = logging.Component(l, "dispatcher") }
}

// WithDispatcherMetrics records model run durations.
func WithDispatcherMetrics(m *metrics.Recorder) DispatcherOption {
	return func(d *LocalDispatcher) { d.metrics = m }
}

// NewLocalDispatcher returns a dispatcher evaluating model with DefaultWorkers.
func NewLocalDispatcher(model Model, opts ...DispatcherOption) *LocalDispatcher {
	d := &LocalDispatcher{
		model:  model,
		log:    logging.Component(nil, "dispatcher"),
		notify: make(chan struct{}, 1),
	}
	d.g.SetLimit(DefaultWorkers)
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Submit schedules in on the pool. It blocks while every worker is busy.
//
// Errors: ErrClosed.
func (d *LocalDispatcher) Submit(ctx context.Context, in sampler.Input) (string, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", ErrClosed
	}
	d.inflight++
	d.mu.Unlock()

	id := uuid.NewString()
	d.g.Go(func() error {
		start := time.Now()
		out, err := d.evaluate(ctx, in)
		d.metrics.ModelDuration(in.SamplerType, time.Since(start))
		if err != nil {
			d.log.Debug("run failed", "prefix", in.Prefix, "job", id, "err", err)
		}
		d.finish(sampler.Result{Prefix: in.Prefix, JobID: id, Outputs: out, Err: err})

		return nil
	})

	return id, nil
}

func (d *LocalDispatcher) evaluate(ctx context.Context, in sampler.Input) (out sampler.Outputs, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrModelPanic, r)
		}
	}()
	if err = ctx.Err(); err != nil {
		return sampler.Outputs{}, err
	}

	return d.model.Evaluate(ctx, in)
}

func (d *LocalDispatcher) finish(r sampler.Result) {
	d.mu.Lock()
	d.finished = append(d.finished, r)
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Poll returns the finished runs without blocking.
func (d *LocalDispatcher) Poll() []sampler.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.finished
	d.finished = nil
	d.inflight -= len(out)

	return out
}

// Wait blocks until a run finished, nothing is in flight or ctx is done.
func (d *LocalDispatcher) Wait(ctx context.Context) ([]sampler.Result, error) {
	for {
		if out := d.Poll(); len(out) > 0 {
			return out, nil
		}
		if d.InFlight() == 0 {
			return nil, nil
		}
		select {
		case <-d.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// InFlight returns the submitted runs not yet handed back.
func (d *LocalDispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.inflight
}

// Close rejects further submissions and waits for the running models.
// Results finished meanwhile stay available to Poll.
func (d *LocalDispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	return d.g.Wait()
}
