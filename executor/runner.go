// SPDX-License-Identifier: MIT

package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lvlsample/logging"
	"github.com/katalvlaran/lvlsample/sampler"
)

// Runner steps a strategy until it is done or the context is cancelled.
// A Runner is single-use and must not be shared between goroutines.
type Runner struct {
	strategy   sampler.Strategy
	dispatcher Dispatcher
	log        *slog.Logger

	submitted int
	collected int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger injects a structured logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.log = logging.Component(l, "runner") }
}

// NewRunner pairs a strategy with a dispatcher.
func NewRunner(s sampler.Strategy, d Dispatcher, opts ...RunnerOption) *Runner {
	r := &Runner{strategy: s, dispatcher: d, log: logging.Component(nil, "runner")}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run drives the strategy to a terminal state.
//
// On cancellation the strategy is stopped, the runs still in flight are
// drained into it and ctx.Err() is returned; Finalize is still valid
// afterwards.
//
// Errors: ctx.Err(), ErrStalled, and any strategy or dispatcher error.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return r.cancel(err)
		}
		if r.strategy.Done() && r.dispatcher.InFlight() == 0 {
			r.log.Info("strategy done", "submitted", r.submitted, "collected", r.collected)
			return nil
		}
		if err := r.submitReady(ctx); err != nil {
			if ctx.Err() != nil {
				return r.cancel(ctx.Err())
			}
			return err
		}

		results := r.dispatcher.Poll()
		if len(results) == 0 {
			if r.dispatcher.InFlight() == 0 {
				if r.strategy.Done() {
					continue
				}
				return ErrStalled
			}
			var err error
			if results, err = r.dispatcher.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return r.cancel(ctx.Err())
				}
				return err
			}
		}
		if err := r.collect(results); err != nil {
			return err
		}
	}
}

func (r *Runner) submitReady(ctx context.Context) error {
	for {
		ready, err := r.strategy.StillReady()
		if err != nil || !ready {
			return err
		}
		in, err := r.strategy.GenerateNextInput()
		if err != nil {
			return err
		}
		id, err := r.dispatcher.Submit(ctx, in)
		if err != nil {
			return fmt.Errorf("executor: submit %q: %w", in.Prefix, err)
		}
		r.submitted++
		r.log.Debug("run submitted", "prefix", in.Prefix, "job", id)
	}
}

func (r *Runner) collect(results []sampler.Result) error {
	if len(results) == 0 {
		return nil
	}
	r.collected += len(results)

	return r.strategy.OnPointsCollected(results)
}

// cancel stops the strategy and feeds it every run still in flight.
func (r *Runner) cancel(cause error) error {
	r.strategy.Stop()
	r.log.Info("run cancelled", "submitted", r.submitted, "in_flight", r.dispatcher.InFlight())
	var errs []error
	for r.dispatcher.InFlight() > 0 {
		results, err := r.dispatcher.Wait(context.Background())
		if err != nil {
			errs = append(errs, err)
			break
		}
		if err = r.collect(results); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(append([]error{cause}, errs...)...)
}

// Submitted returns the runs handed to the dispatcher so far.
func (r *Runner) Submitted() int { return r.submitted }

// Collected returns the runs fed back to the strategy so far.
func (r *Runner) Collected() int { return r.collected }
