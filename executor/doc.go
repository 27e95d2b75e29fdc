// SPDX-License-Identifier: MIT

// Package executor drives a sampler.Strategy against a model.
//
// The strategies never block and never touch goroutines. A Runner owns the
// stepping loop: it polls StillReady, hands every ready input to a
// Dispatcher, waits for finished runs and feeds them back through
// OnPointsCollected until the strategy is Done. Cancelling the Runner's
// context stops the strategy, drains the runs still in flight and returns;
// the caller then finalizes the strategy as usual.
//
// LocalDispatcher evaluates a Model in-process on a bounded worker pool.
// Other dispatchers (batch schedulers, remote queues) only need to satisfy
// the Dispatcher interface.
package executor
