// SPDX-License-Identifier: MIT

// Package refine implements impact-ranked adaptive refinement of a
// polynomial-chaos surrogate on a sparse grid (IndexSetRefinement).
//
// A Controller owns an adaptive index set. Each cycle it picks the active
// index with the highest expected impact, requests the sparse-grid points the
// index adds, retrains once they are in, records the index's actual impact
// (its share of the surrogate variance) and forwards the frontier.
//
// State machine:
//
//	Seeding -> Selecting -> WaitingForPoints -> Training -> Selecting ...
//	Selecting -> Resolved        (frontier empty)
//	Selecting -> Converged       (residual < tolerance)
//	Selecting -> BudgetExceeded  (next index would exceed the run budget)
//	any       -> Stopped         (Stop)
//	Seeding   -> Failed          (seed points failed permanently)
//
// The controller is single-threaded and non-blocking: an external loop polls
// StillReady, dispatches GenerateNextInput values and feeds results back with
// OnPointsCollected. StillReady is idempotent: polling twice without new
// results never selects twice.
//
// Manual mode hands selection to an owner (the Sobol composer): the
// controller still seeds, trains and forwards, but only refines the index the
// owner passes to Refine.
package refine
