// SPDX-License-Identifier: MIT

// Package indexset maintains the multi-index sets that drive polynomial
// refinement.
//
// A MultiIndex is a per-dimension order tuple (e.g. (2,0,1)). A Set splits the
// indices it knows about into three pools:
//
//   - accepted: finalized, contribute to the surrogate;
//   - active:   the candidate frontier;
//   - rejected: candidates whose evaluation failed permanently.
//
// Admissibility is the central invariant: an index becomes active only when
// every on-axis predecessor (index minus one unit vector) is accepted. Forward
// enforces it; Accept and Reject only move indices out of the active pool.
//
// Determinism:
//
//	Forward visits accepted indices in lexicographic order and axes in feature
//	order, so identical pool histories yield identical frontiers.
//
// Static families (TensorProduct, TotalDegree, HyperbolicCross) build the
// classic non-adaptive sets with optional importance weights.
//
// Errors wrap the sampler taxonomy: ErrMaxOrder, ErrNoFeatures, ErrWeights,
// ErrNotDownwardClosed and ErrUnknownKind are configuration errors; ErrNotActive
// is a state error; ErrIndexDimension is a dimension mismatch.
package indexset
