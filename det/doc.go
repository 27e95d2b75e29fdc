// SPDX-License-Identifier: MIT

// Package det implements the Dynamic Event Tree branch manager
// (BranchRefinement).
//
// Every sampled distribution carries an ordered list of CDF thresholds. A
// branch runs the external model from its parent's end state until one of the
// thresholds fires; the model reports the firing in a branch trigger document
// (see Trigger). The manager then splits the branch into an "unchanged"
// continuation and one child per alternative value of the changed parameters,
// each with its conditional probability.
//
// Branch lifecycle:
//
//	Queued -> Running -> Completed   (no trigger: history ends)
//	Queued -> Running -> Branched    (children are Queued or Truncated)
//	Running -> Queued                (failed run, retried)
//	Running -> Failed                (failed permanently)
//	Queued|Running -> Unfinished     (Stop or run budget)
//
// Branches live in an arena indexed by BranchID; a child stores its parent's
// id, never a pointer.
//
// Probability conservation: the conditional probabilities of all childless
// branches always sum to the root probability. The dead-end rule keeps this
// true on the last threshold of a distribution, where the unchanged
// continuation is omitted and the alternatives are renormalized to 1.
package det
