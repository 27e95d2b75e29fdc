// SPDX-License-Identifier: MIT

// Package ledger tracks evaluation points through their lifecycle:
//
//	needed -> submitted -> existing
//
// Store holds the existing pool: an append-only, mutex-guarded map from point
// key to model outputs that several controllers may share (the Sobol composer
// hands one Store to every subset). Queue holds one controller's needed and
// submitted pools. A point key is in at most one of the three pools of a
// queue/store pair; Need refuses points already known to either.
package ledger
