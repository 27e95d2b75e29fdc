// SPDX-License-Identifier: MIT
// Package sampler: sentinel error taxonomy.
//
// Every package in the module defines its own specific sentinels by wrapping
// one of the five classes below, so callers can branch either on the precise
// condition (indexset.ErrNotActive) or on the class (sampler.ErrState).
//
// Propagation policy:
//   - ErrConfiguration / ErrDimensionMismatch abort the whole process before or
//     during setup; no partial state is trustworthy afterwards.
//   - ErrState marks an illegal transition (programming error surfaced as error).
//   - ErrEvaluation is isolated to one point or branch and never aborts a run.
//   - ErrBranchFileMissing is a normal terminal condition, not a failure.

package sampler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration reports an invalid index-set order, subset cardinality,
	// distribution binding or inconsistent variable lists.
	ErrConfiguration = errors.New("sampler: configuration error")

	// ErrDimensionMismatch reports a grid/point dimensionality inconsistency.
	ErrDimensionMismatch = errors.New("sampler: dimension mismatch")

	// ErrState reports an illegal state transition (e.g. accepting a non-active index).
	ErrState = errors.New("sampler: illegal state transition")

	// ErrEvaluation reports that an external model run failed.
	ErrEvaluation = errors.New("sampler: evaluation failed")

	// ErrBranchFileMissing reports that a DET run produced no trigger report.
	ErrBranchFileMissing = errors.New("sampler: branch trigger file missing")
)

// EvaluationError describes a point (or branch) whose model runs failed
// permanently. It unwraps to both ErrEvaluation and the last model error.
type EvaluationError struct {
	Prefix   string             // run identifier of the last attempt
	Point    Point              // evaluation point (nil for DET branches)
	Vars     map[string]float64 // sampled variables of the last attempt
	Attempts int                // number of dispatches performed
	Cause    error              // last error reported by the executor
}

// Error implements error.
func (e *EvaluationError) Error() string {
	var b strings.Builder
	b.WriteString(ErrEvaluation.Error())
	fmt.Fprintf(&b, ": run %q after %d attempt(s)", e.Prefix, e.Attempts)
	if e.Point != nil {
		fmt.Fprintf(&b, " at %s", e.Point.Key())
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

// Unwrap exposes ErrEvaluation and the underlying cause to errors.Is/As.
func (e *EvaluationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrEvaluation}
	}

	return []error{ErrEvaluation, e.Cause}
}

// Configf wraps ErrConfiguration with formatted context.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Statef wraps ErrState with formatted context.
func Statef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

// Dimf wraps ErrDimensionMismatch with formatted context.
func Dimf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDimensionMismatch, fmt.Sprintf(format, args...))
}
