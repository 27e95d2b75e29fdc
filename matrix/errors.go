// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
//
// Every message is prefixed with "matrix: ..." for easy grepping; operations
// add context with fmt.Errorf("Op: %w", ErrX) and callers match with errors.Is.

package matrix

import "errors"

var (
	// ErrBadShape is returned when a requested shape is invalid (r<=0 or c<=0)
	// or when row slices have uneven lengths.
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrOutOfRange indicates that a row or column index is outside valid bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible operand dimensions.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNaNInf signals a NaN or ±Inf value where finite values are required.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrSingular is returned when a least-squares system is rank deficient
	// within the solver tolerance.
	ErrSingular = errors.New("matrix: singular matrix")
)
