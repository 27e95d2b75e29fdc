// SPDX-License-Identifier: MIT

// Package matrix provides the small dense linear-algebra kernel the
// regression trainer needs: a row-major Dense matrix with checked accessors,
// matrix–vector products and a Householder least-squares solver.
//
// Determinism:
//
//	Every kernel uses fixed loop orders and no map iteration, so identical
//	inputs give bit-identical outputs.
//
// Errors are package sentinels (ErrBadShape, ErrOutOfRange, ErrNaNInf,
// ErrDimensionMismatch, ErrSingular), matched with errors.Is.
package matrix
