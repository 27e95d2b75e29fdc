// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
)

// DefaultRankTol is the relative pivot tolerance below which LeastSquares
// declares the system rank deficient.
const DefaultRankTol = 1e-12

const (
	opMatVec       = "MatVec"
	opLeastSquares = "LeastSquares"
)

// MatVec computes y = m * x.
//
// Errors: ErrDimensionMismatch when len(x) != m.Cols().
//
// Complexity: Time O(r*c), Space O(r).
func MatVec(m *Dense, x []float64) ([]float64, error) {
	if len(x) != m.c {
		return nil, fmt.Errorf("%s: len(x)=%d, cols=%d: %w", opMatVec, len(x), m.c, ErrDimensionMismatch)
	}
	y := make([]float64, m.r)
	var acc float64
	for i := 0; i < m.r; i++ {
		acc = 0
		base := i * m.c
		for j := 0; j < m.c; j++ {
			if x[j] != 0 {
				acc += m.data[base+j] * x[j]
			}
		}
		y[i] = acc
	}

	return y, nil
}

// LeastSquares solves min ||A x - b||_2 for a tall (rows >= cols) A of full
// column rank.
//
// Implementation:
//   - Stage 1: clone A and b.
//   - Stage 2: for k=0..n-1 build the Householder reflector of column k below
//     the diagonal and apply it to the remaining columns and to b, leaving R
//     in the upper triangle and Qᵀb in b.
//   - Stage 3: back-substitute R x = (Qᵀb)[:n].
//
// Inputs:
//   - a: m×n design matrix, m >= n.
//   - b: right-hand side of length m.
//
// Returns: x of length n.
//
// Errors:
//   - ErrDimensionMismatch (len(b) != m, or m < n).
//   - ErrSingular when |R[k,k]| <= DefaultRankTol * max|R[i,i]|.
//
// Determinism: fixed column order; no pivoting.
//
// Complexity: Time O(m*n^2), Space O(m*n).
func LeastSquares(a *Dense, b []float64) ([]float64, error) {
	m, n := a.r, a.c
	if len(b) != m {
		return nil, fmt.Errorf("%s: len(b)=%d, rows=%d: %w", opLeastSquares, len(b), m, ErrDimensionMismatch)
	}
	if m < n {
		return nil, fmt.Errorf("%s: underdetermined %dx%d system: %w", opLeastSquares, m, n, ErrDimensionMismatch)
	}
	r := a.Clone()
	qtb := append([]float64(nil), b...)
	v := make([]float64, m)

	var (
		i, j, k          int
		norm, alpha, sum float64
		beta, tau        float64
	)
	for k = 0; k < n; k++ {
		norm = 0
		for i = k; i < m; i++ {
			norm += r.data[i*n+k] * r.data[i*n+k]
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		alpha = -math.Copysign(norm, r.data[k*n+k])

		for i = k; i < m; i++ {
			v[i] = r.data[i*n+k]
		}
		v[k] -= alpha
		beta = 0
		for i = k; i < m; i++ {
			beta += v[i] * v[i]
		}
		if beta == 0 {
			continue
		}
		tau = 2 / beta

		for j = k; j < n; j++ {
			sum = 0
			for i = k; i < m; i++ {
				sum += v[i] * r.data[i*n+j]
			}
			for i = k; i < m; i++ {
				r.data[i*n+j] -= tau * v[i] * sum
			}
		}
		sum = 0
		for i = k; i < m; i++ {
			sum += v[i] * qtb[i]
		}
		for i = k; i < m; i++ {
			qtb[i] -= tau * v[i] * sum
		}
	}

	maxDiag := 0.0
	for k = 0; k < n; k++ {
		maxDiag = math.Max(maxDiag, math.Abs(r.data[k*n+k]))
	}
	x := make([]float64, n)
	for k = n - 1; k >= 0; k-- {
		piv := r.data[k*n+k]
		if math.Abs(piv) <= DefaultRankTol*maxDiag || maxDiag == 0 {
			return nil, fmt.Errorf("%s: pivot %d: %w", opLeastSquares, k, ErrSingular)
		}
		sum = qtb[k]
		for j = k + 1; j < n; j++ {
			sum -= r.data[k*n+j] * x[j]
		}
		x[k] = sum / piv
	}

	return x, nil
}
