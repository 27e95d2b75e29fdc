// SPDX-License-Identifier: MIT

// Package rom trains polynomial-chaos surrogates (reduced-order models) on
// sparse quadrature grids.
//
// A PCE is a finite expansion f(x) ≈ Σ_j c_j Φ_j(z(x)) over a downward-closed
// set of multi-indices j, where Φ_j is the tensor product of one-dimensional
// orthonormal polynomials (Legendre or probabilists' Hermite, chosen by each
// feature's quadrature rule) and z(x) is the rule's standardizing map. Because
// the basis is orthonormal under the input measure:
//
//	mean     = c_0
//	variance = Σ_{j ≠ 0} c_j²
//
// Two trainers are provided:
//
//	Projection  sparse pseudo-spectral projection: each Smolyak tensor term
//	            projects onto the basis functions it resolves exactly, and
//	            the projections are combined with the Smolyak coefficients.
//	Regression  least squares on the sparse-grid points (Householder QR).
//
// Surrogates can be embedded into a larger feature space and summed (Sum),
// which is how cut-HDMR components are assembled.
package rom
