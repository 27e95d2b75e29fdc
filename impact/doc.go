// SPDX-License-Identifier: MIT

// Package impact estimates how much a refinement is expected to change, and
// actually changed, the variance of a surrogate.
//
// Formulas:
//
//	Expected(i) = Π_{p ∈ pred(i) ∩ known} actual(p)^(1/N)   (N = |pred(i) ∩ known|)
//	Actual(i)   = c_i² / Σ_{j≠0} c_j²                          (0 on a zero denominator)
//	Residual    = Σ_{active i} Expected(i)
//
// The zero index has impact 1 by convention. With several targets a candidate
// scores the maximum over targets and the residual is the maximum of the
// per-target sums; Record keeps that bookkeeping.
package impact
