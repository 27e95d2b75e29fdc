// SPDX-License-Identifier: MIT

// Package sparsegrid assembles Smolyak sparse quadrature grids from a
// downward-closed multi-index set and one quadrature rule per feature.
//
// For an index set Λ the combination technique weights the tensor rule of
// every i in Λ by
//
//	c(i) = Σ_{z ∈ {0,1}^d, i+z ∈ Λ} (−1)^{|z|}
//
// and sums the tensor rules with c(i) ≠ 0. Points produced by several tensor
// rules are merged through a rounding key (DefaultKeyDigits significant digits)
// and their weights summed. The resulting Grid is sorted lexicographically by
// coordinates, so building the same set twice yields byte-identical grids.
//
// Build is pure: it neither mutates its inputs nor keeps state between calls.
package sparsegrid
