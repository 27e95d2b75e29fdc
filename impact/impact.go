// SPDX-License-Identifier: MIT

package impact

import (
	"math"

	"github.com/katalvlaran/lvlsample/indexset"
)

// Expected is the geometric mean of the actual impacts of idx's on-axis
// predecessors found in actual (keyed by MultiIndex.Key()). The zero index,
// and an index none of whose predecessors is known, get 1.
//
// Complexity: O(d).
func Expected(idx indexset.MultiIndex, actual map[string]float64) float64 {
	if idx.IsZero() {
		return 1
	}
	prod, n := 1.0, 0
	for _, p := range idx.Predecessors() {
		a, ok := actual[p.Key()]
		if !ok {
			continue
		}
		prod *= a
		n++
	}
	if n == 0 {
		return 1
	}

	return math.Pow(prod, 1/float64(n))
}

// Actual is the share of idx's coefficient in the surrogate variance:
// c_idx² / Σ_{j≠0} c_j². coeffs is keyed by MultiIndex.Key(). The zero index
// gets 1; a zero denominator gives 0.
//
// Complexity: O(|coeffs|).
func Actual(idx indexset.MultiIndex, coeffs map[string]float64) float64 {
	if idx.IsZero() {
		return 1
	}
	zero := indexset.Zero(len(idx)).Key()
	den := 0.0
	for k, c := range coeffs {
		if k == zero {
			continue
		}
		den += c * c
	}
	if den == 0 {
		return 0
	}
	c := coeffs[idx.Key()]

	return c * c / den
}

// SubsetActual is variance/total, 0 when total is 0.
func SubsetActual(variance, total float64) float64 {
	if total == 0 {
		return 0
	}

	return variance / total
}

// GlobalResidual sums expected impacts.
func GlobalResidual(expected map[string]float64) float64 {
	s := 0.0
	for _, v := range expected {
		s += v
	}

	return s
}
