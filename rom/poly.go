// SPDX-License-Identifier: MIT

package rom

import (
	"math"

	"github.com/katalvlaran/lvlsample/quadrature"
)

// Orthonormal returns Φ_0(z) .. Φ_maxDeg(z) of basis b.
//
// Legendre: √(2n+1)·P_n(z), orthonormal for z ~ Uniform(-1, 1).
// Hermite:  He_n(z)/√(n!),  orthonormal for z ~ Normal(0, 1).
//
// Complexity: O(maxDeg).
func Orthonormal(b quadrature.Basis, maxDeg int, z float64) []float64 {
	out := make([]float64, maxDeg+1)
	out[0] = 1
	if maxDeg == 0 {
		return out
	}
	out[1] = z
	for n := 1; n < maxDeg; n++ {
		fn := float64(n)
		if b == quadrature.BasisHermite {
			out[n+1] = z*out[n] - fn*out[n-1]
		} else {
			out[n+1] = ((2*fn+1)*z*out[n] - fn*out[n-1]) / (fn + 1)
		}
	}
	// normalize in place; the recurrence above needs the raw values
	fact := 1.0
	for n := range out {
		if b == quadrature.BasisHermite {
			if n > 0 {
				fact *= float64(n)
			}
			out[n] /= math.Sqrt(fact)
		} else {
			out[n] *= math.Sqrt(float64(2*n + 1))
		}
	}

	return out
}
