// SPDX-License-Identifier: MIT

package quadrature

import "math"

// clenshawCurtis fills x, w with the n-point Clenshaw–Curtis rule on [-1, 1]
// (weights sum to 2). Nodes are the Chebyshev extrema cos(j*pi/(n-1)).
//
// Closed form (N = n-1, c_j = 1 at the ends and 2 inside, b_k = 1 when 2k = N
// and 2 otherwise):
//
//	w_j = c_j/N * (1 - sum_{k=1}^{N/2} b_k/(4k^2-1) * cos(2*k*j*pi/N))
//
// Complexity: O(n^2).
func clenshawCurtis(x, w []float64) {
	n := len(x)
	if n == 1 {
		x[0], w[0] = 0, 2
		return
	}
	N := n - 1
	for j := 0; j < n; j++ {
		x[j] = snap(math.Cos(float64(j) * math.Pi / float64(N)))
		sum := 0.0
		for k := 1; 2*k <= N; k++ {
			b := 2.0
			if 2*k == N {
				b = 1
			}
			sum += b / float64(4*k*k-1) * math.Cos(2*float64(k*j)*math.Pi/float64(N))
		}
		c := 2.0
		if j == 0 || j == N {
			c = 1
		}
		w[j] = c / float64(N) * (1 - sum)
	}
}
