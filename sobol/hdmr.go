// SPDX-License-Identifier: MIT

package sobol

import (
	"github.com/katalvlaran/lvlsample/rom"
)

// Component is one cut surrogate g_v of the composed HDMR and its weight
// Σ_{u accepted, u ⊇ v} (-1)^{|u|-|v|}.
type Component struct {
	Subset    Subset
	Names     []string
	Weight    float64
	Actual    float64  // share of variance of f_v at composition time
	Surrogate *rom.PCE // g_v over the subset's features
}

// HDMR is the composed surrogate. The embedded expansion covers every feature
// and answers Mean, Variance, Evaluate and SobolIndices directly.
type HDMR struct {
	*rom.PCE
	components []Component
}

// Components returns the cut surrogates in acceptance order, the constant first.
func (h *HDMR) Components() []Component {
	return append([]Component(nil), h.components...)
}

// Weight returns the combination weight of subset s (0 when s was not accepted).
func (h *HDMR) Weight(s Subset) float64 {
	key := s.Key()
	for _, c := range h.components {
		if c.Subset.Key() == key {
			return c.Weight
		}
	}

	return 0
}
