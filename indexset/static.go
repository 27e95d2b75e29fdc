// SPDX-License-Identifier: MIT

package indexset

import (
	"fmt"
	"math"
)

// Kind names a static (non-adaptive) index-set family.
type Kind string

const (
	KindTensorProduct   Kind = "TensorProduct"
	KindTotalDegree     Kind = "TotalDegree"
	KindHyperbolicCross Kind = "HyperbolicCross"
)

// staticEps absorbs rounding in the weighted cost comparisons.
const staticEps = 1e-12

// Static builds the index set of the given family over len(weights) axes.
// weights may be nil for an isotropic set; otherwise axis k carries the cost
// c_k = max(w)/w_k, so a more important axis reaches higher orders.
//
// Families:
//   - TensorProduct:   i_k*c_k <= order for every k;
//   - TotalDegree:     sum_k i_k*c_k <= order;
//   - HyperbolicCross: prod_k (1 + i_k*c_k) <= order + 1.
//
// The result is downward closed and sorted lexicographically.
//
// Errors: ErrNoFeatures, ErrWeights, ErrMaxOrder (order < 0), ErrUnknownKind.
//
// Complexity: O(|result| * d) plus the pruned enumeration.
func Static(kind Kind, dim int, weights []float64, order int) ([]MultiIndex, error) {
	if dim < 1 {
		return nil, ErrNoFeatures
	}
	if order < 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrMaxOrder, order)
	}
	w, err := normWeights(weights, dim)
	if err != nil {
		return nil, err
	}
	wmax := 0.0
	for _, v := range w {
		wmax = math.Max(wmax, v)
	}
	cost := make([]float64, dim)
	for k, v := range w {
		cost[k] = wmax / v
	}

	var fits func(partial MultiIndex, upto int) bool
	switch kind {
	case KindTensorProduct:
		fits = func(m MultiIndex, upto int) bool {
			for k := 0; k <= upto; k++ {
				if float64(m[k])*cost[k] > float64(order)+staticEps {
					return false
				}
			}

			return true
		}
	case KindTotalDegree:
		fits = func(m MultiIndex, upto int) bool {
			s := 0.0
			for k := 0; k <= upto; k++ {
				s += float64(m[k]) * cost[k]
			}

			return s <= float64(order)+staticEps
		}
	case KindHyperbolicCross:
		fits = func(m MultiIndex, upto int) bool {
			p := 1.0
			for k := 0; k <= upto; k++ {
				p *= 1 + float64(m[k])*cost[k]
			}

			return p <= float64(order+1)+staticEps
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	// Every family is monotone in each coordinate, so a prefix that fails
	// (remaining axes at zero) prunes the whole subtree.
	var out []MultiIndex
	cur := make(MultiIndex, dim)
	var walk func(axis int)
	walk = func(axis int) {
		if axis == dim {
			out = append(out, cur.Clone())
			return
		}
		for v := 0; ; v++ {
			cur[axis] = v
			if !fits(cur, axis) {
				break
			}
			walk(axis + 1)
		}
		cur[axis] = 0
	}
	walk(0)
	Sort(out)

	return out, nil
}

// TensorProduct is Static(KindTensorProduct, ...).
func TensorProduct(dim int, weights []float64, order int) ([]MultiIndex, error) {
	return Static(KindTensorProduct, dim, weights, order)
}

// TotalDegree is Static(KindTotalDegree, ...).
func TotalDegree(dim int, weights []float64, order int) ([]MultiIndex, error) {
	return Static(KindTotalDegree, dim, weights, order)
}

// HyperbolicCross is Static(KindHyperbolicCross, ...).
func HyperbolicCross(dim int, weights []float64, order int) ([]MultiIndex, error) {
	return Static(KindHyperbolicCross, dim, weights, order)
}
