// SPDX-License-Identifier: MIT

package indexset

import (
	"slices"
	"strconv"
	"strings"
)

// MultiIndex is a per-dimension polynomial/quadrature order tuple.
type MultiIndex []int

// Zero returns the d-dimensional zero index.
func Zero(d int) MultiIndex { return make(MultiIndex, d) }

// Unit returns the d-dimensional index with a single 1 on axis k.
func Unit(d, k int) MultiIndex {
	m := make(MultiIndex, d)
	m[k] = 1

	return m
}

// Key returns the canonical map key, e.g. "(2,0,1)".
func (m MultiIndex) Key() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteByte(')')

	return b.String()
}

// String implements fmt.Stringer.
func (m MultiIndex) String() string { return m.Key() }

// Clone returns an independent copy.
func (m MultiIndex) Clone() MultiIndex { return slices.Clone(m) }

// IsZero reports whether every entry is zero.
func (m MultiIndex) IsZero() bool {
	for _, v := range m {
		if v != 0 {
			return false
		}
	}

	return true
}

// Order returns the total order (sum of entries).
func (m MultiIndex) Order() int {
	s := 0
	for _, v := range m {
		s += v
	}

	return s
}

// Predecessors returns m - e_k for every axis k with m[k] > 0, in axis order.
// These are the on-axis predecessors used by admissibility and impact estimation.
func (m MultiIndex) Predecessors() []MultiIndex {
	out := make([]MultiIndex, 0, len(m))
	for k, v := range m {
		if v == 0 {
			continue
		}
		p := m.Clone()
		p[k]--
		out = append(out, p)
	}

	return out
}

// Successors returns m + e_k for every axis k, in axis order.
func (m MultiIndex) Successors() []MultiIndex {
	out := make([]MultiIndex, len(m))
	for k := range m {
		s := m.Clone()
		s[k]++
		out[k] = s
	}

	return out
}

// Embed places m into a dim-dimensional index at the given axes (len(axes)==len(m)).
func (m MultiIndex) Embed(dim int, axes []int) MultiIndex {
	out := make(MultiIndex, dim)
	for i, a := range axes {
		out[a] = m[i]
	}

	return out
}

// Compare orders indices lexicographically (shorter first on a common prefix).
func Compare(a, b MultiIndex) int { return slices.Compare(a, b) }

// Sort sorts indices in place lexicographically.
func Sort(ms []MultiIndex) { slices.SortFunc(ms, Compare) }

// DownwardClosed reports whether every predecessor of every member is a member.
func DownwardClosed(ms []MultiIndex) bool {
	seen := make(map[string]struct{}, len(ms))
	for _, m := range ms {
		seen[m.Key()] = struct{}{}
	}
	for _, m := range ms {
		for _, p := range m.Predecessors() {
			if _, ok := seen[p.Key()]; !ok {
				return false
			}
		}
	}

	return true
}
