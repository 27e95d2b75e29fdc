// SPDX-License-Identifier: MIT

package sobol

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Subset is a sorted tuple of feature positions. The empty subset is the
// constant (reference) component.
type Subset []int

// NewSubset validates positions against dim and returns them as a Subset.
//
// Errors: ErrSubset for unsorted, repeated or out-of-range positions.
func NewSubset(dim int, positions ...int) (Subset, error) {
	for i, p := range positions {
		if p < 0 || p >= dim || (i > 0 && p <= positions[i-1]) {
			return nil, fmt.Errorf("%w: %v for %d features", ErrSubset, positions, dim)
		}
	}

	return slices.Clone(Subset(positions)), nil
}

// Key returns the canonical key, e.g. "{0,2}".
func (s Subset) Key() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteByte('}')

	return b.String()
}

// String implements fmt.Stringer.
func (s Subset) String() string { return s.Key() }

// Names maps the positions to feature names.
func (s Subset) Names(features []string) []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = features[p]
	}

	return out
}

// Contains reports whether position k is in s.
func (s Subset) Contains(k int) bool {
	_, ok := slices.BinarySearch(s, k)

	return ok
}

// With returns s ∪ {k}.
func (s Subset) With(k int) Subset {
	i, ok := slices.BinarySearch(s, k)
	if ok {
		return slices.Clone(s)
	}

	return slices.Insert(slices.Clone(s), i, k)
}

// Parents returns the immediate sub-subsets (one position removed each).
func (s Subset) Parents() []Subset {
	out := make([]Subset, len(s))
	for i := range s {
		out[i] = slices.Delete(slices.Clone(s), i, i+1)
	}

	return out
}

// Within reports whether every position of s is in u.
func (s Subset) Within(u Subset) bool {
	for _, k := range s {
		if !u.Contains(k) {
			return false
		}
	}

	return true
}

// Compare orders subsets by cardinality, then lexicographically.
func Compare(a, b Subset) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}

	return slices.Compare(a, b)
}
