// SPDX-License-Identifier: MIT

package sobol

import (
	"github.com/katalvlaran/lvlsample/refine"
	"github.com/katalvlaran/lvlsample/sampler"
)

// CutPlane maps between a subset's coordinates and the full space. Variables
// outside the subset are held at the reference point.
type CutPlane struct {
	subset Subset
	ref    sampler.Point
}

var _ refine.Plane = (*CutPlane)(nil)

// NewCutPlane returns the cut plane of s through ref.
//
// Errors: ErrSubset when s does not index ref.
func NewCutPlane(s Subset, ref sampler.Point) (*CutPlane, error) {
	if _, err := NewSubset(len(ref), s...); err != nil {
		return nil, err
	}

	return &CutPlane{subset: s, ref: ref.Clone()}, nil
}

// Subset returns the plane's subset.
func (c *CutPlane) Subset() Subset { return append(Subset(nil), c.subset...) }

// Reference returns the anchor point.
func (c *CutPlane) Reference() sampler.Point { return c.ref.Clone() }

// Axes implements refine.Plane.
func (c *CutPlane) Axes() []int { return append([]int(nil), c.subset...) }

// Expand fills the non-subset coordinates of sub with the reference values.
//
// Errors: sampler.ErrDimensionMismatch when len(sub) differs from the subset size.
func (c *CutPlane) Expand(sub sampler.Point) (sampler.Point, error) {
	if len(sub) != len(c.subset) {
		return nil, sampler.Dimf("sobol: expand: %d coordinates for subset %s", len(sub), c.subset)
	}
	full := c.ref.Clone()
	for i, k := range c.subset {
		full[k] = sub[i]
	}

	return full, nil
}

// Extract is the left inverse of Expand: Expand(Extract(p)) == p for every p
// on the plane. Off-plane coordinates of p are dropped.
//
// Errors: sampler.ErrDimensionMismatch when len(full) differs from the space dimension.
func (c *CutPlane) Extract(full sampler.Point) (sampler.Point, error) {
	if len(full) != len(c.ref) {
		return nil, sampler.Dimf("sobol: extract: %d coordinates for %d features", len(full), len(c.ref))
	}
	sub := make(sampler.Point, len(c.subset))
	for i, k := range c.subset {
		sub[i] = full[k]
	}

	return sub, nil
}

// OnPlane reports whether every non-subset coordinate of p equals the reference.
func (c *CutPlane) OnPlane(p sampler.Point) bool {
	if len(p) != len(c.ref) {
		return false
	}
	for k, v := range p {
		if !c.subset.Contains(k) && v != c.ref[k] {
			return false
		}
	}

	return true
}
