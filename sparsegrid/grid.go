// SPDX-License-Identifier: MIT

package sparsegrid

import "github.com/katalvlaran/lvlsample/sampler"

// Node is one weighted quadrature point.
type Node struct {
	Point  sampler.Point
	Weight float64
}

// Grid is an immutable, deduplicated, lexicographically sorted sequence of nodes.
type Grid struct {
	features []string
	digits   int
	nodes    []Node
	index    map[string]int
}

func newGrid(features []string, digits int, nodes []Node) *Grid {
	g := &Grid{features: features, digits: digits, nodes: nodes, index: make(map[string]int, len(nodes))}
	for i, n := range nodes {
		g.index[sampler.KeyDigits(n.Point, digits)] = i
	}

	return g
}

// Len returns the number of distinct points.
func (g *Grid) Len() int { return len(g.nodes) }

// Dim returns the number of features.
func (g *Grid) Dim() int { return len(g.features) }

// Features returns the feature names in axis order.
func (g *Grid) Features() []string { return append([]string(nil), g.features...) }

// Node returns the i-th node; the point is a copy.
func (g *Grid) Node(i int) Node {
	n := g.nodes[i]

	return Node{Point: n.Point.Clone(), Weight: n.Weight}
}

// Nodes returns a copy of all nodes in grid order.
func (g *Grid) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i := range g.nodes {
		out[i] = g.Node(i)
	}

	return out
}

// Points returns copies of all points in grid order.
func (g *Grid) Points() []sampler.Point {
	out := make([]sampler.Point, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Point.Clone()
	}

	return out
}

// Weights returns all weights in grid order.
func (g *Grid) Weights() []float64 {
	out := make([]float64, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Weight
	}

	return out
}

// Key returns the dedup key the grid uses for p.
func (g *Grid) Key(p sampler.Point) string { return sampler.KeyDigits(p, g.digits) }

// Lookup returns the position of p in the grid.
func (g *Grid) Lookup(p sampler.Point) (int, bool) {
	i, ok := g.index[g.Key(p)]

	return i, ok
}

// Weight returns the weight of p, or 0 when p is not a grid point.
func (g *Grid) Weight(p sampler.Point) float64 {
	if i, ok := g.Lookup(p); ok {
		return g.nodes[i].Weight
	}

	return 0
}

// TotalWeight returns the sum of all weights (1 for a probability measure).
func (g *Grid) TotalWeight() float64 {
	s := 0.0
	for _, n := range g.nodes {
		s += n.Weight
	}

	return s
}
