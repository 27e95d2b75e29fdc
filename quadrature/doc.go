// SPDX-License-Identifier: MIT

// Package quadrature provides the one-dimensional rules that sparse grids are
// assembled from, each bound to the distribution of one variable.
//
// A Rule maps a refinement level to nodes and weights of a probability
// measure: the weights of every level sum to one and the nodes live in the
// variable's own units, ready to be handed to a model.
//
// Families:
//
//	Legendre        Gauss–Legendre on a Uniform support        n = level+1
//	Hermite         Gauss–Hermite on a Normal                  n = level+1
//	CDF             Gauss–Legendre in CDF space (any 1-D law)  n = level+1
//	ClenshawCurtis  nested Clenshaw–Curtis in CDF space        n = 1, 2^level+1
//
// Each rule also names the orthonormal polynomial family that matches its
// measure (Basis) and the map into the standard variable of that family
// (Standardize), so a polynomial-chaos trainer can pair them without knowing
// about distributions.
//
// Gauss nodes come from gonum's integrate/quad; Clenshaw–Curtis nodes are
// computed in closed form.
package quadrature
