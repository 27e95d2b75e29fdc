// SPDX-License-Identifier: MIT

// Package sobol implements adaptive cut-HDMR refinement (SubsetRefinement).
//
// The model is decomposed as f(x) = Σ_u f_u(x_u) over variable subsets u. Each
// accepted subset owns a refine.Controller restricted to its cut plane, the
// hyperplane where only the subset's variables vary and every other variable
// sits at its reference value (the untruncated mean). The cut surrogates g_u
// combine into the HDMR components by inclusion–exclusion,
//
//	f_u = Σ_{v ⊆ u} (-1)^{|u|-|v|} g_v,
//
// and the final surrogate is Σ_u f_u over the accepted subsets.
//
// Each step the Composer picks one action:
//
//	refine a subset's polynomial frontier: score (subsetActual × polyExpected)^p
//	add a proposed subset:                 score subsetExpected^(2-p)
//
// where p in [0,2] is the progress parameter; ties go to polynomial
// refinement. A subset of cardinality k+1 is proposed once all of its
// k-subsets are accepted, with the product of their actual impacts as its
// expected impact. A subset's actual impact is Var(f_u) over the summed
// variances of all accepted components, computed exactly from orthonormal
// coefficients after every action.
//
// All subsets share one ledger.Store, so a full-dimensional point is run once
// however many cut planes contain it.
package sobol
