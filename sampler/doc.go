// SPDX-License-Identifier: MIT

// Package sampler holds the vocabulary shared by every refinement strategy in
// lvlsample: the error taxonomy, the model input/result envelopes, point keys
// and the Strategy capability interface.
//
// Strategies:
//
//	refine.Controller - impact-ranked refinement of a polynomial index set
//	det.Manager       - dynamic event tree branching
//	sobol.Composer    - cut-HDMR subset refinement over many controllers
//
// All three are single-threaded and non-blocking. An external stepping loop
// (see package executor) polls StillReady, dispatches GenerateNextInput values
// to a model and feeds the results back through OnPointsCollected:
//
//	for !s.Done() {
//		ready, err := s.StillReady()
//		...
//		for ready {
//			in, _ := s.GenerateNextInput()
//			submit(in)
//			ready, _ = s.StillReady()
//		}
//		_ = s.OnPointsCollected(poll())
//	}
package sampler
