// SPDX-License-Identifier: MIT

// Package models holds in-process test models with known answers.
//
// The analytic functions (Ishigami, Sobol's G-function, a product of linear
// factors) have closed-form mean and variance, so a surrogate built against
// them can be checked exactly. FailureTree is a small transient with
// time-to-failure thresholds that emits branch trigger documents for
// dynamic event trees.
//
// Every model satisfies executor.Model and reads its inputs by variable name
// from sampler.Input.SampledVars.
package models
