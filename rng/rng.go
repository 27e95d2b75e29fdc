// SPDX-License-Identifier: MIT

// Package rng centralizes deterministic random generation for lvlsample.
//
// The engine itself is deterministic; randomness only enters through
// Monte-Carlo validation of trained surrogates and through test fixtures.
// Every consumer receives an explicit *rand.Rand built here, so no component
// reads a process-wide or time-based source.
//
// Goals:
//   - Determinism: same seed => identical streams across platforms.
//   - Encapsulation: a single factory; no hidden time-based seeding.
//   - Independent substreams for parallel consumers via Derive.
//
// Concurrency:
//   - math/rand.Rand is NOT goroutine-safe. Do not share one across goroutines;
//     use Derive to hand each worker its own stream.
package rng

import "math/rand"

// DefaultSeed is the fixed seed used when callers pass seed==0.
const DefaultSeed int64 = 1

// New returns a deterministic *rand.Rand.
// Policy: seed==0 => DefaultSeed; otherwise the seed is used verbatim.
//
// Complexity: O(1).
func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = DefaultSeed
	}

	return rand.New(rand.NewSource(seed))
}

// Mix combines a parent seed and a stream identifier into a new seed using a
// SplitMix64-style finalizer (Vigna 2014 constants), so that neighbouring
// stream ids yield uncorrelated seeds.
//
// Complexity: O(1).
func Mix(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	return int64(x)
}

// Derive creates an independent deterministic stream from base and a stream
// id. base==nil uses DefaultSeed as parent; otherwise base.Int63() is consumed
// once so that reusing a stream id by mistake still yields a fresh stream.
//
// Complexity: O(1).
func Derive(base *rand.Rand, stream uint64) *rand.Rand {
	parent := DefaultSeed
	if base != nil {
		parent = base.Int63()
	}

	return rand.New(rand.NewSource(Mix(parent, stream)))
}

// Uniform01 draws n points in the open unit hypercube of dimension d, one
// row per point. A nil r falls back to New(0).
//
// Complexity: O(n*d).
func Uniform01(r *rand.Rand, n, d int) [][]float64 {
	if r == nil {
		r = New(0)
	}
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, d)
		for k := range row {
			u := r.Float64()
			for u == 0 {
				u = r.Float64()
			}
			row[k] = u
		}
		out[i] = row
	}

	return out
}
