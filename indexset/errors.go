// SPDX-License-Identifier: MIT
// Package indexset: sentinel errors.
//
// Each sentinel wraps one class of the sampler taxonomy so callers may match
// either the precise condition or the class with errors.Is.

package indexset

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

var (
	// ErrMaxOrder is returned when maxOrder < 1.
	ErrMaxOrder = fmt.Errorf("%w: indexset: max order must be >= 1", sampler.ErrConfiguration)

	// ErrNoFeatures is returned when the feature list is empty.
	ErrNoFeatures = fmt.Errorf("%w: indexset: no features", sampler.ErrConfiguration)

	// ErrWeights is returned for a weight list of the wrong length or with
	// non-positive entries.
	ErrWeights = fmt.Errorf("%w: indexset: importance weights must be positive, one per feature", sampler.ErrConfiguration)

	// ErrNotDownwardClosed is returned when a seed set is not downward closed.
	ErrNotDownwardClosed = fmt.Errorf("%w: indexset: seed set is not downward closed", sampler.ErrConfiguration)

	// ErrUnknownKind is returned for an unknown static index-set family.
	ErrUnknownKind = fmt.Errorf("%w: indexset: unknown index set kind", sampler.ErrConfiguration)

	// ErrNotActive is returned when accepting or rejecting an index that is not active.
	ErrNotActive = fmt.Errorf("%w: indexset: index is not active", sampler.ErrState)

	// ErrIndexDimension is returned for an index whose length differs from the feature count.
	ErrIndexDimension = fmt.Errorf("%w: indexset: index length differs from feature count", sampler.ErrDimensionMismatch)
)
