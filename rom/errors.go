// SPDX-License-Identifier: MIT

package rom

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

var (
	// ErrMissingValue is returned when a grid point has no model output.
	ErrMissingValue = fmt.Errorf("%w: rom: no model output for grid point", sampler.ErrState)

	// ErrMissingTarget is returned when a model output lacks a requested target.
	ErrMissingTarget = fmt.Errorf("%w: rom: target missing from model output", sampler.ErrConfiguration)

	// ErrIllPosed is returned when a regression design is rank deficient.
	ErrIllPosed = fmt.Errorf("%w: rom: regression design is rank deficient", sampler.ErrConfiguration)

	// ErrFeature is returned when surrogates cannot be embedded into a feature space.
	ErrFeature = fmt.Errorf("%w: rom: feature not in target space", sampler.ErrDimensionMismatch)

	// ErrUnknownTrainer is returned by NewTrainer for an unknown kind.
	ErrUnknownTrainer = fmt.Errorf("%w: rom: unknown trainer", sampler.ErrConfiguration)
)
