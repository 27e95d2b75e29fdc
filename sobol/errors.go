// SPDX-License-Identifier: MIT

package sobol

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

var (
	// ErrSobolOrder is returned when the maximum subset cardinality is < 1.
	ErrSobolOrder = fmt.Errorf("%w: sobol: max Sobol order must be >= 1", sampler.ErrConfiguration)

	// ErrSubset is returned for subsets with repeated, unsorted or out-of-range positions.
	ErrSubset = fmt.Errorf("%w: sobol: invalid subset", sampler.ErrConfiguration)

	// ErrNoTargets is returned when no target is configured.
	ErrNoTargets = fmt.Errorf("%w: sobol: at least one target is required", sampler.ErrConfiguration)

	// ErrNothingNeeded is returned by GenerateNextInput when no point is needed.
	ErrNothingNeeded = fmt.Errorf("%w: sobol: no point is needed", sampler.ErrState)

	// ErrNoSurrogate is returned by Finalize when the reference point never ran.
	ErrNoSurrogate = fmt.Errorf("%w: sobol: no surrogate could be composed", sampler.ErrState)
)
