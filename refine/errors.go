// SPDX-License-Identifier: MIT

package refine

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

var (
	// ErrNoTargets is returned when no target is configured.
	ErrNoTargets = fmt.Errorf("%w: refine: at least one target is required", sampler.ErrConfiguration)

	// ErrNothingNeeded is returned by GenerateNextInput when no point is needed.
	ErrNothingNeeded = fmt.Errorf("%w: refine: no point is needed", sampler.ErrState)

	// ErrNotSelecting is returned by Refine outside an idle Selecting state.
	ErrNotSelecting = fmt.Errorf("%w: refine: controller is not waiting for a selection", sampler.ErrState)

	// ErrNoSurrogate is returned by Finalize when seeding failed.
	ErrNoSurrogate = fmt.Errorf("%w: refine: no surrogate could be trained", sampler.ErrState)
)
