// SPDX-License-Identifier: MIT

package det

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

var (
	// ErrNoVariables is returned when no branching distribution is configured.
	ErrNoVariables = fmt.Errorf("%w: det: at least one branching distribution is required", sampler.ErrConfiguration)

	// ErrThresholds is returned for threshold lists that are empty, not strictly
	// increasing or outside (0,1) in CDF space.
	ErrThresholds = fmt.Errorf("%w: det: thresholds must be strictly increasing CDF values in (0,1)", sampler.ErrConfiguration)

	// ErrDuplicate is returned when two variables share a distribution name.
	ErrDuplicate = fmt.Errorf("%w: det: duplicate distribution", sampler.ErrConfiguration)

	// ErrTrigger is returned for a trigger document that cannot be applied to
	// its branch (unknown or exhausted distribution, misaligned values,
	// probabilities above 1). The branch fails.
	ErrTrigger = fmt.Errorf("%w: det: invalid branch trigger", sampler.ErrEvaluation)

	// ErrUnknownBranch is returned for a result whose prefix names no running branch.
	ErrUnknownBranch = fmt.Errorf("%w: det: unknown branch", sampler.ErrState)

	// ErrNothingQueued is returned by GenerateNextInput when no branch is queued.
	ErrNothingQueued = fmt.Errorf("%w: det: no branch is queued", sampler.ErrState)
)
