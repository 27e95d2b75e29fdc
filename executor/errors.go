// SPDX-License-Identifier: MIT

package executor

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

var (
	// ErrStalled is returned when a strategy is neither done nor ready and no
	// run is in flight, so no future result can move it forward.
	ErrStalled = fmt.Errorf("%w: executor: strategy stalled with no run in flight", sampler.ErrState)

	// ErrClosed is returned by Submit after Close.
	ErrClosed = fmt.Errorf("%w: executor: dispatcher closed", sampler.ErrState)

	// ErrModelPanic wraps a panic raised inside Model.Evaluate.
	ErrModelPanic = fmt.Errorf("%w: executor: model panicked", sampler.ErrEvaluation)
)
