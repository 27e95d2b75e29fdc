// SPDX-License-Identifier: MIT

package models

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

var (
	// ErrUnknownModel is returned by Lookup for an unregistered name.
	ErrUnknownModel = fmt.Errorf("%w: models: unknown model", sampler.ErrConfiguration)

	// ErrParam is returned for missing or out-of-range model parameters.
	ErrParam = fmt.Errorf("%w: models: invalid parameter", sampler.ErrConfiguration)

	// ErrMissingInput is returned by Evaluate when a required variable is absent.
	ErrMissingInput = fmt.Errorf("%w: models: input variable missing", sampler.ErrEvaluation)

	// ErrNoBranch is returned by FailureTree for inputs without branch metadata.
	ErrNoBranch = fmt.Errorf("%w: models: input carries no branch metadata", sampler.ErrEvaluation)
)
