// SPDX-License-Identifier: MIT

package ledger

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

// ErrUnknownRun is returned when a result names a prefix that is not submitted.
var ErrUnknownRun = fmt.Errorf("%w: ledger: unknown or already collected run", sampler.ErrState)
