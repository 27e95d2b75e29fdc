// SPDX-License-Identifier: MIT

package quadrature

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

var (
	// ErrLevel is returned for a negative level or one whose point count overflows MaxPoints.
	ErrLevel = fmt.Errorf("%w: quadrature: level out of range", sampler.ErrConfiguration)

	// ErrFamily is returned for an unknown family or a family that cannot
	// integrate against the given distribution.
	ErrFamily = fmt.Errorf("%w: quadrature: unsupported family for distribution", sampler.ErrConfiguration)
)
