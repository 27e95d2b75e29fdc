// SPDX-License-Identifier: MIT

package sparsegrid

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

var (
	// ErrDimension is returned when an index, rule list or point length
	// differs from the feature count.
	ErrDimension = fmt.Errorf("%w: sparsegrid: length differs from feature count", sampler.ErrDimensionMismatch)

	// ErrEmpty is returned when Build receives no indices.
	ErrEmpty = fmt.Errorf("%w: sparsegrid: empty index set", sampler.ErrConfiguration)
)
