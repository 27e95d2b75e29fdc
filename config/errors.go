// SPDX-License-Identifier: MIT

package config

import (
	"fmt"

	"github.com/katalvlaran/lvlsample/sampler"
)

var (
	// ErrFormat is returned for a file extension that is neither YAML nor TOML.
	ErrFormat = fmt.Errorf("%w: config: unsupported file format", sampler.ErrConfiguration)

	// ErrInvalid wraps struct-tag validation failures.
	ErrInvalid = fmt.Errorf("%w: config: invalid configuration", sampler.ErrConfiguration)

	// ErrInconsistent is returned when valid fields contradict each other.
	ErrInconsistent = fmt.Errorf("%w: config: inconsistent configuration", sampler.ErrConfiguration)
)
