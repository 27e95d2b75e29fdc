// SPDX-License-Identifier: MIT

package sparsegrid

import "github.com/katalvlaran/lvlsample/sampler"

// DefaultKeyDigits is the number of significant digits two points must share
// to be merged.
const DefaultKeyDigits = sampler.DefaultKeyDigits

const panicKeyDigits = "sparsegrid: WithKeyDigits: digits must be in [1, 17]"

// Option configures a Builder. Constructors panic only on nonsensical values.
type Option func(*Builder)

// WithKeyDigits sets the significant digits of the dedup key.
func WithKeyDigits(digits int) Option {
	if digits < 1 || digits > 17 {
		panic(panicKeyDigits)
	}

	return func(b *Builder) { b.digits = digits }
}
