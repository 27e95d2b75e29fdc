// SPDX-License-Identifier: MIT

package sampler

import (
	"math"
	"strconv"
	"strings"
)

// DefaultKeyDigits is the number of significant digits used when two float
// coordinates are compared for point identity (grid merge, ledger lookup).
const DefaultKeyDigits = 12

// Sampler type labels carried by every Input.
const (
	TypeAdaptiveSparseGrid = "AdaptiveSparseGrid"
	TypeAdaptiveSobol      = "AdaptiveSobol"
	TypeDynamicEventTree   = "DynamicEventTree"
)

// Point is an evaluation point: one coordinate per feature, in feature order.
type Point []float64

// Key returns the canonical identity of p at DefaultKeyDigits precision.
func (p Point) Key() string { return KeyDigits(p, DefaultKeyDigits) }

// Clone returns an independent copy of p.
func (p Point) Clone() Point {
	if p == nil {
		return nil
	}
	out := make(Point, len(p))
	copy(out, p)

	return out
}

// KeyDigits formats p with the given number of significant digits so that
// coordinates equal within rounding map to the same string. Magnitudes below
// 10^-(digits+1) (including negative zero) are treated as zero.
func KeyDigits(p []float64, digits int) string {
	if digits < 1 {
		digits = DefaultKeyDigits
	}
	var b strings.Builder
	b.WriteByte('(')
	for i, x := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		// near-zero snaps to +0 so symmetric rules agree on the centre node
		if math.Abs(x) < math.Pow10(-digits-1) {
			x = 0
		}
		b.WriteString(strconv.FormatFloat(x, 'e', digits-1, 64))
	}
	b.WriteByte(')')

	return b.String()
}

// Input is the information handed to the external model for one run.
// It is the Go rendition of the model's createNewInput(**inputInfo) payload.
type Input struct {
	Prefix            string             // unique run identifier
	SamplerType       string             // one of the Type* labels
	Point             Point              // full-dimensional point (nil for DET)
	SampledVars       map[string]float64 // variable name -> value (incl. derived functions)
	SampledVarsPb     map[string]float64 // variable name -> pdf (CDF threshold for DET)
	PointProbability  float64            // product of SampledVarsPb
	ProbabilityWeight float64            // quadrature weight, or branch probability for DET
	ConditionalPb     float64            // probability of reaching this run given its ancestors
	Branch            *BranchInfo        // DET restart metadata; nil otherwise
}

// BranchInfo carries the DET restart metadata the model needs to resume a
// child branch from its parent's end state.
type BranchInfo struct {
	Name                string               // branch name, equal to the run prefix
	ParentName          string               // empty for the root
	Depth               int                  // 0 for the root
	StartTime           float64              // parent end_time
	StartTimeStep       int                  // parent end_ts
	TriggerDistribution string               // distribution whose trigger created this branch
	ChangedParams       map[string]string    // parameter -> value imposed on this branch
	Thresholds          map[string]Threshold // distribution -> next trigger threshold
}

// Threshold is the next trigger a distribution can fire in a DET branch.
type Threshold struct {
	Level       int     // index into the distribution's ordered threshold list
	Probability float64 // CDF value of the threshold
	Value       float64 // Quantile(Probability)
}

// Outputs is what the model returns for one run.
type Outputs struct {
	Values      map[string]float64 // target name -> value
	TriggerPath string             // DET: path of the branch trigger file (may not exist)
	TriggerData []byte             // DET: in-memory trigger document (takes precedence)
}

// Result is a finished run as reported by the dispatcher.
type Result struct {
	Prefix  string
	JobID   string
	Outputs Outputs
	Err     error // non-nil if the run failed
}

// Strategy is the capability every refinement variant implements. All
// methods are non-blocking; an external loop drives them.
type Strategy interface {
	// StillReady reports whether GenerateNextInput may be called now.
	// False means either outstanding work exists or the strategy is Done.
	StillReady() (bool, error)

	// GenerateNextInput pops the next input to dispatch.
	GenerateNextInput() (Input, error)

	// OnPointsCollected feeds finished runs back into the strategy.
	OnPointsCollected(results []Result) error

	// Done reports whether the strategy reached a terminal state.
	Done() bool

	// Stop requests early termination; accepted state is kept.
	Stop()
}

// Prefixer hands out unique, monotonically numbered run prefixes.
type Prefixer struct {
	base string
	n    int
}

// NewPrefixer returns a Prefixer producing "<base>1", "<base>2", ...
func NewPrefixer(base string) *Prefixer { return &Prefixer{base: base} }

// Next returns the next prefix.
func (p *Prefixer) Next() string {
	p.n++

	return p.base + strconv.Itoa(p.n)
}

// Count returns how many prefixes were produced.
func (p *Prefixer) Count() int { return p.n }
