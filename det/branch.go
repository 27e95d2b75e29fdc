// SPDX-License-Identifier: MIT

package det

import (
	"fmt"
	"maps"
	"sort"

	"github.com/katalvlaran/lvlsample/dist"
)

// BranchID indexes the branch arena.
type BranchID int

// NoParent is the parent id of the root.
const NoParent BranchID = -1

// Status is a branch lifecycle state.
type Status int

// Branch statuses.
const (
	Queued Status = iota
	Running
	Completed  // ended without trigger
	Branched   // ended with trigger, children created
	Failed     // failed permanently
	Truncated  // beyond MaxDepth, never run
	Unfinished // queued or running when the tree was stopped
)

var statusNames = [...]string{
	Queued:     "queued",
	Running:    "running",
	Completed:  "completed",
	Branched:   "branched",
	Failed:     "failed",
	Truncated:  "truncated",
	Unfinished: "unfinished",
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}

	return statusNames[s]
}

// Ended reports whether the branch ran to an end (Completed or Branched).
func (s Status) Ended() bool { return s == Completed || s == Branched }

// Mode says how a Variable's thresholds are given.
type Mode int

// Threshold modes.
const (
	ByProbability Mode = iota // CDF values in (0,1)
	ByValue                   // variable values, converted through the CDF
)

// Variable is one branching distribution and its ordered thresholds.
type Variable struct {
	Distribution dist.Distribution
	Thresholds   []float64
	Mode         Mode
}

// Branch is one node of the event tree.
type Branch struct {
	ID     BranchID
	Parent BranchID
	Name   string
	Depth  int
	Status Status

	// ConditionalPb is the probability of reaching this branch from the root
	// (root probability included); BranchPb is relative to the parent.
	ConditionalPb float64
	BranchPb      float64

	// Levels holds the next threshold level per distribution; a level equal
	// to the threshold count means the distribution is exhausted.
	Levels              map[string]int
	ChangedParams       map[string]string
	TriggerDistribution string

	StartTime     float64
	StartTimeStep int
	EndTime       float64
	EndTimeStep   int

	Attempts int
	Outputs  map[string]float64
	Children []BranchID
}

// Leaf reports whether b has no children.
func (b *Branch) Leaf() bool { return len(b.Children) == 0 }

func (b *Branch) clone() Branch {
	out := *b
	out.Levels = maps.Clone(b.Levels)
	out.ChangedParams = maps.Clone(b.ChangedParams)
	out.Outputs = maps.Clone(b.Outputs)
	out.Children = append([]BranchID(nil), b.Children...)

	return out
}

// Summary is the final account of a tree.
type Summary struct {
	Branches []Branch // arena order
	Leaves   []BranchID

	Completed, Failed, Truncated, Unfinished int

	// LeafProbability is the conditional probability summed over leaves; it
	// equals the root probability.
	LeafProbability float64
	// EndedProbability is the part of LeafProbability held by Completed leaves.
	EndedProbability float64
}

// Expected returns the probability-weighted mean of target over the
// Completed leaves that reported it, normalized by their probability.
// ok is false when no such leaf exists.
func (s *Summary) Expected(target string) (mean float64, ok bool) {
	num, den := 0.0, 0.0
	for _, id := range s.Leaves {
		b := &s.Branches[id]
		v, has := b.Outputs[target]
		if b.Status != Completed || !has {
			continue
		}
		num += b.ConditionalPb * v
		den += b.ConditionalPb
	}
	if den == 0 {
		return 0, false
	}

	return num / den, true
}

// Probabilities returns the conditional probability of every leaf keyed by
// its branch name, sorted names first for deterministic iteration by callers.
func (s *Summary) Probabilities() (names []string, pb map[string]float64) {
	pb = make(map[string]float64, len(s.Leaves))
	for _, id := range s.Leaves {
		b := &s.Branches[id]
		pb[b.Name] = b.ConditionalPb
		names = append(names, b.Name)
	}
	sort.Strings(names)

	return names, pb
}
