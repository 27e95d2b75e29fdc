// SPDX-License-Identifier: MIT

package models

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/katalvlaran/lvlsample/det"
	"github.com/katalvlaran/lvlsample/sampler"
)

// Failure-tree output names.
const (
	OutputFailures      = "failures"
	OutputSystemFailure = "system_failure"
	OutputEndTime       = "end_time"
)

// Component states written into trigger documents.
const (
	StateOK     = "ok"
	StateFailed = "failed"
)

// FailureTree is a k-out-of-n transient for dynamic event trees. Each
// component is a DET variable whose thresholds are failure times; a branch
// runs from its start time to the earliest pending failure time of a healthy
// component and hands the branching decision back as a trigger document. A
// history without pending failures before Mission ends there.
type FailureTree struct {
	Components []string // DET variable names
	Mission    float64  // end of the transient
	K          int      // failed components that fail the system
	Step       float64  // time step reported as end_ts (default 0.1)

	// TriggerDir, when set, receives <branch>.xml instead of returning the
	// document in memory.
	TriggerDir string
}

// StateParam is the changed-parameter name tracking component c.
func StateParam(c string) string { return c + "_state" }

// Evaluate implements executor.Model.
func (m FailureTree) Evaluate(_ context.Context, in sampler.Input) (sampler.Outputs, error) {
	b := in.Branch
	if b == nil {
		return sampler.Outputs{}, fmt.Errorf("%w: run %q", ErrNoBranch, in.Prefix)
	}
	if m.Mission <= 0 || m.K < 1 {
		return sampler.Outputs{}, fmt.Errorf("%w: mission %v, k %d", ErrParam, m.Mission, m.K)
	}

	failed := 0
	next, at := "", math.Inf(1)
	for _, c := range m.Components {
		if b.ChangedParams[StateParam(c)] == StateFailed {
			failed++
			continue
		}
		th, ok := b.Thresholds[c]
		if !ok {
			continue
		}
		if t := math.Max(th.Value, b.StartTime); t <= m.Mission && t < at {
			next, at = c, t
		}
	}

	out := sampler.Outputs{Values: map[string]float64{
		OutputFailures:      float64(failed),
		OutputSystemFailure: 0,
		OutputEndTime:       m.Mission,
	}}
	if failed >= m.K {
		out.Values[OutputSystemFailure] = 1
	}
	if next == "" || failed >= m.K {
		return out, nil
	}

	out.Values[OutputEndTime] = at
	trig := &det.Trigger{
		EndTime:      at,
		EndTimeStep:  m.steps(at),
		Distribution: next,
		Params: []det.ParamChange{{
			Name:         StateParam(next),
			Type:         "auxiliar",
			OldValue:     StateOK,
			ActualValues: []string{StateFailed},
		}},
	}
	if m.TriggerDir == "" {
		data, err := det.MarshalTrigger(trig)
		if err != nil {
			return sampler.Outputs{}, err
		}
		out.TriggerData = data

		return out, nil
	}
	path := filepath.Join(m.TriggerDir, in.Prefix+".xml")
	if err := os.MkdirAll(m.TriggerDir, 0o755); err != nil {
		return sampler.Outputs{}, err
	}
	f, err := os.Create(path)
	if err != nil {
		return sampler.Outputs{}, err
	}
	if err = det.WriteTrigger(f, trig); err != nil {
		_ = f.Close()
		return sampler.Outputs{}, err
	}
	if err = f.Close(); err != nil {
		return sampler.Outputs{}, err
	}
	out.TriggerPath = path

	return out, nil
}

func (m FailureTree) steps(t float64) int {
	step := m.Step
	if step <= 0 {
		step = 0.1
	}

	return int(math.Round(t / step))
}
