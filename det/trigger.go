// SPDX-License-Identifier: MIT

package det

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/katalvlaran/lvlsample/sampler"
)

// DefaultTriggerRoot is the root element name WriteTrigger uses.
const DefaultTriggerRoot = "Branch_info"

// Trigger is the end-of-run report of one branch.
type Trigger struct {
	EndTime     float64
	EndTimeStep int

	// Distribution is the distribution whose threshold fired; empty when the
	// run ended without branching.
	Distribution string
	Params       []ParamChange
}

// ParamChange is one parameter the fired trigger changes.
type ParamChange struct {
	Name          string
	Type          string
	OldValue      string
	ActualValues  []string  // one per alternative
	Probabilities []float64 // nil, or aligned with ActualValues
}

// Fired reports whether t requests branching.
func (t *Trigger) Fired() bool { return t != nil && t.Distribution != "" }

// Alternatives returns the number of alternative branches t requests.
func (t *Trigger) Alternatives() int {
	if !t.Fired() || len(t.Params) == 0 {
		return 0
	}

	return len(t.Params[0].ActualValues)
}

// validate checks that a fired trigger changes at least one named parameter
// and that every parameter offers the same alternatives. Probabilities, when
// present, must align with the values and lie in [0,1].
func (t *Trigger) validate() error {
	if !t.Fired() {
		return nil
	}
	if len(t.Params) == 0 {
		return fmt.Errorf("%w: distribution %q changes no parameter", ErrTrigger, t.Distribution)
	}
	n := len(t.Params[0].ActualValues)
	for _, pc := range t.Params {
		if pc.Name == "" || len(pc.ActualValues) == 0 {
			return fmt.Errorf("%w: parameter %q needs a name and actual_value", ErrTrigger, pc.Name)
		}
		if len(pc.ActualValues) != n {
			return fmt.Errorf("%w: parameter %q has %d values, %q has %d",
				ErrTrigger, pc.Name, len(pc.ActualValues), t.Params[0].Name, n)
		}
		if len(pc.Probabilities) > 0 && len(pc.Probabilities) != n {
			return fmt.Errorf("%w: parameter %q: %d probabilities for %d values",
				ErrTrigger, pc.Name, len(pc.Probabilities), n)
		}
		for _, v := range pc.Probabilities {
			// written negated so that NaN fails too
			if !(v >= 0 && v <= 1) {
				return fmt.Errorf("%w: parameter %q: probability %v", ErrTrigger, pc.Name, v)
			}
		}
	}

	return nil
}

type xmlTrigger struct {
	XMLName xml.Name
	EndTime string       `xml:"end_time,attr"`
	EndTS   string       `xml:"end_ts,attr"`
	Dist    *xmlDistTrig `xml:"Distribution_trigger"`
}

type xmlDistTrig struct {
	Name   string     `xml:"name,attr"`
	Params []xmlParam `xml:",any"`
}

type xmlParam struct {
	XMLName     xml.Name
	Type        string `xml:"type,attr"`
	ActualValue string `xml:"actual_value,attr"`
	OldValue    string `xml:"old_value,attr"`
	Probability string `xml:"probability,attr,omitempty"`
	Text        string `xml:",chardata"`
}

// ParseTrigger decodes a trigger document.
//
// Errors: ErrTrigger for malformed XML, numbers or misaligned lists.
func ParseTrigger(data []byte) (*Trigger, error) {
	var x xmlTrigger
	if err := xml.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrigger, err)
	}
	t := &Trigger{}
	var err error
	if s := strings.TrimSpace(x.EndTime); s != "" {
		if t.EndTime, err = strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("%w: end_time %q", ErrTrigger, s)
		}
	}
	if s := strings.TrimSpace(x.EndTS); s != "" {
		if t.EndTimeStep, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("%w: end_ts %q", ErrTrigger, s)
		}
	}
	if x.Dist == nil {
		return t, nil
	}
	t.Distribution = strings.TrimSpace(x.Dist.Name)
	if t.Distribution == "" {
		return nil, fmt.Errorf("%w: Distribution_trigger without name", ErrTrigger)
	}
	for _, p := range x.Dist.Params {
		pc := ParamChange{
			Name:         strings.TrimSpace(p.Text),
			Type:         p.Type,
			OldValue:     p.OldValue,
			ActualValues: strings.Fields(p.ActualValue),
		}
		for _, s := range strings.Fields(p.Probability) {
			v, perr := strconv.ParseFloat(s, 64)
			if perr != nil {
				return nil, fmt.Errorf("%w: parameter %q: probability %q", ErrTrigger, pc.Name, s)
			}
			pc.Probabilities = append(pc.Probabilities, v)
		}
		t.Params = append(t.Params, pc)
	}
	if err = t.validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// ReadTrigger reads and parses the trigger file at path. A missing file is
// reported as sampler.ErrBranchFileMissing, which callers treat as the end of
// the history.
func ReadTrigger(path string) (*Trigger, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", sampler.ErrBranchFileMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("det: read trigger: %w", err)
	}

	return ParseTrigger(data)
}

// WriteTrigger encodes t under a DefaultTriggerRoot element.
func WriteTrigger(w io.Writer, t *Trigger) error {
	x := xmlTrigger{
		XMLName: xml.Name{Local: DefaultTriggerRoot},
		EndTime: strconv.FormatFloat(t.EndTime, 'g', -1, 64),
		EndTS:   strconv.Itoa(t.EndTimeStep),
	}
	if t.Fired() {
		x.Dist = &xmlDistTrig{Name: t.Distribution}
		for _, p := range t.Params {
			xp := xmlParam{
				XMLName:     xml.Name{Local: "Variable"},
				Type:        p.Type,
				ActualValue: strings.Join(p.ActualValues, " "),
				OldValue:    p.OldValue,
				Text:        p.Name,
			}
			if len(p.Probabilities) > 0 {
				probs := make([]string, len(p.Probabilities))
				for i, v := range p.Probabilities {
					probs[i] = strconv.FormatFloat(v, 'g', -1, 64)
				}
				xp.Probability = strings.Join(probs, " ")
			}
			x.Dist.Params = append(x.Dist.Params, xp)
		}
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(x); err != nil {
		return fmt.Errorf("det: write trigger: %w", err)
	}

	return enc.Flush()
}

// MarshalTrigger is WriteTrigger into a byte slice.
func MarshalTrigger(t *Trigger) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTrigger(&buf, t); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
