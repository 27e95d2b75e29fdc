// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Formats accepted by Parse.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads a study from path; the extension (.yaml, .yml or .toml) picks
// the format. Unknown keys are rejected.
//
// Errors: ErrFormat, ErrInvalid, ErrInconsistent, decoding and I/O errors.
func Load(path string) (*File, error) {
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".toml":
		format = FormatTOML
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return f, nil
}

// Parse decodes data in the given format, applies defaults and validates.
func Parse(data []byte, format string) (*File, error) {
	var f File
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: yaml: %w", ErrInvalid, err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: toml: %w", ErrInvalid, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	f.ApplyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

// Validate checks struct tags, then cross-field consistency.
//
// Errors: ErrInvalid, ErrInconsistent.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	names := make(map[string]bool, len(f.Variables))
	for _, v := range f.Variables {
		names[v.Name] = true
	}
	for _, t := range f.Targets {
		if names[t] {
			return fmt.Errorf("%w: target %q is also a variable", ErrInconsistent, t)
		}
	}
	if f.Sampler == SamplerDET {
		for _, v := range f.Variables {
			if err := checkThresholds(v); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkThresholds(v Variable) error {
	if len(v.Thresholds) == 0 {
		return fmt.Errorf("%w: variable %q has no thresholds", ErrInconsistent, v.Name)
	}
	for i, t := range v.Thresholds {
		if i > 0 && t <= v.Thresholds[i-1] {
			return fmt.Errorf("%w: thresholds of %q must increase strictly", ErrInconsistent, v.Name)
		}
		if v.Mode == ModeProbability && (t <= 0 || t >= 1) {
			return fmt.Errorf("%w: probability threshold %v of %q outside (0,1)", ErrInconsistent, t, v.Name)
		}
	}

	return nil
}
