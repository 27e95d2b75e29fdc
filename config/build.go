// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lvlsample/det"
	"github.com/katalvlaran/lvlsample/dist"
	"github.com/katalvlaran/lvlsample/executor"
	"github.com/katalvlaran/lvlsample/metrics"
	"github.com/katalvlaran/lvlsample/models"
	"github.com/katalvlaran/lvlsample/quadrature"
	"github.com/katalvlaran/lvlsample/refine"
	"github.com/katalvlaran/lvlsample/rom"
	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/sobol"
	"github.com/katalvlaran/lvlsample/space"
)

// FailureTreeModel is the model name of models.FailureTree. Its parameters
// are mission (required), k (1) and step (0.1); the components are the
// study's variables.
const FailureTreeModel = "failuretree"

// distribution builds the variable's distribution.
func (v Variable) distribution() (dist.Distribution, error) {
	switch dist.Kind(v.Distribution) {
	case dist.KindUniform:
		return dist.NewUniform(v.Name, v.Low, v.High)
	case dist.KindNormal:
		return dist.NewNormal(v.Name, v.Mu, v.Sigma)
	case dist.KindLogNormal:
		return dist.NewLogNormal(v.Name, v.Mu, v.Sigma)
	case dist.KindBeta:
		return dist.NewBeta(v.Name, v.Alpha, v.Beta, v.Low, v.High)
	}

	return nil, fmt.Errorf("%w: distribution %q of %q", ErrInvalid, v.Distribution, v.Name)
}

// Space binds every variable in file order.
func (f *File) Space() (*space.Space, error) {
	sp := space.New()
	for _, v := range f.Variables {
		d, err := v.distribution()
		if err != nil {
			return nil, err
		}
		if err = sp.Bind(v.Name, d); err != nil {
			return nil, err
		}
	}

	if err := sp.Validate(f.Targets...); err != nil {
		return nil, err
	}

	return sp, nil
}

func (f *File) weights() map[string]float64 {
	var w map[string]float64
	for _, v := range f.Variables {
		if v.Weight > 0 {
			if w == nil {
				w = make(map[string]float64)
			}
			w[v.Name] = v.Weight
		}
	}

	return w
}

// RefineOptions translates the refine section.
func (f *File) RefineOptions(log *slog.Logger, rec *metrics.Recorder) ([]refine.Option, error) {
	r := f.Refine
	trainer, err := rom.NewTrainer(r.Trainer)
	if err != nil {
		return nil, err
	}
	opts := []refine.Option{refine.WithTrainer(trainer), refine.WithLogger(log), refine.WithMetrics(rec)}
	if r.Tolerance > 0 {
		opts = append(opts, refine.WithTolerance(r.Tolerance))
	}
	if r.MaxRuns > 0 {
		opts = append(opts, refine.WithMaxRuns(r.MaxRuns))
	}
	if r.MaxOrder > 0 {
		opts = append(opts, refine.WithMaxOrder(r.MaxOrder))
	}
	if r.MaxAttempts > 0 {
		opts = append(opts, refine.WithMaxAttempts(r.MaxAttempts))
	}
	if r.Quadrature != "" {
		opts = append(opts, refine.WithQuadrature(quadrature.Family(r.Quadrature)))
	}
	if w := f.weights(); w != nil {
		opts = append(opts, refine.WithImportanceWeights(w))
	}

	return opts, nil
}

// SobolOptions translates the sobol section.
func (f *File) SobolOptions(log *slog.Logger, rec *metrics.Recorder) ([]sobol.Option, error) {
	s := f.Sobol
	trainer, err := rom.NewTrainer(s.Trainer)
	if err != nil {
		return nil, err
	}
	opts := []sobol.Option{sobol.WithTrainer(trainer), sobol.WithLogger(log), sobol.WithMetrics(rec)}
	if s.Tolerance > 0 {
		opts = append(opts, sobol.WithTolerance(s.Tolerance))
	}
	if s.MaxRuns > 0 {
		opts = append(opts, sobol.WithMaxRuns(s.MaxRuns))
	}
	if s.MaxOrder > 0 {
		opts = append(opts, sobol.WithMaxOrder(s.MaxOrder))
	}
	if s.MaxAttempts > 0 {
		opts = append(opts, sobol.WithMaxAttempts(s.MaxAttempts))
	}
	if s.MaxSobolOrder > 0 {
		opts = append(opts, sobol.WithMaxSobolOrder(s.MaxSobolOrder))
	}
	if s.Progress != nil {
		opts = append(opts, sobol.WithProgress(*s.Progress))
	}
	if s.Quadrature != "" {
		opts = append(opts, sobol.WithQuadrature(quadrature.Family(s.Quadrature)))
	}
	if w := f.weights(); w != nil {
		opts = append(opts, sobol.WithImportanceWeights(w))
	}

	return opts, nil
}

// DETVariables returns the branching variables with their thresholds.
func (f *File) DETVariables() ([]det.Variable, error) {
	out := make([]det.Variable, 0, len(f.Variables))
	for _, v := range f.Variables {
		d, err := v.distribution()
		if err != nil {
			return nil, err
		}
		mode := det.ByProbability
		if v.Mode == ModeValue {
			mode = det.ByValue
		}
		out = append(out, det.Variable{Distribution: d, Thresholds: append([]float64(nil), v.Thresholds...), Mode: mode})
	}

	return out, nil
}

// DETOptions translates the det section.
func (f *File) DETOptions(log *slog.Logger, rec *metrics.Recorder) []det.Option {
	d := f.DET
	opts := []det.Option{det.WithLogger(log), det.WithMetrics(rec)}
	if d.MaxRuns > 0 {
		opts = append(opts, det.WithMaxRuns(d.MaxRuns))
	}
	if d.MaxDepth > 0 {
		opts = append(opts, det.WithMaxDepth(d.MaxDepth))
	}
	if d.MaxAttempts > 0 {
		opts = append(opts, det.WithMaxAttempts(d.MaxAttempts))
	}
	if d.RootProbability > 0 {
		opts = append(opts, det.WithRootProbability(d.RootProbability))
	}
	if d.RootName != "" {
		opts = append(opts, det.WithRootName(d.RootName))
	}

	return opts
}

// Strategy builds the configured sampler.
func (f *File) Strategy(log *slog.Logger, rec *metrics.Recorder) (sampler.Strategy, error) {
	switch f.Sampler {
	case SamplerSparseGrid:
		sp, err := f.Space()
		if err != nil {
			return nil, err
		}
		opts, err := f.RefineOptions(log, rec)
		if err != nil {
			return nil, err
		}
		c, err := refine.New(sp, f.Targets, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	case SamplerSobol:
		sp, err := f.Space()
		if err != nil {
			return nil, err
		}
		opts, err := f.SobolOptions(log, rec)
		if err != nil {
			return nil, err
		}
		c, err := sobol.New(sp, f.Targets, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	case SamplerDET:
		vars, err := f.DETVariables()
		if err != nil {
			return nil, err
		}
		m, err := det.New(vars, f.DETOptions(log, rec)...)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	return nil, fmt.Errorf("%w: sampler %q", ErrInvalid, f.Sampler)
}

// BuildModel returns the in-process model. Analytic models must find every
// input among the variables and report every target.
//
// Errors: models.ErrUnknownModel, models.ErrParam, ErrInconsistent.
func (f *File) BuildModel() (executor.Model, error) {
	names := make([]string, len(f.Variables))
	for i, v := range f.Variables {
		names[i] = v.Name
	}
	if f.Model.Name == FailureTreeModel {
		mission, ok := f.Model.Params["mission"]
		if !ok || mission <= 0 {
			return nil, fmt.Errorf("%w: failuretree needs mission > 0", models.ErrParam)
		}
		k := 1
		if v, ok := f.Model.Params["k"]; ok {
			k = int(v)
		}
		for _, t := range f.Targets {
			switch t {
			case models.OutputFailures, models.OutputSystemFailure, models.OutputEndTime:
			default:
				return nil, fmt.Errorf("%w: failuretree does not report %q", ErrInconsistent, t)
			}
		}
		return models.FailureTree{
			Components: names,
			Mission:    mission,
			K:          k,
			Step:       f.Model.Params["step"],
			TriggerDir: f.Model.TriggerDir,
		}, nil
	}

	m, err := models.Lookup(f.Model.Name, f.Model.Params)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	for _, in := range m.Inputs() {
		if !have[in] {
			return nil, fmt.Errorf("%w: model %q reads %q, which is not a variable", ErrInconsistent, m.Name(), in)
		}
	}
	for _, t := range f.Targets {
		if t != models.Target {
			return nil, fmt.Errorf("%w: model %q reports only %q, not %q", ErrInconsistent, m.Name(), models.Target, t)
		}
	}

	return m, nil
}
