package config_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlsample/config"
	"github.com/katalvlaran/lvlsample/det"
	"github.com/katalvlaran/lvlsample/executor"
	"github.com/katalvlaran/lvlsample/models"
	"github.com/katalvlaran/lvlsample/refine"
	"github.com/katalvlaran/lvlsample/sampler"
	"github.com/katalvlaran/lvlsample/sobol"
)

func TestLoad_YAML(t *testing.T) {
	f, err := config.Load(filepath.Join("testdata", "ishigami.yaml"))
	require.NoError(t, err)

	progress := 0.5
	want := &config.File{
		Sampler: config.SamplerSobol,
		Targets: []string{"f"},
		Model:   config.Model{Name: "ishigami", Params: map[string]float64{"a": 7, "b": 0.1}},
		Variables: []config.Variable{
			{Name: "x1", Distribution: "uniform", Low: -math.Pi, High: math.Pi, Mode: config.ModeProbability},
			{Name: "x2", Distribution: "uniform", Low: -math.Pi, High: math.Pi, Mode: config.ModeProbability},
			{Name: "x3", Distribution: "uniform", Low: -math.Pi, High: math.Pi, Mode: config.ModeProbability, Weight: 2},
		},
		Sobol:             config.Sobol{Tolerance: 1e-5, MaxRuns: 400, MaxSobolOrder: 2, Progress: &progress},
		Executor:          config.Executor{Workers: 8},
		Logging:           config.Logging{Level: "debug", Format: "json"},
		Metrics:           config.Metrics{Addr: "localhost:9090"},
		Seed:              42,
		ValidationSamples: 500,
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Fatalf("loaded file mismatch (-want +got):\n%s", diff)
	}

	s, err := f.Strategy(nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &sobol.Composer{}, s)

	m, err := f.BuildModel()
	require.NoError(t, err)
	assert.Equal(t, models.Ishigami{A: 7, B: 0.1}, m)
}

func TestLoad_TOML(t *testing.T) {
	f, err := config.Load(filepath.Join("testdata", "product.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.SamplerSparseGrid, f.Sampler)
	assert.Equal(t, config.DefaultWorkers, f.Executor.Workers)
	assert.Equal(t, config.DefaultLogLevel, f.Logging.Level)
	assert.Equal(t, "regression", f.Refine.Trainer)

	s, err := f.Strategy(nil, nil)
	require.NoError(t, err)
	c, ok := s.(*refine.Controller)
	require.True(t, ok)
	assert.Equal(t, []string{"x1", "x2"}, c.Features())

	m, err := f.BuildModel()
	require.NoError(t, err)

	d := executor.NewLocalDispatcher(m)
	defer d.Close()
	require.NoError(t, executor.NewRunner(s, d).Run(context.Background()))
	assert.Equal(t, refine.Converged, c.State())
	pce, err := c.Finalize()
	require.NoError(t, err)
	assert.InDelta(t, 7.0/9.0, pce.Variance("f"), 1e-9)
}

func TestLoad_DET(t *testing.T) {
	f, err := config.Load(filepath.Join("testdata", "failuretree.yaml"))
	require.NoError(t, err)

	vars, err := f.DETVariables()
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, det.ByValue, vars[1].Mode)

	s, err := f.Strategy(nil, nil)
	require.NoError(t, err)
	m, err := f.BuildModel()
	require.NoError(t, err)

	d := executor.NewLocalDispatcher(m)
	defer d.Close()
	require.NoError(t, executor.NewRunner(s, d).Run(context.Background()))

	mgr := s.(*det.Manager)
	sum := mgr.Finalize()
	assert.InDelta(t, 1.0, sum.LeafProbability, 1e-12)
	fails, ok := sum.Expected(models.OutputFailures)
	require.True(t, ok)
	assert.InDelta(t, 0.4, fails, 1e-12)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]struct {
		doc    string
		format string
		want   error
	}{
		"unknown key":       {doc: "sampler: sobol\ntargets: [f]\nbogus: 1\n", format: config.FormatYAML, want: config.ErrInvalid},
		"unknown toml key":  {doc: "sampler = \"sobol\"\nbogus = 1\n", format: config.FormatTOML, want: config.ErrInvalid},
		"missing sampler":   {doc: "targets: [f]\nmodel: {name: product}\nvariables: [{name: x, distribution: uniform, high: 1}]\n", format: config.FormatYAML, want: config.ErrInvalid},
		"bad sampler":       {doc: "sampler: mc\ntargets: [f]\nmodel: {name: product}\nvariables: [{name: x, distribution: uniform, high: 1}]\n", format: config.FormatYAML, want: config.ErrInvalid},
		"duplicate var":     {doc: "sampler: sobol\ntargets: [f]\nmodel: {name: product}\nvariables: [{name: x, distribution: uniform}, {name: x, distribution: uniform}]\n", format: config.FormatYAML, want: config.ErrInvalid},
		"progress range":    {doc: "sampler: sobol\ntargets: [f]\nmodel: {name: product}\nvariables: [{name: x, distribution: uniform}]\nsobol: {progress: 3}\n", format: config.FormatYAML, want: config.ErrInvalid},
		"target collides":   {doc: "sampler: sobol\ntargets: [x]\nmodel: {name: product}\nvariables: [{name: x, distribution: uniform}]\n", format: config.FormatYAML, want: config.ErrInconsistent},
		"no thresholds":     {doc: "sampler: det\ntargets: [f]\nmodel: {name: failuretree}\nvariables: [{name: x, distribution: uniform}]\n", format: config.FormatYAML, want: config.ErrInconsistent},
		"thresholds order":  {doc: "sampler: det\ntargets: [f]\nmodel: {name: failuretree}\nvariables: [{name: x, distribution: uniform, thresholds: [0.5, 0.2]}]\n", format: config.FormatYAML, want: config.ErrInconsistent},
		"threshold outside": {doc: "sampler: det\ntargets: [f]\nmodel: {name: failuretree}\nvariables: [{name: x, distribution: uniform, thresholds: [1.5]}]\n", format: config.FormatYAML, want: config.ErrInconsistent},
		"format":            {doc: "{}", format: "json", want: config.ErrFormat},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse([]byte(tc.doc), tc.format)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, sampler.ErrConfiguration)
		})
	}
}

func TestLoad_Extension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrFormat)
}

func TestBuildModel_Inconsistent(t *testing.T) {
	base := func() *config.File {
		return &config.File{
			Sampler:   config.SamplerSparseGrid,
			Targets:   []string{"f"},
			Model:     config.Model{Name: "ishigami"},
			Variables: []config.Variable{{Name: "x1", Distribution: "uniform", High: 1}},
		}
	}

	_, err := base().BuildModel()
	assert.ErrorIs(t, err, config.ErrInconsistent, "x2 and x3 are missing")

	f := base()
	f.Model.Name = "product"
	f.Model.Params = map[string]float64{"dim": 1}
	f.Targets = []string{"g"}
	_, err = f.BuildModel()
	assert.ErrorIs(t, err, config.ErrInconsistent)

	f = base()
	f.Model.Name = config.FailureTreeModel
	_, err = f.BuildModel()
	assert.ErrorIs(t, err, models.ErrParam)

	f.Model.Params = map[string]float64{"mission": 1}
	_, err = f.BuildModel()
	assert.ErrorIs(t, err, config.ErrInconsistent, "f is not a failure-tree output")
}
