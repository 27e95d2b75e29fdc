// SPDX-License-Identifier: MIT

// Package config loads a sampling study from YAML or TOML and turns it into
// typed strategy options.
//
// A study names one sampler, the model, the target outputs and the
// variables. Loading applies defaults, validates the struct tags and then
// checks cross-field consistency (threshold ordering, targets colliding with
// variables, model inputs without a variable). Builders on *File return the
// space, the strategy and the model ready for executor.Runner.
package config

// Sampler kinds.
const (
	SamplerSparseGrid = "sparsegrid"
	SamplerSobol      = "sobol"
	SamplerDET        = "det"
)

// Threshold modes of DET variables.
const (
	ModeProbability = "probability"
	ModeValue       = "value"
)

// Defaults applied by Load for omitted fields.
const (
	DefaultWorkers   = 4
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// File is a sampling study.
type File struct {
	Sampler   string     `yaml:"sampler" toml:"sampler" validate:"required,oneof=sparsegrid sobol det"`
	Targets   []string   `yaml:"targets" toml:"targets" validate:"required,min=1,unique,dive,required"`
	Variables []Variable `yaml:"variables" toml:"variables" validate:"required,min=1,unique=Name,dive"`
	Model     Model      `yaml:"model" toml:"model"`

	Refine   Refine   `yaml:"refine" toml:"refine"`
	Sobol    Sobol    `yaml:"sobol" toml:"sobol"`
	DET      DET      `yaml:"det" toml:"det"`
	Executor Executor `yaml:"executor" toml:"executor"`
	Logging  Logging  `yaml:"logging" toml:"logging"`
	Metrics  Metrics  `yaml:"metrics" toml:"metrics"`

	// Seed feeds the Monte-Carlo surrogate validation.
	Seed int64 `yaml:"seed" toml:"seed"`
	// ValidationSamples is the number of Monte-Carlo draws compared against
	// the surrogate after refinement (0 disables).
	ValidationSamples int `yaml:"validation_samples" toml:"validation_samples" validate:"gte=0"`
}

// Variable is one sampled variable.
type Variable struct {
	Name         string  `yaml:"name" toml:"name" validate:"required"`
	Distribution string  `yaml:"distribution" toml:"distribution" validate:"required,oneof=uniform normal lognormal beta"`
	Low          float64 `yaml:"low" toml:"low"`
	High         float64 `yaml:"high" toml:"high"`
	Mu           float64 `yaml:"mu" toml:"mu"`
	Sigma        float64 `yaml:"sigma" toml:"sigma"`
	Alpha        float64 `yaml:"alpha" toml:"alpha"`
	Beta         float64 `yaml:"beta" toml:"beta"`

	// DET only.
	Thresholds []float64 `yaml:"thresholds" toml:"thresholds"`
	Mode       string    `yaml:"mode" toml:"mode" validate:"omitempty,oneof=probability value"`

	// Importance weight of the variable's axis (0 means 1).
	Weight float64 `yaml:"weight" toml:"weight" validate:"gte=0"`
}

// Model selects the model the CLI runs in-process.
type Model struct {
	Name   string             `yaml:"name" toml:"name" validate:"required"`
	Params map[string]float64 `yaml:"params" toml:"params"`
	// TriggerDir makes the failure-tree model write trigger files.
	TriggerDir string `yaml:"trigger_dir" toml:"trigger_dir"`
}

// Refine configures the adaptive sparse-grid controller. Zero values keep
// the controller defaults.
type Refine struct {
	Tolerance   float64 `yaml:"tolerance" toml:"tolerance" validate:"gte=0"`
	MaxRuns     int     `yaml:"max_runs" toml:"max_runs" validate:"gte=0"`
	MaxOrder    int     `yaml:"max_order" toml:"max_order" validate:"gte=0"`
	MaxAttempts int     `yaml:"max_attempts" toml:"max_attempts" validate:"gte=0"`
	Quadrature  string  `yaml:"quadrature" toml:"quadrature" validate:"omitempty,oneof=Legendre Hermite CDF ClenshawCurtis"`
	Trainer     string  `yaml:"trainer" toml:"trainer" validate:"omitempty,oneof=projection regression"`
}

// Sobol configures the cut-HDMR composer.
type Sobol struct {
	Tolerance     float64 `yaml:"tolerance" toml:"tolerance" validate:"gte=0"`
	MaxRuns       int     `yaml:"max_runs" toml:"max_runs" validate:"gte=0"`
	MaxOrder      int     `yaml:"max_order" toml:"max_order" validate:"gte=0"`
	MaxAttempts   int     `yaml:"max_attempts" toml:"max_attempts" validate:"gte=0"`
	Quadrature    string  `yaml:"quadrature" toml:"quadrature" validate:"omitempty,oneof=Legendre Hermite CDF ClenshawCurtis"`
	Trainer       string  `yaml:"trainer" toml:"trainer" validate:"omitempty,oneof=projection regression"`
	MaxSobolOrder int     `yaml:"max_sobol_order" toml:"max_sobol_order" validate:"gte=0"`

	// Progress is the p in [0,2] trading subsets against polynomial
	// refinement (nil keeps the composer default).
	Progress *float64 `yaml:"progress" toml:"progress" validate:"omitempty,gte=0,lte=2"`
}

// DET configures the dynamic event tree.
type DET struct {
	MaxRuns         int     `yaml:"max_runs" toml:"max_runs" validate:"gte=0"`
	MaxDepth        int     `yaml:"max_depth" toml:"max_depth" validate:"gte=0"`
	MaxAttempts     int     `yaml:"max_attempts" toml:"max_attempts" validate:"gte=0"`
	RootProbability float64 `yaml:"root_probability" toml:"root_probability" validate:"gte=0,lte=1"`
	RootName        string  `yaml:"root_name" toml:"root_name"`
}

// Executor configures the local dispatcher.
type Executor struct {
	Workers int `yaml:"workers" toml:"workers" validate:"gte=0"`
}

// Logging configures the CLI logger.
type Logging struct {
	Level  string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" toml:"format" validate:"omitempty,oneof=text json"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Addr is the listen address of /metrics ("" disables the endpoint).
	Addr string `yaml:"addr" toml:"addr" validate:"omitempty,hostname_port"`
}

// ApplyDefaults fills omitted ambient fields. Strategy fields left at zero
// fall back to the strategy packages' own defaults when options are built.
func (f *File) ApplyDefaults() {
	if f.Executor.Workers == 0 {
		f.Executor.Workers = DefaultWorkers
	}
	if f.Logging.Level == "" {
		f.Logging.Level = DefaultLogLevel
	}
	if f.Logging.Format == "" {
		f.Logging.Format = DefaultLogFormat
	}
	for i := range f.Variables {
		if f.Variables[i].Mode == "" {
			f.Variables[i].Mode = ModeProbability
		}
	}
}
