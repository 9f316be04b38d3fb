// Package config provides configuration loading and management for lbpdenoise.
// It handles loading configuration from YAML files, applies environment
// overrides and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lbpdenoise/pkg/bp"
)

// ErrInvalid is returned by Validate for an unusable configuration
var ErrInvalid = errors.New("invalid configuration")

// Environment variables that override the solver section
const (
	EnvLambda     = "LBP_LAMBDA"
	EnvIterations = "LBP_ITERATIONS"
	EnvLevels     = "LBP_LEVELS"
	EnvWorkers    = "LBP_WORKERS"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Solver parameters
	Solver struct {
		// Levels is the number of gray levels (labels), 256 for 8-bit images
		Levels int `yaml:"levels"`

		// Lambda weights the smoothness term against the data term
		Lambda int `yaml:"lambda"`

		// Iterations is the number of message passing rounds
		Iterations int `yaml:"iterations"`

		// Workers is the number of goroutines per sweep
		Workers int `yaml:"workers"`
	} `yaml:"solver"`

	// Input and output files
	IO struct {
		Input  string `yaml:"input"`
		Output string `yaml:"output"`

		// Reference is an optional clean image used for quality metrics
		Reference string `yaml:"reference"`
	} `yaml:"io"`

	// Output parameters
	Output struct {
		// SaveSnapshots writes the labeling of every iteration
		SaveSnapshots bool `yaml:"saveSnapshots"`

		// SnapshotDir is where snapshots go
		SnapshotDir string `yaml:"snapshotDir"`

		// EnergyPlot is the path of the energy curve plot, empty to skip
		EnergyPlot string `yaml:"energyPlot"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// JSONLogs switches the log format to JSON lines
		JSONLogs bool `yaml:"jsonLogs"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	params := bp.DefaultParams()
	cfg.Solver.Levels = params.Levels
	cfg.Solver.Lambda = params.Lambda
	cfg.Solver.Iterations = params.Iterations
	cfg.Solver.Workers = params.Workers

	cfg.IO.Input = "input.png"
	cfg.IO.Output = "output.png"

	cfg.Output.SaveSnapshots = false
	cfg.Output.SnapshotDir = "snapshots"
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it starts from the default configuration.
// Environment overrides, including those from a .env file in the working
// directory, are applied last.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	// A missing .env is fine
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides solver settings from LBP_* environment variables
func (c *Config) ApplyEnv() error {
	overrides := []struct {
		name string
		dst  *int
	}{
		{EnvLambda, &c.Solver.Lambda},
		{EnvIterations, &c.Solver.Iterations},
		{EnvLevels, &c.Solver.Levels},
		{EnvWorkers, &c.Solver.Workers},
	}
	for _, o := range overrides {
		raw, ok := os.LookupEnv(o.name)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("error parsing %s=%q: %w", o.name, raw, err)
		}
		*o.dst = v
	}
	return nil
}

// Params converts the solver section into solver parameters
func (c *Config) Params() bp.Params {
	return bp.Params{
		Levels:     c.Solver.Levels,
		Lambda:     c.Solver.Lambda,
		Iterations: c.Solver.Iterations,
		Workers:    c.Solver.Workers,
	}
}

// Validate checks the configuration before a run
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.IO.Input == "" {
		return fmt.Errorf("%w: input path is required", ErrInvalid)
	}
	if c.IO.Output == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalid)
	}
	if c.Output.SaveSnapshots && c.Output.SnapshotDir == "" {
		return fmt.Errorf("%w: snapshot directory is required when saving snapshots", ErrInvalid)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
