package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tensegrity/internal/solver"
)

const (
	DefaultDim           = 2
	DefaultEpsilon       = 1e-1
	DefaultTolerance     = 1e-4
	DefaultMaxIterations = 1000
)

// Config is the yaml-facing solver tuning. Structure descriptions live in
// their own document format (internal/loader); this file only carries the
// numeric knobs of a solve.
type Config struct {
	Dim           int     `yaml:"dimension"`
	Epsilon       float64 `yaml:"epsilon"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	BarForceSeed  float64 `yaml:"bar_force_seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Dim:           DefaultDim,
		Epsilon:       DefaultEpsilon,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Solver converts to the solver's own config type; zero fields fall back
// to solver defaults there.
func (c *Config) Solver() solver.Config {
	return solver.Config{
		Dim:           c.Dim,
		Epsilon:       c.Epsilon,
		Tolerance:     c.Tolerance,
		MaxIterations: c.MaxIterations,
		BarForceSeed:  c.BarForceSeed,
	}
}
