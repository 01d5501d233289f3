// Package config provides unified configuration loading for schoolsim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains all schoolsim configuration settings.
type Config struct {
	// Panel contains settings for the synthetic panel.
	Panel PanelConfig `json:"panel" yaml:"panel"`

	// Model contains structural model settings.
	Model ModelConfig `json:"model" yaml:"model"`

	// Output contains reporting and persistence settings.
	Output OutputConfig `json:"output" yaml:"output"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// PanelConfig configures the synthetic panel construction.
type PanelConfig struct {
	// Seed seeds the single random source driving every draw in a run.
	Seed uint64 `json:"seed" yaml:"seed"`

	// BaseSize is the number of base individuals when no CSV is supplied.
	BaseSize int `json:"base_size" yaml:"base_size"`

	// Replications is the expansion factor applied to the base sample.
	Replications int `json:"replications" yaml:"replications"`

	// BaseCSV, when set, is the path to a CSV of base individuals
	// (columns: id,white,south). When empty, a synthetic base is drawn.
	BaseCSV string `json:"base_csv,omitempty" yaml:"base_csv,omitempty"`
}

// ModelConfig configures the structural model.
type ModelConfig struct {
	// Discount is the per-period discount factor. Treated as known by the
	// estimator: it is pinned in the regression stages, never estimated.
	Discount float64 `json:"discount" yaml:"discount"`

	// Ration is the counterfactual admission fraction in (0, 1].
	Ration float64 `json:"ration" yaml:"ration"`

	// Covariates is the list of covariates entering every regression stage.
	Covariates []string `json:"covariates" yaml:"covariates"`
}

// OutputConfig configures reporting and persistence.
type OutputConfig struct {
	// Dir is the working directory for traces and the run database.
	Dir string `json:"dir" yaml:"dir"`

	// SaveRuns enables persisting series summaries to the run database.
	SaveRuns bool `json:"save_runs" yaml:"save_runs"`
}

// LoggingConfig configures schoolsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default) or "debug".
	// "debug" enables stage tracing to <dir>/trace.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Panel: PanelConfig{
			Seed:         42,
			BaseSize:     500,
			Replications: 10,
		},
		Model: ModelConfig{
			Discount:   0.95,
			Ration:     0.5,
			Covariates: []string{"white", "south"},
		},
		Output: OutputConfig{
			Dir:      ".schoolsim",
			SaveRuns: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from path (if non-empty) and environment
// variables. Order: defaults -> file -> environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Panel.BaseSize <= 0 && c.Panel.BaseCSV == "" {
		return fmt.Errorf("base_size must be positive when no base_csv is set, got %d", c.Panel.BaseSize)
	}

	if c.Panel.Replications <= 0 {
		return fmt.Errorf("replications must be positive, got %d", c.Panel.Replications)
	}

	if c.Model.Ration <= 0 || c.Model.Ration > 1 {
		return fmt.Errorf("ration must be in (0, 1], got %f", c.Model.Ration)
	}

	if c.Model.Discount <= 0 || c.Model.Discount >= 1 {
		return fmt.Errorf("discount must be in (0, 1), got %f", c.Model.Discount)
	}

	if len(c.Model.Covariates) == 0 {
		return fmt.Errorf("at least one covariate is required")
	}
	for _, name := range c.Model.Covariates {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("covariate names must be non-empty")
		}
	}

	validLevels := map[string]bool{"": true, "info": true, "debug": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCHOOLSIM_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Panel.Seed = n
		}
	}

	if v := os.Getenv("SCHOOLSIM_REPLICATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Panel.Replications = n
		}
	}

	if v := os.Getenv("SCHOOLSIM_BASE_CSV"); v != "" {
		cfg.Panel.BaseCSV = v
	}

	if v := os.Getenv("SCHOOLSIM_RATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Model.Ration = f
		}
	}

	if v := os.Getenv("SCHOOLSIM_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}

	if v := os.Getenv("SCHOOLSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
