// Package config loads the analysis settings of swathqc. Values come from
// built-in defaults, an optional YAML file and SWATHQC_* environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of all environment variables
const EnvPrefix = "SWATHQC"

// ErrInvalidConfig is returned when a setting is out of range
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all settings of an analysis
type Config struct {
	// Number of retention time segments of the divided metrics
	Division int `yaml:"division" envconfig:"DIVISION"`
	// Retention time tolerance (minutes) used for base peak traces
	RtTolerance float64 `yaml:"rt_tolerance" envconfig:"RT_TOLERANCE"`
	// m/z tolerance used for base peak and transition traces
	MassTolerance float64 `yaml:"mass_tolerance" envconfig:"MASS_TOLERANCE"`
	// Number of concurrent workers, 0 selects the number of CPUs
	Workers int `yaml:"workers" envconfig:"WORKERS"`
	// TraML library with the iRT peptides, optional
	IRTLibrary string `yaml:"irt_library" envconfig:"IRT_LIBRARY"`

	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Report  ReportConfig  `yaml:"report" envconfig:"REPORT"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// ReportConfig holds the report outputs. Empty paths disable an output.
type ReportConfig struct {
	JSONPath   string `yaml:"json_path" envconfig:"JSON_PATH"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Division:      4,
		RtTolerance:   2.5,
		MassTolerance: 0.05,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the YAML file at path (skipped when path
// is empty) and the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Fields without a matching variable keep their value
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the settings present in a YAML file
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Division < 1 {
		return fmt.Errorf("%w: division must be at least 1, got %d", ErrInvalidConfig, c.Division)
	}
	if c.RtTolerance < 0 {
		return fmt.Errorf("%w: negative retention time tolerance %g", ErrInvalidConfig, c.RtTolerance)
	}
	if c.MassTolerance < 0 {
		return fmt.Errorf("%w: negative mass tolerance %g", ErrInvalidConfig, c.MassTolerance)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: negative number of workers %d", ErrInvalidConfig, c.Workers)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
