// Package config loads the runtime configuration and model files of the psl tools.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/psl/pkg/psl/internalerr"
)

// Database drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the runtime configuration.
type Config struct {
	Database Database `yaml:"database"`
	Blocker  Blocker  `yaml:"blocker"`
	Logging  Logging  `yaml:"logging"`
}

// Database selects the fact store.
type Database struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Blocker tunes the constraint blocker.
type Blocker struct {
	Workers int `yaml:"workers"`
}

// Logging configures the zap logger.
type Logging struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database: Database{Driver: DriverMemory},
		Blocker:  Blocker{Workers: runtime.NumCPU()},
		Logging:  Logging{Level: "info"},
	}
}

// Load reads a YAML config file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates YAML config data.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes cfg and rejects unusable settings.
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "":
		c.Database.Driver = DriverMemory
	case DriverMemory:
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for the sqlite driver", internalerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database.driver %q", internalerr.ErrInvalidConfig, c.Database.Driver)
	}

	if c.Blocker.Workers < 0 {
		return fmt.Errorf("%w: blocker.workers must not be negative, got %d", internalerr.ErrInvalidConfig, c.Blocker.Workers)
	}
	if c.Blocker.Workers == 0 {
		c.Blocker.Workers = runtime.NumCPU()
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", internalerr.ErrInvalidConfig, err)
	}
	return nil
}

// NewLogger builds the logger described by l.
func NewLogger(l Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: logging.level: %v", internalerr.ErrInvalidConfig, err)
	}

	var zc zap.Config
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
