package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cognicore/psl/pkg/psl/internalerr"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse empty: %v", err)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("driver = %q, want %q", cfg.Database.Driver, DriverMemory)
	}
	if cfg.Blocker.Workers != runtime.NumCPU() {
		t.Errorf("workers = %d, want %d", cfg.Blocker.Workers, runtime.NumCPU())
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("level = %q, want info", cfg.Logging.Level)
	}
}

func TestParseOverrides(t *testing.T) {
	data := []byte(`
database:
  driver: SQLite
  path: /tmp/psl.db
blocker:
  workers: 3
logging:
  level: debug
  development: true
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.Path != "/tmp/psl.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Blocker.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Blocker.Workers)
	}
	if !cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestParseInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown driver":      "database:\n  driver: postgres\n",
		"sqlite without path": "database:\n  driver: sqlite\n",
		"negative workers":    "blocker:\n  workers: -1\n",
		"bad level":           "logging:\n  level: loud\n",
		"bad yaml":            "database: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psl.yaml")
	if err := os.WriteFile(path, []byte("blocker:\n  workers: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Blocker.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Blocker.Workers)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{false, true} {
		logger, err := NewLogger(Logging{Level: "warn", Development: dev})
		if err != nil {
			t.Fatalf("NewLogger(dev=%v): %v", dev, err)
		}
		if logger.Core().Enabled(-1) {
			t.Errorf("debug should be disabled at warn level (dev=%v)", dev)
		}
	}
	if _, err := NewLogger(Logging{Level: "nope"}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}
