package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/psl/pkg/psl"
	"github.com/cognicore/psl/pkg/psl/atommanager"
	"github.com/cognicore/psl/pkg/psl/database"
	"github.com/cognicore/psl/pkg/psl/database/memdb"
	"github.com/cognicore/psl/pkg/psl/database/sqlite"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

// Loader loads the config and model files and constructs components
type Loader struct {
	ConfigPath string
	ModelPath  string
}

// Components holds everything needed to ground and block a model
type Components struct {
	Config   *Config
	Logger   *zap.Logger
	Database database.Database
	Manager  atommanager.AtomManager
	Program  psl.Program
}

// PSL wires the components into a facade. Closing it closes the database.
func (c *Components) PSL() *psl.PSL {
	return psl.New(psl.Options{
		Database: c.Database,
		Manager:  c.Manager,
		Logger:   c.Logger,
		Workers:  c.Config.Blocker.Workers,
	})
}

// Load reads both files, opens the database and writes the model data into it
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	cfg := Default()
	if l.ConfigPath != "" {
		loaded, err := Load(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	if l.ModelPath == "" {
		return nil, fmt.Errorf("load model: no model path given")
	}
	model, err := LoadModel(l.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	prog, err := model.Program()
	if err != nil {
		return nil, fmt.Errorf("compile model: %w", err)
	}

	db, sink, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := model.Populate(ctx, sink); err != nil {
		db.Close()
		return nil, fmt.Errorf("populate database: %w", err)
	}

	logger.Debug("components loaded",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("predicates", len(model.Predicates)),
		zap.Int("rules", len(prog.Rules)))

	return &Components{
		Config:   cfg,
		Logger:   logger,
		Database: db,
		Manager:  atommanager.NewSimple(db),
		Program:  prog,
	}, nil
}

func openDatabase(ctx context.Context, cfg Database) (database.Database, Sink, error) {
	switch cfg.Driver {
	case DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		db := memdb.New()
		return db, memorySink{db}, nil
	}
}

// memorySink adapts memdb.DB to Sink.
type memorySink struct{ db *memdb.DB }

func (s memorySink) RegisterPredicate(ctx context.Context, p predicate.Predicate, closed bool) error {
	return s.db.RegisterPredicate(p, closed)
}

func (s memorySink) Observe(ctx context.Context, p predicate.Predicate, value float64, args ...term.Constant) error {
	_, err := s.db.Observe(p, value, args...)
	return err
}

func (s memorySink) AddTarget(ctx context.Context, p predicate.Predicate, args ...term.Constant) error {
	_, err := s.db.AddTarget(p, args...)
	return err
}
