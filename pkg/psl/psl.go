// Package psl grounds probabilistic soft logic models and compiles the result into
// constraint blocks for MPE inference.
package psl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/psl/pkg/psl/atommanager"
	"github.com/cognicore/psl/pkg/psl/database"
	"github.com/cognicore/psl/pkg/psl/groundrulestore"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/rule"
	"github.com/cognicore/psl/pkg/psl/model/term"
	"github.com/cognicore/psl/pkg/psl/reasoner/blocker"
)

// Groundable is anything that can add ground rules to a store: logical rules and
// predicate constraints.
type Groundable interface {
	Name() string
	GroundAll(ctx context.Context, m atommanager.AtomManager, store groundrulestore.Store) (int, error)
}

// FixedAtom pins a random variable to a value.
type FixedAtom struct {
	Predicate predicate.Predicate
	Args      []term.Constant
	Value     float64
}

// Program is a groundable model.
type Program struct {
	Rules []Groundable
	Fixed []FixedAtom
}

// PSL is the grounding and blocking facade
type PSL struct {
	db      database.Database
	manager atommanager.AtomManager
	logger  *zap.Logger
	workers int
}

// Options configures a PSL instance
type Options struct {
	Database database.Database
	// Manager defaults to an atommanager.Simple over Database.
	Manager atommanager.AtomManager
	Logger  *zap.Logger
	Workers int
}

// New creates a PSL instance with the given dependencies
func New(opts Options) *PSL {
	p := &PSL{
		db:      opts.Database,
		manager: opts.Manager,
		logger:  opts.Logger,
		workers: opts.Workers,
	}
	if p.manager == nil {
		p.manager = atommanager.NewSimple(opts.Database)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Close closes the underlying database
func (p *PSL) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Manager returns the atom manager used for grounding.
func (p *PSL) Manager() atommanager.AtomManager { return p.manager }

// Ground grounds every rule of prog, then adds one value constraint per fixed atom.
func (p *PSL) Ground(ctx context.Context, prog Program) (*groundrulestore.AtomRegister, error) {
	store := groundrulestore.NewAtomRegister()

	for _, r := range prog.Rules {
		start := time.Now()
		n, err := r.GroundAll(ctx, p.manager, store)
		if err != nil {
			return nil, fmt.Errorf("ground %s: %w", r.Name(), err)
		}
		p.logger.Debug("grounded rule",
			zap.String("rule", r.Name()),
			zap.Int("groundings", n),
			zap.Duration("elapsed", time.Since(start)))
	}

	arena := p.manager.Atoms()
	for _, f := range prog.Fixed {
		h, err := p.manager.GetAtom(ctx, f.Predicate, f.Args...)
		if err != nil {
			return nil, fmt.Errorf("fix %s%v: %w", f.Predicate.Name, f.Args, err)
		}
		if !arena.IsRandomVariable(h) {
			return nil, fmt.Errorf("%w: cannot fix observed atom %s", internalerr.ErrInvalidInput, arena.Name(h))
		}
		store.Add(rule.NewValueConstraint(h, f.Value))
	}

	p.logger.Info("grounding complete",
		zap.Int("rules", len(prog.Rules)),
		zap.Int("fixed", len(prog.Fixed)),
		zap.Int("groundRules", store.Size()))
	return store, nil
}

// Block compiles a grounded store into constraint blocks.
func (p *PSL) Block(ctx context.Context, rs groundrulestore.Store) (*blocker.Store, error) {
	ts := blocker.NewStore(p.manager.Atoms())
	gen := blocker.NewGenerator(blocker.WithLogger(p.logger), blocker.WithWorkers(p.workers))
	if err := gen.GenerateTerms(ctx, rs, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// Run grounds prog and blocks the result.
func (p *PSL) Run(ctx context.Context, prog Program) (*Result, error) {
	rs, err := p.Ground(ctx, prog)
	if err != nil {
		return nil, err
	}
	blocks, err := p.Block(ctx, rs)
	if err != nil {
		return nil, err
	}
	return &Result{GroundRules: rs, Blocks: blocks}, nil
}

// Result is the outcome of Run.
type Result struct {
	GroundRules *groundrulestore.AtomRegister
	Blocks      *blocker.Store
}

// BlockView is a printable block.
type BlockView struct {
	Atoms      []string `json:"atoms"`
	ExactlyOne bool     `json:"exactly_one"`
	Incident   int      `json:"incident_rules"`
}

// Describe renders every block of bs with atom names.
func Describe(bs *blocker.Store) []BlockView {
	arena := bs.Atoms()
	out := make([]BlockView, bs.Size())
	for i := range out {
		block := bs.Block(i)
		names := make([]string, len(block))
		for j, h := range block {
			names[j] = arena.Name(h)
		}
		out[i] = BlockView{
			Atoms:      names,
			ExactlyOne: bs.ExactlyOne(i),
			Incident:   len(bs.IncidentRules(i)),
		}
	}
	return out
}
