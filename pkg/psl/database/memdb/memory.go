// Package memdb is an in-memory database.Database for tests and small models.
package memdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/psl/pkg/psl/database"
	"github.com/cognicore/psl/pkg/psl/database/grounding"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

type predicateState struct {
	predicate predicate.Predicate
	closed    bool
}

// DB is an in-memory implementation of database.Database.
type DB struct {
	mu         sync.RWMutex
	arena      *atom.Arena
	predicates map[string]predicateState
	extension  map[string][]atom.Handle
}

var _ database.Database = (*DB)(nil)

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		arena:      atom.NewArena(),
		predicates: make(map[string]predicateState),
		extension:  make(map[string][]atom.Handle),
	}
}

// Close implements database.Database.
func (d *DB) Close() error { return nil }

// Atoms implements database.Database.
func (d *DB) Atoms() *atom.Arena { return d.arena }

// RegisterPredicate declares p. Closed predicates only ever yield observed atoms.
func (d *DB) RegisterPredicate(p predicate.Predicate, closed bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.predicates[p.Name]; ok {
		if existing.predicate != p || existing.closed != closed {
			return fmt.Errorf("%w: predicate %s already registered as %s", internalerr.ErrDuplicate, p.Name, existing.predicate)
		}
		return nil
	}
	d.predicates[p.Name] = predicateState{predicate: p, closed: closed}
	return nil
}

// Observe stores an observed atom with a fixed value in [0, 1].
func (d *DB) Observe(p predicate.Predicate, value float64, args ...term.Constant) (atom.Handle, error) {
	if value < 0 || value > 1 {
		return 0, fmt.Errorf("%w: observed value %g outside [0, 1]", internalerr.ErrInvalidInput, value)
	}
	return d.insert(p, atom.Observed, value, args)
}

// AddTarget stores a random-variable atom of an open predicate.
func (d *DB) AddTarget(p predicate.Predicate, args ...term.Constant) (atom.Handle, error) {
	d.mu.RLock()
	st, ok := d.predicates[p.Name]
	d.mu.RUnlock()
	if ok && st.closed {
		return 0, fmt.Errorf("%w: predicate %s is closed", internalerr.ErrInvalidInput, p.Name)
	}
	return d.insert(p, atom.RandomVariable, 0, args)
}

func (d *DB) insert(p predicate.Predicate, kind atom.Kind, value float64, args []term.Constant) (atom.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.predicates[p.Name]; !ok {
		return 0, fmt.Errorf("%w: predicate %s", internalerr.ErrNotFound, p.Name)
	}
	if _, exists := d.arena.Lookup(p, args); exists {
		return 0, fmt.Errorf("%w: atom %s%v", internalerr.ErrDuplicate, p.Name, args)
	}
	h, err := d.arena.Intern(p, args, kind, value)
	if err != nil {
		return 0, err
	}
	d.extension[p.Name] = append(d.extension[p.Name], h)
	return h, nil
}

// GetAtom implements database.Database. Unknown atoms are materialized with value 0.
func (d *DB) GetAtom(ctx context.Context, p predicate.Predicate, args ...term.Constant) (atom.Handle, error) {
	d.mu.RLock()
	st, ok := d.predicates[p.Name]
	d.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: predicate %s", internalerr.ErrNotFound, p.Name)
	}

	if h, exists := d.arena.Lookup(p, args); exists {
		return h, nil
	}
	kind := atom.RandomVariable
	if st.closed {
		kind = atom.Observed
	}
	return d.arena.Intern(st.predicate, args, kind, 0)
}

// IsClosed implements database.Database.
func (d *DB) IsClosed(p predicate.Predicate) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.predicates[p.Name].closed
}

// Tuples implements database.FactSource: observed atoms with a non-zero value and
// every stored random variable.
func (d *DB) Tuples(ctx context.Context, p predicate.Predicate) ([][]term.Constant, error) {
	d.mu.RLock()
	handles := append([]atom.Handle(nil), d.extension[p.Name]...)
	d.mu.RUnlock()

	out := make([][]term.Constant, 0, len(handles))
	for _, h := range handles {
		at := d.arena.Get(h)
		if at.Kind == atom.Observed && at.Value == 0 {
			continue
		}
		out = append(out, at.Args)
	}
	return out, nil
}

// ExecuteGroundingQuery implements database.Database.
func (d *DB) ExecuteGroundingQuery(ctx context.Context, f formula.Formula) (database.ResultList, error) {
	return grounding.Evaluate(ctx, d, f)
}

// ExecuteQuery implements database.Database.
func (d *DB) ExecuteQuery(ctx context.Context, q database.Query) (database.ResultList, error) {
	res, err := grounding.Evaluate(ctx, d, q.Formula)
	if err != nil {
		return database.ResultList{}, err
	}
	return res.Project(q.Projection)
}
