// Package sqlite is a database.Database persisted with modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/cognicore/psl/pkg/psl/database"
	"github.com/cognicore/psl/pkg/psl/database/grounding"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

const (
	kindObserved       = 0
	kindRandomVariable = 1
)

type predicateState struct {
	predicate predicate.Predicate
	closed    bool
}

// DB implements database.Database on SQLite. Atoms are read lazily into an arena.
type DB struct {
	db    *sql.DB
	arena *atom.Arena

	mu         sync.RWMutex
	predicates map[string]predicateState
}

var _ database.Database = (*DB)(nil)

// Open opens a SQLite database with WAL mode enabled and loads the registered predicates.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &DB{
		db:         db,
		arena:      atom.NewArena(),
		predicates: make(map[string]predicateState),
	}
	if err := s.loadPredicates(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *DB) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS predicates (
	name TEXT PRIMARY KEY,
	arity INTEGER NOT NULL,
	closed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS atoms (
	predicate TEXT NOT NULL,
	args TEXT NOT NULL,
	kind INTEGER NOT NULL,
	value REAL NOT NULL DEFAULT 0,
	PRIMARY KEY(predicate, args),
	FOREIGN KEY(predicate) REFERENCES predicates(name) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *DB) loadPredicates(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name, arity, closed FROM predicates`)
	if err != nil {
		return err
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var (
			name   string
			arity  int
			closed bool
		)
		if err := rows.Scan(&name, &arity, &closed); err != nil {
			return err
		}
		s.predicates[name] = predicateState{
			predicate: predicate.Predicate{Name: name, Arity: arity},
			closed:    closed,
		}
	}
	return rows.Err()
}

// Atoms implements database.Database.
func (s *DB) Atoms() *atom.Arena { return s.arena }

// RegisterPredicate declares p, persisting it on first registration.
func (s *DB) RegisterPredicate(ctx context.Context, p predicate.Predicate, closed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.predicates[p.Name]; ok {
		if existing.predicate != p || existing.closed != closed {
			return fmt.Errorf("%w: predicate %s already registered as %s", internalerr.ErrDuplicate, p.Name, existing.predicate)
		}
		return nil
	}

	const stmt = `INSERT INTO predicates (name, arity, closed) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, stmt, p.Name, p.Arity, closed); err != nil {
		return err
	}
	s.predicates[p.Name] = predicateState{predicate: p, closed: closed}
	return nil
}

func (s *DB) lookupPredicate(p predicate.Predicate) (predicateState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.predicates[p.Name]
	if !ok {
		return predicateState{}, fmt.Errorf("%w: predicate %s", internalerr.ErrNotFound, p.Name)
	}
	if st.predicate != p {
		return predicateState{}, fmt.Errorf("%w: predicate %s registered as %s", internalerr.ErrInvalidInput, p, st.predicate)
	}
	return st, nil
}

// Observe stores an observed atom with a fixed value in [0, 1], replacing any
// previous row for the same atom.
func (s *DB) Observe(ctx context.Context, p predicate.Predicate, value float64, args ...term.Constant) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("%w: observed value %g outside [0, 1]", internalerr.ErrInvalidInput, value)
	}
	return s.insert(ctx, p, kindObserved, value, args)
}

// AddTarget stores a random-variable atom of an open predicate.
func (s *DB) AddTarget(ctx context.Context, p predicate.Predicate, args ...term.Constant) error {
	st, err := s.lookupPredicate(p)
	if err != nil {
		return err
	}
	if st.closed {
		return fmt.Errorf("%w: predicate %s is closed", internalerr.ErrInvalidInput, p.Name)
	}
	return s.insert(ctx, p, kindRandomVariable, 0, args)
}

func (s *DB) insert(ctx context.Context, p predicate.Predicate, kind int, value float64, args []term.Constant) error {
	st, err := s.lookupPredicate(p)
	if err != nil {
		return err
	}
	if len(args) != st.predicate.Arity {
		return fmt.Errorf("%w: %s expects %d arguments, got %d", internalerr.ErrInvalidInput, p.Name, st.predicate.Arity, len(args))
	}
	encoded, err := encodeArgs(args)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO atoms (predicate, args, kind, value) VALUES (?, ?, ?, ?)
		ON CONFLICT(predicate, args) DO UPDATE SET kind = excluded.kind, value = excluded.value`
	if _, err := s.db.ExecContext(ctx, stmt, p.Name, encoded, kind, value); err != nil {
		return fmt.Errorf("insert atom %s%v: %w", p.Name, args, err)
	}
	return nil
}

// GetAtom implements database.Database. Atoms missing from the table are
// materialized with value 0 and are not persisted.
func (s *DB) GetAtom(ctx context.Context, p predicate.Predicate, args ...term.Constant) (atom.Handle, error) {
	st, err := s.lookupPredicate(p)
	if err != nil {
		return 0, err
	}
	if h, ok := s.arena.Lookup(st.predicate, args); ok {
		return h, nil
	}

	encoded, err := encodeArgs(args)
	if err != nil {
		return 0, err
	}

	var (
		kind  int
		value float64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT kind, value FROM atoms WHERE predicate = ? AND args = ?`,
		p.Name, encoded,
	).Scan(&kind, &value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		kind = kindRandomVariable
		if st.closed {
			kind = kindObserved
		}
		value = 0
	case err != nil:
		return 0, err
	}

	atomKind := atom.RandomVariable
	if kind == kindObserved {
		atomKind = atom.Observed
	}
	return s.arena.Intern(st.predicate, args, atomKind, value)
}

// IsClosed implements database.Database.
func (s *DB) IsClosed(p predicate.Predicate) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.predicates[p.Name].closed
}

// Tuples implements database.FactSource.
func (s *DB) Tuples(ctx context.Context, p predicate.Predicate) ([][]term.Constant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT args FROM atoms WHERE predicate = ? AND (kind = ? OR value != 0) ORDER BY rowid`,
		p.Name, kindRandomVariable,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]term.Constant
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, err
		}
		args, err := decodeArgs(encoded)
		if err != nil {
			return nil, err
		}
		out = append(out, args)
	}
	return out, rows.Err()
}

// ExecuteGroundingQuery implements database.Database.
func (s *DB) ExecuteGroundingQuery(ctx context.Context, f formula.Formula) (database.ResultList, error) {
	return grounding.Evaluate(ctx, s, f)
}

// ExecuteQuery implements database.Database.
func (s *DB) ExecuteQuery(ctx context.Context, q database.Query) (database.ResultList, error) {
	res, err := grounding.Evaluate(ctx, s, q.Formula)
	if err != nil {
		return database.ResultList{}, err
	}
	return res.Project(q.Projection)
}

// Commit writes the current values of stored random-variable atoms back to the table.
func (s *DB) Commit(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE atoms SET value = ? WHERE predicate = ? AND args = ? AND kind = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var rangeErr error
	s.arena.Range(func(h atom.Handle, at atom.GroundAtom) bool {
		if at.Kind != atom.RandomVariable {
			return true
		}
		encoded, err := encodeArgs(at.Args)
		if err != nil {
			rangeErr = err
			return false
		}
		if _, err := stmt.ExecContext(ctx, at.Value, at.Predicate.Name, encoded, kindRandomVariable); err != nil {
			rangeErr = err
			return false
		}
		return true
	})
	if rangeErr != nil {
		return rangeErr
	}
	return tx.Commit()
}

func encodeArgs(args []term.Constant) (string, error) {
	raw := make([]string, len(args))
	for i, a := range args {
		raw[i] = string(a)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeArgs(encoded string) ([]term.Constant, error) {
	var raw []string
	if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
		return nil, fmt.Errorf("decode atom args %q: %w", encoded, err)
	}
	out := make([]term.Constant, len(raw))
	for i, r := range raw {
		out[i] = term.Constant(r)
	}
	return out, nil
}
