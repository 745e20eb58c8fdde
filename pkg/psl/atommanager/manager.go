// Package atommanager centralizes access to the atoms of a database.Database.
//
// Every grounding component resolves atoms and runs queries through an AtomManager
// rather than the Database itself, so an implementation can add validation or
// activation policy in one place. The base implementation adds nothing: it passes
// every call through and returns store errors unchanged.
package atommanager

import (
	"context"

	"github.com/cognicore/psl/pkg/psl/database"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

// AtomManager mediates atom retrieval and query execution.
type AtomManager interface {
	// GetAtom returns the atom for p applied to args. Implementations must obtain it
	// from Database.GetAtom.
	GetAtom(ctx context.Context, p predicate.Predicate, args ...term.Constant) (atom.Handle, error)

	// ExecuteQuery returns the query results exactly as returned by the Database.
	ExecuteQuery(ctx context.Context, q database.Query) (database.ResultList, error)

	// ExecuteGroundingQuery returns the grounding results exactly as returned by the Database.
	ExecuteGroundingQuery(ctx context.Context, f formula.Formula) (database.ResultList, error)

	// IsClosed reports whether p is closed in the Database.
	IsClosed(p predicate.Predicate) bool

	// Atoms returns the arena behind the handles this manager hands out.
	Atoms() *atom.Arena
}

// Base forwards query execution to its Database. Embed it to build managers that
// only override GetAtom.
type Base struct {
	db database.Database
}

// NewBase wraps db.
func NewBase(db database.Database) Base {
	return Base{db: db}
}

// ExecuteQuery implements AtomManager.
func (b Base) ExecuteQuery(ctx context.Context, q database.Query) (database.ResultList, error) {
	return b.db.ExecuteQuery(ctx, q)
}

// ExecuteGroundingQuery implements AtomManager.
func (b Base) ExecuteGroundingQuery(ctx context.Context, f formula.Formula) (database.ResultList, error) {
	return b.db.ExecuteGroundingQuery(ctx, f)
}

// IsClosed implements AtomManager.
func (b Base) IsClosed(p predicate.Predicate) bool {
	return b.db.IsClosed(p)
}

// Atoms implements AtomManager.
func (b Base) Atoms() *atom.Arena {
	return b.db.Atoms()
}

// Database returns the wrapped store.
func (b Base) Database() database.Database {
	return b.db
}

// Simple is the pass-through AtomManager.
type Simple struct {
	Base
}

var _ AtomManager = (*Simple)(nil)

// NewSimple returns a manager that delegates everything to db.
func NewSimple(db database.Database) *Simple {
	return &Simple{Base: NewBase(db)}
}

// GetAtom implements AtomManager.
func (m *Simple) GetAtom(ctx context.Context, p predicate.Predicate, args ...term.Constant) (atom.Handle, error) {
	return m.db.GetAtom(ctx, p, args...)
}
