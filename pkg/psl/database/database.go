// Package database defines the fact store that grounding reads from.
package database

import (
	"context"

	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

// Database is the interface for resolving atoms and running queries over stored facts.
type Database interface {
	Close() error

	// GetAtom resolves or materializes the atom for a predicate application.
	// Atoms of closed predicates are observed; atoms of open predicates are random
	// variables unless they were stored as observations.
	GetAtom(ctx context.Context, p predicate.Predicate, args ...term.Constant) (atom.Handle, error)

	// ExecuteQuery evaluates a conjunctive query and projects its bindings.
	ExecuteQuery(ctx context.Context, q Query) (ResultList, error)

	// ExecuteGroundingQuery returns every substitution satisfying a conjunction of atoms.
	ExecuteGroundingQuery(ctx context.Context, f formula.Formula) (ResultList, error)

	// IsClosed reports whether the extension of p is fixed.
	IsClosed(p predicate.Predicate) bool

	// Atoms returns the arena that owns every atom handed out by GetAtom.
	Atoms() *atom.Arena
}

// Query is a conjunctive formula plus the variables to return.
// An empty Projection returns every variable of the formula.
type Query struct {
	Formula    formula.Formula
	Projection []term.Variable
}

// ResultList holds query bindings, one row per substitution.
type ResultList struct {
	Variables []term.Variable
	Rows      [][]term.Constant
}

// Len returns the number of rows.
func (r ResultList) Len() int { return len(r.Rows) }

// Binding returns row i as a variable map.
func (r ResultList) Binding(i int) map[term.Variable]term.Constant {
	out := make(map[term.Variable]term.Constant, len(r.Variables))
	for j, v := range r.Variables {
		out[v] = r.Rows[i][j]
	}
	return out
}

// Project keeps only vars, dropping duplicate rows.
func (r ResultList) Project(vars []term.Variable) (ResultList, error) {
	if len(vars) == 0 {
		return r, nil
	}
	idx := make([]int, len(vars))
	for i, v := range vars {
		idx[i] = -1
		for j, have := range r.Variables {
			if have == v {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return ResultList{}, &UnknownVariableError{Variable: v}
		}
	}

	out := ResultList{Variables: append([]term.Variable(nil), vars...)}
	seen := make(map[string]bool)
	for _, row := range r.Rows {
		projected := make([]term.Constant, len(idx))
		for i, j := range idx {
			projected[i] = row[j]
		}
		k := term.Key(projected)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.Rows = append(out.Rows, projected)
	}
	return out, nil
}

// UnknownVariableError is returned when a projection names a variable the query does not bind.
type UnknownVariableError struct {
	Variable term.Variable
}

func (e *UnknownVariableError) Error() string {
	return "projection variable " + string(e.Variable) + " does not occur in query"
}

func (e *UnknownVariableError) Unwrap() error { return internalerr.ErrInvalidInput }

// FactSource enumerates the tuples a grounding query may join over.
type FactSource interface {
	Tuples(ctx context.Context, p predicate.Predicate) ([][]term.Constant, error)
}
