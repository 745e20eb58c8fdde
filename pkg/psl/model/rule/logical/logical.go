// Package logical implements rules written as first-order formulas that reduce to a
// single disjunctive clause, and the grounding of those rules through an AtomManager.
package logical

import (
	"context"
	"fmt"

	"github.com/cognicore/psl/pkg/psl/atommanager"
	"github.com/cognicore/psl/pkg/psl/groundrulestore"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/rule"
	"github.com/cognicore/psl/pkg/psl/model/term"
	"github.com/cognicore/psl/pkg/psl/numeric"
)

// Rule is a groundable first-order rule.
type Rule interface {
	Name() string
	Formula() formula.Formula
	IsWeighted() bool

	// GroundAll adds one ground rule per grounding substitution to store and returns
	// how many were added.
	GroundAll(ctx context.Context, m atommanager.AtomManager, store groundrulestore.Store) (int, error)

	String() string
}

type instanceFunc func(pos, neg []atom.Handle, rvaCount int) rule.GroundRule

// clauseRule holds what weighted and unweighted rules share: the formula, its clause
// and the grounding query built from the clause's negative literals.
type clauseRule struct {
	formula formula.Formula
	name    string
	pos     []formula.Atom
	neg     []formula.Atom
	query   formula.Conjunction
}

func newClauseRule(f formula.Formula, name string) (clauseRule, error) {
	if f == nil {
		return clauseRule{}, fmt.Errorf("%w: nil formula", internalerr.ErrInvalidInput)
	}
	pos, neg, err := formula.Clause(f)
	if err != nil {
		return clauseRule{}, err
	}
	if len(neg) == 0 {
		return clauseRule{}, fmt.Errorf("%w: %s has no body literal to ground over", internalerr.ErrInvalidInput, f)
	}

	bound := make(map[term.Variable]bool)
	for _, v := range formula.Variables(neg) {
		bound[v] = true
	}
	for _, v := range formula.Variables(pos) {
		if !bound[v] {
			return clauseRule{}, fmt.Errorf("%w: variable %s of %s only occurs in the head", internalerr.ErrInvalidInput, v, f)
		}
	}

	query := make(formula.Conjunction, len(neg))
	for i, a := range neg {
		query[i] = a
	}
	return clauseRule{formula: f, name: name, pos: pos, neg: neg, query: query}, nil
}

func (r *clauseRule) Formula() formula.Formula { return r.formula }

func (r *clauseRule) groundAll(ctx context.Context, m atommanager.AtomManager, store groundrulestore.Store, instance instanceFunc) (int, error) {
	results, err := m.ExecuteGroundingQuery(ctx, r.query)
	if err != nil {
		return 0, fmt.Errorf("ground %s: %w", r.formula, err)
	}

	arena := m.Atoms()
	count := 0
	for i := 0; i < results.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		binding := results.Binding(i)

		var (
			rvaCount  int
			satisfied bool
		)
		resolve := func(atoms []formula.Atom, positive bool) ([]atom.Handle, error) {
			out := make([]atom.Handle, len(atoms))
			for j, a := range atoms {
				args, err := formula.Substitute(a, binding)
				if err != nil {
					return nil, err
				}
				h, err := m.GetAtom(ctx, a.Predicate, args...)
				if err != nil {
					return nil, err
				}
				out[j] = h
				if arena.IsRandomVariable(h) {
					rvaCount++
					continue
				}
				v := arena.Value(h)
				if (positive && numeric.Equals(v, 1)) || (!positive && v == 0) {
					satisfied = true
				}
			}
			return out, nil
		}

		pos, err := resolve(r.pos, true)
		if err != nil {
			return count, err
		}
		neg, err := resolve(r.neg, false)
		if err != nil {
			return count, err
		}
		if satisfied {
			continue
		}
		store.Add(instance(pos, neg, rvaCount))
		count++
	}
	return count, nil
}

// distance is the Łukasiewicz distance to satisfaction of the clause.
func distance(values atom.Values, pos, neg []atom.Handle) float64 {
	truth := 0.0
	for _, h := range pos {
		truth += values.Value(h)
	}
	for _, h := range neg {
		truth += 1 - values.Value(h)
	}
	return numeric.Clamp01(1 - truth)
}

func concat(pos, neg []atom.Handle) []atom.Handle {
	out := make([]atom.Handle, 0, len(pos)+len(neg))
	out = append(out, pos...)
	return append(out, neg...)
}
