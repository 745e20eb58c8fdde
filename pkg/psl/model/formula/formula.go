// Package formula represents first-order formulas over predicates and terms.
//
// Only the shapes that reduce to a single disjunctive clause are groundable:
// literals, disjunctions of literals and implications from a conjunction of literals
// to a disjunction of literals.
package formula

import (
	"fmt"
	"strings"

	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

// Formula is any node of a formula tree.
type Formula interface {
	String() string
	isFormula()
}

// Atom applies a predicate to terms.
type Atom struct {
	Predicate predicate.Predicate
	Args      []term.Term
}

// NewAtom checks arity and returns an atom.
func NewAtom(p predicate.Predicate, args ...term.Term) (Atom, error) {
	if len(args) != p.Arity {
		return Atom{}, fmt.Errorf("%w: %s expects %d arguments, got %d", internalerr.ErrInvalidInput, p.Name, p.Arity, len(args))
	}
	return Atom{Predicate: p, Args: args}, nil
}

func (a Atom) String() string {
	args := make([]string, len(a.Args))
	for i, t := range a.Args {
		args[i] = t.String()
	}
	return a.Predicate.Name + "(" + strings.Join(args, ", ") + ")"
}

// Negation is logical not.
type Negation struct {
	Body Formula
}

func (n Negation) String() string { return "~" + wrap(n.Body) }

// Conjunction is logical and.
type Conjunction []Formula

func (c Conjunction) String() string { return join(c, " & ") }

// Disjunction is logical or.
type Disjunction []Formula

func (d Disjunction) String() string { return join(d, " | ") }

// Implication is Body >> Head.
type Implication struct {
	Body Formula
	Head Formula
}

func (i Implication) String() string { return wrap(i.Body) + " >> " + wrap(i.Head) }

func (Atom) isFormula()        {}
func (Negation) isFormula()    {}
func (Conjunction) isFormula() {}
func (Disjunction) isFormula() {}
func (Implication) isFormula() {}

func wrap(f Formula) string {
	switch f.(type) {
	case Atom, Negation:
		return f.String()
	default:
		return "(" + f.String() + ")"
	}
}

func join(fs []Formula, sep string) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = wrap(f)
	}
	return strings.Join(parts, sep)
}

// Equal reports whether two formulas are structurally identical.
func Equal(a, b Formula) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// Clause reduces f to a single disjunctive clause: the disjunction of pos and of the
// negations of neg.
func Clause(f Formula) (pos, neg []Atom, err error) {
	err = clause(f, false, &pos, &neg)
	return pos, neg, err
}

func clause(f Formula, negated bool, pos, neg *[]Atom) error {
	switch n := f.(type) {
	case Atom:
		if negated {
			*neg = append(*neg, n)
		} else {
			*pos = append(*pos, n)
		}
		return nil
	case Negation:
		return clause(n.Body, !negated, pos, neg)
	case Disjunction:
		if negated {
			// ~(a | b) is a conjunction
			if len(n) != 1 {
				return fmt.Errorf("%w: %s is not a clause", internalerr.ErrInvalidInput, Negation{Body: n})
			}
			return clause(n[0], true, pos, neg)
		}
		for _, child := range n {
			if err := clause(child, false, pos, neg); err != nil {
				return err
			}
		}
		return nil
	case Conjunction:
		if !negated {
			if len(n) != 1 {
				return fmt.Errorf("%w: %s is not a clause", internalerr.ErrInvalidInput, n)
			}
			return clause(n[0], false, pos, neg)
		}
		for _, child := range n {
			if err := clause(child, true, pos, neg); err != nil {
				return err
			}
		}
		return nil
	case Implication:
		if negated {
			return fmt.Errorf("%w: negated implication %s", internalerr.ErrInvalidInput, n)
		}
		if err := clause(n.Body, true, pos, neg); err != nil {
			return err
		}
		return clause(n.Head, false, pos, neg)
	default:
		return fmt.Errorf("%w: unsupported formula %T", internalerr.ErrInvalidInput, f)
	}
}

// Atoms returns the atoms of a conjunctive query: a single atom or a conjunction of atoms.
func Atoms(f Formula) ([]Atom, error) {
	switch n := f.(type) {
	case Atom:
		return []Atom{n}, nil
	case Conjunction:
		out := make([]Atom, 0, len(n))
		for _, child := range n {
			sub, err := Atoms(child)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is not a conjunction of atoms", internalerr.ErrInvalidInput, f)
	}
}

// Variables lists the variables of atoms in first-occurrence order.
func Variables(atoms []Atom) []term.Variable {
	seen := make(map[term.Variable]bool)
	var out []term.Variable
	for _, a := range atoms {
		for _, t := range a.Args {
			if v, ok := t.(term.Variable); ok && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Substitute grounds a under binding.
func Substitute(a Atom, binding map[term.Variable]term.Constant) ([]term.Constant, error) {
	out := make([]term.Constant, len(a.Args))
	for i, t := range a.Args {
		switch v := t.(type) {
		case term.Constant:
			out[i] = v
		case term.Variable:
			c, ok := binding[v]
			if !ok {
				return nil, fmt.Errorf("%w: variable %s of %s is unbound", internalerr.ErrInvalidInput, v, a)
			}
			out[i] = c
		}
	}
	return out, nil
}
