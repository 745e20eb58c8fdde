package predicateconstraint

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/psl/pkg/psl/atommanager"
	"github.com/cognicore/psl/pkg/psl/database"
	"github.com/cognicore/psl/pkg/psl/groundrulestore"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/rule"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

// Constraint applies a Type to a binary predicate. Grounding emits one categorical
// constraint per distinct value of the argument at Type.Position().
type Constraint struct {
	predicate predicate.Predicate
	typ       Type

	mu     sync.Mutex
	ground []*rule.ArithmeticConstraint
}

// New validates p and t.
func New(p predicate.Predicate, t Type) (*Constraint, error) {
	if p.Arity != 2 {
		return nil, fmt.Errorf("%w: %s constraint needs a binary predicate, got %s", internalerr.ErrInvalidInput, t, p)
	}
	if _, err := t.Comparator(); err != nil {
		return nil, err
	}
	return &Constraint{predicate: p, typ: t}, nil
}

// Name identifies the constraint.
func (c *Constraint) Name() string {
	return fmt.Sprintf("%s(%s)", c.typ, c.predicate.Name)
}

// Type returns the constraint type.
func (c *Constraint) Type() Type { return c.typ }

// GroundAll queries every stored atom of the predicate and adds one categorical
// constraint per group to store.
func (c *Constraint) GroundAll(ctx context.Context, m atommanager.AtomManager, store groundrulestore.Store) (int, error) {
	cmp, err := c.typ.Comparator()
	if err != nil {
		return 0, err
	}

	q := formula.Atom{
		Predicate: c.predicate,
		Args:      []term.Term{term.Variable("A0"), term.Variable("A1")},
	}
	results, err := m.ExecuteQuery(ctx, database.Query{Formula: q})
	if err != nil {
		return 0, fmt.Errorf("ground %s: %w", c.Name(), err)
	}

	position := c.typ.Position()
	var order []term.Constant
	groups := make(map[term.Constant][]atom.Handle)
	for _, row := range results.Rows {
		h, err := m.GetAtom(ctx, c.predicate, row...)
		if err != nil {
			return 0, err
		}
		key := row[position]
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], h)
	}

	grounded := make([]*rule.ArithmeticConstraint, 0, len(order))
	for _, key := range order {
		gr := rule.NewCategorical(cmp, groups[key]...)
		store.Add(gr)
		grounded = append(grounded, gr)
	}

	c.mu.Lock()
	c.ground = append(c.ground, grounded...)
	c.mu.Unlock()
	return len(grounded), nil
}

// Satisfied checks every grounded group against the current values.
func (c *Constraint) Satisfied(values atom.Values) (bool, error) {
	c.mu.Lock()
	ground := append([]*rule.ArithmeticConstraint(nil), c.ground...)
	c.mu.Unlock()

	for _, gr := range ground {
		ok, err := c.typ.Holds(gr.Definition.Function.Value(values))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
