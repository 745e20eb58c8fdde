package logical

import (
	"context"
	"fmt"

	"github.com/cognicore/psl/pkg/psl/atommanager"
	"github.com/cognicore/psl/pkg/psl/groundrulestore"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/rule"
)

// Unweighted is a hard logical rule: every grounding must evaluate to true.
type Unweighted struct {
	clauseRule
}

var _ Rule = (*Unweighted)(nil)

// NewUnweighted builds a hard rule named after its formula.
func NewUnweighted(f formula.Formula) (*Unweighted, error) {
	return NewUnweightedNamed(f, "")
}

// NewUnweightedNamed builds a hard rule with a display name. An empty name
// falls back to the rule's textual form.
func NewUnweightedNamed(f formula.Formula, name string) (*Unweighted, error) {
	base, err := newClauseRule(f, name)
	if err != nil {
		return nil, err
	}
	r := &Unweighted{clauseRule: base}
	if r.name == "" {
		r.name = r.String()
	}
	return r, nil
}

// Name returns the display name.
func (r *Unweighted) Name() string { return r.name }

// IsWeighted always returns false.
func (r *Unweighted) IsWeighted() bool { return false }

// GroundFormulaInstance creates the ground rule for one substitution.
func (r *Unweighted) GroundFormulaInstance(pos, neg []atom.Handle, rvaCount int) rule.GroundRule {
	return &UnweightedGround{
		rule:     r,
		pos:      append([]atom.Handle(nil), pos...),
		neg:      append([]atom.Handle(nil), neg...),
		rvaCount: rvaCount,
	}
}

// GroundAll implements Rule.
func (r *Unweighted) GroundAll(ctx context.Context, m atommanager.AtomManager, store groundrulestore.Store) (int, error) {
	return r.groundAll(ctx, m, store, r.GroundFormulaInstance)
}

// Equal reports whether other is an unweighted rule over the same formula.
func (r *Unweighted) Equal(other Rule) bool {
	o, ok := other.(*Unweighted)
	if !ok || o == nil {
		return false
	}
	return r == o || formula.Equal(r.formula, o.formula)
}

func (r *Unweighted) String() string {
	return r.formula.String() + " ."
}

// UnweightedGround is one grounding of an Unweighted rule.
type UnweightedGround struct {
	rule     *Unweighted
	pos      []atom.Handle
	neg      []atom.Handle
	rvaCount int
}

var _ rule.UnweightedGroundRule = (*UnweightedGround)(nil)

// Rule returns the rule this was grounded from.
func (g *UnweightedGround) Rule() *Unweighted { return g.rule }

// Atoms implements rule.GroundRule.
func (g *UnweightedGround) Atoms() []atom.Handle { return concat(g.pos, g.neg) }

// Kind implements rule.GroundRule.
func (g *UnweightedGround) Kind() rule.Kind { return rule.KindLogical }

// RandomVariableCount is the number of literals that are random variables.
func (g *UnweightedGround) RandomVariableCount() int { return g.rvaCount }

// Infeasibility implements rule.UnweightedGroundRule.
func (g *UnweightedGround) Infeasibility(values atom.Values) float64 {
	return distance(values, g.pos, g.neg)
}

func (g *UnweightedGround) String() string {
	return fmt.Sprintf("%s pos=%v neg=%v", g.rule.Name(), g.pos, g.neg)
}
