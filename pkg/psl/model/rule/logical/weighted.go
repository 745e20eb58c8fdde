package logical

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cognicore/psl/pkg/psl/atommanager"
	"github.com/cognicore/psl/pkg/psl/groundrulestore"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/rule"
)

// Weighted is a soft logical rule whose groundings contribute weight times their
// distance to satisfaction (squared when Squared is set).
type Weighted struct {
	clauseRule
	weight  float64
	squared bool
}

var _ Rule = (*Weighted)(nil)

// NewWeighted builds a soft rule. name may be empty.
func NewWeighted(f formula.Formula, name string, weight float64, squared bool) (*Weighted, error) {
	if weight < 0 {
		return nil, fmt.Errorf("%w: negative weight %g", internalerr.ErrInvalidInput, weight)
	}
	base, err := newClauseRule(f, name)
	if err != nil {
		return nil, err
	}
	r := &Weighted{clauseRule: base, weight: weight, squared: squared}
	if r.name == "" {
		r.name = r.String()
	}
	return r, nil
}

func (r *Weighted) Name() string     { return r.name }
func (r *Weighted) IsWeighted() bool { return true }
func (r *Weighted) Weight() float64  { return r.weight }
func (r *Weighted) Squared() bool    { return r.squared }

// GroundFormulaInstance creates the ground rule for one substitution.
func (r *Weighted) GroundFormulaInstance(pos, neg []atom.Handle, rvaCount int) rule.GroundRule {
	return &WeightedGround{
		rule:     r,
		pos:      append([]atom.Handle(nil), pos...),
		neg:      append([]atom.Handle(nil), neg...),
		rvaCount: rvaCount,
	}
}

// GroundAll implements Rule.
func (r *Weighted) GroundAll(ctx context.Context, m atommanager.AtomManager, store groundrulestore.Store) (int, error) {
	return r.groundAll(ctx, m, store, r.GroundFormulaInstance)
}

// Equal reports whether other is a weighted rule over the same formula.
func (r *Weighted) Equal(other Rule) bool {
	o, ok := other.(*Weighted)
	if !ok || o == nil {
		return false
	}
	return r == o || formula.Equal(r.formula, o.formula)
}

func (r *Weighted) String() string {
	s := strconv.FormatFloat(r.weight, 'g', -1, 64) + ": " + r.formula.String()
	if r.squared {
		s += " ^2"
	}
	return s
}

// WeightedGround is one grounding of a Weighted rule.
type WeightedGround struct {
	rule     *Weighted
	pos      []atom.Handle
	neg      []atom.Handle
	rvaCount int
}

var _ rule.WeightedGroundRule = (*WeightedGround)(nil)

func (g *WeightedGround) Rule() *Weighted          { return g.rule }
func (g *WeightedGround) Atoms() []atom.Handle     { return concat(g.pos, g.neg) }
func (g *WeightedGround) Kind() rule.Kind          { return rule.KindWeighted }
func (g *WeightedGround) Weight() float64          { return g.rule.weight }
func (g *WeightedGround) RandomVariableCount() int { return g.rvaCount }

// Incompatibility implements rule.WeightedGroundRule.
func (g *WeightedGround) Incompatibility(values atom.Values) float64 {
	d := distance(values, g.pos, g.neg)
	if g.rule.squared {
		return d * d
	}
	return d
}

func (g *WeightedGround) String() string {
	return fmt.Sprintf("%s pos=%v neg=%v", g.rule.Name(), g.pos, g.neg)
}
