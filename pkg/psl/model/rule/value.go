package rule

import (
	"fmt"

	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/reasoner/function"
)

// ValueConstraint pins a random variable to a fixed value.
type ValueConstraint struct {
	Atom  atom.Handle
	Value float64
}

// NewValueConstraint returns a constraint fixing h to value.
func NewValueConstraint(h atom.Handle, value float64) *ValueConstraint {
	return &ValueConstraint{Atom: h, Value: value}
}

// Atoms implements GroundRule.
func (c *ValueConstraint) Atoms() []atom.Handle { return []atom.Handle{c.Atom} }

// Kind implements GroundRule.
func (c *ValueConstraint) Kind() Kind { return KindValue }

// Definition returns the constraint as "atom = value".
func (c *ValueConstraint) Definition() function.Constraint {
	return function.Constraint{
		Function:   function.Identity{Atom: c.Atom},
		Comparator: function.Equality,
		Value:      c.Value,
	}
}

// Infeasibility implements UnweightedGroundRule.
func (c *ValueConstraint) Infeasibility(values atom.Values) float64 {
	return c.Definition().Violation(values)
}

func (c *ValueConstraint) String() string {
	return fmt.Sprintf("#%d = %g .", c.Atom, c.Value)
}
