package rule

import (
	"github.com/cognicore/psl/pkg/psl/model/atom"
	"github.com/cognicore/psl/pkg/psl/reasoner/function"
)

// ArithmeticConstraint is a hard linear constraint over atom values.
type ArithmeticConstraint struct {
	Definition function.Constraint
}

// NewArithmeticConstraint wraps a constraint definition.
func NewArithmeticConstraint(def function.Constraint) *ArithmeticConstraint {
	return &ArithmeticConstraint{Definition: def}
}

// NewCategorical builds "sum of atoms cmp 1" with unit coefficients, the shape used
// for 1-of-k (Equality) and at-most-1-of-k (SmallerThan) choices.
func NewCategorical(cmp function.Comparator, atoms ...atom.Handle) *ArithmeticConstraint {
	sum := make(function.Sum, len(atoms))
	for i, h := range atoms {
		sum[i] = function.Term{Coefficient: 1, Atom: h}
	}
	return NewArithmeticConstraint(function.Constraint{Function: sum, Comparator: cmp, Value: 1})
}

// Atoms implements GroundRule.
func (c *ArithmeticConstraint) Atoms() []atom.Handle { return c.Definition.Function.Atoms() }

// Kind implements GroundRule.
func (c *ArithmeticConstraint) Kind() Kind { return KindArithmetic }

// Infeasibility implements UnweightedGroundRule.
func (c *ArithmeticConstraint) Infeasibility(values atom.Values) float64 {
	return c.Definition.Violation(values)
}

func (c *ArithmeticConstraint) String() string {
	return c.Definition.String() + " ."
}
