// Package rule defines ground rules: the weighted potentials and hard constraints that
// grounding produces and reasoners consume.
package rule

import (
	"fmt"

	"github.com/cognicore/psl/pkg/psl/model/atom"
)

// Kind is the closed set of ground-rule variants. It is fixed by each concrete
// type, so consumers can switch on it instead of probing types.
type Kind uint8

const (
	// KindWeighted marks a weighted potential.
	KindWeighted Kind = iota
	// KindValue marks a ValueConstraint.
	KindValue
	// KindArithmetic marks an ArithmeticConstraint.
	KindArithmetic
	// KindLogical marks a hard logical clause.
	KindLogical
)

func (k Kind) String() string {
	switch k {
	case KindWeighted:
		return "weighted"
	case KindValue:
		return "value"
	case KindArithmetic:
		return "arithmetic"
	case KindLogical:
		return "logical"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Constraint reports whether k is one of the unweighted kinds.
func (k Kind) Constraint() bool {
	return k != KindWeighted
}

// GroundRule is one rule instantiated for one grounding substitution.
type GroundRule interface {
	Atoms() []atom.Handle
	Kind() Kind
	String() string
}

// WeightedGroundRule contributes a weighted potential to the objective.
type WeightedGroundRule interface {
	GroundRule
	Weight() float64
	// Incompatibility is the unweighted potential at the current values.
	Incompatibility(values atom.Values) float64
}

// UnweightedGroundRule is a hard constraint.
type UnweightedGroundRule interface {
	GroundRule
	// Infeasibility is zero iff the constraint holds at the current values.
	Infeasibility(values atom.Values) float64
}
