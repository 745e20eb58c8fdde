// Package predicateconstraint expresses functional dependencies between predicate
// arguments and grounds them into categorical arithmetic constraints.
package predicateconstraint

import (
	"fmt"
	"strings"

	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/numeric"
	"github.com/cognicore/psl/pkg/psl/reasoner/function"
)

// Type is one of the four functional-dependency kinds.
type Type uint8

const (
	Functional Type = iota
	InverseFunctional
	PartialFunctional
	PartialInverseFunctional
)

type typeInfo struct {
	name       string
	position   int
	equality   bool
	comparator function.Comparator
}

var types = [...]typeInfo{
	Functional:               {"Functional", 0, true, function.Equality},
	InverseFunctional:        {"InverseFunctional", 1, true, function.Equality},
	PartialFunctional:        {"PartialFunctional", 0, false, function.SmallerThan},
	PartialInverseFunctional: {"PartialInverseFunctional", 1, false, function.SmallerThan},
}

func (t Type) info() (typeInfo, bool) {
	if int(t) >= len(types) {
		return typeInfo{}, false
	}
	return types[t], true
}

// ParseType maps a name such as "PartialFunctional" to its Type.
func ParseType(name string) (Type, error) {
	for i, info := range types {
		if strings.EqualFold(info.name, strings.TrimSpace(name)) {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown predicate constraint type %q", internalerr.ErrInvalidInput, name)
}

func (t Type) String() string {
	if info, ok := t.info(); ok {
		return info.name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Position is the argument that is held fixed when summing over the others.
func (t Type) Position() int {
	info, _ := t.info()
	return info.position
}

// Equality reports whether exactly one atom per group must be true.
func (t Type) Equality() bool {
	info, _ := t.info()
	return info.equality
}

// Comparator is the comparator of the grounded sum constraint.
func (t Type) Comparator() (function.Comparator, error) {
	info, ok := t.info()
	if !ok {
		return 0, fmt.Errorf("%w: %s", internalerr.ErrInvalidComparator, t)
	}
	return info.comparator, nil
}

// Holds reports whether a group sum satisfies the constraint.
func (t Type) Holds(value float64) (bool, error) {
	cmp, err := t.Comparator()
	if err != nil {
		return false, err
	}
	return holds(cmp, value)
}

func holds(cmp function.Comparator, value float64) (bool, error) {
	switch cmp {
	case function.SmallerThan:
		return value <= 1+numeric.RelaxedEpsilon, nil
	case function.Equality:
		return numeric.Equals(value, 1.0), nil
	default:
		return false, fmt.Errorf("%w: %s", internalerr.ErrInvalidComparator, cmp)
	}
}
