// Package function defines the linear functions and comparators that arithmetic
// constraints are written in.
package function

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cognicore/psl/pkg/psl/model/atom"
)

// Comparator relates a function value to a constraint threshold.
type Comparator uint8

const (
	// Equality requires f(x) = value.
	Equality Comparator = iota
	// SmallerThan requires f(x) <= value.
	SmallerThan
	// LargerThan requires f(x) >= value.
	LargerThan
)

func (c Comparator) String() string {
	switch c {
	case Equality:
		return "="
	case SmallerThan:
		return "<="
	case LargerThan:
		return ">="
	default:
		return fmt.Sprintf("comparator(%d)", uint8(c))
	}
}

// Function is a real-valued function over atom values.
type Function interface {
	Value(values atom.Values) float64
	Atoms() []atom.Handle
	String() string
}

// Term is one summand of a Sum.
type Term struct {
	Coefficient float64
	Atom        atom.Handle
}

// Sum is a linear combination of atom values.
type Sum []Term

// Value implements Function.
func (s Sum) Value(values atom.Values) float64 {
	var total float64
	for _, t := range s {
		total += t.Coefficient * values.Value(t.Atom)
	}
	return total
}

// Atoms implements Function.
func (s Sum) Atoms() []atom.Handle {
	out := make([]atom.Handle, len(s))
	for i, t := range s {
		out[i] = t.Atom
	}
	return out
}

func (s Sum) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = strconv.FormatFloat(t.Coefficient, 'g', -1, 64) + "*#" + strconv.Itoa(int(t.Atom))
	}
	return strings.Join(parts, " + ")
}

// Identity is the value of a single atom.
type Identity struct {
	Atom atom.Handle
}

// Value implements Function.
func (i Identity) Value(values atom.Values) float64 { return values.Value(i.Atom) }

// Atoms implements Function.
func (i Identity) Atoms() []atom.Handle { return []atom.Handle{i.Atom} }

func (i Identity) String() string { return "#" + strconv.Itoa(int(i.Atom)) }

// Constraint is "Function Comparator Value".
type Constraint struct {
	Function   Function
	Comparator Comparator
	Value      float64
}

// Violation returns how far the constraint is from holding; zero when satisfied.
func (c Constraint) Violation(values atom.Values) float64 {
	diff := c.Function.Value(values) - c.Value
	switch c.Comparator {
	case Equality:
		if diff < 0 {
			return -diff
		}
		return diff
	case SmallerThan:
		if diff > 0 {
			return diff
		}
		return 0
	case LargerThan:
		if diff < 0 {
			return -diff
		}
		return 0
	default:
		return math.Inf(1)
	}
}

func (c Constraint) String() string {
	return c.Function.String() + " " + c.Comparator.String() + " " + strconv.FormatFloat(c.Value, 'g', -1, 64)
}
