// Package numeric holds the floating point tolerances shared by constraint checks.
package numeric

import "math"

const (
	// Epsilon is the strict tolerance used for coefficient comparisons.
	Epsilon = 1e-8

	// RelaxedEpsilon is the tolerance used when checking whether a constraint holds.
	RelaxedEpsilon = 1e-5
)

// Equals reports whether a and b differ by at most RelaxedEpsilon.
func Equals(a, b float64) bool {
	return math.Abs(a-b) <= RelaxedEpsilon
}

// Within reports whether a and b differ by at most tol.
func Within(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
