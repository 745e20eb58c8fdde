package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Sentinel errors raised while compiling ground rules into blocks.
// All of them are fatal for the generation that produced them.
var (
	// ErrShape is returned when a ground-rule store or term store lacks a required capability.
	ErrShape = errors.New("unsupported store shape")

	// ErrUnsupportedConstraint is returned for hard constraints that are neither
	// categorical (1-of-k, at-most-1-of-k) nor value constraints.
	ErrUnsupportedConstraint = errors.New("unsupported constraint")

	// ErrOverConstrainedAtom is returned when a random variable participates in more than
	// one categorical constraint or more than one value constraint.
	ErrOverConstrainedAtom = errors.New("over-constrained atom")

	// ErrUnsupportedOperation is returned by operations a component deliberately does not offer.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrInvalidComparator signals a comparator outside the closed set.
	ErrInvalidComparator = errors.New("invalid comparator")
)
