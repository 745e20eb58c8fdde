// Package reasoner defines how ground rules are compiled into the terms an optimizer consumes.
package reasoner

import (
	"context"

	"github.com/cognicore/psl/pkg/psl/groundrulestore"
)

// TermStore receives the output of a TermGenerator.
type TermStore interface {
	Size() int
	Clear()
}

// TermGenerator compiles a ground-rule store into a term store.
type TermGenerator interface {
	// GenerateTerms builds terms from every rule in rs. On error ts is left untouched.
	GenerateTerms(ctx context.Context, rs groundrulestore.Store, ts TermStore) error

	// UpdateWeights refreshes weight-dependent terms after rule weights change.
	UpdateWeights(ctx context.Context, rs groundrulestore.Store, ts TermStore) error
}
