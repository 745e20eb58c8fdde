package blocker

import (
	"fmt"

	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/atom"
)

// OverConstrainedAtomError reports a random variable that takes part in more than one
// categorical constraint or more than one value constraint.
type OverConstrainedAtomError struct {
	Atom        atom.Handle
	Name        string
	Categorical int
	Value       int
}

func (e *OverConstrainedAtomError) Error() string {
	return fmt.Sprintf("%s: %s appears in %d categorical and %d value constraints;"+
		" random variables may only participate in one (at-most) 1-of-k and/or one value constraint",
		internalerr.ErrOverConstrainedAtom, e.Name, e.Categorical, e.Value)
}

func (e *OverConstrainedAtomError) Unwrap() error { return internalerr.ErrOverConstrainedAtom }
