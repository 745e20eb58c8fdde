// Package atom stores ground atoms in an arena addressed by stable handles.
//
// Every other package refers to atoms by Handle; the arena is the single owner of
// predicate, arguments, kind and current value.
package atom

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

// Handle identifies an atom inside its Arena.
type Handle int32

// Kind distinguishes observed atoms from random variables.
type Kind uint8

const (
	// Observed atoms carry an immutable value supplied by the database.
	Observed Kind = iota
	// RandomVariable atoms carry a value owned by inference.
	RandomVariable
)

func (k Kind) String() string {
	switch k {
	case Observed:
		return "observed"
	case RandomVariable:
		return "random-variable"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// GroundAtom is a predicate applied to constants.
type GroundAtom struct {
	Predicate predicate.Predicate
	Args      []term.Constant
	Kind      Kind
	Value     float64
}

func (a GroundAtom) String() string {
	args := make([]string, len(a.Args))
	for i, c := range a.Args {
		args[i] = string(c)
	}
	return a.Predicate.Name + "(" + strings.Join(args, ", ") + ")"
}

// Values gives read access to atom values.
type Values interface {
	Value(h Handle) float64
}

// Arena owns every ground atom of one database.
type Arena struct {
	mu    sync.RWMutex
	atoms []GroundAtom
	index map[string]Handle
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{index: make(map[string]Handle)}
}

func key(p predicate.Predicate, args []term.Constant) string {
	return p.Name + "\x01" + term.Key(args)
}

// Intern returns the handle for (p, args), creating the atom with the given kind and
// value when it does not exist yet. An existing atom is returned unchanged.
func (a *Arena) Intern(p predicate.Predicate, args []term.Constant, kind Kind, value float64) (Handle, error) {
	if len(args) != p.Arity {
		return 0, fmt.Errorf("%w: %s expects %d arguments, got %d", internalerr.ErrInvalidInput, p.Name, p.Arity, len(args))
	}
	k := key(p, args)

	a.mu.Lock()
	defer a.mu.Unlock()

	if h, ok := a.index[k]; ok {
		return h, nil
	}
	h := Handle(len(a.atoms))
	a.atoms = append(a.atoms, GroundAtom{
		Predicate: p,
		Args:      append([]term.Constant(nil), args...),
		Kind:      kind,
		Value:     value,
	})
	a.index[k] = h
	return h, nil
}

// Lookup finds an existing atom.
func (a *Arena) Lookup(p predicate.Predicate, args []term.Constant) (Handle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.index[key(p, args)]
	return h, ok
}

// Get returns a copy of the atom behind h.
func (a *Arena) Get(h Handle) GroundAtom {
	a.mu.RLock()
	defer a.mu.RUnlock()
	at := a.atoms[h]
	at.Args = append([]term.Constant(nil), at.Args...)
	return at
}

// Kind returns the kind of h.
func (a *Arena) Kind(h Handle) Kind {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.atoms[h].Kind
}

// IsRandomVariable reports whether h is a random variable.
func (a *Arena) IsRandomVariable(h Handle) bool {
	return a.Kind(h) == RandomVariable
}

// Value implements Values.
func (a *Arena) Value(h Handle) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.atoms[h].Value
}

// SetValue changes the value of a random variable. Observed atoms are immutable.
func (a *Arena) SetValue(h Handle, v float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(h) < 0 || int(h) >= len(a.atoms) {
		return fmt.Errorf("%w: atom handle %d", internalerr.ErrNotFound, h)
	}
	if a.atoms[h].Kind != RandomVariable {
		return fmt.Errorf("%w: cannot set value of observed atom %s", internalerr.ErrInvalidInput, a.atoms[h])
	}
	a.atoms[h].Value = v
	return nil
}

// Len returns the number of atoms.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.atoms)
}

// Name renders h for messages.
func (a *Arena) Name(h Handle) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(h) < 0 || int(h) >= len(a.atoms) {
		return fmt.Sprintf("atom#%d", h)
	}
	return a.atoms[h].String()
}

// Range calls fn for every atom in handle order until fn returns false.
func (a *Arena) Range(fn func(h Handle, at GroundAtom) bool) {
	a.mu.RLock()
	snapshot := make([]GroundAtom, len(a.atoms))
	copy(snapshot, a.atoms)
	a.mu.RUnlock()

	for i, at := range snapshot {
		if !fn(Handle(i), at) {
			return
		}
	}
}
