// Package predicate describes relations that atoms are built from.
package predicate

import (
	"fmt"
	"strings"
	"unicode"
)

// Predicate is a named relation with a fixed arity.
type Predicate struct {
	Name  string
	Arity int
}

// New validates and returns a predicate.
func New(name string, arity int) (Predicate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Predicate{}, fmt.Errorf("predicate name is empty")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return Predicate{}, fmt.Errorf("predicate %q: invalid character %q", name, r)
		}
	}
	if arity < 1 {
		return Predicate{}, fmt.Errorf("predicate %q: arity must be positive, got %d", name, arity)
	}
	return Predicate{Name: name, Arity: arity}, nil
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s/%d", p.Name, p.Arity)
}
