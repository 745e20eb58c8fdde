package formula

import (
	"fmt"
	"strings"

	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

// Literal is a parsed "[!|~]Name(arg, ...)" string before its predicate is resolved.
type Literal struct {
	Name    string
	Args    []term.Term
	Negated bool
}

// ParseLiteral parses a literal such as "Friends(A, bob)" or "!Banned(P)".
func ParseLiteral(s string) (Literal, error) {
	line := strings.TrimSpace(s)

	var lit Literal
	if strings.HasPrefix(line, "!") || strings.HasPrefix(line, "~") {
		lit.Negated = true
		line = strings.TrimSpace(line[1:])
	}

	openParen := strings.Index(line, "(")
	if openParen == -1 {
		return Literal{}, fmt.Errorf("%w: missing '(': %s", internalerr.ErrInvalidInput, s)
	}
	lit.Name = strings.TrimSpace(line[:openParen])
	if lit.Name == "" {
		return Literal{}, fmt.Errorf("%w: missing predicate name: %s", internalerr.ErrInvalidInput, s)
	}

	if !strings.HasSuffix(line, ")") {
		return Literal{}, fmt.Errorf("%w: missing ')': %s", internalerr.ErrInvalidInput, s)
	}

	args := strings.TrimSpace(line[openParen+1 : len(line)-1])
	if args == "" {
		return Literal{}, fmt.Errorf("%w: no arguments: %s", internalerr.ErrInvalidInput, s)
	}
	for _, part := range strings.Split(args, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Literal{}, fmt.Errorf("%w: empty argument: %s", internalerr.ErrInvalidInput, s)
		}
		lit.Args = append(lit.Args, term.Parse(part))
	}
	return lit, nil
}

// Ground converts a literal whose arguments are all constants.
func (l Literal) Ground() ([]term.Constant, error) {
	out := make([]term.Constant, len(l.Args))
	for i, t := range l.Args {
		c, ok := t.(term.Constant)
		if !ok {
			return nil, fmt.Errorf("%w: %s(...) has variable %s where a constant is required", internalerr.ErrInvalidInput, l.Name, t)
		}
		out[i] = c
	}
	return out, nil
}
