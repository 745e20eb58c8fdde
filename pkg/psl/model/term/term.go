// Package term defines the arguments of atoms: constants and variables.
package term

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Term is either a Constant or a Variable.
type Term interface {
	String() string
	isTerm()
}

// Constant is a ground argument such as "alice".
type Constant string

func (c Constant) String() string { return string(c) }
func (Constant) isTerm()          {}

// Variable is a placeholder bound by a grounding substitution.
type Variable string

func (v Variable) String() string { return string(v) }
func (Variable) isTerm()          {}

// Parse classifies s: identifiers starting with an upper-case letter are variables,
// anything else is a constant. Surrounding quotes are stripped from constants.
func Parse(s string) Term {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return Constant(s[1 : len(s)-1])
	}
	r, _ := utf8.DecodeRuneInString(s)
	if unicode.IsUpper(r) {
		return Variable(s)
	}
	return Constant(s)
}

// Key joins constants into a single map key.
func Key(args []Constant) string {
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(string(a))
	}
	return b.String()
}
