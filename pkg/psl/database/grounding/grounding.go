// Package grounding evaluates conjunctive grounding queries with the Mangle
// Datalog engine.
//
// The tuples of every predicate mentioned by the query are emitted as Mangle facts,
// the query itself becomes a single clause whose head binds every query variable,
// and the program is evaluated to a fixed point.
package grounding

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/cognicore/psl/pkg/psl/database"
	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

const querySymbol = "psl_query"

// Evaluate returns every substitution of the variables of f, in first-occurrence
// order, under which all atoms of f are facts of src.
func Evaluate(ctx context.Context, src database.FactSource, f formula.Formula) (database.ResultList, error) {
	atoms, err := formula.Atoms(f)
	if err != nil {
		return database.ResultList{}, err
	}
	if len(atoms) == 0 {
		return database.ResultList{}, fmt.Errorf("%w: empty grounding query", internalerr.ErrInvalidInput)
	}
	vars := formula.Variables(atoms)
	result := database.ResultList{Variables: vars}

	symbols := make(map[string]string)
	tuples := make(map[string][][]term.Constant)
	var program strings.Builder
	for _, a := range atoms {
		name := a.Predicate.Name
		if _, ok := symbols[name]; ok {
			continue
		}
		facts, err := src.Tuples(ctx, a.Predicate)
		if err != nil {
			return database.ResultList{}, err
		}
		if len(facts) == 0 {
			return result, nil
		}
		sym := fmt.Sprintf("p%d", len(symbols))
		symbols[name] = sym
		tuples[name] = facts
		for _, tup := range facts {
			writeAtom(&program, sym, constantsToTerms(tup), nil)
			program.WriteString(".\n")
		}
	}

	if len(vars) == 0 {
		if groundHolds(atoms, tuples) {
			result.Rows = [][]term.Constant{{}}
		}
		return result, nil
	}

	varNames := make(map[term.Variable]string, len(vars))
	head := make([]term.Term, len(vars))
	for i, v := range vars {
		varNames[v] = fmt.Sprintf("V%d", i)
		head[i] = v
	}
	writeAtom(&program, querySymbol, head, varNames)
	program.WriteString(" :- ")
	for i, a := range atoms {
		if i > 0 {
			program.WriteString(", ")
		}
		writeAtom(&program, symbols[a.Predicate.Name], a.Args, varNames)
	}
	program.WriteString(".\n")

	if err := ctx.Err(); err != nil {
		return database.ResultList{}, err
	}

	unit, err := parse.Unit(strings.NewReader(program.String()))
	if err != nil {
		return database.ResultList{}, fmt.Errorf("parse grounding program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return database.ResultList{}, fmt.Errorf("analyze grounding program: %w", err)
	}
	store := factstore.NewSimpleInMemoryStore()
	if _, err := engine.EvalProgramWithStats(programInfo, store); err != nil {
		return database.ResultList{}, fmt.Errorf("evaluate grounding program: %w", err)
	}

	query := ast.NewQuery(ast.PredicateSym{Symbol: querySymbol, Arity: len(vars)})
	err = store.GetFacts(query, func(fact ast.Atom) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := make([]term.Constant, len(fact.Args))
		for i, arg := range fact.Args {
			c, ok := arg.(ast.Constant)
			if !ok {
				return fmt.Errorf("grounding produced non-constant %v", arg)
			}
			row[i] = term.Constant(c.Symbol)
		}
		result.Rows = append(result.Rows, row)
		return nil
	})
	if err != nil {
		return database.ResultList{}, err
	}

	sort.Slice(result.Rows, func(i, j int) bool {
		return lessRow(result.Rows[i], result.Rows[j])
	})
	return result, nil
}

func constantsToTerms(cs []term.Constant) []term.Term {
	out := make([]term.Term, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func writeAtom(b *strings.Builder, sym string, args []term.Term, varNames map[term.Variable]string) {
	b.WriteString(sym)
	b.WriteByte('(')
	for i, t := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		switch v := t.(type) {
		case term.Variable:
			b.WriteString(varNames[v])
		case term.Constant:
			b.WriteString(quote(string(v)))
		}
	}
	b.WriteByte(')')
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}

func groundHolds(atoms []formula.Atom, tuples map[string][][]term.Constant) bool {
	for _, a := range atoms {
		args, err := formula.Substitute(a, nil)
		if err != nil {
			return false
		}
		want := term.Key(args)
		found := false
		for _, tup := range tuples[a.Predicate.Name] {
			if term.Key(tup) == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func lessRow(a, b []term.Constant) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
