package grounding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/model/formula"
	"github.com/cognicore/psl/pkg/psl/model/predicate"
	"github.com/cognicore/psl/pkg/psl/model/term"
)

type facts map[string][][]term.Constant

func (f facts) Tuples(ctx context.Context, p predicate.Predicate) ([][]term.Constant, error) {
	return f[p.Name], nil
}

var (
	edge  = predicate.Predicate{Name: "Edge", Arity: 2}
	label = predicate.Predicate{Name: "Label", Arity: 1}
)

func lit(p predicate.Predicate, args ...string) formula.Atom {
	terms := make([]term.Term, len(args))
	for i, a := range args {
		terms[i] = term.Parse(a)
	}
	return formula.Atom{Predicate: p, Args: terms}
}

func TestEvaluate_Join(t *testing.T) {
	src := facts{
		"Edge":  {{"b", "c"}, {"a", "b"}, {"c", "a"}},
		"Label": {{"a"}, {"c"}},
	}
	q := formula.Conjunction{lit(edge, "X", "Y"), lit(label, "X")}

	res, err := Evaluate(context.Background(), src, q)
	require.NoError(t, err)
	assert.Equal(t, []term.Variable{"X", "Y"}, res.Variables)
	assert.Equal(t, [][]term.Constant{{"a", "b"}, {"c", "a"}}, res.Rows)
}

func TestEvaluate_ConstantsAndRepeatedVariables(t *testing.T) {
	src := facts{"Edge": {{"a", "a"}, {"a", "b"}, {"b", "b"}}}

	res, err := Evaluate(context.Background(), src, lit(edge, "X", "X"))
	require.NoError(t, err)
	assert.Equal(t, [][]term.Constant{{"a"}, {"b"}}, res.Rows)

	res, err = Evaluate(context.Background(), src, lit(edge, "a", "Y"))
	require.NoError(t, err)
	assert.Equal(t, [][]term.Constant{{"a"}, {"b"}}, res.Rows)
}

func TestEvaluate_QuotedConstants(t *testing.T) {
	// Upper-case and punctuated constants must not be read as Datalog variables.
	src := facts{"Edge": {{"Alice Smith", "new-york:ny"}}}

	res, err := Evaluate(context.Background(), src, lit(edge, "A", "B"))
	require.NoError(t, err)
	assert.Equal(t, [][]term.Constant{{"Alice Smith", "new-york:ny"}}, res.Rows)
}

func TestEvaluate_GroundQuery(t *testing.T) {
	src := facts{"Edge": {{"a", "b"}}}

	res, err := Evaluate(context.Background(), src, lit(edge, "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())

	res, err = Evaluate(context.Background(), src, lit(edge, "b", "a"))
	require.NoError(t, err)
	assert.Zero(t, res.Len())
}

func TestEvaluate_EmptyPredicate(t *testing.T) {
	src := facts{"Edge": {{"a", "b"}}}
	res, err := Evaluate(context.Background(), src, formula.Conjunction{lit(edge, "X", "Y"), lit(label, "Y")})
	require.NoError(t, err)
	assert.Equal(t, []term.Variable{"X", "Y"}, res.Variables)
	assert.Zero(t, res.Len())
}

func TestEvaluate_Rejects(t *testing.T) {
	_, err := Evaluate(context.Background(), facts{}, formula.Negation{Body: lit(edge, "X", "Y")})
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	_, err = Evaluate(context.Background(), facts{}, formula.Conjunction{})
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}

func TestEvaluate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Evaluate(ctx, facts{"Edge": {{"a", "b"}}}, lit(edge, "X", "Y"))
	assert.ErrorIs(t, err, context.Canceled)
}
