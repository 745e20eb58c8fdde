package predicateconstraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/psl/pkg/psl/internalerr"
	"github.com/cognicore/psl/pkg/psl/reasoner/function"
)

func TestType_Table(t *testing.T) {
	tests := []struct {
		typ      Type
		position int
		equality bool
		cmp      function.Comparator
	}{
		{Functional, 0, true, function.Equality},
		{InverseFunctional, 1, true, function.Equality},
		{PartialFunctional, 0, false, function.SmallerThan},
		{PartialInverseFunctional, 1, false, function.SmallerThan},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.position, tt.typ.Position())
			assert.Equal(t, tt.equality, tt.typ.Equality())
			cmp, err := tt.typ.Comparator()
			require.NoError(t, err)
			assert.Equal(t, tt.cmp, cmp)

			parsed, err := ParseType(tt.typ.String())
			require.NoError(t, err)
			assert.Equal(t, tt.typ, parsed)
		})
	}
}

func TestType_Holds(t *testing.T) {
	tests := []struct {
		typ   Type
		value float64
		want  bool
	}{
		{Functional, 1.0, true},
		{Functional, 1.000001, true},
		{Functional, 0.9, false},
		{Functional, 0, false},
		{InverseFunctional, 1.00002, false},
		{PartialFunctional, 0, true},
		{PartialFunctional, 1.000005, true},
		{PartialFunctional, 1.1, false},
		{PartialInverseFunctional, 0.5, true},
	}
	for _, tt := range tests {
		got, err := tt.typ.Holds(tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s.Holds(%g)", tt.typ, tt.value)
	}
}

func TestType_Invalid(t *testing.T) {
	bad := Type(17)
	_, err := bad.Holds(1)
	assert.ErrorIs(t, err, internalerr.ErrInvalidComparator)
	_, err = bad.Comparator()
	assert.ErrorIs(t, err, internalerr.ErrInvalidComparator)
	assert.Equal(t, "Type(17)", bad.String())

	_, err = holds(function.LargerThan, 1)
	assert.ErrorIs(t, err, internalerr.ErrInvalidComparator)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" partialinversefunctional ")
	require.NoError(t, err)
	assert.Equal(t, PartialInverseFunctional, typ)

	_, err = ParseType("Bijective")
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
}
