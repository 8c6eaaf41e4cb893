package kernels

import (
	"math"
	"testing"

	"github.com/paveg/blockframe/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceFloat(t *testing.T) {
	values := []float64{4, math.NaN(), 1, 3, 2}

	tests := []struct {
		name     string
		expected float64
	}{
		{"sum", 10},
		{"prod", 24},
		{"mean", 2.5},
		{"min", 1},
		{"max", 4},
		{"median", 2.5},
		{"first", 4},
		{"last", 2},
		{"count", 4},
		{"var", 5.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Lookup(tt.name)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, ReduceFloat(r, values), 1e-12)
		})
	}

	std, _ := Lookup("std")
	assert.InDelta(t, math.Sqrt(5.0/3.0), ReduceFloat(std, values), 1e-12)
}

func TestReduceEmpty(t *testing.T) {
	for _, name := range Names() {
		r, err := Lookup(name)
		require.NoError(t, err)
		got := ReduceFloat(r, []float64{math.NaN()})
		if r.Count {
			assert.Equal(t, 0.0, got)
		} else {
			assert.True(t, math.IsNaN(got), name)
		}
	}

	_, err := Lookup("mode")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestIntAndAnyReductions(t *testing.T) {
	sumR, _ := Lookup("sum")
	assert.Equal(t, int64(6), sumR.Int([]int64{1, 2, 3}))
	assert.True(t, sumR.NumericOnly())

	minR, _ := Lookup("min")
	assert.Equal(t, "a", minR.Any([]any{"c", "a", "b"}))
	maxR, _ := Lookup("max")
	assert.Equal(t, "c", maxR.Any([]any{"c", "a", "b"}))
	assert.False(t, maxR.NumericOnly())

	mean, _ := Lookup("mean")
	assert.Nil(t, mean.Int)
}

func TestBinary(t *testing.T) {
	assert.Equal(t, 15.0, Add.Float(5, 10))
	assert.Equal(t, int64(-5), Sub.Int(5, 10))
	assert.Nil(t, Div.Int)

	v, err := Add.Object("a", "b")
	require.NoError(t, err)
	assert.Equal(t, "ab", v)

	v, err = Mul.Object(int64(2), 1.5)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = Sub.Object("a", int64(1))
	assert.ErrorIs(t, err, errors.ErrDtypeMismatch)

	op, err := ParseBinary("/")
	require.NoError(t, err)
	assert.Equal(t, "div", op.Name)
}
