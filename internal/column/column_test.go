package column

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromValues(t *testing.T) {
	tests := []struct {
		name     string
		values   []any
		expected dtype.Dtype
	}{
		{"ints", []any{1, 2, 3}, dtype.I64},
		{"floats", []any{1.5, 2}, dtype.F64},
		{"ints with missing", []any{1, nil}, dtype.F64},
		{"bools", []any{true, false}, dtype.Bool},
		{"strings", []any{"a", nil}, dtype.Object},
		{"times", []any{dtype.Time(1)}, dtype.Timestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FromValues(tt.values)
			assert.Equal(t, tt.expected, c.Dtype())
			assert.Equal(t, len(tt.values), c.Len())
		})
	}

	c := FromValues([]any{1, nil})
	assert.True(t, c.IsMissing(1))
	assert.Equal(t, 1.0, c.Value(0))
}

func TestTakeUpcastsOnMissing(t *testing.T) {
	tests := []struct {
		name     string
		col      Column
		expected dtype.Dtype
	}{
		{"int to float", NewInt64([]int64{1, 2, 3}), dtype.F64},
		{"bool to object", NewBool([]bool{true, false, true}), dtype.Object},
		{"float stays", NewFloat64([]float64{1, 2, 3}), dtype.F64},
		{"time stays", NewTime([]dtype.Time{1, 2, 3}), dtype.Timestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.col.Take([]int{2, -1, 0})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out.Dtype())
			assert.Equal(t, []bool{false, true, false}, out.MissingMask())
		})
	}

	out, err := NewInt64([]int64{1, 2}).Take([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, dtype.I64, out.Dtype())
	assert.Equal(t, []int64{2, 1}, out.Int64s())
}

func TestTakeOutOfBounds(t *testing.T) {
	_, err := NewInt64([]int64{1}).Take([]int{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrOutOfBounds)
}

func TestCast(t *testing.T) {
	f, err := NewInt64([]int64{1, 2}).Cast(dtype.F64)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, f.Float64s())

	i, err := NewFloat64([]float64{3, 4}).Cast(dtype.I64)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, i.Int64s())

	_, err = NewFloat64([]float64{3.5}).Cast(dtype.I64)
	assert.ErrorIs(t, err, errors.ErrDtypeMismatch)

	o, err := NewFloat64([]float64{math.NaN(), 1}).Cast(dtype.Object)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, 1.0}, o.Objects())

	back, err := o.Cast(dtype.F64)
	require.NoError(t, err)
	assert.True(t, back.IsMissing(0))

	_, err = NewTime([]dtype.Time{1}).Cast(dtype.F64)
	assert.ErrorIs(t, err, errors.ErrDtypeMismatch)
}

func TestConcatAndEqual(t *testing.T) {
	c, err := Concat(NewFloat64([]float64{1, math.NaN()}), NewFloat64([]float64{3}))
	require.NoError(t, err)
	assert.True(t, Equal(c, NewFloat64([]float64{1, math.NaN(), 3})))
	assert.False(t, Equal(c, NewFloat64([]float64{1, 2, 3})))

	_, err = Concat(NewFloat64(nil), NewInt64(nil))
	assert.ErrorIs(t, err, errors.ErrDtypeMismatch)
}

func TestSetValidatesDtype(t *testing.T) {
	c := NewInt64([]int64{1, 2})
	require.NoError(t, c.Set(0, 7))
	assert.Equal(t, int64(7), c.Value(0))

	err := c.Set(1, "x")
	assert.ErrorIs(t, err, errors.ErrDtypeMismatch)
	assert.Equal(t, int64(2), c.Value(1))

	assert.ErrorIs(t, c.Set(5, 1), errors.ErrOutOfBounds)
}

func TestObjectMasked(t *testing.T) {
	mask := roaring.BitmapOf(1)
	c := NewObjectMasked([]any{"a", "b", "c"}, mask)
	assert.Equal(t, []bool{false, true, false}, c.MissingMask())
	assert.True(t, c.HasMissing())
}

func TestFull(t *testing.T) {
	c := Full(dtype.I64, 3)
	assert.Equal(t, dtype.F64, c.Dtype())
	assert.Equal(t, []bool{true, true, true}, c.MissingMask())

	o := Full(dtype.Object, 2)
	assert.Equal(t, []any{nil, nil}, o.Objects())
}

func TestSliceCopies(t *testing.T) {
	c := NewInt64([]int64{1, 2, 3})
	s := c.Slice(1, 3)
	s.Int64s()[0] = 100
	assert.Equal(t, int64(2), c.Value(1))

	v := c.View(1, 3)
	v.Int64s()[0] = 100
	assert.Equal(t, int64(100), c.Value(1))
}
