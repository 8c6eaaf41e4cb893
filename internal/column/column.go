// Package column holds homogeneous one-dimensional buffers of one of the
// engine dtypes together with the positional kernels blocks are built on:
// take, slice, cast and concatenation.
package column

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/validation"
)

// Column is a tagged buffer: exactly one of the slices is populated,
// selected by the dtype. Columns are values; copying a Column shares the
// backing array.
type Column struct {
	dtype  dtype.Dtype
	floats []float64
	ints   []int64
	bools  []bool
	objs   []any
	times  []dtype.Time
}

// NewFloat64 wraps a float buffer without copying
func NewFloat64(values []float64) Column {
	return Column{dtype: dtype.F64, floats: values}
}

// NewInt64 wraps an integer buffer without copying
func NewInt64(values []int64) Column {
	return Column{dtype: dtype.I64, ints: values}
}

// NewBool wraps a boolean buffer without copying
func NewBool(values []bool) Column {
	return Column{dtype: dtype.Bool, bools: values}
}

// NewTime wraps a timestamp buffer without copying
func NewTime(values []dtype.Time) Column {
	return Column{dtype: dtype.Timestamp, times: values}
}

// NewObject wraps an object buffer without copying. Cells are normalized
// in place to their label form.
func NewObject(values []any) Column {
	for i, v := range values {
		values[i] = label.Normalize(v)
	}
	return Column{dtype: dtype.Object, objs: values}
}

// NewObjectMasked builds an object column where positions set in mask are
// missing regardless of the stored value.
func NewObjectMasked(values []any, mask *roaring.Bitmap) Column {
	c := NewObject(values)
	if mask == nil {
		return c
	}
	it := mask.Iterator()
	for it.HasNext() {
		pos := int(it.Next())
		if pos < len(c.objs) {
			c.objs[pos] = nil
		}
	}
	return c
}

// Make allocates a zero-valued column of n cells
func Make(dt dtype.Dtype, n int) Column {
	switch dt {
	case dtype.F64:
		return NewFloat64(make([]float64, n))
	case dtype.I64:
		return NewInt64(make([]int64, n))
	case dtype.Bool:
		return NewBool(make([]bool, n))
	case dtype.Timestamp:
		return NewTime(make([]dtype.Time, n))
	default:
		return Column{dtype: dtype.Object, objs: make([]any, n)}
	}
}

// Full allocates n missing cells. Dtypes without a missing sentinel are
// widened first, so the result dtype may differ from dt.
func Full(dt dtype.Dtype, n int) Column {
	dt = dt.UpcastForMissing()
	c := Make(dt, n)
	switch dt {
	case dtype.F64:
		nan := math.NaN()
		for i := range c.floats {
			c.floats[i] = nan
		}
	case dtype.Timestamp:
		for i := range c.times {
			c.times[i] = dtype.NaT
		}
	}
	return c
}

// FromValues infers a dtype for arbitrary cells and builds a column.
// Mixed or missing-bearing inputs fall back to float (numbers with NaN)
// or Object.
func FromValues(values []any) Column {
	labels := label.NormalizeAll(values)
	dt := label.DtypeOf(labels)
	if dt == dtype.Object && numericWithMissing(labels) {
		dt = dtype.F64
	}

	c := Make(dt, len(labels))
	for i, v := range labels {
		c.set(i, v)
	}
	return c
}

func numericWithMissing(values []label.Label) bool {
	sawNumber := false
	for _, v := range values {
		switch v.(type) {
		case int64, float64:
			sawNumber = true
		case nil:
		default:
			return false
		}
	}
	return sawNumber
}

// Dtype returns the element type tag
func (c Column) Dtype() dtype.Dtype {
	return c.dtype
}

// Len returns the number of cells
func (c Column) Len() int {
	switch c.dtype {
	case dtype.F64:
		return len(c.floats)
	case dtype.I64:
		return len(c.ints)
	case dtype.Bool:
		return len(c.bools)
	case dtype.Timestamp:
		return len(c.times)
	default:
		return len(c.objs)
	}
}

// Float64s returns the float buffer, nil for other dtypes
func (c Column) Float64s() []float64 { return c.floats }

// Int64s returns the integer buffer, nil for other dtypes
func (c Column) Int64s() []int64 { return c.ints }

// Bools returns the boolean buffer, nil for other dtypes
func (c Column) Bools() []bool { return c.bools }

// Objects returns the object buffer, nil for other dtypes
func (c Column) Objects() []any { return c.objs }

// Times returns the timestamp buffer, nil for other dtypes
func (c Column) Times() []dtype.Time { return c.times }

// Value returns cell i in label form
func (c Column) Value(i int) any {
	switch c.dtype {
	case dtype.F64:
		return c.floats[i]
	case dtype.I64:
		return c.ints[i]
	case dtype.Bool:
		return c.bools[i]
	case dtype.Timestamp:
		return c.times[i]
	default:
		return c.objs[i]
	}
}

// Values returns every cell in label form
func (c Column) Values() []any {
	out := make([]any, c.Len())
	for i := range out {
		out[i] = c.Value(i)
	}
	return out
}

// IsMissing reports whether cell i is missing
func (c Column) IsMissing(i int) bool {
	return dtype.IsMissing(c.Value(i), c.dtype)
}

// MissingMask returns the per-cell missing flags
func (c Column) MissingMask() []bool {
	switch c.dtype {
	case dtype.F64:
		return dtype.IsMissingFloats(c.floats)
	case dtype.Timestamp:
		return dtype.IsMissingTimes(c.times)
	case dtype.Object:
		return dtype.IsMissingObjects(c.objs)
	default:
		return make([]bool, c.Len())
	}
}

// HasMissing reports whether any cell is missing
func (c Column) HasMissing() bool {
	if !c.dtype.CanHoldMissing() {
		return false
	}
	for _, m := range c.MissingMask() {
		if m {
			return true
		}
	}
	return false
}

// Set overwrites cell i. The value must be representable in the column dtype.
func (c Column) Set(i int, v any) error {
	if err := validation.ValidateIndex(i, c.Len(), "Set"); err != nil {
		return err
	}
	v = label.Normalize(v)
	if !Accepts(c.dtype, v) {
		return errors.NewDtypeMismatchError("Set", nil,
			fmt.Sprintf("cannot store %T in %s column", v, c.dtype))
	}
	c.set(i, v)
	return nil
}

// Accepts reports whether v can be stored in a column of dtype dt
func Accepts(dt dtype.Dtype, v any) bool {
	switch v.(type) {
	case nil:
		return dt.CanHoldMissing()
	case float64:
		return dt == dtype.F64 || dt == dtype.Object
	case int64:
		return dt == dtype.I64 || dt == dtype.F64 || dt == dtype.Object
	case bool:
		return dt == dtype.Bool || dt == dtype.Object
	case dtype.Time:
		return dt == dtype.Timestamp || dt == dtype.Object
	default:
		return dt == dtype.Object
	}
}

// set stores a normalized value assumed to be accepted by the dtype
func (c Column) set(i int, v any) {
	switch c.dtype {
	case dtype.F64:
		switch x := v.(type) {
		case float64:
			c.floats[i] = x
		case int64:
			c.floats[i] = float64(x)
		default:
			c.floats[i] = math.NaN()
		}
	case dtype.I64:
		c.ints[i], _ = v.(int64)
	case dtype.Bool:
		c.bools[i], _ = v.(bool)
	case dtype.Timestamp:
		if t, ok := v.(dtype.Time); ok {
			c.times[i] = t
		} else {
			c.times[i] = dtype.NaT
		}
	default:
		c.objs[i] = v
	}
}

// CopyFrom overwrites cells [offset, offset+src.Len()) with src. Dtypes must match.
func (c Column) CopyFrom(offset int, src Column) error {
	if src.dtype != c.dtype {
		return errors.NewDtypeMismatchError("CopyFrom", nil,
			fmt.Sprintf("cannot copy %s cells into %s column", src.dtype, c.dtype))
	}
	if offset < 0 || offset+src.Len() > c.Len() {
		return errors.NewOutOfBoundsError("CopyFrom", offset+src.Len(), c.Len())
	}
	switch c.dtype {
	case dtype.F64:
		copy(c.floats[offset:], src.floats)
	case dtype.I64:
		copy(c.ints[offset:], src.ints)
	case dtype.Bool:
		copy(c.bools[offset:], src.bools)
	case dtype.Timestamp:
		copy(c.times[offset:], src.times)
	default:
		copy(c.objs[offset:], src.objs)
	}
	return nil
}

// Copy returns a deep copy of the buffer
func (c Column) Copy() Column {
	return c.Slice(0, c.Len())
}

// String renders cell i for display
func (c Column) String(i int) string {
	return label.Format(c.Value(i))
}
