package column

import (
	"fmt"
	"math"

	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/label"
	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

func convert[From, To number](src []From) []To {
	out := make([]To, len(src))
	for i, v := range src {
		out[i] = To(v)
	}
	return out
}

func gather[T any](src []T, indexer []int, fill T) []T {
	out := make([]T, len(indexer))
	for i, pos := range indexer {
		if pos < 0 {
			out[i] = fill
			continue
		}
		out[i] = src[pos]
	}
	return out
}

func clone[T any](src []T) []T {
	out := make([]T, len(src))
	copy(out, src)
	return out
}

// Slice copies cells [lo, hi)
func (c Column) Slice(lo, hi int) Column {
	switch c.dtype {
	case dtype.F64:
		return NewFloat64(clone(c.floats[lo:hi]))
	case dtype.I64:
		return NewInt64(clone(c.ints[lo:hi]))
	case dtype.Bool:
		return NewBool(clone(c.bools[lo:hi]))
	case dtype.Timestamp:
		return NewTime(clone(c.times[lo:hi]))
	default:
		return Column{dtype: dtype.Object, objs: clone(c.objs[lo:hi])}
	}
}

// View returns cells [lo, hi) sharing the backing array
func (c Column) View(lo, hi int) Column {
	switch c.dtype {
	case dtype.F64:
		return NewFloat64(c.floats[lo:hi])
	case dtype.I64:
		return NewInt64(c.ints[lo:hi])
	case dtype.Bool:
		return NewBool(c.bools[lo:hi])
	case dtype.Timestamp:
		return NewTime(c.times[lo:hi])
	default:
		return Column{dtype: dtype.Object, objs: c.objs[lo:hi]}
	}
}

// Take gathers cells by position; -1 yields a missing cell. When the
// indexer contains -1 and the dtype cannot hold missing, the column is
// widened first.
func (c Column) Take(indexer []int) (Column, error) {
	n := c.Len()
	needsMissing := false
	for _, pos := range indexer {
		if pos >= n || pos < -1 {
			return Column{}, errors.NewOutOfBoundsError("Take", pos, n)
		}
		if pos == -1 {
			needsMissing = true
		}
	}

	src := c
	if needsMissing && !c.dtype.CanHoldMissing() {
		var err error
		if src, err = c.Cast(c.dtype.UpcastForMissing()); err != nil {
			return Column{}, err
		}
	}
	return src.gather(indexer), nil
}

// gather assumes a validated indexer and a dtype able to hold missing
// wherever the indexer has -1.
func (c Column) gather(indexer []int) Column {
	switch c.dtype {
	case dtype.F64:
		return NewFloat64(gather(c.floats, indexer, math.NaN()))
	case dtype.I64:
		return NewInt64(gather(c.ints, indexer, 0))
	case dtype.Bool:
		return NewBool(gather(c.bools, indexer, false))
	case dtype.Timestamp:
		return NewTime(gather(c.times, indexer, dtype.NaT))
	default:
		return Column{dtype: dtype.Object, objs: gather(c.objs, indexer, nil)}
	}
}

// Cast converts the column to another dtype. Widening casts always succeed;
// F64 to I64 succeeds only when every cell is integral and present.
func (c Column) Cast(to dtype.Dtype) (Column, error) {
	if c.dtype == to {
		return c.Copy(), nil
	}

	switch to {
	case dtype.Object:
		objs := make([]any, c.Len())
		for i := range objs {
			v := c.Value(i)
			if dtype.IsMissing(v, c.dtype) {
				v = nil
			}
			objs[i] = v
		}
		return Column{dtype: dtype.Object, objs: objs}, nil
	case dtype.F64:
		switch c.dtype {
		case dtype.I64:
			return NewFloat64(convert[int64, float64](c.ints)), nil
		case dtype.Bool:
			out := make([]float64, len(c.bools))
			for i, b := range c.bools {
				if b {
					out[i] = 1
				}
			}
			return NewFloat64(out), nil
		case dtype.Object:
			return c.castObjects(to)
		}
	case dtype.I64:
		switch c.dtype {
		case dtype.Bool:
			out := make([]int64, len(c.bools))
			for i, b := range c.bools {
				if b {
					out[i] = 1
				}
			}
			return NewInt64(out), nil
		case dtype.F64:
			for _, f := range c.floats {
				if f != math.Trunc(f) || math.IsNaN(f) || math.IsInf(f, 0) {
					return Column{}, errors.NewDtypeMismatchError("Cast", nil,
						fmt.Sprintf("float value %v cannot be represented as int64", f))
				}
			}
			return NewInt64(convert[float64, int64](c.floats)), nil
		case dtype.Object:
			return c.castObjects(to)
		}
	case dtype.Bool, dtype.Timestamp:
		if c.dtype == dtype.Object {
			return c.castObjects(to)
		}
	}

	return Column{}, errors.NewDtypeMismatchError("Cast", nil,
		fmt.Sprintf("cannot cast %s to %s", c.dtype, to))
}

func (c Column) castObjects(to dtype.Dtype) (Column, error) {
	out := Make(to, len(c.objs))
	for i, v := range c.objs {
		if !Accepts(to, v) {
			return Column{}, errors.NewDtypeMismatchError("Cast", nil,
				fmt.Sprintf("object cell %s cannot be represented as %s", label.Format(v), to))
		}
		out.set(i, v)
	}
	return out, nil
}

// AsFloat64 returns the cells as floats with NaN for missing. Object and
// timestamp columns are rejected.
func (c Column) AsFloat64() ([]float64, error) {
	switch c.dtype {
	case dtype.F64:
		return c.floats, nil
	case dtype.I64, dtype.Bool:
		f, err := c.Cast(dtype.F64)
		if err != nil {
			return nil, err
		}
		return f.floats, nil
	default:
		return nil, errors.NewDtypeMismatchError("AsFloat64", nil,
			fmt.Sprintf("numeric column required, got %s", c.dtype))
	}
}

// Concat joins columns of one dtype end to end
func Concat(cols ...Column) (Column, error) {
	if len(cols) == 0 {
		return Make(dtype.Object, 0), nil
	}
	dt := cols[0].dtype
	total := 0
	for _, c := range cols {
		if c.dtype != dt {
			return Column{}, errors.NewDtypeMismatchError("Concat", nil,
				fmt.Sprintf("cannot concatenate %s and %s columns", dt, c.dtype))
		}
		total += c.Len()
	}

	out := Make(dt, total)
	offset := 0
	for _, c := range cols {
		_ = out.CopyFrom(offset, c)
		offset += c.Len()
	}
	return out, nil
}

// Equal compares dtype, length and cells. Missing cells compare equal to
// each other.
func Equal(a, b Column) bool {
	if a.dtype != b.dtype || a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !CellsEqual(a.Value(i), b.Value(i), a.dtype) {
			return false
		}
	}
	return true
}

// CellsEqual compares two cells of dtype dt, treating two missing cells as equal
func CellsEqual(x, y any, dt dtype.Dtype) bool {
	xm, ym := dtype.IsMissing(x, dt), dtype.IsMissing(y, dt)
	if xm || ym {
		return xm && ym
	}
	if dt == dtype.Object {
		return label.Equal(x, y)
	}
	return x == y
}
