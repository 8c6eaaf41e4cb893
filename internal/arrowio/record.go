// Package arrowio converts managers to and from Apache Arrow records and
// Parquet files.
//
// Row labels travel as leading index fields: "__index__" for a flat axis,
// "__index__0", "__index__1", ... for a hierarchical one. Every field
// carries its source dtype in metadata so that object columns holding
// numbers or booleans come back as object columns.
package arrowio

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/manager"
)

const (
	// IndexField names the row label field of a flat row axis and prefixes
	// the level fields of a hierarchical one
	IndexField = "__index__"

	dtypeKey = "blockframe.dtype"
	nameKey  = "blockframe.name"
)

var timestampType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

// ToRecord exports m as one record. The caller releases it.
func ToRecord(m *manager.Manager, mem memory.Allocator) (arrow.Record, error) {
	var (
		fields []arrow.Field
		arrays []arrow.Array
	)
	release := func() {
		for _, a := range arrays {
			a.Release()
		}
	}

	add := func(name, axisName string, c column.Column) error {
		arr, err := toArray(c, mem)
		if err != nil {
			return fmt.Errorf("converting %s: %w", name, err)
		}
		meta := arrow.NewMetadata([]string{dtypeKey, nameKey}, []string{strconv.Itoa(int(c.Dtype())), axisName})
		fields = append(fields, arrow.Field{Name: name, Type: arr.DataType(), Nullable: true, Metadata: meta})
		arrays = append(arrays, arr)
		return nil
	}

	rows := m.Rows()
	if mi, ok := rows.(*index.MultiIndex); ok {
		for l := range mi.NLevels() {
			values := make([]any, mi.Len())
			codes := mi.Codes(l)
			for i, c := range codes {
				if c >= 0 {
					values[i] = mi.Level(l).Label(int(c))
				}
			}
			if err := add(IndexField+strconv.Itoa(l), mi.Names()[l], column.FromValues(values)); err != nil {
				release()
				return nil, err
			}
		}
	} else if err := add(IndexField, rows.Names()[0], column.FromValues(rows.Labels())); err != nil {
		release()
		return nil, err
	}

	for _, it := range m.Items() {
		if err := add(label.Format(it.Label), "", it.Column); err != nil {
			release()
			return nil, err
		}
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), arrays, int64(m.Len()))
	release()
	return rec, nil
}

func toArray(c column.Column, mem memory.Allocator) (arrow.Array, error) {
	valid := invert(c.MissingMask())
	switch c.Dtype() {
	case dtype.F64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(c.Float64s(), valid)
		return b.NewArray(), nil
	case dtype.I64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(c.Int64s(), nil)
		return b.NewArray(), nil
	case dtype.Bool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(c.Bools(), nil)
		return b.NewArray(), nil
	case dtype.Timestamp:
		b := array.NewTimestampBuilder(mem, timestampType)
		defer b.Release()
		for i, t := range c.Times() {
			if valid[i] {
				b.Append(arrow.Timestamp(t))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	default:
		return objectArray(c, valid, mem)
	}
}

// objectArray stores an object column in the narrowest arrow type that holds
// every present cell
func objectArray(c column.Column, valid []bool, mem memory.Allocator) (arrow.Array, error) {
	present := make([]label.Label, 0, c.Len())
	for i, v := range c.Objects() {
		if valid[i] {
			present = append(present, v)
		}
	}

	switch label.DtypeOf(present) {
	case dtype.I64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for i, v := range c.Objects() {
			if valid[i] {
				b.Append(v.(int64))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case dtype.F64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for i, v := range c.Objects() {
			if !valid[i] {
				b.AppendNull()
				continue
			}
			switch x := v.(type) {
			case int64:
				b.Append(float64(x))
			case float64:
				b.Append(x)
			default:
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case dtype.Bool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for i, v := range c.Objects() {
			if valid[i] {
				b.Append(v.(bool))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case dtype.Timestamp:
		b := array.NewTimestampBuilder(mem, timestampType)
		defer b.Release()
		for i, v := range c.Objects() {
			if valid[i] {
				b.Append(arrow.Timestamp(v.(dtype.Time)))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	}

	b := array.NewStringBuilder(mem)
	defer b.Release()
	for i, v := range c.Objects() {
		if !valid[i] {
			b.AppendNull()
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, errors.NewDtypeMismatchError("ToRecord", nil,
				fmt.Sprintf("object cell %s of type %T in a mixed column", label.Format(v), v))
		}
		b.Append(s)
	}
	return b.NewArray(), nil
}

func invert(mask []bool) []bool {
	out := make([]bool, len(mask))
	for i, m := range mask {
		out[i] = !m
	}
	return out
}

// FromRecord imports a record produced by ToRecord, or any record whose
// columns are int64, float64, boolean, string or timestamp. Without index
// fields the rows are positional. Column labels come back as strings.
func FromRecord(rec arrow.Record) (*manager.Manager, error) {
	schema := rec.Schema()
	n := int(rec.NumRows())

	var (
		levels     [][]label.Label
		levelNames []string
		flatIndex  bool
		labels     []label.Label
		cols       []column.Column
	)
	for i, f := range schema.Fields() {
		c, err := fromArray(rec.Column(i), f)
		if err != nil {
			return nil, fmt.Errorf("converting field %s: %w", f.Name, err)
		}
		switch {
		case f.Name == IndexField:
			flatIndex = true
			levels = append(levels, c.Values())
			levelNames = append(levelNames, metaValue(f, nameKey))
		case strings.HasPrefix(f.Name, IndexField):
			levels = append(levels, c.Values())
			levelNames = append(levelNames, metaValue(f, nameKey))
		default:
			labels = append(labels, f.Name)
			cols = append(cols, c)
		}
	}

	var rows index.Axis
	switch {
	case len(levels) == 0:
		rows = index.Range(n)
	case flatIndex && len(levels) == 1:
		rows = index.NewNamed(levelNames[0], levels[0])
	default:
		mi, err := index.FromArrays(levels, levelNames)
		if err != nil {
			return nil, err
		}
		rows = mi
	}
	return manager.FromColumns(labels, cols, rows)
}

func metaValue(f arrow.Field, key string) string {
	v, _ := f.Metadata.GetValue(key)
	return v
}

// fromArray converts one arrow array. The stored dtype wins; without it
// nullable int64 and boolean arrays become object columns.
func fromArray(arr arrow.Array, f arrow.Field) (column.Column, error) {
	n := arr.Len()
	cells := make([]any, n)
	switch a := arr.(type) {
	case *array.Float64:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.NaN()
			if a.IsValid(i) {
				out[i] = a.Value(i)
			}
			cells[i] = out[i]
		}
		if stored(f) == dtype.Object {
			return column.NewObject(cells), nil
		}
		return column.NewFloat64(out), nil
	case *array.Int64:
		for i := range cells {
			if a.IsValid(i) {
				cells[i] = a.Value(i)
			}
		}
		if a.NullN() == 0 && stored(f) != dtype.Object {
			return column.NewInt64(slices.Clone(a.Int64Values())), nil
		}
		return column.NewObject(cells), nil
	case *array.Boolean:
		out := make([]bool, n)
		for i := range cells {
			if a.IsValid(i) {
				out[i] = a.Value(i)
				cells[i] = out[i]
			}
		}
		if a.NullN() == 0 && stored(f) != dtype.Object {
			return column.NewBool(out), nil
		}
		return column.NewObject(cells), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		out := make([]dtype.Time, n)
		for i := range out {
			out[i] = dtype.NaT
			if a.IsValid(i) {
				out[i] = dtype.Time(int64(a.Value(i)) * unitNanos(unit))
				cells[i] = out[i]
			}
		}
		if stored(f) == dtype.Object {
			return column.NewObject(cells), nil
		}
		return column.NewTime(out), nil
	case *array.String:
		for i := range cells {
			if a.IsValid(i) {
				cells[i] = a.Value(i)
			}
		}
		return column.NewObject(cells), nil
	default:
		return column.Column{}, errors.NewDtypeMismatchError("FromRecord", f.Name,
			fmt.Sprintf("unsupported arrow type %s", arr.DataType()))
	}
}

// stored returns the dtype recorded by ToRecord, or an invalid tag
func stored(f arrow.Field) dtype.Dtype {
	v, ok := f.Metadata.GetValue(dtypeKey)
	if !ok {
		return dtype.Dtype(math.MaxUint8)
	}
	tag, err := strconv.Atoi(v)
	if err != nil {
		return dtype.Dtype(math.MaxUint8)
	}
	return dtype.Dtype(tag)
}

func unitNanos(u arrow.TimeUnit) int64 {
	switch u {
	case arrow.Second:
		return 1e9
	case arrow.Millisecond:
		return 1e6
	case arrow.Microsecond:
		return 1e3
	default:
		return 1
	}
}
