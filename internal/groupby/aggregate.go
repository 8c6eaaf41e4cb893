package groupby

import (
	"slices"

	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/kernels"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/manager"
	"github.com/paveg/blockframe/internal/validation"
)

// targets resolves the columns to aggregate. With no explicit selection
// every column except the key columns is used.
func (g *GroupBy) targets(cols []label.Label) ([]label.Label, bool, error) {
	if len(cols) > 0 {
		cols = label.NormalizeAll(cols)
		if err := validation.ValidateColumns(g.src, "Aggregate", cols...); err != nil {
			return nil, false, err
		}
		return cols, true, nil
	}
	out := make([]label.Label, 0, g.src.Width())
	for _, l := range g.src.Columns().Labels() {
		if !slices.ContainsFunc(g.exclude, func(x label.Label) bool { return label.Equal(x, l) }) {
			out = append(out, l)
		}
	}
	return out, false, nil
}

// accepts reports whether r can reduce a column of dtype dt. An explicitly
// selected column that r cannot reduce is an error; otherwise it is skipped.
func accepts(r kernels.Reducer, dt dtype.Dtype, col label.Label, explicit bool) (bool, error) {
	if !r.NumericOnly() {
		return true, nil
	}
	err := validation.ValidateDtype(dt, col, r.Name, dtype.F64, dtype.I64, dtype.Bool)
	if err != nil && explicit {
		return false, err
	}
	return err == nil, nil
}

// Aggregate reduces every selected column per group with the named
// reduction (sum, mean, min, max, count, std, var, prod, median, first,
// last). Missing cells are ignored. The result is indexed by the group ids.
func (g *GroupBy) Aggregate(name string, cols ...label.Label) (*manager.Manager, error) {
	r, err := kernels.Lookup(name)
	if err != nil {
		return nil, err
	}
	if g.axis == manager.AxisColumns {
		return g.aggregateColumns(r)
	}

	targets, explicit, err := g.targets(cols)
	if err != nil {
		return nil, err
	}
	labels := make([]label.Label, 0, len(targets))
	out := make([]column.Column, 0, len(targets))
	for _, col := range targets {
		c, err := g.src.Column(col)
		if err != nil {
			return nil, err
		}
		ok, err := accepts(r, c.Dtype(), col, explicit)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		reduced, err := g.reduce(c, r)
		if err != nil {
			return nil, err
		}
		labels = append(labels, col)
		out = append(out, reduced)
	}
	return manager.FromColumns(labels, out, g.result)
}

// AggregateMulti applies several reductions; result columns are labelled
// (column, reduction) tuples
func (g *GroupBy) AggregateMulti(names []string, cols ...label.Label) (*manager.Manager, error) {
	if g.axis == manager.AxisColumns {
		return nil, errors.NewInvalidInputError("AggregateMulti", "not supported when grouping columns")
	}
	if len(names) == 0 {
		return nil, errors.NewInvalidInputError("AggregateMulti", "no reductions given")
	}
	reducers := make([]kernels.Reducer, len(names))
	for i, name := range names {
		r, err := kernels.Lookup(name)
		if err != nil {
			return nil, err
		}
		reducers[i] = r
	}

	targets, explicit, err := g.targets(cols)
	if err != nil {
		return nil, err
	}
	var (
		labels []label.Label
		out    []column.Column
	)
	for _, col := range targets {
		c, err := g.src.Column(col)
		if err != nil {
			return nil, err
		}
		for _, r := range reducers {
			ok, err := accepts(r, c.Dtype(), col, explicit)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			reduced, err := g.reduce(c, r)
			if err != nil {
				return nil, err
			}
			labels = append(labels, label.Tuple{col, r.Name})
			out = append(out, reduced)
		}
	}
	return manager.FromColumns(labels, out, g.result)
}

// AggregateFunc applies fn to each group's sub-column and collects the
// results into one column per selected column, promoted to a common dtype
func (g *GroupBy) AggregateFunc(fn func(column.Column) (any, error), cols ...label.Label) (*manager.Manager, error) {
	if g.axis == manager.AxisColumns {
		return nil, errors.NewInvalidInputError("AggregateFunc", "not supported when grouping columns")
	}
	targets, _, err := g.targets(cols)
	if err != nil {
		return nil, err
	}
	groups := g.Groups()
	out := make([]column.Column, len(targets))
	for i, col := range targets {
		c, err := g.src.Column(col)
		if err != nil {
			return nil, err
		}
		cells := make([]any, len(groups))
		for k, grp := range groups {
			sub, err := c.Take(grp.Positions)
			if err != nil {
				return nil, err
			}
			if cells[k], err = fn(sub); err != nil {
				return nil, err
			}
		}
		out[i] = promoteResults(cells)
	}
	return manager.FromColumns(targets, out, g.result)
}

// promoteResults builds a column from per-group results. Bool results
// mixed with numbers take the promoted numeric dtype instead of Object.
func promoteResults(cells []any) column.Column {
	var dt dtype.Dtype
	sawBool, seen := false, false
	for _, v := range label.NormalizeAll(cells) {
		var cell dtype.Dtype
		switch v.(type) {
		case nil:
			continue
		case bool:
			cell, sawBool = dtype.Bool, true
		case int64:
			cell = dtype.I64
		case float64:
			cell = dtype.F64
		default:
			return column.FromValues(cells)
		}
		if !seen {
			dt, seen = cell, true
			continue
		}
		dt = dtype.Promote(dt, cell)
	}
	if !sawBool || dt == dtype.Bool {
		return column.FromValues(cells)
	}
	numbers := label.NormalizeAll(cells)
	for i, v := range numbers {
		if b, ok := v.(bool); ok {
			numbers[i] = int64(0)
			if b {
				numbers[i] = int64(1)
			}
		}
	}
	return column.FromValues(numbers)
}

// reduce runs r over every group of c. The column is first gathered into
// group order so that each group is one contiguous run.
func (g *GroupBy) reduce(c column.Column, r kernels.Reducer) (column.Column, error) {
	sorted, err := c.Take(g.order)
	if err != nil {
		return column.Column{}, err
	}
	bounds := make([]int, len(g.counts)+1)
	for k, n := range g.counts {
		bounds[k+1] = bounds[k] + n
	}

	switch dt := c.Dtype(); {
	case (dt == dtype.I64 || dt == dtype.Bool) && r.Int != nil:
		// integers are never missing and observed groups are never empty
		ints, err := sorted.Cast(dtype.I64)
		if err != nil {
			return column.Column{}, err
		}
		values := ints.Int64s()
		out := make([]int64, g.ngroups)
		for k := range out {
			out[k] = r.Int(values[bounds[k]:bounds[k+1]])
		}
		if dt == dtype.Bool && r.Select {
			bools := make([]bool, len(out))
			for k, v := range out {
				bools[k] = v != 0
			}
			return column.NewBool(bools), nil
		}
		return column.NewInt64(out), nil

	case dt.IsNumeric():
		values, err := sorted.AsFloat64()
		if err != nil {
			return column.Column{}, err
		}
		out := make([]float64, g.ngroups)
		for k := range out {
			out[k] = kernels.ReduceFloat(r, values[bounds[k]:bounds[k+1]])
		}
		res := column.NewFloat64(out)
		if r.Count {
			return res.Cast(dtype.I64)
		}
		return res, nil

	default:
		cells := make([]any, g.ngroups)
		for k := range cells {
			present := make([]any, 0, g.counts[k])
			for i := bounds[k]; i < bounds[k+1]; i++ {
				if !sorted.IsMissing(i) {
					present = append(present, sorted.Value(i))
				}
			}
			switch {
			case len(present) > 0:
				cells[k] = r.Any(present)
			case r.Count:
				cells[k] = int64(0)
			}
		}
		return objectResult(cells, dt, r)
	}
}

// objectResult keeps the source dtype for selections (min, max, first,
// last) and uses I64 for counts
func objectResult(cells []any, dt dtype.Dtype, r kernels.Reducer) (column.Column, error) {
	if r.Count {
		ints := make([]int64, len(cells))
		for i, v := range cells {
			ints[i] = v.(int64)
		}
		return column.NewInt64(ints), nil
	}
	if dt == dtype.Timestamp {
		times := make([]dtype.Time, len(cells))
		for i, v := range cells {
			times[i] = dtype.NaT
			if t, ok := v.(dtype.Time); ok {
				times[i] = t
			}
		}
		return column.NewTime(times), nil
	}
	return column.NewObject(cells), nil
}

// aggregateColumns reduces across the columns of each group for every row
func (g *GroupBy) aggregateColumns(r kernels.Reducer) (*manager.Manager, error) {
	items := g.src.Items()
	values := make([][]float64, len(items))
	for j, it := range items {
		if err := validation.ValidateDtype(it.Dtype, it.Label, r.Name, dtype.F64, dtype.I64, dtype.Bool); err != nil {
			return nil, err
		}
		f, err := it.Column.AsFloat64()
		if err != nil {
			return nil, err
		}
		values[j] = f
	}

	n := g.src.Len()
	groups := g.Groups()
	out := make([]column.Column, len(groups))
	for k, grp := range groups {
		reduced := make([]float64, n)
		buf := make([]float64, len(grp.Positions))
		for i := range n {
			for j, pos := range grp.Positions {
				buf[j] = values[pos][i]
			}
			reduced[i] = kernels.ReduceFloat(r, buf)
		}
		col := column.NewFloat64(reduced)
		if r.Count {
			var err error
			if col, err = col.Cast(dtype.I64); err != nil {
				return nil, err
			}
		}
		out[k] = col
	}
	return manager.FromColumns(g.result.Labels(), out, g.src.Rows())
}

// Size returns the number of positions per group as a "size" column
func (g *GroupBy) Size() (*manager.Manager, error) {
	sizes := make([]int64, len(g.counts))
	for k, c := range g.counts {
		sizes[k] = int64(c)
	}
	return manager.FromColumns([]label.Label{"size"}, []column.Column{column.NewInt64(sizes)}, g.result)
}

// Sum is Aggregate("sum", cols...)
func (g *GroupBy) Sum(cols ...label.Label) (*manager.Manager, error) { return g.Aggregate("sum", cols...) }

// Mean is Aggregate("mean", cols...)
func (g *GroupBy) Mean(cols ...label.Label) (*manager.Manager, error) { return g.Aggregate("mean", cols...) }

// Count is Aggregate("count", cols...)
func (g *GroupBy) Count(cols ...label.Label) (*manager.Manager, error) { return g.Aggregate("count", cols...) }

// Min is Aggregate("min", cols...)
func (g *GroupBy) Min(cols ...label.Label) (*manager.Manager, error) { return g.Aggregate("min", cols...) }

// Max is Aggregate("max", cols...)
func (g *GroupBy) Max(cols ...label.Label) (*manager.Manager, error) { return g.Aggregate("max", cols...) }

// First is Aggregate("first", cols...)
func (g *GroupBy) First(cols ...label.Label) (*manager.Manager, error) {
	return g.Aggregate("first", cols...)
}

// Last is Aggregate("last", cols...)
func (g *GroupBy) Last(cols ...label.Label) (*manager.Manager, error) { return g.Aggregate("last", cols...) }
