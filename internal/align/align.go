// Package align implements label-aligned operations between two managers:
// elementwise arithmetic over the union of both axes and reindexing both
// sides onto a joined axis.
package align

import (
	"fmt"

	"github.com/paveg/blockframe/internal/algos"
	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/kernels"
	"github.com/paveg/blockframe/internal/manager"
)

// Add aligns l and r and adds them elementwise
func Add(l, r *manager.Manager) (*manager.Manager, error) { return Arith(l, r, kernels.Add) }

// Sub aligns l and r and subtracts r from l elementwise
func Sub(l, r *manager.Manager) (*manager.Manager, error) { return Arith(l, r, kernels.Sub) }

// Mul aligns l and r and multiplies them elementwise
func Mul(l, r *manager.Manager) (*manager.Manager, error) { return Arith(l, r, kernels.Mul) }

// Div aligns l and r and divides l by r elementwise; results are float64
func Div(l, r *manager.Manager) (*manager.Manager, error) { return Arith(l, r, kernels.Div) }

// Arith applies op over the union of both column axes and both row axes.
// The row union and the column union are each sorted when their labels are
// flat, so columns [b a] plus [c] give [a b c]. A cell missing on either
// side, including cells of columns only one side holds, is missing in the
// result. The result dtype of a column follows the promotion lattice
// of the operand dtypes and is widened when missing cells appear.
func Arith(l, r *manager.Manager, op kernels.Binary) (*manager.Manager, error) {
	columns := sortedFlat(l.Columns().Union(r.Columns()))
	rows, err := unionRows(l.Rows(), r.Rows())
	if err != nil {
		return nil, err
	}

	la, err := l.ReindexAxis(rows, manager.AxisRows)
	if err != nil {
		return nil, err
	}
	ra, err := r.ReindexAxis(rows, manager.AxisRows)
	if err != nil {
		return nil, err
	}

	n := rows.Len()
	labels := columns.Labels()
	out := make([]column.Column, len(labels))
	for i, col := range labels {
		lc, lerr := la.Column(col)
		rc, rerr := ra.Column(col)
		switch {
		case lerr == nil && rerr == nil:
			out[i], err = Apply(lc, rc, op)
			if err != nil {
				return nil, err
			}
		case lerr == nil:
			out[i] = column.Full(ResultDtype(lc.Dtype(), lc.Dtype(), op).UpcastForMissing(), n)
		default:
			out[i] = column.Full(ResultDtype(rc.Dtype(), rc.Dtype(), op).UpcastForMissing(), n)
		}
	}
	return manager.FromColumns(labels, out, rows)
}

// ResultDtype is the dtype op produces from operands of dtypes a and b
func ResultDtype(a, b dtype.Dtype, op kernels.Binary) dtype.Dtype {
	switch {
	case a == dtype.Object || b == dtype.Object || a == dtype.Timestamp || b == dtype.Timestamp:
		return dtype.Object
	case op.Int == nil:
		return dtype.F64
	}
	dt := dtype.Promote(a, b)
	if dt == dtype.Bool {
		// bool arithmetic is integer arithmetic
		return dtype.I64
	}
	return dt
}

// Apply evaluates op cell by cell over two aligned columns
func Apply(a, b column.Column, op kernels.Binary) (column.Column, error) {
	if a.Len() != b.Len() {
		return column.Column{}, errors.NewLengthMismatchError(op.Name, "operands", a.Len(), b.Len())
	}
	n := a.Len()

	switch ResultDtype(a.Dtype(), b.Dtype(), op) {
	case dtype.I64:
		x, err := a.Cast(dtype.I64)
		if err != nil {
			return column.Column{}, err
		}
		y, err := b.Cast(dtype.I64)
		if err != nil {
			return column.Column{}, err
		}
		out := make([]int64, n)
		xs, ys := x.Int64s(), y.Int64s()
		for i := range out {
			out[i] = op.Int(xs[i], ys[i])
		}
		return column.NewInt64(out), nil
	case dtype.F64:
		xs, err := a.AsFloat64()
		if err != nil {
			return column.Column{}, err
		}
		ys, err := b.AsFloat64()
		if err != nil {
			return column.Column{}, err
		}
		out := make([]float64, n)
		for i := range out {
			if xs[i] != xs[i] || ys[i] != ys[i] {
				out[i] = dtype.NaN()
				continue
			}
			out[i] = op.Float(xs[i], ys[i])
		}
		return column.NewFloat64(out), nil
	default:
		if op.Object == nil {
			return column.Column{}, errors.NewDtypeMismatchError(op.Name, nil,
				fmt.Sprintf("%s does not support %s and %s operands", op.Name, a.Dtype(), b.Dtype()))
		}
		out := make([]any, n)
		for i := range out {
			if a.IsMissing(i) || b.IsMissing(i) {
				continue
			}
			v, err := op.Object(a.Value(i), b.Value(i))
			if err != nil {
				return column.Column{}, err
			}
			out[i] = v
		}
		return column.NewObject(out), nil
	}
}

// Align conforms both managers to the joined column and row axes. Columns
// are joined as sets; rows use the join indexers so duplicate row labels
// are paired the way a keyed join pairs them.
func Align(l, r *manager.Manager, how algos.How) (*manager.Manager, *manager.Manager, error) {
	columns, _, _, err := l.Columns().Join(r.Columns(), how)
	if err != nil {
		return nil, nil, err
	}
	rows, lidx, ridx, err := index.JoinAxis(l.Rows(), r.Rows(), how)
	if err != nil {
		return nil, nil, err
	}

	left, err := conform(l, columns, rows, lidx)
	if err != nil {
		return nil, nil, err
	}
	right, err := conform(r, columns, rows, ridx)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func conform(m *manager.Manager, columns *index.Index, rows index.Axis, indexer []int) (*manager.Manager, error) {
	out, err := m.ReindexAxis(columns, manager.AxisColumns)
	if err != nil {
		return nil, err
	}
	if out, err = out.Take(indexer, manager.AxisRows); err != nil {
		return nil, err
	}
	return out.WithRows(rows)
}

func unionRows(a, b index.Axis) (index.Axis, error) {
	u, err := index.UnionAxis(a, b)
	if err != nil {
		return nil, err
	}
	if flat, ok := u.(*index.Index); ok {
		return sortedFlat(flat), nil
	}
	return u, nil
}

func sortedFlat(idx *index.Index) *index.Index {
	if idx.IsMonotonic() {
		return idx
	}
	sorted, _ := idx.SortValues()
	return sorted
}
