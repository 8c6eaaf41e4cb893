package manager

import (
	"fmt"
	"slices"

	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
	"gonum.org/v1/gonum/mat"
)

type reindexOptions struct {
	method      index.Method
	consolidate bool
}

// ReindexOption configures ReindexAxis
type ReindexOption func(*reindexOptions)

// WithMethod selects the fill policy used to locate new labels
func WithMethod(m index.Method) ReindexOption {
	return func(o *reindexOptions) {
		o.method = m
	}
}

// WithConsolidate consolidates the result before returning it
func WithConsolidate(consolidate bool) ReindexOption {
	return func(o *reindexOptions) {
		o.consolidate = consolidate
	}
}

// owner records where a column lives
type owner struct {
	block int
	item  int
}

// owners maps every column position to its block and item position
func (m *Manager) owners() ([]owner, error) {
	out := make([]owner, m.Width())
	for bi, b := range m.blocks {
		locs, _, err := m.columns.GetIndexer(b.Items(), index.Exact)
		if err != nil {
			return nil, err
		}
		for j, pos := range locs {
			if pos < 0 {
				return nil, errors.NewInternalError("owners",
					fmt.Errorf("block item %s missing from column axis", label.Format(b.Items().Label(j))))
			}
			out[pos] = owner{block: bi, item: j}
		}
	}
	return out, nil
}

// ReindexAxis conforms the manager to newAxis along axis. New labels are
// located with the configured method; labels that match nothing become
// missing. Along the columns axis surviving columns keep their block and
// unmatched columns share one all-missing block of the interleaved dtype.
// Along the rows axis every block is gathered with one shared masking
// decision, widening I64 to F64 and Bool to Object when missing rows appear.
func (m *Manager) ReindexAxis(newAxis index.Axis, axis int, opts ...ReindexOption) (*Manager, error) {
	o := reindexOptions{method: index.Exact}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		out *Manager
		err error
	)
	switch axis {
	case AxisColumns:
		var indexer []int
		indexer, _, err = m.columns.GetIndexer(newAxis, o.method)
		if err != nil {
			return nil, err
		}
		out, err = m.reindexColumns(newAxis.Flat(), indexer)
	case AxisRows:
		var (
			indexer []int
			mask    []bool
		)
		indexer, mask, err = m.rows.GetIndexer(newAxis, o.method)
		if err != nil {
			return nil, err
		}
		out, err = m.reindexRows(newAxis, indexer, mask)
	default:
		err = errors.NewInvalidInputError("ReindexAxis", fmt.Sprintf("invalid axis %d", axis))
	}
	if err != nil {
		return nil, err
	}
	if o.consolidate {
		out = out.Consolidate()
	}
	return out, nil
}

func (m *Manager) reindexRows(rows index.Axis, indexer []int, mask []bool) (*Manager, error) {
	needMasking := slices.Contains(mask, false)
	blocks := make([]*Block, len(m.blocks))
	for i, b := range m.blocks {
		nb, err := b.ReindexAxis(indexer, mask, needMasking, AxisRows, nil)
		if err != nil {
			return nil, err
		}
		blocks[i] = nb
	}
	return New(m.columns, rows, blocks)
}

// reindexColumns builds a manager whose column k is source column
// indexer[k], or all missing where indexer[k] is -1
func (m *Manager) reindexColumns(columns *index.Index, indexer []int) (*Manager, error) {
	if err := validateUniqueAxis("ReindexAxis", columns); err != nil {
		return nil, err
	}
	owners, err := m.owners()
	if err != nil {
		return nil, err
	}

	positions := make([][]int, len(m.blocks))
	labels := make([][]label.Label, len(m.blocks))
	var missing []label.Label
	for k, pos := range indexer {
		switch {
		case pos == -1:
			missing = append(missing, columns.Label(k))
		case pos < -1 || pos >= len(owners):
			return nil, errors.NewOutOfBoundsError("ReindexAxis", pos, len(owners))
		default:
			ow := owners[pos]
			positions[ow.block] = append(positions[ow.block], ow.item)
			labels[ow.block] = append(labels[ow.block], columns.Label(k))
		}
	}

	blocks := make([]*Block, 0, len(m.blocks)+1)
	for bi, b := range m.blocks {
		if len(positions[bi]) == 0 {
			continue
		}
		nb, err := b.takeItems(positions[bi], labels[bi])
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, nb)
	}
	if len(missing) > 0 {
		dt := m.InterleavedDtype()
		cols := make([]column.Column, len(missing))
		for i := range cols {
			cols[i] = column.Full(dt, m.Len())
		}
		nb, err := blockFromColumns(missing, cols, m.Len())
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, nb)
	}
	return New(columns, m.rows, blocks)
}

func validateUniqueAxis(op string, columns *index.Index) error {
	if !columns.IsUnique() {
		return errors.NewNotUniqueError(op, "column axis must be unique")
	}
	return nil
}

// Take gathers positions along axis. Along rows -1 yields a missing row
// labelled nil; along columns -1 yields an all-missing column.
func (m *Manager) Take(indexer []int, axis int) (*Manager, error) {
	switch axis {
	case AxisRows:
		rows, err := index.TakeAxis(m.rows, indexer)
		if err != nil {
			return nil, err
		}
		return m.reindexRows(rows, indexer, index.MaskOf(indexer))
	case AxisColumns:
		columns, err := m.columns.Take(indexer)
		if err != nil {
			return nil, err
		}
		return m.reindexColumns(columns, indexer)
	default:
		return nil, errors.NewInvalidInputError("Take", fmt.Sprintf("invalid axis %d", axis))
	}
}

// GetSlice copies the positional range [lo, hi) along axis
func (m *Manager) GetSlice(lo, hi, axis int) (*Manager, error) {
	switch axis {
	case AxisRows:
		if lo < 0 || hi > m.Len() || lo > hi {
			return nil, errors.NewOutOfBoundsError("GetSlice", hi, m.Len())
		}
		blocks := make([]*Block, len(m.blocks))
		for i, b := range m.blocks {
			nb, err := b.GetSlice(lo, hi, AxisRows)
			if err != nil {
				return nil, err
			}
			blocks[i] = nb
		}
		return New(m.columns, index.SliceAxis(m.rows, lo, hi), blocks)
	case AxisColumns:
		if lo < 0 || hi > m.Width() || lo > hi {
			return nil, errors.NewOutOfBoundsError("GetSlice", hi, m.Width())
		}
		indexer := make([]int, hi-lo)
		for i := range indexer {
			indexer[i] = lo + i
		}
		return m.reindexColumns(m.columns.Slice(lo, hi), indexer)
	default:
		return nil, errors.NewInvalidInputError("GetSlice", fmt.Sprintf("invalid axis %d", axis))
	}
}

// SliceRows selects the rows whose labels fall in [start, end]
func (m *Manager) SliceRows(start, end label.Label) (*Manager, error) {
	lo, hi, err := m.rows.SliceLocs(start, end)
	if err != nil {
		return nil, err
	}
	return m.GetSlice(lo, hi, AxisRows)
}

// Select restricts the manager to the given columns in the given order
func (m *Manager) Select(cols ...label.Label) (*Manager, error) {
	target := index.New(cols)
	indexer, mask, err := m.columns.GetIndexer(target, index.Exact)
	if err != nil {
		return nil, err
	}
	for i, ok := range mask {
		if !ok {
			return nil, errors.NewNotFoundError("Select", label.Format(target.Label(i)))
		}
	}
	return m.reindexColumns(target, indexer)
}

// Merge places other's columns after m's. Both must share the row axis.
// Labels present on both sides get lsuffix and rsuffix appended.
func (m *Manager) Merge(other *Manager, lsuffix, rsuffix string) (*Manager, error) {
	if !m.rows.Equals(other.rows) {
		return nil, errors.NewInvalidInputError("Merge", "row axes differ")
	}

	overlap := m.columns.Intersection(other.columns)
	if overlap.Len() > 0 && lsuffix == "" && rsuffix == "" {
		return nil, errors.NewInvalidInputError("Merge",
			fmt.Sprintf("columns overlap but no suffix specified: %v", overlap.Labels()))
	}
	rename := func(suffix string) func(label.Label) label.Label {
		return func(l label.Label) label.Label {
			if overlap.Contains(l) {
				return label.Format(l) + suffix
			}
			return l
		}
	}

	left, err := m.RenameItems(rename(lsuffix))
	if err != nil {
		return nil, err
	}
	right, err := other.RenameItems(rename(rsuffix))
	if err != nil {
		return nil, err
	}

	blocks := append(slices.Clone(left.blocks), right.blocks...)
	return New(left.columns.Append(right.columns), m.rows, blocks)
}

// Matrix is a dense materialization of a manager in one dtype, stored
// column-major: column j occupies cells [j*rows, (j+1)*rows).
type Matrix struct {
	columns *index.Index
	rows    int
	values  column.Column
}

// Dtype returns the interleaved dtype
func (x *Matrix) Dtype() dtype.Dtype { return x.values.Dtype() }

// Rows returns the number of rows
func (x *Matrix) Rows() int { return x.rows }

// Cols returns the number of columns
func (x *Matrix) Cols() int { return x.columns.Len() }

// Columns returns the column labels
func (x *Matrix) Columns() *index.Index { return x.columns }

// Column returns column j as a view
func (x *Matrix) Column(j int) column.Column {
	return x.values.View(j*x.rows, (j+1)*x.rows)
}

// At returns the cell at row i, column j
func (x *Matrix) At(i, j int) any {
	return x.values.Value(j*x.rows + i)
}

// RowMajor returns the cells in row-major order
func (x *Matrix) RowMajor() []any {
	out := make([]any, 0, x.rows*x.Cols())
	for i := range x.rows {
		for j := range x.Cols() {
			out = append(out, x.At(i, j))
		}
	}
	return out
}

// Dense converts a floating matrix into a gonum dense matrix
func (x *Matrix) Dense() (*mat.Dense, error) {
	if x.Dtype() != dtype.F64 {
		return nil, errors.NewDtypeMismatchError("Dense", nil,
			fmt.Sprintf("dense conversion requires float64, got %s", x.Dtype()))
	}
	if x.rows == 0 || x.Cols() == 0 {
		return nil, errors.NewInvalidInputError("Dense", "cannot build an empty dense matrix")
	}
	d := mat.NewDense(x.rows, x.Cols(), nil)
	floats := x.values.Float64s()
	for j := range x.Cols() {
		d.SetCol(j, floats[j*x.rows:(j+1)*x.rows])
	}
	return d, nil
}

// AsMatrix materializes the given columns, or every column when none are
// given, into one matrix of the interleaved dtype. Requested labels that
// are not columns stay missing.
func (m *Manager) AsMatrix(cols ...label.Label) (*Matrix, error) {
	target := m.columns
	if len(cols) > 0 {
		target = index.New(cols)
	}
	if err := validateUniqueAxis("AsMatrix", target); err != nil {
		return nil, err
	}

	n := m.Len()
	type placement struct {
		block   *Block
		indexer []int
	}
	var (
		placed []placement
		dts    []dtype.Dtype
	)
	for _, b := range m.blocks {
		indexer, mask, err := target.GetIndexer(b.Items(), index.Exact)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(mask, true) {
			continue
		}
		placed = append(placed, placement{block: b, indexer: indexer})
		dts = append(dts, b.Dtype())
	}

	dt := dtype.Interleave(dts...)
	values := column.Full(dt, n*target.Len())
	for _, p := range placed {
		src, err := p.block.Values().Cast(dt)
		if err != nil {
			return nil, err
		}
		for j, pos := range p.indexer {
			if pos < 0 {
				continue
			}
			if err := values.CopyFrom(pos*n, src.View(j*n, (j+1)*n)); err != nil {
				return nil, err
			}
		}
	}
	return &Matrix{columns: target, rows: n, values: values}, nil
}
