// Package manager implements the block-partitioned column store: Blocks of
// one dtype each and the Manager that keeps them consistent with a shared
// column axis and row axis.
package manager

import (
	"fmt"
	"slices"

	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
)

// Axis numbers used by slicing and reindexing
const (
	AxisColumns = 0
	AxisRows    = 1
)

// Block is a homogeneous two-dimensional array of len(items) columns by
// rows cells. Values are stored item-major in one flat column: item j
// occupies values[j*rows : (j+1)*rows].
type Block struct {
	items    *index.Index
	refItems *index.Index
	values   column.Column
	rows     int
}

// NewBlock validates and assembles a block. refItems may be nil until the
// block is installed in a manager.
func NewBlock(items *index.Index, values column.Column, rows int) (*Block, error) {
	if !items.IsUnique() {
		return nil, errors.NewNotUniqueError("NewBlock", "block items must be unique")
	}
	if values.Len() != items.Len()*rows {
		return nil, errors.NewLengthMismatchError("NewBlock", "block values", items.Len()*rows, values.Len())
	}
	return &Block{items: items, values: values, rows: rows}, nil
}

// blockFromColumns stacks same-dtype columns into one block
func blockFromColumns(items []label.Label, cols []column.Column, rows int) (*Block, error) {
	for i, c := range cols {
		if c.Len() != rows {
			return nil, errors.NewLengthMismatchError("NewBlock",
				fmt.Sprintf("column %s", label.Format(items[i])), rows, c.Len())
		}
	}
	values, err := column.Concat(cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		values = column.Make(dtype.F64, 0)
	}
	return NewBlock(index.New(items), values, rows)
}

// Dtype returns the element type shared by every cell
func (b *Block) Dtype() dtype.Dtype {
	return b.values.Dtype()
}

// Items returns the column labels the block owns
func (b *Block) Items() *index.Index {
	return b.items
}

// RefItems returns the owning manager's column axis
func (b *Block) RefItems() *index.Index {
	return b.refItems
}

// Rows returns the number of cells per item
func (b *Block) Rows() int {
	return b.rows
}

// Len returns the number of items
func (b *Block) Len() int {
	return b.items.Len()
}

// Values returns the flat item-major buffer
func (b *Block) Values() column.Column {
	return b.values
}

// RefLocs maps every item to its position in the reference axis
func (b *Block) RefLocs() ([]int, error) {
	if b.refItems == nil {
		return nil, errors.NewInvalidInputError("RefLocs", "block is not attached to a column axis")
	}
	locs, _, err := b.refItems.GetIndexer(b.items, index.Exact)
	return locs, err
}

// Column returns item j as a view into the block
func (b *Block) Column(j int) column.Column {
	return b.values.View(j*b.rows, (j+1)*b.rows)
}

// Get returns the column of one item as a view
func (b *Block) Get(item label.Label) (column.Column, error) {
	loc, err := b.items.GetLoc(item)
	if err != nil {
		return column.Column{}, err
	}
	return b.Column(loc.Pos), nil
}

// Set overwrites one item in place. The value must have the block dtype.
func (b *Block) Set(item label.Label, value column.Column) error {
	loc, err := b.items.GetLoc(item)
	if err != nil {
		return err
	}
	if value.Len() != b.rows {
		return errors.NewLengthMismatchError("Set", "column values", b.rows, value.Len())
	}
	return b.values.CopyFrom(loc.Pos*b.rows, value)
}

// Insert returns a new block with item added at position loc
func (b *Block) Insert(loc int, item label.Label, value column.Column) (*Block, error) {
	if value.Dtype() != b.Dtype() {
		return nil, errors.NewDtypeMismatchError("Insert", label.Format(item),
			fmt.Sprintf("cannot insert %s column into %s block", value.Dtype(), b.Dtype()))
	}
	if value.Len() != b.rows {
		return nil, errors.NewLengthMismatchError("Insert", "column values", b.rows, value.Len())
	}
	items, err := b.items.Insert(loc, item)
	if err != nil {
		return nil, err
	}

	cols := slices.Insert(b.columns(), loc, value)
	values, err := column.Concat(cols...)
	if err != nil {
		return nil, err
	}
	return b.derive(items, values, b.rows)
}

// Delete returns a new block without item. The result may be empty.
func (b *Block) Delete(item label.Label) (*Block, error) {
	loc, err := b.items.GetLoc(item)
	if err != nil {
		return nil, err
	}
	items, err := b.items.Delete(loc.Pos)
	if err != nil {
		return nil, err
	}

	cols := slices.Delete(b.columns(), loc.Pos, loc.Pos+1)
	values, err := column.Concat(cols...)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		values = column.Make(b.Dtype(), 0)
	}
	return b.derive(items, values, b.rows)
}

// ReindexAxis gathers along axis with indexer. Positions whose mask entry is
// false become missing. When needMasking is set and the dtype has no missing
// sentinel, the whole block is widened once before the gather. Along the
// item axis the new items are taken from the old ones; missing items are
// labelled from targets, which must then be given one label per indexer entry.
func (b *Block) ReindexAxis(indexer []int, mask []bool, needMasking bool, axis int, targets []label.Label) (*Block, error) {
	if len(mask) != len(indexer) {
		return nil, errors.NewLengthMismatchError("ReindexAxis", "mask", len(indexer), len(mask))
	}
	if targets != nil && len(targets) != len(indexer) {
		return nil, errors.NewLengthMismatchError("ReindexAxis", "targets", len(indexer), len(targets))
	}
	gatherIdx := make([]int, len(indexer))
	for i, pos := range indexer {
		if !mask[i] {
			pos = -1
			needMasking = true
		}
		gatherIdx[i] = pos
	}

	src := b
	if needMasking && !b.Dtype().CanHoldMissing() {
		var err error
		if src, err = b.Upcast(b.Dtype().UpcastForMissing()); err != nil {
			return nil, err
		}
	}

	switch axis {
	case AxisRows:
		cols := make([]column.Column, src.Len())
		for j := range cols {
			taken, err := src.Column(j).Take(gatherIdx)
			if err != nil {
				return nil, err
			}
			cols[j] = taken
		}
		values, err := concatOrEmpty(src.Dtype(), cols)
		if err != nil {
			return nil, err
		}
		return src.derive(src.items, values, len(indexer))
	case AxisColumns:
		labels := make([]label.Label, len(gatherIdx))
		cols := make([]column.Column, len(gatherIdx))
		for j, pos := range gatherIdx {
			if pos < 0 {
				if targets == nil {
					return nil, errors.NewInvalidInputError("ReindexAxis", "missing items need target labels")
				}
				labels[j] = targets[j]
				cols[j] = column.Full(src.Dtype(), src.rows)
				continue
			}
			if pos >= src.Len() {
				return nil, errors.NewOutOfBoundsError("ReindexAxis", pos, src.Len())
			}
			labels[j] = src.items.Label(pos)
			cols[j] = src.Column(pos)
		}
		values, err := concatOrEmpty(src.Dtype(), cols)
		if err != nil {
			return nil, err
		}
		return src.derive(index.New(labels), values, src.rows)
	default:
		return nil, errors.NewInvalidInputError("ReindexAxis", fmt.Sprintf("invalid axis %d", axis))
	}
}

// takeItems builds a block from a selection of items under new labels
func (b *Block) takeItems(positions []int, labels []label.Label) (*Block, error) {
	cols := make([]column.Column, len(positions))
	for j, pos := range positions {
		cols[j] = b.Column(pos)
	}
	values, err := concatOrEmpty(b.Dtype(), cols)
	if err != nil {
		return nil, err
	}
	return b.derive(index.New(labels), values, b.rows)
}

// Merge stacks two blocks of the same dtype and row count. Items must be disjoint.
func (b *Block) Merge(other *Block) (*Block, error) {
	if b.Dtype() != other.Dtype() {
		return nil, errors.NewDtypeMismatchError("Merge", nil,
			fmt.Sprintf("cannot merge %s and %s blocks", b.Dtype(), other.Dtype()))
	}
	if b.rows != other.rows {
		return nil, errors.NewLengthMismatchError("Merge", "block rows", b.rows, other.rows)
	}
	items := b.items.Append(other.items)
	if !items.IsUnique() {
		return nil, errors.NewNotUniqueError("Merge", "blocks share items")
	}
	values, err := column.Concat(b.values, other.values)
	if err != nil {
		return nil, err
	}
	return b.derive(items, values, b.rows)
}

// GetSlice copies the positional range [lo, hi) along axis
func (b *Block) GetSlice(lo, hi, axis int) (*Block, error) {
	switch axis {
	case AxisRows:
		if lo < 0 || hi > b.rows || lo > hi {
			return nil, errors.NewOutOfBoundsError("GetSlice", hi, b.rows)
		}
		cols := make([]column.Column, b.Len())
		for j := range cols {
			cols[j] = b.Column(j).View(lo, hi)
		}
		values, err := concatOrEmpty(b.Dtype(), cols)
		if err != nil {
			return nil, err
		}
		return b.derive(b.items, values, hi-lo)
	case AxisColumns:
		if lo < 0 || hi > b.Len() || lo > hi {
			return nil, errors.NewOutOfBoundsError("GetSlice", hi, b.Len())
		}
		return b.derive(b.items.Slice(lo, hi), b.values.Slice(lo*b.rows, hi*b.rows), b.rows)
	default:
		return nil, errors.NewInvalidInputError("GetSlice", fmt.Sprintf("invalid axis %d", axis))
	}
}

// Upcast converts the whole block to a wider dtype
func (b *Block) Upcast(to dtype.Dtype) (*Block, error) {
	values, err := b.values.Cast(to)
	if err != nil {
		return nil, err
	}
	return b.derive(b.items, values, b.rows)
}

// Copy returns a deep copy
func (b *Block) Copy() *Block {
	out, _ := b.derive(b.items, b.values.Copy(), b.rows)
	return out
}

// columns splits the block into per-item views
func (b *Block) columns() []column.Column {
	cols := make([]column.Column, b.Len())
	for j := range cols {
		cols[j] = b.Column(j)
	}
	return cols
}

func (b *Block) derive(items *index.Index, values column.Column, rows int) (*Block, error) {
	out, err := NewBlock(items, values, rows)
	if err != nil {
		return nil, err
	}
	out.refItems = b.refItems
	return out, nil
}

func concatOrEmpty(dt dtype.Dtype, cols []column.Column) (column.Column, error) {
	if len(cols) == 0 {
		return column.Make(dt, 0), nil
	}
	return column.Concat(cols...)
}

// String summarizes the block for debugging
func (b *Block) String() string {
	return fmt.Sprintf("%sBlock: %d items x %d rows", b.Dtype(), b.Len(), b.rows)
}
