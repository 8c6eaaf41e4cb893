package manager

import (
	"fmt"
	"slices"
	"sort"

	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/validation"
)

// Manager is a set of Blocks whose items partition a unique column axis,
// all sharing one row axis. Apart from Set, Insert and Delete every
// operation returns a new Manager that owns its blocks.
type Manager struct {
	columns *index.Index
	rows    index.Axis
	blocks  []*Block
}

// Item is one column as yielded by Items
type Item struct {
	Label  label.Label
	Column column.Column
	Dtype  dtype.Dtype
}

// New validates the block partition against the axes and assembles a Manager
func New(columns *index.Index, rows index.Axis, blocks []*Block) (*Manager, error) {
	if err := validation.ValidateUnique(columns.Labels(), "New", "columns"); err != nil {
		return nil, err
	}

	var (
		checks []validation.Validator
		all    []label.Label
	)
	for _, b := range blocks {
		checks = append(checks, validation.NewLengthValidator(rows.Len(), b.Rows(), "New", "block rows"))
		for _, item := range b.Items().Labels() {
			if !columns.Contains(item) {
				return nil, errors.NewNotFoundError("New", label.Format(item))
			}
		}
		all = append(all, b.Items().Labels()...)
	}
	// every item is a known column and the counts agree, so with unique
	// columns the blocks partition the axis exactly when no item repeats
	checks = append(checks,
		validation.NewLengthValidator(columns.Len(), len(all), "New", "block items"),
		validation.NewUniqueValidator(all, "New", "block items"))
	if err := validation.NewCompoundValidator(checks...).Validate(); err != nil {
		return nil, err
	}

	m := &Manager{columns: columns, rows: rows, blocks: blocks}
	m.attach()
	return m, nil
}

// attach points every block at the current column axis
func (m *Manager) attach() {
	for _, b := range m.blocks {
		b.refItems = m.columns
	}
}

// FromColumns groups columns by dtype into one block per dtype, in order of
// first appearance. A nil rows axis becomes the positional range.
func FromColumns(labels []label.Label, cols []column.Column, rows index.Axis) (*Manager, error) {
	if err := validation.ValidateLength(len(labels), len(cols), "FromColumns", "columns"); err != nil {
		return nil, err
	}
	if rows == nil {
		n := 0
		if len(cols) > 0 {
			n = cols[0].Len()
		}
		rows = index.Range(n)
	}

	labels = label.NormalizeAll(labels)
	var order []dtype.Dtype
	groups := map[dtype.Dtype][]int{}
	for i, c := range cols {
		if err := validation.ValidateLength(rows.Len(), c.Len(), "FromColumns",
			fmt.Sprintf("column %s", label.Format(labels[i]))); err != nil {
			return nil, err
		}
		dt := c.Dtype()
		if _, ok := groups[dt]; !ok {
			order = append(order, dt)
		}
		groups[dt] = append(groups[dt], i)
	}

	blocks := make([]*Block, 0, len(order))
	for _, dt := range order {
		positions := groups[dt]
		items := make([]label.Label, len(positions))
		blockCols := make([]column.Column, len(positions))
		for j, pos := range positions {
			items[j] = labels[pos]
			blockCols[j] = cols[pos].Copy()
		}
		b, err := blockFromColumns(items, blockCols, rows.Len())
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return New(index.New(labels), rows, blocks)
}

// FromMap builds a manager from named columns; column labels are sorted
func FromMap(cols map[string]column.Column, rows index.Axis) (*Manager, error) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	labels := make([]label.Label, len(names))
	values := make([]column.Column, len(names))
	for i, name := range names {
		labels[i] = name
		values[i] = cols[name]
	}
	return FromColumns(labels, values, rows)
}

// Columns returns the column axis
func (m *Manager) Columns() *index.Index {
	return m.columns
}

// Rows returns the row axis
func (m *Manager) Rows() index.Axis {
	return m.rows
}

// Blocks returns the blocks. Callers must not mutate them.
func (m *Manager) Blocks() []*Block {
	return slices.Clone(m.blocks)
}

// NBlocks returns the number of blocks
func (m *Manager) NBlocks() int {
	return len(m.blocks)
}

// Len returns the number of rows
func (m *Manager) Len() int {
	return m.rows.Len()
}

// Width returns the number of columns
func (m *Manager) Width() int {
	return m.columns.Len()
}

// Shape returns (rows, columns)
func (m *Manager) Shape() (int, int) {
	return m.Len(), m.Width()
}

// HasColumn reports whether l names a column
func (m *Manager) HasColumn(l label.Label) bool {
	return m.columns.Contains(l)
}

// IsConsolidated reports whether each dtype appears in at most one block
func (m *Manager) IsConsolidated() bool {
	seen := map[dtype.Dtype]bool{}
	for _, b := range m.blocks {
		if seen[b.Dtype()] {
			return false
		}
		seen[b.Dtype()] = true
	}
	return true
}

// locate finds the block and item position owning col
func (m *Manager) locate(op string, col label.Label) (int, int, error) {
	col = label.Normalize(col)
	for bi, b := range m.blocks {
		if loc, err := b.Items().GetLoc(col); err == nil {
			return bi, loc.Pos, nil
		}
	}
	return 0, 0, errors.NewNotFoundError(op, label.Format(col))
}

// Column returns one column as a view into its block
func (m *Manager) Column(col label.Label) (column.Column, error) {
	bi, pos, err := m.locate("Column", col)
	if err != nil {
		return column.Column{}, err
	}
	return m.blocks[bi].Column(pos), nil
}

// Dtype returns the dtype of one column
func (m *Manager) Dtype(col label.Label) (dtype.Dtype, error) {
	bi, _, err := m.locate("Dtype", col)
	if err != nil {
		return 0, err
	}
	return m.blocks[bi].Dtype(), nil
}

// Items yields every column in column-axis order
func (m *Manager) Items() []Item {
	out := make([]Item, 0, m.Width())
	for _, l := range m.columns.Labels() {
		bi, pos, err := m.locate("Items", l)
		if err != nil {
			continue
		}
		b := m.blocks[bi]
		out = append(out, Item{Label: l, Column: b.Column(pos), Dtype: b.Dtype()})
	}
	return out
}

// Set replaces the values of col. A matching dtype overwrites the owning
// block in place; otherwise the column moves to a new block of the value's
// dtype. Unknown columns are appended. Nothing changes when validation fails.
func (m *Manager) Set(col label.Label, value column.Column) error {
	col = label.Normalize(col)
	if err := validation.ValidateLength(m.Len(), value.Len(), "Set", "column values"); err != nil {
		return err
	}

	bi, _, err := m.locate("Set", col)
	if err != nil {
		return m.Insert(m.Width(), col, value)
	}

	owner := m.blocks[bi]
	if owner.Dtype() == value.Dtype() {
		return owner.Set(col, value)
	}

	remaining, err := owner.Delete(col)
	if err != nil {
		return err
	}
	fresh, err := blockFromColumns([]label.Label{col}, []column.Column{value.Copy()}, m.Len())
	if err != nil {
		return err
	}

	blocks := slices.Clone(m.blocks)
	if remaining.Len() == 0 {
		blocks = slices.Delete(blocks, bi, bi+1)
	} else {
		blocks[bi] = remaining
	}
	m.blocks = append(blocks, fresh)
	m.attach()
	return nil
}

// Insert adds a new column at position loc of the column axis
func (m *Manager) Insert(loc int, col label.Label, value column.Column) error {
	col = label.Normalize(col)
	if m.HasColumn(col) {
		return errors.NewNotUniqueError("Insert", fmt.Sprintf("column %s already exists", label.Format(col)))
	}
	err := validation.NewCompoundValidator(
		validation.NewIndexValidator(loc, m.Width()+1, "Insert"),
		validation.NewLengthValidator(m.Len(), value.Len(), "Insert", "column values"),
	).Validate()
	if err != nil {
		return err
	}
	columns, err := m.columns.Insert(loc, col)
	if err != nil {
		return err
	}
	fresh, err := blockFromColumns([]label.Label{col}, []column.Column{value.Copy()}, m.Len())
	if err != nil {
		return err
	}

	m.columns = columns
	m.blocks = append(slices.Clone(m.blocks), fresh)
	m.attach()
	return nil
}

// Delete removes a column; a block left without items is dropped
func (m *Manager) Delete(col label.Label) error {
	col = label.Normalize(col)
	bi, _, err := m.locate("Delete", col)
	if err != nil {
		return err
	}
	remaining, err := m.blocks[bi].Delete(col)
	if err != nil {
		return err
	}
	columns, err := m.columns.Drop([]label.Label{col})
	if err != nil {
		return err
	}

	blocks := slices.Clone(m.blocks)
	if remaining.Len() == 0 {
		blocks = slices.Delete(blocks, bi, bi+1)
	} else {
		blocks[bi] = remaining
	}
	m.columns = columns
	m.blocks = blocks
	m.attach()
	return nil
}

// Consolidate merges blocks of equal dtype. Items of a merged block keep
// the concatenated source order.
func (m *Manager) Consolidate() *Manager {
	var order []dtype.Dtype
	groups := map[dtype.Dtype][]*Block{}
	for _, b := range m.blocks {
		if _, ok := groups[b.Dtype()]; !ok {
			order = append(order, b.Dtype())
		}
		groups[b.Dtype()] = append(groups[b.Dtype()], b)
	}

	blocks := make([]*Block, 0, len(order))
	for _, dt := range order {
		merged := groups[dt][0].Copy()
		for _, b := range groups[dt][1:] {
			// same dtype, same rows, disjoint items: Merge cannot fail here
			merged, _ = merged.Merge(b)
		}
		blocks = append(blocks, merged)
	}
	return &Manager{columns: m.columns, rows: m.rows, blocks: m.withRef(blocks)}
}

func (m *Manager) withRef(blocks []*Block) []*Block {
	for _, b := range blocks {
		b.refItems = m.columns
	}
	return blocks
}

// Copy returns a deep copy
func (m *Manager) Copy() *Manager {
	blocks := make([]*Block, len(m.blocks))
	for i, b := range m.blocks {
		blocks[i] = b.Copy()
	}
	return &Manager{columns: m.columns, rows: m.rows, blocks: m.withRef(blocks)}
}

// WithRows returns a copy of m on a new row axis of the same length
func (m *Manager) WithRows(rows index.Axis) (*Manager, error) {
	if err := validation.ValidateLength(m.Len(), rows.Len(), "WithRows", "row axis"); err != nil {
		return nil, err
	}
	out := m.Copy()
	out.rows = rows
	return out, nil
}

// RenameItems relabels columns through fn; labels must stay unique
func (m *Manager) RenameItems(fn func(label.Label) label.Label) (*Manager, error) {
	renamed := make([]label.Label, m.Width())
	for i, l := range m.columns.Labels() {
		renamed[i] = label.Normalize(fn(l))
	}
	columns := index.NewNamed(m.columns.Name(), renamed)

	blocks := make([]*Block, len(m.blocks))
	for i, b := range m.blocks {
		items := make([]label.Label, b.Len())
		for j, l := range b.Items().Labels() {
			items[j] = label.Normalize(fn(l))
		}
		nb, err := NewBlock(index.New(items), b.values.Copy(), b.rows)
		if err != nil {
			return nil, err
		}
		blocks[i] = nb
	}
	return New(columns, m.rows, blocks)
}

// Equals compares axes and every column's dtype and cells; block layout is ignored
func (m *Manager) Equals(other *Manager) bool {
	if !m.columns.Equals(other.columns) || !m.rows.Equals(other.rows) {
		return false
	}
	for _, l := range m.columns.Labels() {
		a, err := m.Column(l)
		if err != nil {
			return false
		}
		b, err := other.Column(l)
		if err != nil || !column.Equal(a, b) {
			return false
		}
	}
	return true
}

// interleavedDtype is F64 when every block is floating, Object otherwise
func interleavedDtype(blocks []*Block) dtype.Dtype {
	dts := make([]dtype.Dtype, len(blocks))
	for i, b := range blocks {
		dts[i] = b.Dtype()
	}
	return dtype.Interleave(dts...)
}

// InterleavedDtype returns the dtype AsMatrix materializes into
func (m *Manager) InterleavedDtype() dtype.Dtype {
	return interleavedDtype(m.blocks)
}
