// Package index implements the ordered label collections that drive every
// alignment in the engine: the flat Index, the hierarchical MultiIndex and
// the Axis abstraction a manager uses for its row labels.
package index

import (
	"slices"
	"sync"

	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/validation"
)

// Index is an immutable ordered sequence of labels with an optional name.
// The label-to-position table and the monotonic/unique flags are computed on
// first use and read-only afterwards, so an Index may be shared freely.
type Index struct {
	labels []label.Label
	name   string
	dtype  dtype.Dtype

	tableOnce sync.Once
	table     *label.Table // label -> first position

	flagsOnce sync.Once
	monotonic bool
	unique    bool
}

// New builds an Index over labels. Values are normalized; duplicates are allowed.
func New(labels []label.Label) *Index {
	return NewNamed("", labels)
}

// NewNamed builds a named Index
func NewNamed(name string, labels []label.Label) *Index {
	normalized := make([]label.Label, len(labels))
	for i, l := range labels {
		normalized[i] = label.Normalize(l)
	}
	return newIndex(name, normalized)
}

// newIndex takes ownership of already normalized labels
func newIndex(name string, labels []label.Label) *Index {
	return &Index{labels: labels, name: name, dtype: label.DtypeOf(labels)}
}

// NewUnique builds an Index and fails with NotUnique on duplicate labels
func NewUnique(labels []label.Label) (*Index, error) {
	idx := New(labels)
	if !idx.IsUnique() {
		return nil, errors.NewNotUniqueError("NewUnique", "index has duplicate labels")
	}
	return idx, nil
}

// FromStrings builds an Index of string labels
func FromStrings(labels ...string) *Index {
	out := make([]label.Label, len(labels))
	for i, l := range labels {
		out[i] = l
	}
	return newIndex("", out)
}

// FromInts builds an Index of integer labels
func FromInts(labels ...int64) *Index {
	out := make([]label.Label, len(labels))
	for i, l := range labels {
		out[i] = l
	}
	return newIndex("", out)
}

// FromTimes builds a timestamp Index
func FromTimes(labels []dtype.Time) *Index {
	out := make([]label.Label, len(labels))
	for i, l := range labels {
		out[i] = l
	}
	idx := newIndex("", out)
	idx.dtype = dtype.Timestamp
	return idx
}

// Range builds the positional Index 0..n-1
func Range(n int) *Index {
	out := make([]label.Label, n)
	for i := range out {
		out[i] = int64(i)
	}
	idx := newIndex("", out)
	idx.flagsOnce.Do(func() {
		idx.monotonic, idx.unique = true, true
	})
	return idx
}

// Len returns the number of labels
func (idx *Index) Len() int {
	return len(idx.labels)
}

// Label returns the label at position i
func (idx *Index) Label(i int) label.Label {
	return idx.labels[i]
}

// Labels returns the label sequence. The slice must not be modified.
func (idx *Index) Labels() []label.Label {
	return idx.labels
}

// Name returns the index name, "" when unnamed
func (idx *Index) Name() string {
	return idx.name
}

// Names returns the single-element name list
func (idx *Index) Names() []string {
	return []string{idx.name}
}

// Dtype returns the element type tag inferred from the labels
func (idx *Index) Dtype() dtype.Dtype {
	return idx.dtype
}

// NLevels is 1 for a flat Index
func (idx *Index) NLevels() int {
	return 1
}

// Flat returns idx itself
func (idx *Index) Flat() *Index {
	return idx
}

func (idx *Index) lookupTable() *label.Table {
	idx.tableOnce.Do(func() {
		t := label.NewTable(len(idx.labels))
		for i, l := range idx.labels {
			t.PutIfAbsent(l, i)
		}
		idx.table = t
	})
	return idx.table
}

func (idx *Index) computeFlags() {
	idx.flagsOnce.Do(func() {
		idx.monotonic = true
		for i := 1; i < len(idx.labels); i++ {
			if label.Compare(idx.labels[i-1], idx.labels[i]) > 0 {
				idx.monotonic = false
				break
			}
		}
		idx.unique = idx.lookupTable().Len() == len(idx.labels)
	})
}

// IsMonotonic reports whether labels are non-decreasing
func (idx *Index) IsMonotonic() bool {
	idx.computeFlags()
	return idx.monotonic
}

// IsUnique reports whether every label occurs once
func (idx *Index) IsUnique() bool {
	idx.computeFlags()
	return idx.unique
}

// Contains reports whether l occurs in the index
func (idx *Index) Contains(l label.Label) bool {
	_, ok := idx.lookupTable().Get(label.Normalize(l))
	return ok
}

// GetLoc locates l. A unique index yields a position; a non-unique
// monotonic index yields the half-open range of the run; otherwise the
// matching positions come back as a bitmask.
func (idx *Index) GetLoc(l label.Label) (Loc, error) {
	l = label.Normalize(l)
	first, ok := idx.lookupTable().Get(l)
	if !ok {
		return Loc{}, errors.NewNotFoundError("GetLoc", label.Format(l))
	}
	if idx.IsUnique() {
		return PositionLoc(first), nil
	}
	if idx.IsMonotonic() {
		return RangeLoc(idx.lowerBound(l), idx.upperBound(l)), nil
	}

	positions := make([]int, 0, 2)
	for i := first; i < len(idx.labels); i++ {
		if label.Equal(idx.labels[i], l) {
			positions = append(positions, i)
		}
	}
	return MaskLoc(positions), nil
}

// lowerBound is the first position whose label is >= l; requires monotonic
func (idx *Index) lowerBound(l label.Label) int {
	pos, _ := slices.BinarySearchFunc(idx.labels, l, label.Compare)
	return pos
}

// upperBound is the first position whose label is > l; requires monotonic
func (idx *Index) upperBound(l label.Label) int {
	lo, hi := 0, len(idx.labels)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if label.Compare(idx.labels[mid], l) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Slice returns the positional sub-index [lo, hi)
func (idx *Index) Slice(lo, hi int) *Index {
	out := newIndex(idx.name, slices.Clone(idx.labels[lo:hi]))
	out.dtype = idx.dtype
	return out
}

// Take gathers labels by position; -1 produces a missing label
func (idx *Index) Take(positions []int) (*Index, error) {
	out := make([]label.Label, len(positions))
	for i, p := range positions {
		switch {
		case p == -1:
			out[i] = nil
		case p < -1 || p >= len(idx.labels):
			return nil, errors.NewOutOfBoundsError("Take", p, len(idx.labels))
		default:
			out[i] = idx.labels[p]
		}
	}
	return newIndex(idx.name, out), nil
}

// Append concatenates other after idx
func (idx *Index) Append(other *Index) *Index {
	out := make([]label.Label, 0, idx.Len()+other.Len())
	out = append(out, idx.labels...)
	out = append(out, other.labels...)
	return newIndex(mergeNames(idx.name, other.name), out)
}

// Equals compares labels elementwise; names are ignored
func (idx *Index) Equals(other Axis) bool {
	if other == nil || idx.Len() != other.Len() {
		return false
	}
	for i, l := range idx.labels {
		if !label.Equal(l, other.Label(i)) {
			return false
		}
	}
	return true
}

// Identical is Equals plus matching name and dtype
func (idx *Index) Identical(other *Index) bool {
	return idx.Equals(other) && idx.name == other.name && idx.dtype == other.dtype
}

// Rename returns a copy of the index under a new name
func (idx *Index) Rename(name string) *Index {
	out := newIndex(name, idx.labels)
	out.dtype = idx.dtype
	return out
}

// Insert returns a new index with l placed at position loc
func (idx *Index) Insert(loc int, l label.Label) (*Index, error) {
	if err := validation.ValidateIndex(loc, idx.Len()+1, "Insert"); err != nil {
		return nil, err
	}
	out := slices.Insert(slices.Clone(idx.labels), loc, label.Normalize(l))
	return newIndex(idx.name, out), nil
}

// Delete returns a new index without position loc
func (idx *Index) Delete(loc int) (*Index, error) {
	if err := validation.ValidateIndex(loc, idx.Len(), "Delete"); err != nil {
		return nil, err
	}
	out := slices.Delete(slices.Clone(idx.labels), loc, loc+1)
	return newIndex(idx.name, out), nil
}

// Drop removes every occurrence of the given labels; each must be present
func (idx *Index) Drop(labels []label.Label) (*Index, error) {
	drop := label.NewTable(len(labels))
	for _, l := range labels {
		l = label.Normalize(l)
		if !idx.Contains(l) {
			return nil, errors.NewNotFoundError("Drop", label.Format(l))
		}
		drop.PutIfAbsent(l, 0)
	}

	out := make([]label.Label, 0, idx.Len())
	for _, l := range idx.labels {
		if _, ok := drop.Get(l); !ok {
			out = append(out, l)
		}
	}
	return newIndex(idx.name, out), nil
}

// Unique returns the distinct labels in first-appearance order
func (idx *Index) Unique() *Index {
	if idx.IsUnique() {
		return idx
	}
	out := slices.Clone(idx.lookupTable().Keys())
	return newIndex(idx.name, out)
}

// Argsort returns the stable permutation that sorts the labels
func (idx *Index) Argsort() []int {
	perm := make([]int, idx.Len())
	for i := range perm {
		perm[i] = i
	}
	slices.SortStableFunc(perm, func(a, b int) int {
		return label.Compare(idx.labels[a], idx.labels[b])
	})
	return perm
}

// SortValues returns the sorted index and the permutation producing it
func (idx *Index) SortValues() (*Index, []int) {
	perm := idx.Argsort()
	out, _ := idx.Take(perm)
	return out, perm
}

// IsIn reports for every label of idx whether it occurs in values
func (idx *Index) IsIn(values []label.Label) []bool {
	set := label.NewTable(len(values))
	for _, v := range values {
		set.PutIfAbsent(label.Normalize(v), 0)
	}
	out := make([]bool, idx.Len())
	for i, l := range idx.labels {
		_, out[i] = set.Get(l)
	}
	return out
}

func mergeNames(a, b string) string {
	if a == b {
		return a
	}
	return ""
}
