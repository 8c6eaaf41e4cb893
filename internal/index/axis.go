package index

import (
	"github.com/paveg/blockframe/internal/algos"
	"github.com/paveg/blockframe/internal/label"
)

// Axis is what a manager needs from a row axis. Both *Index and
// *MultiIndex implement it; a hierarchical axis exposes its tuples as labels.
type Axis interface {
	Len() int
	Label(i int) label.Label
	Labels() []label.Label
	Names() []string
	NLevels() int
	IsUnique() bool
	IsMonotonic() bool
	GetLoc(l label.Label) (Loc, error)
	GetIndexer(target Axis, method Method) ([]int, []bool, error)
	SliceLocs(start, end label.Label) (int, int, error)
	Equals(other Axis) bool
	Flat() *Index
}

var (
	_ Axis = (*Index)(nil)
	_ Axis = (*MultiIndex)(nil)
)

// TakeAxis gathers axis labels by position, keeping the axis kind
func TakeAxis(a Axis, positions []int) (Axis, error) {
	switch ax := a.(type) {
	case *MultiIndex:
		return ax.Take(positions)
	default:
		return a.Flat().Take(positions)
	}
}

// SliceAxis returns the positional sub-axis [lo, hi), keeping the axis kind
func SliceAxis(a Axis, lo, hi int) Axis {
	switch ax := a.(type) {
	case *MultiIndex:
		return ax.Slice(lo, hi)
	default:
		return a.Flat().Slice(lo, hi)
	}
}

// UnionAxis unions two axes. Two hierarchical axes stay hierarchical;
// anything else unions the flat label views.
func UnionAxis(a, b Axis) (Axis, error) {
	flat := a.Flat().Union(b.Flat())
	return rewrap(a, b, flat)
}

// IntersectionAxis intersects two axes the same way UnionAxis unions them
func IntersectionAxis(a, b Axis) (Axis, error) {
	flat := a.Flat().Intersection(b.Flat())
	return rewrap(a, b, flat)
}

// JoinAxis joins two axes under a join policy and returns both indexers
func JoinAxis(a, b Axis, how algos.How) (Axis, []int, []int, error) {
	flat, lidx, ridx, err := a.Flat().Join(b.Flat(), how)
	if err != nil {
		return nil, nil, nil, err
	}
	joined, err := rewrap(a, b, flat)
	if err != nil {
		return nil, nil, nil, err
	}
	return joined, lidx, ridx, nil
}

func rewrap(a, b Axis, flat *Index) (Axis, error) {
	am, aok := a.(*MultiIndex)
	bm, bok := b.(*MultiIndex)
	if !aok || !bok || am.NLevels() != bm.NLevels() {
		if !aok && !bok {
			return flat.Rename(mergeNames(a.Names()[0], b.Names()[0])), nil
		}
		return flat, nil
	}

	names := am.Names()
	for l, n := range bm.Names() {
		names[l] = mergeNames(names[l], n)
	}
	return FromTuples(flat.Labels(), names)
}
