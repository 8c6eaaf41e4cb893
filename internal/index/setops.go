package index

import (
	"slices"

	"github.com/paveg/blockframe/internal/algos"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/label"
)

// Union returns the distinct labels of both indexes. The result is sorted
// when both operands are monotonic; otherwise it is idx's labels in order
// followed by the labels only other holds. Names survive only if equal.
func (idx *Index) Union(other *Index) *Index {
	name := mergeNames(idx.name, other.name)
	if idx.IsUnique() && idx.Equals(other) {
		return idx.Rename(name)
	}

	seen := label.NewTable(idx.Len() + other.Len())
	out := make([]label.Label, 0, idx.Len()+other.Len())
	for _, src := range [][]label.Label{idx.labels, other.labels} {
		for _, l := range src {
			if _, inserted := seen.PutIfAbsent(l, len(out)); inserted {
				out = append(out, l)
			}
		}
	}

	if idx.IsMonotonic() && other.IsMonotonic() {
		slices.SortStableFunc(out, label.Compare)
	}
	return newIndex(name, out)
}

// Intersection returns the distinct labels present in both indexes, sorted
// when both are monotonic and in idx order otherwise.
func (idx *Index) Intersection(other *Index) *Index {
	name := mergeNames(idx.name, other.name)
	if idx.IsUnique() && idx.Equals(other) {
		return idx.Rename(name)
	}

	out := make([]label.Label, 0, min(idx.Len(), other.Len()))
	seen := label.NewTable(idx.Len())
	for _, l := range idx.labels {
		if !other.Contains(l) {
			continue
		}
		if _, inserted := seen.PutIfAbsent(l, 0); inserted {
			out = append(out, l)
		}
	}

	if idx.IsMonotonic() && other.IsMonotonic() {
		slices.SortStableFunc(out, label.Compare)
	}
	return newIndex(name, out)
}

// Difference returns the distinct labels of idx absent from other
func (idx *Index) Difference(other *Index) *Index {
	name := mergeNames(idx.name, other.name)
	out := make([]label.Label, 0, idx.Len())
	seen := label.NewTable(idx.Len())
	for _, l := range idx.labels {
		if other.Contains(l) {
			continue
		}
		if _, inserted := seen.PutIfAbsent(l, 0); inserted {
			out = append(out, l)
		}
	}

	if idx.IsMonotonic() && other.IsMonotonic() {
		slices.SortStableFunc(out, label.Compare)
	}
	return newIndex(name, out)
}

// Join combines two indexes under a join policy and returns the joined
// index with the positions of each joined label in idx and other (-1 when
// absent). Unique indexes join by set algebra; duplicates fall back to a
// keyed join of the labels.
func (idx *Index) Join(other *Index, how algos.How) (*Index, []int, []int, error) {
	if idx.IsUnique() && other.IsUnique() {
		var joined *Index
		switch how {
		case algos.Left:
			joined = idx
		case algos.Right:
			joined = other
		case algos.Inner:
			joined = idx.Intersection(other)
		case algos.Outer:
			joined = idx.Union(other)
		default:
			return nil, nil, nil, errors.NewInvalidInputError("Join", "unknown join type "+how.String())
		}

		lidx, _, err := idx.GetIndexer(joined, Exact)
		if err != nil {
			return nil, nil, nil, err
		}
		ridx, _, err := other.GetIndexer(joined, Exact)
		if err != nil {
			return nil, nil, nil, err
		}
		return joined.Rename(mergeNames(idx.name, other.name)), lidx, ridx, nil
	}

	f := algos.NewFactorizer(idx.Len() + other.Len())
	lcodes := f.Factorize(idx.labels)
	rcodes := f.Factorize(other.labels)
	lidx, ridx := algos.JoinIndexers(lcodes, rcodes, how)

	out := make([]label.Label, len(lidx))
	for i := range lidx {
		if lidx[i] >= 0 {
			out[i] = idx.labels[lidx[i]]
		} else {
			out[i] = other.labels[ridx[i]]
		}
	}
	return newIndex(mergeNames(idx.name, other.name), out), lidx, ridx, nil
}
