package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/label"
)

// Method is the fill policy of GetIndexer
type Method int

const (
	Exact Method = iota
	Pad
	Backfill
)

// FFill and BFill are aliases of Pad and Backfill
const (
	FFill = Pad
	BFill = Backfill
)

// String returns the string representation of the method
func (m Method) String() string {
	switch m {
	case Exact:
		return "exact"
	case Pad:
		return "pad"
	case Backfill:
		return "backfill"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseMethod accepts "", "exact", "pad", "ffill", "backfill" and "bfill"
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "", "exact":
		return Exact, nil
	case "pad", "ffill":
		return Pad, nil
	case "backfill", "bfill":
		return Backfill, nil
	default:
		return Exact, errors.NewInvalidInputError("ParseMethod", fmt.Sprintf("unknown fill method %q", s))
	}
}

// GetIndexer locates every label of target in idx. indexer[i] is the
// matched position or -1 and mask[i] tells whether it matched.
func (idx *Index) GetIndexer(target Axis, method Method) ([]int, []bool, error) {
	return idx.GetIndexerLabels(target.Labels(), method)
}

// GetIndexerLabels is GetIndexer over a raw label sequence
func (idx *Index) GetIndexerLabels(target []label.Label, method Method) ([]int, []bool, error) {
	indexer := make([]int, len(target))

	switch method {
	case Exact:
		if !idx.IsUnique() {
			return nil, nil, errors.NewNotUniqueError("GetIndexer",
				"exact indexing requires a unique index")
		}
		table := idx.lookupTable()
		for i, t := range target {
			pos, ok := table.Get(t)
			if !ok {
				pos = -1
			}
			indexer[i] = pos
		}
	case Pad:
		if !idx.IsMonotonic() {
			return nil, nil, errors.NewNonMonotonicError("GetIndexer")
		}
		for i, t := range target {
			if label.IsMissing(t) {
				indexer[i] = -1
				continue
			}
			indexer[i] = idx.upperBound(t) - 1
		}
	case Backfill:
		if !idx.IsMonotonic() {
			return nil, nil, errors.NewNonMonotonicError("GetIndexer")
		}
		n := idx.Len()
		for i, t := range target {
			pos := idx.lowerBound(t)
			if label.IsMissing(t) || pos == n {
				pos = -1
			}
			indexer[i] = pos
		}
	default:
		return nil, nil, errors.NewInvalidInputError("GetIndexer", "unknown fill method "+method.String())
	}

	return indexer, MaskOf(indexer), nil
}

// MaskOf derives the validity mask of an indexer
func MaskOf(indexer []int) []bool {
	mask := make([]bool, len(indexer))
	for i, p := range indexer {
		mask[i] = p != -1
	}
	return mask
}

// SliceLocs returns the half-open positional range covering labels in
// [start, end]. A nil endpoint is open. On a timestamp index string
// endpoints may be partial dates ("2000", "2000-03") and are widened to
// the interval they name.
func (idx *Index) SliceLocs(start, end label.Label) (int, int, error) {
	if !idx.IsMonotonic() {
		return 0, 0, errors.NewNonMonotonicError("SliceLocs")
	}

	lo, hi := 0, idx.Len()
	if start != nil {
		s, _, err := idx.coerceBound(start)
		if err != nil {
			return 0, 0, err
		}
		lo = idx.lowerBound(s)
	}
	if end != nil {
		_, e, err := idx.coerceBound(end)
		if err != nil {
			return 0, 0, err
		}
		hi = idx.upperBound(e)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi, nil
}

// coerceBound widens a bound into the interval it denotes on this index
func (idx *Index) coerceBound(b label.Label) (label.Label, label.Label, error) {
	b = label.Normalize(b)
	if idx.dtype != dtype.Timestamp {
		return b, b, nil
	}
	switch v := b.(type) {
	case string:
		p, err := ParseTimeString(v)
		if err != nil {
			return nil, nil, err
		}
		return p.Start, p.End, nil
	case time.Time:
		t := dtype.FromTime(v)
		return t, t, nil
	default:
		return b, b, nil
	}
}

// SliceIndexer is SliceLocs followed by Slice
func (idx *Index) SliceIndexer(start, end label.Label) (*Index, error) {
	lo, hi, err := idx.SliceLocs(start, end)
	if err != nil {
		return nil, err
	}
	return idx.Slice(lo, hi), nil
}
