package index

import (
	"slices"

	"github.com/paveg/blockframe/internal/algos"
	"github.com/paveg/blockframe/internal/errors"
)

// GetIndexer locates every tuple of target. Levels of both sides are first
// brought onto shared sorted level unions, then matching reduces to a flat
// search over composite integer keys.
func (mi *MultiIndex) GetIndexer(target Axis, method Method) ([]int, []bool, error) {
	tm, ok := target.(*MultiIndex)
	if !ok {
		var err error
		if tm, err = FromTuples(target.Labels(), nil); err != nil {
			if target.Len() == 0 {
				return []int{}, []bool{}, nil
			}
			return nil, nil, err
		}
	}
	if tm.NLevels() != mi.NLevels() {
		return nil, nil, errors.NewInvalidInputError("GetIndexer", "target has a different number of levels")
	}

	switch method {
	case Exact:
		if !mi.IsUnique() {
			return nil, nil, errors.NewNotUniqueError("GetIndexer", "exact indexing requires unique tuples")
		}
	case Pad, Backfill:
		if !mi.IsMonotonic() {
			return nil, nil, errors.NewNonMonotonicError("GetIndexer")
		}
	default:
		return nil, nil, errors.NewInvalidInputError("GetIndexer", "unknown fill method "+method.String())
	}

	selfCodes, targetCodes, sizes, err := sharedLevelCodes(mi, tm)
	if err != nil {
		return nil, nil, err
	}
	selfKeys, err := algos.CompositeKey(selfCodes, sizes)
	if err != nil {
		if method == Exact {
			return mi.Flat().GetIndexerLabels(tm.Labels(), Exact)
		}
		return nil, nil, err
	}
	targetKeys, err := algos.CompositeKey(targetCodes, sizes)
	if err != nil {
		return nil, nil, err
	}

	indexer := make([]int, len(targetKeys))
	switch method {
	case Exact:
		positions := make(map[int64]int, len(selfKeys))
		for i, k := range selfKeys {
			if k >= 0 {
				positions[k] = i
			}
		}
		for i, k := range targetKeys {
			pos, ok := positions[k]
			if k < 0 || !ok {
				pos = -1
			}
			indexer[i] = pos
		}
	case Pad:
		for i, k := range targetKeys {
			if k < 0 {
				indexer[i] = -1
				continue
			}
			pos, found := slices.BinarySearch(selfKeys, k)
			if found {
				for pos+1 < len(selfKeys) && selfKeys[pos+1] == k {
					pos++
				}
			} else {
				pos--
			}
			if pos >= 0 && selfKeys[pos] < 0 {
				pos = -1
			}
			indexer[i] = pos
		}
	case Backfill:
		for i, k := range targetKeys {
			pos, _ := slices.BinarySearch(selfKeys, k)
			if k < 0 || pos == len(selfKeys) {
				pos = -1
			}
			indexer[i] = pos
		}
	}
	return indexer, MaskOf(indexer), nil
}

// sharedLevelCodes re-encodes both axes against sorted unions of their levels
func sharedLevelCodes(a, b *MultiIndex) ([][]int, [][]int, []int, error) {
	k := a.NLevels()
	aCodes := make([][]int, k)
	bCodes := make([][]int, k)
	sizes := make([]int, k)

	for l := 0; l < k; l++ {
		la, lb := a.levels[l], b.levels[l]
		if la.Equals(lb) && la.IsMonotonic() {
			aCodes[l] = int32sToInts(a.codes[l])
			bCodes[l] = int32sToInts(b.codes[l])
			sizes[l] = la.Len()
			continue
		}

		union := la.Union(lb)
		if !union.IsMonotonic() {
			union, _ = union.SortValues()
		}
		var err error
		if aCodes[l], err = recode(a.codes[l], la, union); err != nil {
			return nil, nil, nil, err
		}
		if bCodes[l], err = recode(b.codes[l], lb, union); err != nil {
			return nil, nil, nil, err
		}
		sizes[l] = union.Len()
	}
	return aCodes, bCodes, sizes, nil
}

func recode(codes []int32, from, to *Index) ([]int, error) {
	remap, _, err := to.GetIndexer(from, Exact)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(codes))
	for i, c := range codes {
		if c < 0 {
			out[i] = -1
		} else {
			out[i] = remap[c]
		}
	}
	return out, nil
}
