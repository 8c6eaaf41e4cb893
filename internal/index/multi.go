package index

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/paveg/blockframe/internal/algos"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/validation"
)

// MultiIndex is a hierarchical axis encoded as one unique level Index per
// depth plus an int32 code vector per level. Code -1 marks a missing label.
// sortorder is the deepest level through which the tuples are known to be
// lexicographically sorted, or -1.
type MultiIndex struct {
	levels    []*Index
	codes     [][]int32
	names     []string
	sortorder int

	flatOnce sync.Once
	flat     *Index

	depthOnce sync.Once
	depth     int
}

// NewMultiIndex validates and assembles a MultiIndex from its encoding
func NewMultiIndex(levels []*Index, codes [][]int32, names []string) (*MultiIndex, error) {
	if len(levels) == 0 {
		return nil, errors.NewInvalidInputError("NewMultiIndex", "at least one level is required")
	}
	if len(codes) != len(levels) {
		return nil, errors.NewLengthMismatchError("NewMultiIndex", "codes", len(levels), len(codes))
	}
	if names == nil {
		names = make([]string, len(levels))
	}
	if len(names) != len(levels) {
		return nil, errors.NewLengthMismatchError("NewMultiIndex", "names", len(levels), len(names))
	}

	n := len(codes[0])
	for l, lc := range codes {
		if len(lc) != n {
			return nil, errors.NewLengthMismatchError("NewMultiIndex", fmt.Sprintf("codes of level %d", l), n, len(lc))
		}
		if !levels[l].IsUnique() {
			return nil, errors.NewNotUniqueError("NewMultiIndex", fmt.Sprintf("level %d has duplicate labels", l))
		}
		size := int32(levels[l].Len())
		for _, c := range lc {
			if c < -1 || c >= size {
				return nil, errors.NewOutOfBoundsError("NewMultiIndex", int(c), int(size))
			}
		}
	}

	return &MultiIndex{
		levels:    slices.Clone(levels),
		codes:     codes,
		names:     slices.Clone(names),
		sortorder: -1,
	}, nil
}

// FromArrays factorizes each array into a sorted level and its codes
func FromArrays(arrays [][]label.Label, names []string) (*MultiIndex, error) {
	if len(arrays) == 0 {
		return nil, errors.NewInvalidInputError("FromArrays", "at least one array is required")
	}
	if names == nil {
		names = make([]string, len(arrays))
	}
	if len(names) != len(arrays) {
		return nil, errors.NewLengthMismatchError("FromArrays", "names", len(arrays), len(names))
	}

	n := len(arrays[0])
	levels := make([]*Index, len(arrays))
	codes := make([][]int32, len(arrays))
	for l, arr := range arrays {
		if len(arr) != n {
			return nil, errors.NewLengthMismatchError("FromArrays", fmt.Sprintf("array %d", l), n, len(arr))
		}
		c, uniques := algos.SortedFactorize(label.NormalizeAll(arr))
		levels[l] = newIndex(names[l], uniques)
		codes[l] = toInt32(c)
	}
	return NewMultiIndex(levels, codes, names)
}

// FromTuples builds a MultiIndex from equal-length tuple labels
func FromTuples(tuples []label.Label, names []string) (*MultiIndex, error) {
	if len(tuples) == 0 {
		if len(names) == 0 {
			return nil, errors.NewInvalidInputError("FromTuples", "cannot infer levels from zero tuples without names")
		}
		arrays := make([][]label.Label, len(names))
		return FromArrays(arrays, names)
	}

	first, ok := label.Normalize(tuples[0]).(label.Tuple)
	if !ok {
		return nil, errors.NewInvalidInputError("FromTuples", fmt.Sprintf("label %s is not a tuple", label.Format(tuples[0])))
	}
	k := len(first)
	arrays := make([][]label.Label, k)
	for l := range arrays {
		arrays[l] = make([]label.Label, len(tuples))
	}
	for i, raw := range tuples {
		t, ok := label.Normalize(raw).(label.Tuple)
		if !ok {
			return nil, errors.NewInvalidInputError("FromTuples", fmt.Sprintf("label %s is not a tuple", label.Format(raw)))
		}
		if len(t) != k {
			return nil, errors.NewLengthMismatchError("FromTuples", fmt.Sprintf("tuple %d", i), k, len(t))
		}
		for l, v := range t {
			arrays[l][i] = v
		}
	}
	return FromArrays(arrays, names)
}

func toInt32(codes []int) []int32 {
	out := make([]int32, len(codes))
	for i, c := range codes {
		out[i] = int32(c)
	}
	return out
}

// Len returns the number of tuples
func (mi *MultiIndex) Len() int {
	return len(mi.codes[0])
}

// NLevels returns the depth of the hierarchy
func (mi *MultiIndex) NLevels() int {
	return len(mi.levels)
}

// Level returns the label Index of level l
func (mi *MultiIndex) Level(l int) *Index {
	return mi.levels[l]
}

// Levels returns every level Index
func (mi *MultiIndex) Levels() []*Index {
	return slices.Clone(mi.levels)
}

// Codes returns the code vector of level l. The slice must not be modified.
func (mi *MultiIndex) Codes(l int) []int32 {
	return mi.codes[l]
}

// Names returns the level names
func (mi *MultiIndex) Names() []string {
	return slices.Clone(mi.names)
}

// Sortorder returns the known lexicographic sort depth, -1 when unknown
func (mi *MultiIndex) Sortorder() int {
	return mi.sortorder
}

// Levshape returns the size of every level
func (mi *MultiIndex) Levshape() []int {
	out := make([]int, len(mi.levels))
	for l, lvl := range mi.levels {
		out[l] = lvl.Len()
	}
	return out
}

// SetNames returns a copy with new level names
func (mi *MultiIndex) SetNames(names []string) (*MultiIndex, error) {
	out, err := NewMultiIndex(mi.levels, mi.codes, names)
	if err != nil {
		return nil, err
	}
	out.sortorder = mi.sortorder
	return out, nil
}

func (mi *MultiIndex) levelLabel(l, i int) label.Label {
	c := mi.codes[l][i]
	if c < 0 {
		return nil
	}
	return mi.levels[l].labels[c]
}

// Tuple materializes the label at position i
func (mi *MultiIndex) Tuple(i int) label.Tuple {
	t := make(label.Tuple, len(mi.levels))
	for l := range mi.levels {
		t[l] = mi.levelLabel(l, i)
	}
	return t
}

// Label returns the tuple at position i
func (mi *MultiIndex) Label(i int) label.Label {
	return mi.Tuple(i)
}

// Flat returns the tuple view as a flat Index, built once on demand
func (mi *MultiIndex) Flat() *Index {
	mi.flatOnce.Do(func() {
		tuples := make([]label.Label, mi.Len())
		for i := range tuples {
			tuples[i] = mi.Tuple(i)
		}
		mi.flat = newIndex("", tuples)
	})
	return mi.flat
}

// Labels returns the tuple labels. The slice must not be modified.
func (mi *MultiIndex) Labels() []label.Label {
	return mi.Flat().Labels()
}

// Dtype is always Object for a hierarchical axis
func (mi *MultiIndex) Dtype() dtype.Dtype {
	return dtype.Object
}

// IsUnique reports whether every tuple occurs once
func (mi *MultiIndex) IsUnique() bool {
	return mi.Flat().IsUnique()
}

// IsMonotonic reports whether the tuples are lexicographically non-decreasing
func (mi *MultiIndex) IsMonotonic() bool {
	return mi.lexsortDepth() == len(mi.levels) || mi.Flat().IsMonotonic()
}

// lexsortDepth returns how many leading levels the tuples are sorted by
func (mi *MultiIndex) lexsortDepth() int {
	mi.depthOnce.Do(func() {
		if mi.sortorder >= 0 {
			mi.depth = mi.sortorder + 1
			return
		}
		n := mi.Len()
		for k := 1; k <= len(mi.levels); k++ {
			if !mi.levels[k-1].IsMonotonic() {
				return
			}
			for i := 1; i < n; i++ {
				if mi.compareRows(i-1, i, k) > 0 {
					return
				}
			}
			mi.depth = k
		}
	})
	return mi.depth
}

// compareRows compares rows a and b on the codes of the first k levels
func (mi *MultiIndex) compareRows(a, b, k int) int {
	for l := 0; l < k; l++ {
		ca, cb := mi.codes[l][a], mi.codes[l][b]
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return 0
}

// comparePrefix compares row i against a key prefix by label
func (mi *MultiIndex) comparePrefix(i int, key label.Tuple) int {
	for l, k := range key {
		if c := label.Compare(mi.levelLabel(l, i), k); c != 0 {
			return c
		}
	}
	return 0
}

func asTuple(key label.Label) label.Tuple {
	switch k := label.Normalize(key).(type) {
	case label.Tuple:
		return k
	default:
		return label.Tuple{k}
	}
}

// Contains reports whether a full or partial key matches any tuple
func (mi *MultiIndex) Contains(key label.Label) bool {
	_, err := mi.GetLoc(key)
	return err == nil
}

// GetLoc locates a full tuple key or a leading partial key. A unique full
// match yields a position; a match within the sorted prefix yields a
// range; anything else yields a bitmask.
func (mi *MultiIndex) GetLoc(key label.Label) (Loc, error) {
	tuple := asTuple(key)
	if len(tuple) > len(mi.levels) {
		return Loc{}, errors.NewInvalidInputError("GetLoc",
			fmt.Sprintf("key of length %d is deeper than %d levels", len(tuple), len(mi.levels)))
	}

	keyCodes := make([]int32, len(tuple))
	for l, v := range tuple {
		loc, err := mi.levels[l].GetLoc(v)
		if err != nil {
			return Loc{}, errors.NewNotFoundError("GetLoc", tuple.String())
		}
		keyCodes[l] = int32(loc.Pos)
	}

	matches := func(i int) int {
		for l, kc := range keyCodes {
			if c := mi.codes[l][i]; c != kc {
				if c < kc {
					return -1
				}
				return 1
			}
		}
		return 0
	}

	n := mi.Len()
	var loc Loc
	if mi.lexsortDepth() >= len(keyCodes) {
		lo := sort.Search(n, func(i int) bool { return matches(i) >= 0 })
		hi := sort.Search(n, func(i int) bool { return matches(i) > 0 })
		loc = RangeLoc(lo, hi)
	} else {
		var positions []int
		for i := 0; i < n; i++ {
			if matches(i) == 0 {
				positions = append(positions, i)
			}
		}
		loc = MaskLoc(positions)
	}

	switch {
	case loc.Len() == 0:
		return Loc{}, errors.NewNotFoundError("GetLoc", tuple.String())
	case loc.Len() == 1 && len(keyCodes) == len(mi.levels):
		return PositionLoc(loc.Positions()[0]), nil
	default:
		return loc, nil
	}
}

// GetLocLevel locates key within a single level and returns the match with
// the axis of matching rows, that level dropped.
func (mi *MultiIndex) GetLocLevel(key label.Label, level int) (Loc, Axis, error) {
	if err := validation.ValidateIndex(level, len(mi.levels), "GetLocLevel"); err != nil {
		return Loc{}, nil, err
	}
	codeLoc, err := mi.levels[level].GetLoc(key)
	if err != nil {
		return Loc{}, nil, err
	}
	code := int32(codeLoc.Pos)

	n := mi.Len()
	var loc Loc
	if level == 0 && mi.lexsortDepth() >= 1 {
		lo := sort.Search(n, func(i int) bool { return mi.codes[0][i] >= code })
		hi := sort.Search(n, func(i int) bool { return mi.codes[0][i] > code })
		loc = RangeLoc(lo, hi)
	} else {
		var positions []int
		for i, c := range mi.codes[level] {
			if c == code {
				positions = append(positions, i)
			}
		}
		loc = MaskLoc(positions)
	}
	if loc.Len() == 0 {
		return Loc{}, nil, errors.NewNotFoundError("GetLocLevel", label.Format(key))
	}

	rows, err := mi.Take(loc.Positions())
	if err != nil {
		return Loc{}, nil, err
	}
	if len(mi.levels) == 1 {
		return loc, rows, nil
	}
	rest, err := rows.DropLevel(level)
	if err != nil {
		return Loc{}, nil, err
	}
	return loc, rest, nil
}

// SliceLocs returns the positional range covering keys in [start, end].
// Partial keys are padded with -inf (start) and +inf (end); the tuples must
// be sorted at least as deep as the longer key.
func (mi *MultiIndex) SliceLocs(start, end label.Label) (int, int, error) {
	var startKey, endKey label.Tuple
	if start != nil {
		startKey = mi.coerceKey(asTuple(start), true)
	}
	if end != nil {
		endKey = mi.coerceKey(asTuple(end), false)
	}
	if mi.lexsortDepth() < max(len(startKey), len(endKey)) {
		return 0, 0, errors.NewNonMonotonicError("SliceLocs")
	}

	n := mi.Len()
	lo, hi := 0, n
	if startKey != nil {
		lo = sort.Search(n, func(i int) bool { return mi.comparePrefix(i, startKey) >= 0 })
	}
	if endKey != nil {
		hi = sort.Search(n, func(i int) bool { return mi.comparePrefix(i, endKey) > 0 })
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi, nil
}

// coerceKey widens partial timestamp strings on timestamp levels
func (mi *MultiIndex) coerceKey(key label.Tuple, start bool) label.Tuple {
	out := make(label.Tuple, len(key))
	for l, v := range key {
		out[l] = v
		if l >= len(mi.levels) {
			continue
		}
		if s, e, err := mi.levels[l].coerceBound(v); err == nil {
			if start {
				out[l] = s
			} else {
				out[l] = e
			}
		}
	}
	return out
}

// Truncate keeps the tuples whose first-level label lies in [before, after].
// A nil bound is open. Level 0 is narrowed to the kept labels.
func (mi *MultiIndex) Truncate(before, after label.Label) (*MultiIndex, error) {
	if before != nil && after != nil && label.Compare(label.Normalize(after), label.Normalize(before)) < 0 {
		return nil, errors.NewInvalidInputError("Truncate", "after < before")
	}
	if mi.lexsortDepth() < 1 {
		return nil, errors.NewNonMonotonicError("Truncate")
	}

	level0 := mi.levels[0]
	loCode, hiCode := 0, level0.Len()
	if before != nil {
		s, _, err := level0.coerceBound(before)
		if err != nil {
			return nil, err
		}
		loCode = level0.lowerBound(s)
	}
	if after != nil {
		_, e, err := level0.coerceBound(after)
		if err != nil {
			return nil, err
		}
		hiCode = level0.upperBound(e)
	}
	hiCode = max(hiCode, loCode)

	n := mi.Len()
	lo := sort.Search(n, func(i int) bool { return mi.codes[0][i] >= int32(loCode) })
	hi := sort.Search(n, func(i int) bool { return mi.codes[0][i] >= int32(hiCode) })

	codes := make([][]int32, len(mi.codes))
	codes[0] = make([]int32, hi-lo)
	for i, c := range mi.codes[0][lo:hi] {
		codes[0][i] = c - int32(loCode)
	}
	for l := 1; l < len(mi.codes); l++ {
		codes[l] = slices.Clone(mi.codes[l][lo:hi])
	}
	levels := slices.Clone(mi.levels)
	levels[0] = level0.Slice(loCode, hiCode)

	out, err := NewMultiIndex(levels, codes, mi.names)
	if err != nil {
		return nil, err
	}
	out.sortorder = mi.sortorder
	return out, nil
}

// DropLevel removes one level. Dropping from two levels yields a flat Index.
func (mi *MultiIndex) DropLevel(level int) (Axis, error) {
	if len(mi.levels) == 1 {
		return nil, errors.NewInvalidInputError("DropLevel", "cannot drop the only level")
	}
	if err := validation.ValidateIndex(level, len(mi.levels), "DropLevel"); err != nil {
		return nil, err
	}

	if len(mi.levels) == 2 {
		keep := 1 - level
		labels := make([]label.Label, mi.Len())
		for i := range labels {
			labels[i] = mi.levelLabel(keep, i)
		}
		return newIndex(mi.names[keep], labels), nil
	}

	levels := slices.Delete(slices.Clone(mi.levels), level, level+1)
	codes := slices.Delete(slices.Clone(mi.codes), level, level+1)
	names := slices.Delete(slices.Clone(mi.names), level, level+1)
	out, err := NewMultiIndex(levels, codes, names)
	if err != nil {
		return nil, err
	}
	if level > 0 && mi.sortorder >= 0 {
		out.sortorder = min(mi.sortorder, level-1)
	}
	return out, nil
}

// Take gathers tuples by position; -1 produces an all-missing tuple
func (mi *MultiIndex) Take(positions []int) (*MultiIndex, error) {
	n := mi.Len()
	codes := make([][]int32, len(mi.codes))
	for l := range codes {
		codes[l] = make([]int32, len(positions))
	}
	for i, p := range positions {
		if p < -1 || p >= n {
			return nil, errors.NewOutOfBoundsError("Take", p, n)
		}
		for l := range codes {
			if p == -1 {
				codes[l][i] = -1
			} else {
				codes[l][i] = mi.codes[l][p]
			}
		}
	}
	return &MultiIndex{levels: mi.levels, codes: codes, names: mi.names, sortorder: -1}, nil
}

// Slice returns the positional sub-axis [lo, hi)
func (mi *MultiIndex) Slice(lo, hi int) *MultiIndex {
	codes := make([][]int32, len(mi.codes))
	for l, lc := range mi.codes {
		codes[l] = slices.Clone(lc[lo:hi])
	}
	return &MultiIndex{levels: mi.levels, codes: codes, names: mi.names, sortorder: mi.sortorder}
}

// Equals compares tuples elementwise; names are ignored
func (mi *MultiIndex) Equals(other Axis) bool {
	if other == nil || other.Len() != mi.Len() {
		return false
	}
	for i := 0; i < mi.Len(); i++ {
		if !label.Equal(mi.Tuple(i), other.Label(i)) {
			return false
		}
	}
	return true
}

// Sortlevel sorts the tuples by the given level first and the remaining
// levels in order after it. It returns the sorted axis and the permutation
// to apply to aligned payloads.
func (mi *MultiIndex) Sortlevel(level int) (*MultiIndex, []int, error) {
	if err := validation.ValidateIndex(level, len(mi.levels), "Sortlevel"); err != nil {
		return nil, nil, err
	}
	sorted := mi.withSortedLevels()

	keys := make([][]int, 0, len(mi.levels))
	keys = append(keys, int32sToInts(sorted.codes[level]))
	for l := range sorted.codes {
		if l != level {
			keys = append(keys, int32sToInts(sorted.codes[l]))
		}
	}
	perm := algos.Lexsort(keys)

	out, err := sorted.Take(perm)
	if err != nil {
		return nil, nil, err
	}
	if level == 0 {
		out.sortorder = len(mi.levels) - 1
	}
	return out, perm, nil
}

// withSortedLevels re-encodes the codes against sorted levels
func (mi *MultiIndex) withSortedLevels() *MultiIndex {
	levels := slices.Clone(mi.levels)
	codes := slices.Clone(mi.codes)
	for l, lvl := range mi.levels {
		if lvl.IsMonotonic() {
			continue
		}
		sortedLevel, perm := lvl.SortValues()
		remap := make([]int32, len(perm))
		for newCode, oldCode := range perm {
			remap[oldCode] = int32(newCode)
		}
		recoded := make([]int32, len(mi.codes[l]))
		for i, c := range mi.codes[l] {
			if c < 0 {
				recoded[i] = -1
			} else {
				recoded[i] = remap[c]
			}
		}
		levels[l] = sortedLevel
		codes[l] = recoded
	}
	return &MultiIndex{levels: levels, codes: codes, names: mi.names, sortorder: -1}
}

func int32sToInts(codes []int32) []int {
	out := make([]int, len(codes))
	for i, c := range codes {
		out[i] = int(c)
	}
	return out
}
