package algos

import (
	"fmt"
	"math"
	"slices"

	"github.com/paveg/blockframe/internal/errors"
)

// DefaultCompressThreshold bounds the composite key space before codes are
// re-factorized.
const DefaultCompressThreshold int64 = 1_000_000

// CompositeKey combines per-level codes into one key per row:
// key = Σ code_i · Π_{j>i} size_j. A -1 code in any level yields -1.
// It fails with Overflow when the key space exceeds the int64 range.
func CompositeKey(codes [][]int, sizes []int) ([]int64, error) {
	if len(codes) != len(sizes) {
		return nil, errors.NewLengthMismatchError("CompositeKey", "levels", len(sizes), len(codes))
	}
	if len(codes) == 0 {
		return nil, nil
	}

	n := len(codes[0])
	strides := make([]int64, len(sizes))
	stride := int64(1)
	for i := len(sizes) - 1; i >= 0; i-- {
		strides[i] = stride
		size := int64(max(sizes[i], 1))
		if stride > math.MaxInt64/size {
			return nil, errors.NewOverflowError("CompositeKey",
				fmt.Sprintf("key space of %d levels exceeds int64", len(sizes)))
		}
		stride *= size
	}

	keys := make([]int64, n)
	for level, lc := range codes {
		if len(lc) != n {
			return nil, errors.NewLengthMismatchError("CompositeKey", "codes", n, len(lc))
		}
		for i, c := range lc {
			if c < 0 || keys[i] < 0 {
				keys[i] = -1
				continue
			}
			keys[i] += int64(c) * strides[level]
		}
	}
	return keys, nil
}

// CompressSorted re-codes keys densely while preserving their order.
// It returns the new codes (-1 preserved) and the number of distinct keys.
func CompressSorted(keys []int64) ([]int, int) {
	distinct := make([]int64, 0, len(keys))
	for _, k := range keys {
		if k >= 0 {
			distinct = append(distinct, k)
		}
	}
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	codes := make([]int, len(keys))
	for i, k := range keys {
		if k < 0 {
			codes[i] = -1
			continue
		}
		codes[i], _ = slices.BinarySearch(distinct, k)
	}
	return codes, len(distinct)
}

// GroupIndex combines several code vectors into one dense, order-preserving
// group code per row. Levels are folded left to right; whenever the running
// key space would exceed threshold it is compressed first.
func GroupIndex(codes [][]int, sizes []int, threshold int64) ([]int, int, error) {
	if len(codes) != len(sizes) {
		return nil, 0, errors.NewLengthMismatchError("GroupIndex", "levels", len(sizes), len(codes))
	}
	if len(codes) == 0 {
		return nil, 0, nil
	}
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}

	n := len(codes[0])
	acc := make([]int64, n)
	for i, c := range codes[0] {
		acc[i] = int64(c)
	}
	space := int64(max(sizes[0], 1))

	for level := 1; level < len(codes); level++ {
		lc := codes[level]
		if len(lc) != n {
			return nil, 0, errors.NewLengthMismatchError("GroupIndex", "codes", n, len(lc))
		}
		size := int64(max(sizes[level], 1))
		if space > threshold/size {
			var compressed []int
			var distinct int
			compressed, distinct = CompressSorted(acc)
			for i, c := range compressed {
				acc[i] = int64(c)
			}
			space = int64(max(distinct, 1))
		}
		if space > math.MaxInt64/size {
			return nil, 0, errors.NewOverflowError("GroupIndex",
				fmt.Sprintf("key space %d x %d exceeds int64", space, size))
		}
		for i, c := range lc {
			if acc[i] < 0 || c < 0 {
				acc[i] = -1
				continue
			}
			acc[i] = acc[i]*size + int64(c)
		}
		space *= size
	}

	out, ngroups := CompressSorted(acc)
	return out, ngroups, nil
}
