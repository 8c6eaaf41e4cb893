// Package algos implements the integer-code machinery shared by indexes,
// joins and groupings: factorization, composite keys, join indexers and
// group sorting.
package algos

import (
	"github.com/google/btree"
	"github.com/paveg/blockframe/internal/label"
)

// Factorizer assigns dense integer codes to distinct labels in order of first
// appearance. One Factorizer can factorize several sequences so that equal
// values receive equal codes across them. Missing labels get code -1.
type Factorizer struct {
	table *label.Table
}

// NewFactorizer creates a Factorizer sized for about sizeHint distinct values
func NewFactorizer(sizeHint int) *Factorizer {
	return &Factorizer{table: label.NewTable(sizeHint)}
}

// Factorize returns the code of every value, extending the code space with
// values not seen before.
func (f *Factorizer) Factorize(values []label.Label) []int {
	codes := make([]int, len(values))
	for i, v := range values {
		if label.IsMissing(v) {
			codes[i] = -1
			continue
		}
		codes[i], _ = f.table.PutIfAbsent(v, f.table.Len())
	}
	return codes
}

// Len returns the number of distinct values seen so far
func (f *Factorizer) Len() int {
	return f.table.Len()
}

// Uniques returns the distinct values ordered by code
func (f *Factorizer) Uniques() []label.Label {
	out := make([]label.Label, f.table.Len())
	copy(out, f.table.Keys())
	return out
}

// Factorize encodes values in first-appearance order
func Factorize(values []label.Label) ([]int, []label.Label) {
	f := NewFactorizer(len(values))
	codes := f.Factorize(values)
	return codes, f.Uniques()
}

// SortedFactorize encodes values so that codes follow the label order:
// uniques is sorted ascending and codes[i] is the rank of values[i].
func SortedFactorize(values []label.Label) ([]int, []label.Label) {
	tree := btree.NewG(32, label.Less)
	for _, v := range values {
		// first occurrence wins among labels that compare equal (1 and 1.0)
		if !label.IsMissing(v) && !tree.Has(v) {
			tree.ReplaceOrInsert(v)
		}
	}

	uniques := make([]label.Label, 0, tree.Len())
	ranks := label.NewTable(tree.Len())
	tree.Ascend(func(v label.Label) bool {
		ranks.PutIfAbsent(v, len(uniques))
		uniques = append(uniques, v)
		return true
	})

	codes := make([]int, len(values))
	for i, v := range values {
		if label.IsMissing(v) {
			codes[i] = -1
			continue
		}
		codes[i], _ = ranks.Get(v)
	}
	return codes, uniques
}
