package algos

import (
	"cmp"
	"slices"
)

// GroupSort orders rows by group code with a counting sort. Rows with code
// -1 are left out. counts[k] is the size of group k, and the rows of group k
// occupy order[sum(counts[:k]) : sum(counts[:k+1])] in original order.
func GroupSort(codes []int, ngroups int) ([]int, []int) {
	counts := make([]int, ngroups)
	for _, c := range codes {
		if c >= 0 && c < ngroups {
			counts[c]++
		}
	}

	starts := make([]int, ngroups)
	total := 0
	for k, c := range counts {
		starts[k] = total
		total += c
	}

	order := make([]int, total)
	for i, c := range codes {
		if c >= 0 && c < ngroups {
			order[starts[c]] = i
			starts[c]++
		}
	}
	return order, counts
}

// Lexsort returns the stable permutation sorting rows by keys[0], then
// keys[1], and so on.
func Lexsort(keys [][]int) []int {
	if len(keys) == 0 {
		return nil
	}
	perm := make([]int, len(keys[0]))
	for i := range perm {
		perm[i] = i
	}
	slices.SortStableFunc(perm, func(a, b int) int {
		for _, k := range keys {
			if c := cmp.Compare(k[a], k[b]); c != 0 {
				return c
			}
		}
		return 0
	})
	return perm
}
