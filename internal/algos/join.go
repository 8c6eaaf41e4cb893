package algos

import (
	"fmt"
	"strings"

	"github.com/paveg/blockframe/internal/errors"
)

// How selects which rows a keyed join keeps
type How int

const (
	Inner How = iota
	Left
	Right
	Outer
)

// String returns the string representation of the join type
func (h How) String() string {
	switch h {
	case Inner:
		return "inner"
	case Left:
		return "left"
	case Right:
		return "right"
	case Outer:
		return "outer"
	default:
		return fmt.Sprintf("how(%d)", int(h))
	}
}

// ParseHow maps "inner", "left", "right" and "outer" to a How
func ParseHow(s string) (How, error) {
	switch strings.ToLower(s) {
	case "inner":
		return Inner, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "outer":
		return Outer, nil
	default:
		return Inner, errors.NewInvalidInputError("ParseHow", fmt.Sprintf("unknown join type %q", s))
	}
}

// JoinIndexers matches two key vectors and returns paired row indexers.
// Keys are dense non-negative codes shared by both sides; -1 never matches.
// Inner and left output follows left order then right order within a left
// row. Right is the mirror image. Outer is the left join followed by
// unmatched right rows in right order.
func JoinIndexers(left, right []int, how How) ([]int, []int) {
	switch how {
	case Right:
		r, l := JoinIndexers(right, left, Left)
		return l, r
	case Inner, Left, Outer:
	default:
		return nil, nil
	}

	byKey := positionsByKey(right)

	lidx := make([]int, 0, len(left))
	ridx := make([]int, 0, len(left))
	var matchedRight []bool
	if how == Outer {
		matchedRight = make([]bool, len(right))
	}

	for i, k := range left {
		var matches []int
		if k >= 0 && k < len(byKey) {
			matches = byKey[k]
		}
		if len(matches) == 0 {
			if how != Inner {
				lidx = append(lidx, i)
				ridx = append(ridx, -1)
			}
			continue
		}
		for _, j := range matches {
			lidx = append(lidx, i)
			ridx = append(ridx, j)
			if matchedRight != nil {
				matchedRight[j] = true
			}
		}
	}

	if how == Outer {
		for j, seen := range matchedRight {
			if !seen {
				lidx = append(lidx, -1)
				ridx = append(ridx, j)
			}
		}
	}
	return lidx, ridx
}

func positionsByKey(keys []int) [][]int {
	maxKey := -1
	for _, k := range keys {
		maxKey = max(maxKey, k)
	}
	out := make([][]int, maxKey+1)
	for j, k := range keys {
		if k >= 0 {
			out[k] = append(out[k], j)
		}
	}
	return out
}
