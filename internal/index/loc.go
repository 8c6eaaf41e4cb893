package index

import "github.com/RoaringBitmap/roaring"

// LocKind tells which field of a Loc is meaningful
type LocKind int

const (
	LocPosition LocKind = iota
	LocRange
	LocMask
)

// Loc is the result of a label lookup: a single position, a half-open
// range [Lo, Hi) or a bitmask of positions.
type Loc struct {
	Kind LocKind
	Pos  int
	Lo   int
	Hi   int
	Mask *roaring.Bitmap
}

// PositionLoc wraps a single position
func PositionLoc(pos int) Loc {
	return Loc{Kind: LocPosition, Pos: pos, Lo: pos, Hi: pos + 1}
}

// RangeLoc wraps the half-open range [lo, hi)
func RangeLoc(lo, hi int) Loc {
	return Loc{Kind: LocRange, Lo: lo, Hi: hi}
}

// MaskLoc wraps an explicit position set
func MaskLoc(positions []int) Loc {
	bm := roaring.New()
	for _, p := range positions {
		bm.Add(uint32(p))
	}
	return Loc{Kind: LocMask, Mask: bm}
}

// Len returns the number of matched positions
func (l Loc) Len() int {
	switch l.Kind {
	case LocMask:
		return int(l.Mask.GetCardinality())
	default:
		return l.Hi - l.Lo
	}
}

// Positions expands the match into ascending positions
func (l Loc) Positions() []int {
	switch l.Kind {
	case LocMask:
		out := make([]int, 0, l.Mask.GetCardinality())
		it := l.Mask.Iterator()
		for it.HasNext() {
			out = append(out, int(it.Next()))
		}
		return out
	default:
		out := make([]int, 0, l.Hi-l.Lo)
		for i := l.Lo; i < l.Hi; i++ {
			out = append(out, i)
		}
		return out
	}
}
