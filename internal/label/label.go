// Package label models the values that name rows and columns: integers,
// floats, strings, booleans, timestamps and tuples of those. Labels carry a
// total order across kinds and a stable hash so indexes can look them up in
// constant time.
package label

import (
	"cmp"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/paveg/blockframe/internal/dtype"
)

// Label is any hashable, totally ordered value. Constructors normalize Go
// values with Normalize so that only nil, int64, float64, string, bool,
// dtype.Time and Tuple reach the engine.
type Label = any

// Tuple is a composite label, used by hierarchical axes
type Tuple []Label

// String formats the tuple as "(a, b, ...)"
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = Format(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// kind ordering across label types: missing < bool < number < time < string < tuple < other
const (
	kindMissing = iota
	kindBool
	kindNumber
	kindTime
	kindString
	kindTuple
	kindOther
)

func kindOf(l Label) int {
	switch v := l.(type) {
	case nil:
		return kindMissing
	case bool:
		return kindBool
	case int64:
		return kindNumber
	case float64:
		if math.IsNaN(v) {
			return kindMissing
		}
		return kindNumber
	case dtype.Time:
		if v == dtype.NaT {
			return kindMissing
		}
		return kindTime
	case string:
		return kindString
	case Tuple:
		return kindTuple
	default:
		return kindOther
	}
}

// Normalize converts common Go values to their canonical label form
func Normalize(v any) Label {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case float32:
		return float64(x)
	case time.Time:
		return dtype.FromTime(x)
	case []any:
		t := make(Tuple, len(x))
		for i, e := range x {
			t[i] = Normalize(e)
		}
		return t
	case Tuple:
		t := make(Tuple, len(x))
		for i, e := range x {
			t[i] = Normalize(e)
		}
		return t
	default:
		return v
	}
}

// NormalizeAll normalizes every element of values into a new slice
func NormalizeAll[T any](values []T) []Label {
	out := make([]Label, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	return out
}

// IsMissing reports whether l denotes a missing label
func IsMissing(l Label) bool {
	return kindOf(l) == kindMissing
}

// Compare orders two labels. It returns -1, 0 or +1.
// Labels of different kinds order by kind; integers and floats compare numerically.
func Compare(a, b Label) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return cmp.Compare(ka, kb)
	}

	switch ka {
	case kindMissing:
		return 0
	case kindBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case kindNumber:
		return compareNumbers(a, b)
	case kindTime:
		return cmp.Compare(a.(dtype.Time), b.(dtype.Time))
	case kindString:
		return strings.Compare(a.(string), b.(string))
	case kindTuple:
		return compareTuples(a.(Tuple), b.(Tuple))
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func compareNumbers(a, b Label) int {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	switch {
	case aInt && bInt:
		return cmp.Compare(ai, bi)
	case aInt:
		return compareIntFloat(ai, toFloat(b))
	case bInt:
		return -compareIntFloat(bi, toFloat(a))
	}
	return cmp.Compare(toFloat(a), toFloat(b))
}

// compareIntFloat orders i against f without rounding i through float64.
// NaN sorts below every number.
func compareIntFloat(i int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return 1
	case f >= 1<<63:
		return -1
	case f < -(1 << 63):
		return 1
	}
	t := math.Trunc(f)
	if c := cmp.Compare(i, int64(t)); c != 0 {
		return c
	}
	return cmp.Compare(t, f)
}

func toFloat(l Label) float64 {
	switch v := l.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return math.NaN()
}

func compareTuples(a, b Tuple) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// Equal reports whether two labels compare equal
func Equal(a, b Label) bool {
	return Compare(a, b) == 0
}

// Less reports whether a orders before b
func Less(a, b Label) bool {
	return Compare(a, b) < 0
}

// Format renders a label for messages and debug output
func Format(l Label) string {
	switch v := l.(type) {
	case nil:
		return "NaN"
	case Tuple:
		return v.String()
	case dtype.Time:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// DtypeOf infers the element type tag of a label sequence
func DtypeOf(labels []Label) dtype.Dtype {
	if len(labels) == 0 {
		return dtype.Object
	}

	allInt, allNum, allBool, allTime := true, true, true, true
	for _, l := range labels {
		switch l.(type) {
		case int64:
			allBool, allTime = false, false
		case float64:
			allInt, allBool, allTime = false, false, false
		case bool:
			allInt, allNum, allTime = false, false, false
		case dtype.Time:
			allInt, allNum, allBool = false, false, false
		default:
			return dtype.Object
		}
	}

	switch {
	case allInt:
		return dtype.I64
	case allNum:
		return dtype.F64
	case allBool:
		return dtype.Bool
	case allTime:
		return dtype.Timestamp
	default:
		return dtype.Object
	}
}
