package dtype

import "math"

// IsMissing reports whether x is missing under dtype d.
// F64 tests NaN, Timestamp tests NaT, I64 and Bool are never missing, and
// Object treats nil, float NaN and NaT as missing.
func IsMissing(x any, d Dtype) bool {
	switch d {
	case F64:
		f, ok := x.(float64)
		return ok && f != f
	case Timestamp:
		t, ok := x.(Time)
		return ok && t == NaT
	case I64, Bool:
		return false
	default:
		return isMissingObject(x)
	}
}

func isMissingObject(x any) bool {
	switch v := x.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(v)
	case float32:
		return v != v
	case Time:
		return v == NaT
	default:
		return false
	}
}

// NotNull is the negation of IsMissing
func NotNull(x any, d Dtype) bool {
	return !IsMissing(x, d)
}

// IsMissingFloats returns the missing mask of a float buffer
func IsMissingFloats(values []float64) []bool {
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = v != v
	}
	return out
}

// IsMissingTimes returns the missing mask of a timestamp buffer
func IsMissingTimes(values []Time) []bool {
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = v == NaT
	}
	return out
}

// IsMissingObjects returns the missing mask of an object buffer
func IsMissingObjects(values []any) []bool {
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = isMissingObject(v)
	}
	return out
}
