// Package dtype defines the element types a block can hold, the missing-value
// predicate shared by every component and the promotion lattice used when
// operands of different types meet.
package dtype

import (
	"fmt"
	"math"
	"time"
)

// Dtype tags the element type of a column or block
type Dtype uint8

// The numeric values double as the persisted dtype tags.
const (
	F64 Dtype = iota
	I64
	Bool
	Object
	Timestamp
)

// String returns the string representation of the Dtype
func (d Dtype) String() string {
	switch d {
	case F64:
		return "float64"
	case I64:
		return "int64"
	case Bool:
		return "bool"
	case Object:
		return "object"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// Valid reports whether d is one of the known tags
func (d Dtype) Valid() bool {
	return d <= Timestamp
}

// IsNumeric returns true for dtypes numeric kernels accept
func (d Dtype) IsNumeric() bool {
	return d == F64 || d == I64 || d == Bool
}

// CanHoldMissing reports whether the dtype has a missing sentinel
func (d Dtype) CanHoldMissing() bool {
	return d == F64 || d == Object || d == Timestamp
}

// UpcastForMissing returns the dtype a block must take before missing
// values are introduced into it. Bool goes to Object, I64 to F64.
func (d Dtype) UpcastForMissing() Dtype {
	switch d {
	case I64:
		return F64
	case Bool:
		return Object
	default:
		return d
	}
}

// rank positions d on the numeric promotion lattice Bool < I64 < F64 < Object
func (d Dtype) rank() int {
	switch d {
	case Bool:
		return 0
	case I64:
		return 1
	case F64:
		return 2
	default:
		return 3
	}
}

// Promote returns the narrowest dtype able to hold values of both a and b
func Promote(a, b Dtype) Dtype {
	if a == b {
		return a
	}
	if a == Timestamp || b == Timestamp {
		return Object
	}
	if a.rank() >= b.rank() {
		return a
	}
	return b
}

// Interleave returns the dtype used to materialize blocks of the given dtypes
// into one matrix: F64 when every block is floating, Object otherwise.
func Interleave(dtypes ...Dtype) Dtype {
	for _, d := range dtypes {
		if d != F64 {
			return Object
		}
	}
	return F64
}

// Time is a timestamp cell: a count of nanoseconds since the Unix epoch
type Time int64

// NaT is the reserved timestamp denoting a missing value
const NaT Time = math.MinInt64

// FromTime converts a time.Time to a Time
func FromTime(t time.Time) Time {
	return Time(t.UnixNano())
}

// IsNaT reports whether t is the missing sentinel
func (t Time) IsNaT() bool {
	return t == NaT
}

// Time converts back to a UTC time.Time. NaT maps to the zero time.
func (t Time) Time() time.Time {
	if t == NaT {
		return time.Time{}
	}
	return time.Unix(0, int64(t)).UTC()
}

// String formats the timestamp in RFC3339 with nanoseconds
func (t Time) String() string {
	if t == NaT {
		return "NaT"
	}
	return t.Time().Format(time.RFC3339Nano)
}

// NaN returns the float missing sentinel
func NaN() float64 {
	return math.NaN()
}
