package label

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/paveg/blockframe/internal/dtype"
)

// Hash returns a 64-bit hash of l consistent with Equal: labels that compare
// equal hash equal, including integral floats and their int64 counterparts.
func Hash(l Label) uint64 {
	d := xxhash.New()
	writeLabel(d, l)
	return d.Sum64()
}

func writeLabel(d *xxhash.Digest, l Label) {
	var buf [9]byte
	switch v := l.(type) {
	case nil:
		buf[0] = kindMissing
		_, _ = d.Write(buf[:1])
	case bool:
		buf[0] = kindBool
		if v {
			buf[1] = 1
		}
		_, _ = d.Write(buf[:2])
	case int64:
		buf[0] = kindNumber
		binary.LittleEndian.PutUint64(buf[1:], uint64(v))
		_, _ = d.Write(buf[:])
	case float64:
		if math.IsNaN(v) {
			buf[0] = kindMissing
			_, _ = d.Write(buf[:1])
			return
		}
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			writeLabel(d, int64(v))
			return
		}
		buf[0] = kindNumber
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	case dtype.Time:
		if v == dtype.NaT {
			buf[0] = kindMissing
			_, _ = d.Write(buf[:1])
			return
		}
		buf[0] = kindTime
		binary.LittleEndian.PutUint64(buf[1:], uint64(v))
		_, _ = d.Write(buf[:])
	case string:
		buf[0] = kindString
		_, _ = d.Write(buf[:1])
		_, _ = d.WriteString(v)
		// terminator keeps ("ab","c") and ("a","bc") apart inside tuples
		_, _ = d.Write([]byte{0xff})
	case Tuple:
		buf[0] = kindTuple
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(v)))
		_, _ = d.Write(buf[:])
		for _, e := range v {
			writeLabel(d, e)
		}
	default:
		buf[0] = kindOther
		_, _ = d.Write(buf[:1])
		_, _ = d.WriteString(fmt.Sprint(v))
	}
}
