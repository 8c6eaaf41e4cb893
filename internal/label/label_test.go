package label

import (
	"math"
	"testing"
	"testing/quick"
	"time"

	"github.com/paveg/blockframe/internal/dtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected Label
	}{
		{"int", 3, int64(3)},
		{"int32", int32(-4), int64(-4)},
		{"uint8", uint8(7), int64(7)},
		{"float32", float32(1.5), 1.5},
		{"string", "a", "a"},
		{"bool", true, true},
		{"nil", nil, nil},
		{"slice to tuple", []any{1, "b"}, Tuple{int64(1), "b"}},
		{"time", time.Unix(0, 10).UTC(), dtype.Time(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Label
		expected int
	}{
		{"ints", int64(1), int64(2), -1},
		{"int float equal", int64(2), 2.0, 0},
		{"float int", 2.5, int64(2), 1},
		{"negative fraction", int64(-2), -1.5, -1},
		{"int above float precision", int64(1<<53 + 1), float64(1 << 53), 1},
		{"int at float precision", int64(1 << 53), float64(1 << 53), 0},
		{"float beyond int range", int64(math.MaxInt64), float64(1 << 63), -1},
		{"float below int range", int64(math.MinInt64), -1e19, 1},
		{"strings", "b", "a", 1},
		{"bools", false, true, -1},
		{"missing first", nil, int64(-100), -1},
		{"nan is missing", math.NaN(), nil, 0},
		{"number before string", int64(5), "a", -1},
		{"times", dtype.Time(1), dtype.Time(2), -1},
		{"tuples lexicographic", Tuple{"a", int64(2)}, Tuple{"a", int64(1)}, 1},
		{"tuple prefix", Tuple{"a"}, Tuple{"a", int64(1)}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compare(tt.a, tt.b))
			assert.Equal(t, -tt.expected, Compare(tt.b, tt.a))
		})
	}
}

func TestHashConsistentWithEqual(t *testing.T) {
	assert.Equal(t, Hash(int64(4)), Hash(4.0))
	assert.Equal(t, Hash(nil), Hash(math.NaN()))
	assert.Equal(t, Hash(Tuple{"a", int64(1)}), Hash(Tuple{"a", 1.0}))
	assert.NotEqual(t, Hash(Tuple{"ab", "c"}), Hash(Tuple{"a", "bc"}))
	assert.NotEqual(t, Hash("1"), Hash(int64(1)))

	big := int64(1<<53 + 1)
	assert.NotEqual(t, 0, Compare(big, float64(big)))
	assert.Equal(t, Hash(int64(1<<53)), Hash(float64(1<<53)))
}

func TestCompareProperties(t *testing.T) {
	antisymmetric := func(a, b int64, s string) bool {
		return Compare(a, b) == -Compare(b, a) &&
			Compare(s, a) == 1 &&
			Compare(float64(a), a) == -Compare(a, float64(a))
	}
	require.NoError(t, quick.Check(antisymmetric, nil))

	exactlyRepresentable := func(a int64) bool {
		f := float64(a)
		return f < 1<<63 && int64(f) == a
	}
	equalIffExact := func(a int64) bool {
		return (Compare(a, float64(a)) == 0) == exactlyRepresentable(a)
	}
	require.NoError(t, quick.Check(equalIffExact, nil))

	hashEqual := func(a int64, shift uint8) bool {
		a >>= shift % 64
		if Compare(a, float64(a)) != 0 {
			return true
		}
		return Hash(a) == Hash(float64(a))
	}
	require.NoError(t, quick.Check(hashEqual, nil))
}

func TestTable(t *testing.T) {
	tbl := NewTable(0)

	for i := 0; i < 100; i++ {
		v, inserted := tbl.PutIfAbsent(int64(i), i)
		assert.True(t, inserted)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 100, tbl.Len())

	v, inserted := tbl.PutIfAbsent(5.0, 999)
	assert.False(t, inserted)
	assert.Equal(t, 5, v)

	got, ok := tbl.Get(int64(42))
	require.True(t, ok)
	assert.Equal(t, 42, got)

	_, ok = tbl.Get("42")
	assert.False(t, ok)

	keys := tbl.Keys()
	assert.Equal(t, int64(0), keys[0])
	assert.Equal(t, int64(99), keys[99])
}

func TestDtypeOf(t *testing.T) {
	assert.Equal(t, dtype.I64, DtypeOf([]Label{int64(1), int64(2)}))
	assert.Equal(t, dtype.F64, DtypeOf([]Label{int64(1), 2.5}))
	assert.Equal(t, dtype.Bool, DtypeOf([]Label{true}))
	assert.Equal(t, dtype.Timestamp, DtypeOf([]Label{dtype.Time(1), dtype.NaT}))
	assert.Equal(t, dtype.Object, DtypeOf([]Label{"a", int64(1)}))
	assert.Equal(t, dtype.Object, DtypeOf(nil))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "NaN", Format(nil))
	assert.Equal(t, "(a, 1)", Format(Tuple{"a", int64(1)}))
	assert.Equal(t, "NaT", Format(dtype.NaT))
}
