package dtype

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsMissing(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		dt       Dtype
		expected bool
	}{
		{"float NaN", math.NaN(), F64, true},
		{"float value", 1.5, F64, false},
		{"timestamp NaT", NaT, Timestamp, true},
		{"timestamp value", Time(0), Timestamp, false},
		{"int never missing", int64(0), I64, false},
		{"bool never missing", false, Bool, false},
		{"object nil", nil, Object, true},
		{"object NaN", math.NaN(), Object, true},
		{"object NaT", NaT, Object, true},
		{"object string", "x", Object, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsMissing(tt.value, tt.dt))
			assert.Equal(t, !tt.expected, NotNull(tt.value, tt.dt))
		})
	}
}

func TestMissingMasks(t *testing.T) {
	assert.Equal(t, []bool{false, true}, IsMissingFloats([]float64{1, math.NaN()}))
	assert.Equal(t, []bool{true, false}, IsMissingTimes([]Time{NaT, 5}))
	assert.Equal(t, []bool{false, true, true}, IsMissingObjects([]any{"a", nil, math.NaN()}))
}

func TestPromote(t *testing.T) {
	assert.Equal(t, I64, Promote(Bool, I64))
	assert.Equal(t, F64, Promote(I64, F64))
	assert.Equal(t, Object, Promote(F64, Object))
	assert.Equal(t, Timestamp, Promote(Timestamp, Timestamp))
	assert.Equal(t, Object, Promote(Timestamp, F64))
	assert.Equal(t, F64, Promote(F64, Bool))
}

func TestUpcastForMissing(t *testing.T) {
	assert.Equal(t, F64, I64.UpcastForMissing())
	assert.Equal(t, Object, Bool.UpcastForMissing())
	assert.Equal(t, F64, F64.UpcastForMissing())
	assert.Equal(t, Timestamp, Timestamp.UpcastForMissing())
	assert.True(t, F64.CanHoldMissing())
	assert.False(t, I64.CanHoldMissing())
}

func TestInterleave(t *testing.T) {
	assert.Equal(t, F64, Interleave(F64, F64))
	assert.Equal(t, F64, Interleave())
	assert.Equal(t, Object, Interleave(F64, I64))
}

func TestTimeConversion(t *testing.T) {
	ts := time.Date(2000, 1, 2, 3, 4, 5, 6, time.UTC)
	v := FromTime(ts)
	assert.Equal(t, ts, v.Time())
	assert.Equal(t, "NaT", NaT.String())
	assert.True(t, NaT.IsNaT())
	assert.Equal(t, "2000-01-02T03:04:05.000000006Z", v.String())
}
