package monitoring_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/paveg/blockframe/internal/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchmarkSuite(t *testing.T) {
	suite := monitoring.NewBenchmarkSuite()

	calls := 0
	suite.Add("sleep", 1000, func() error {
		calls++
		time.Sleep(time.Millisecond)
		return nil
	})
	suite.AddScenario(monitoring.BenchmarkScenario{
		Name:       "fails second time",
		Rows:       10,
		Iterations: 5,
		Operation: func() func() error {
			n := 0
			return func() error {
				n++
				if n == 2 {
					return errors.New("boom")
				}
				return nil
			}
		}(),
	})

	results := suite.Run()
	require.Len(t, results, 2)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, results[0].Iterations)
	assert.NoError(t, results[0].Err)
	assert.GreaterOrEqual(t, results[0].MinDuration, time.Millisecond)
	assert.LessOrEqual(t, results[0].MinDuration, results[0].AverageDuration)
	assert.LessOrEqual(t, results[0].AverageDuration, results[0].MaxDuration)
	assert.Positive(t, results[0].RowsPerSec)

	assert.Equal(t, 1, results[1].Iterations)
	require.Error(t, results[1].Err)
	assert.Contains(t, results[1].Err.Error(), "iteration 2: boom")

	var buf bytes.Buffer
	suite.Render(&buf)
	assert.Contains(t, buf.String(), "sleep")
	assert.Contains(t, buf.String(), "iteration 2: boom")

	suite.Clear()
	assert.Empty(t, suite.Run())
}
