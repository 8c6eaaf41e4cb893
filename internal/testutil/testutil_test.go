package testutil_test

import (
	"testing"

	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMemoryTest(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	require.NotNil(t, mem.Allocator)
	buf := mem.Allocator.Allocate(64)
	mem.Allocator.Free(buf)
}

func TestCreateTestManager(t *testing.T) {
	t.Run("default configuration", func(t *testing.T) {
		m := testutil.CreateTestManager(t)

		assert.Equal(t, 4, m.Len())
		testutil.AssertManagerHasColumns(t, m, "name", "age", "department", "salary")
		dt, err := m.Dtype("age")
		require.NoError(t, err)
		assert.Equal(t, dtype.I64, dt)
		// object, int64
		assert.Equal(t, 2, m.NBlocks())
	})

	t.Run("with missing ages", func(t *testing.T) {
		m := testutil.CreateTestManager(t, testutil.WithMissing(), testutil.WithRowCount(6))

		assert.Equal(t, 6, m.Len())
		ages := testutil.Floats(t, m, "age")
		assert.True(t, ages[2] != ages[2])
		assert.InDelta(t, 25.0, ages[0], 0)
	})

	t.Run("with active column", func(t *testing.T) {
		m := testutil.CreateTestManager(t, testutil.WithActiveColumn())
		testutil.AssertManagerHasColumns(t, m, "name", "age", "department", "salary", "active")
	})
}

func TestAssertManagerEqual(t *testing.T) {
	a := testutil.CreateTestManager(t)
	b := testutil.CreateTestManager(t)
	testutil.AssertManagerEqual(t, a, b)

	snap := testutil.TakeSnapshot(a)
	assert.Equal(t, []string{"name", "age", "department", "salary"}, snap.Columns)
	assert.Equal(t, []string{"0", "1", "2", "3"}, snap.Rows)
	assert.Equal(t, "Alice", snap.Cells[0][0])
}

func TestAssertErrorKind(t *testing.T) {
	m := testutil.CreateTestManager(t)
	_, err := m.Column("missing")
	testutil.AssertErrorKind(t, err, errors.KindNotFound)
}
