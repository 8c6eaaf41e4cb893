// Package testutil provides common testing utilities shared by the manager,
// alignment, groupby and persistence tests.
//
// It covers:
// - Arrow allocator setup and leak checking
// - Standard test manager creation
// - Structural manager assertions with readable diffs
// - Error kind assertions
package testutil

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/d4l3k/messagediff"
	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// defaultRowCount is the default number of rows in test managers.
	defaultRowCount = 4
)

// TestMemoryContext provides an Arrow allocator that fails the test on leaks.
type TestMemoryContext struct {
	Allocator *memory.CheckedAllocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a checked allocator. Releasing the context asserts
// that every Arrow buffer allocated through it was freed.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	allocator := memory.NewCheckedAllocator(memory.NewGoAllocator())

	return &TestMemoryContext{
		Allocator: allocator,
		cleanup: func() {
			allocator.AssertSize(tb, 0)
		},
	}
}

// Col pairs a column label with its values
type Col struct {
	Label  label.Label
	Values column.Column
}

// NewManager builds a manager from columns on the given row axis; a nil
// axis means positional rows.
func NewManager(tb testing.TB, rows index.Axis, cols ...Col) *manager.Manager {
	tb.Helper()
	labels := make([]label.Label, len(cols))
	values := make([]column.Column, len(cols))
	for i, c := range cols {
		labels[i] = c.Label
		values[i] = c.Values
	}
	m, err := manager.FromColumns(labels, values, rows)
	require.NoError(tb, err)
	return m
}

// TestManagerOption configures test manager creation.
type TestManagerOption func(*testManagerConfig)

type testManagerConfig struct {
	includeMissing bool
	rowCount       int
	withActive     bool
}

// WithMissing makes every third age missing, which turns the age column into float64.
func WithMissing() TestManagerOption {
	return func(cfg *testManagerConfig) {
		cfg.includeMissing = true
	}
}

// WithRowCount sets the number of rows in test data.
func WithRowCount(count int) TestManagerOption {
	return func(cfg *testManagerConfig) {
		cfg.rowCount = count
	}
}

// WithActiveColumn includes an 'active' boolean column.
func WithActiveColumn() TestManagerOption {
	return func(cfg *testManagerConfig) {
		cfg.withActive = true
	}
}

// CreateTestManager creates a standard test manager with employee data on
// positional rows.
//
// Default manager includes:
// - name (object): ["Alice", "Bob", "Charlie", "David"]
// - age (int64): [25, 30, 35, 28]
// - department (object): ["Engineering", "Sales", "Engineering", "Marketing"]
// - salary (int64): [100000, 80000, 120000, 75000]
func CreateTestManager(tb testing.TB, opts ...TestManagerOption) *manager.Manager {
	tb.Helper()
	cfg := &testManagerConfig{rowCount: defaultRowCount}
	for _, opt := range opts {
		opt(cfg)
	}

	var age column.Column
	if cfg.includeMissing {
		ages := generateAges(cfg.rowCount)
		floats := make([]float64, len(ages))
		for i, a := range ages {
			floats[i] = float64(a)
			if i%3 == 2 {
				floats[i] = math.NaN()
			}
		}
		age = column.NewFloat64(floats)
	} else {
		age = column.NewInt64(generateAges(cfg.rowCount))
	}

	cols := []Col{
		{"name", column.NewObject(objects(generateNames(cfg.rowCount)))},
		{"age", age},
		{"department", column.NewObject(objects(generateDepartments(cfg.rowCount)))},
		{"salary", column.NewInt64(generateSalaries(cfg.rowCount))},
	}
	if cfg.withActive {
		cols = append(cols, Col{"active", column.NewBool(generateActiveFlags(cfg.rowCount))})
	}
	return NewManager(tb, nil, cols...)
}

// Snapshot is a display-level view of a manager used for diffs. Cells are
// formatted so that missing values compare equal.
type Snapshot struct {
	Columns []string
	Rows    []string
	Dtypes  []string
	Cells   [][]string
}

// TakeSnapshot formats a manager in column-axis order
func TakeSnapshot(m *manager.Manager) Snapshot {
	var s Snapshot
	for _, l := range m.Rows().Labels() {
		s.Rows = append(s.Rows, label.Format(l))
	}
	for _, it := range m.Items() {
		s.Columns = append(s.Columns, label.Format(it.Label))
		s.Dtypes = append(s.Dtypes, it.Dtype.String())
		cells := make([]string, it.Column.Len())
		for i := range cells {
			cells[i] = it.Column.String(i)
		}
		s.Cells = append(s.Cells, cells)
	}
	return s
}

// AssertManagerEqual compares axes, dtypes and formatted cells and prints a
// structural diff on mismatch. Block layout is ignored.
func AssertManagerEqual(tb testing.TB, expected, actual *manager.Manager) {
	tb.Helper()

	require.NotNil(tb, expected, "expected manager should not be nil")
	require.NotNil(tb, actual, "actual manager should not be nil")

	if diff, equal := messagediff.PrettyDiff(TakeSnapshot(expected), TakeSnapshot(actual)); !equal {
		tb.Errorf("managers differ:\n%s", diff)
	}
}

// AssertManagerHasColumns verifies that a manager has the expected columns.
func AssertManagerHasColumns(tb testing.TB, m *manager.Manager, expectedColumns ...label.Label) {
	tb.Helper()

	require.NotNil(tb, m, "manager should not be nil")
	assert.Equal(tb, len(expectedColumns), m.Width(), "column count should match")
	for _, col := range expectedColumns {
		assert.True(tb, m.HasColumn(col), "manager should have column %v", col)
	}
}

// AssertErrorKind verifies that err is a FrameError of the given kind.
func AssertErrorKind(tb testing.TB, err error, kind errors.Kind) {
	tb.Helper()

	require.Error(tb, err)
	var fe *errors.FrameError
	require.True(tb, stderrors.As(err, &fe), "expected a FrameError, got %T: %v", err, err)
	assert.Equal(tb, kind, fe.Kind, "unexpected error kind: %v", err)
}

// Floats extracts a float column for comparisons with assert.InDeltaSlice
func Floats(tb testing.TB, m *manager.Manager, col label.Label) []float64 {
	tb.Helper()
	c, err := m.Column(col)
	require.NoError(tb, err)
	f, err := c.AsFloat64()
	require.NoError(tb, err)
	return f
}

// Helper functions for generating test data

func objects(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func generateNames(count int) []string {
	baseNames := []string{"Alice", "Bob", "Charlie", "David", "Eve", "Frank", "Grace", "Henry"}
	names := make([]string, count)
	for i := range count {
		names[i] = baseNames[i%len(baseNames)]
	}
	return names
}

func generateAges(count int) []int64 {
	baseAges := []int64{25, 30, 35, 28, 32, 45, 29, 38}
	ages := make([]int64, count)
	for i := range count {
		ages[i] = baseAges[i%len(baseAges)]
	}
	return ages
}

func generateDepartments(count int) []string {
	baseDepts := []string{"Engineering", "Sales", "Engineering", "Marketing", "HR", "Finance", "Engineering", "Sales"}
	departments := make([]string, count)
	for i := range count {
		departments[i] = baseDepts[i%len(baseDepts)]
	}
	return departments
}

func generateSalaries(count int) []int64 {
	baseSalaries := []int64{100000, 80000, 120000, 75000, 90000, 110000, 95000, 85000}
	salaries := make([]int64, count)
	for i := range count {
		salaries[i] = baseSalaries[i%len(baseSalaries)]
	}
	return salaries
}

func generateActiveFlags(count int) []bool {
	baseFlags := []bool{true, true, false, true, true, false, true, false}
	flags := make([]bool, count)
	for i := range count {
		flags[i] = baseFlags[i%len(baseFlags)]
	}
	return flags
}
