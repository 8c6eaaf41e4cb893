package manager_test

import (
	"math"
	"math/rand"
	"slices"
	"strings"
	"testing"
	"testing/quick"

	"github.com/paveg/blockframe/internal/algos"
	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/manager"
	"github.com/paveg/blockframe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strs(values ...string) []label.Label {
	out := make([]label.Label, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func objects(values ...any) column.Column {
	return column.NewObject(values)
}

// twoFloatBlocks is {a:[1,2]} and {b:[3,4]} on rows [r,s] in separate blocks
func twoFloatBlocks(t *testing.T) *manager.Manager {
	t.Helper()
	a, err := manager.NewBlock(index.FromStrings("a"), column.NewFloat64([]float64{1, 2}), 2)
	require.NoError(t, err)
	b, err := manager.NewBlock(index.FromStrings("b"), column.NewFloat64([]float64{3, 4}), 2)
	require.NoError(t, err)
	m, err := manager.New(index.FromStrings("a", "b"), index.FromStrings("r", "s"), []*manager.Block{a, b})
	require.NoError(t, err)
	return m
}

func TestConsolidate(t *testing.T) {
	m := twoFloatBlocks(t)
	assert.False(t, m.IsConsolidated())
	assert.Equal(t, 2, m.NBlocks())

	c := m.Consolidate()
	require.True(t, c.IsConsolidated())
	require.Equal(t, 1, c.NBlocks())
	blk := c.Blocks()[0]
	assert.Equal(t, dtype.F64, blk.Dtype())
	assert.Equal(t, strs("a", "b"), blk.Items().Labels())
	assert.Same(t, c.Columns(), blk.RefItems())

	mx, err := c.AsMatrix()
	require.NoError(t, err)
	assert.Equal(t, dtype.F64, mx.Dtype())
	assert.Equal(t, []any{1.0, 3.0, 2.0, 4.0}, mx.RowMajor())

	dense, err := mx.Dense()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, dense.At(0, 1), 0)
	assert.InDelta(t, 2.0, dense.At(1, 0), 0)

	// the source keeps its layout
	assert.Equal(t, 2, m.NBlocks())
}

func TestNewValidation(t *testing.T) {
	blk := func(items []string, values []float64, rows int) *manager.Block {
		b, err := manager.NewBlock(index.FromStrings(items...), column.NewFloat64(values), rows)
		require.NoError(t, err)
		return b
	}

	tests := []struct {
		name    string
		columns *index.Index
		rows    index.Axis
		blocks  []*manager.Block
		kind    errors.Kind
	}{
		{
			name:    "row count mismatch",
			columns: index.FromStrings("a"),
			rows:    index.Range(3),
			blocks:  []*manager.Block{blk([]string{"a"}, []float64{1, 2}, 2)},
			kind:    errors.KindLengthMismatch,
		},
		{
			name:    "unknown item",
			columns: index.FromStrings("a"),
			rows:    index.Range(1),
			blocks:  []*manager.Block{blk([]string{"z"}, []float64{1}, 1)},
			kind:    errors.KindNotFound,
		},
		{
			name:    "item in two blocks",
			columns: index.FromStrings("a", "b"),
			rows:    index.Range(1),
			blocks:  []*manager.Block{blk([]string{"a"}, []float64{1}, 1), blk([]string{"a"}, []float64{2}, 1)},
			kind:    errors.KindNotUnique,
		},
		{
			name:    "uncovered column",
			columns: index.FromStrings("a", "b"),
			rows:    index.Range(1),
			blocks:  []*manager.Block{blk([]string{"a"}, []float64{1}, 1)},
			kind:    errors.KindLengthMismatch,
		},
		{
			name:    "duplicate columns",
			columns: index.FromStrings("a", "a"),
			rows:    index.Range(1),
			blocks:  nil,
			kind:    errors.KindNotUnique,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.New(tt.columns, tt.rows, tt.blocks)
			testutil.AssertErrorKind(t, err, tt.kind)
		})
	}
}

func TestFromColumnsGroupsByDtype(t *testing.T) {
	m := testutil.NewManager(t, index.FromStrings("x", "y"),
		testutil.Col{Label: "f1", Values: column.NewFloat64([]float64{1, 2})},
		testutil.Col{Label: "i1", Values: column.NewInt64([]int64{1, 2})},
		testutil.Col{Label: "f2", Values: column.NewFloat64([]float64{3, 4})},
		testutil.Col{Label: "o1", Values: objects("p", nil)},
	)

	require.Equal(t, 3, m.NBlocks())
	blocks := m.Blocks()
	assert.Equal(t, dtype.F64, blocks[0].Dtype())
	assert.Equal(t, strs("f1", "f2"), blocks[0].Items().Labels())
	assert.Equal(t, dtype.I64, blocks[1].Dtype())
	assert.Equal(t, dtype.Object, blocks[2].Dtype())
	assert.True(t, m.IsConsolidated())

	items := m.Items()
	require.Len(t, items, 4)
	assert.Equal(t, "f2", items[2].Label)
	assert.Equal(t, dtype.F64, items[2].Dtype)
	assert.Equal(t, []any{3.0, 4.0}, items[2].Column.Values())

	_, err := manager.FromColumns(strs("a"), []column.Column{column.NewInt64([]int64{1})}, index.Range(2))
	testutil.AssertErrorKind(t, err, errors.KindLengthMismatch)
}

func TestFromMapSortsLabels(t *testing.T) {
	m, err := manager.FromMap(map[string]column.Column{
		"b": column.NewInt64([]int64{1}),
		"a": column.NewInt64([]int64{2}),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, strs("a", "b"), m.Columns().Labels())
	assert.Equal(t, 1, m.Len())
}

func TestSet(t *testing.T) {
	t.Run("same dtype writes in place", func(t *testing.T) {
		m := testutil.CreateTestManager(t)
		before := m.NBlocks()
		require.NoError(t, m.Set("age", column.NewInt64([]int64{1, 2, 3, 4})))
		assert.Equal(t, before, m.NBlocks())
		col, err := m.Column("age")
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3, 4}, col.Int64s())
	})

	t.Run("dtype change keeps axis position", func(t *testing.T) {
		m := testutil.CreateTestManager(t)
		require.NoError(t, m.Set("age", column.NewFloat64([]float64{1.5, 2, 3, 4})))
		assert.Equal(t, strs("name", "age", "department", "salary"), m.Columns().Labels())
		dt, err := m.Dtype("age")
		require.NoError(t, err)
		assert.Equal(t, dtype.F64, dt)
		assert.Equal(t, 3, m.NBlocks())
	})

	t.Run("unknown column is appended", func(t *testing.T) {
		m := testutil.CreateTestManager(t)
		require.NoError(t, m.Set("bonus", column.NewBool([]bool{true, false, true, false})))
		assert.Equal(t, "bonus", m.Columns().Label(4))
	})

	t.Run("failed set leaves the manager unchanged", func(t *testing.T) {
		m := testutil.CreateTestManager(t)
		snapshot := m.Copy()
		err := m.Set("age", column.NewInt64([]int64{1}))
		testutil.AssertErrorKind(t, err, errors.KindLengthMismatch)
		testutil.AssertManagerEqual(t, snapshot, m)
	})
}

func TestInsertDelete(t *testing.T) {
	m := testutil.CreateTestManager(t)

	err := m.Insert(0, "age", column.NewInt64([]int64{1, 2, 3, 4}))
	testutil.AssertErrorKind(t, err, errors.KindNotUnique)

	require.NoError(t, m.Insert(1, "score", column.NewFloat64([]float64{1, 2, 3, 4})))
	assert.Equal(t, strs("name", "score", "age", "department", "salary"), m.Columns().Labels())
	assert.Equal(t, 3, m.NBlocks())

	require.NoError(t, m.Delete("score"))
	assert.Equal(t, 2, m.NBlocks(), "empty block is dropped")
	require.NoError(t, m.Delete("name"))
	assert.Equal(t, strs("age", "department", "salary"), m.Columns().Labels())

	testutil.AssertErrorKind(t, m.Delete("name"), errors.KindNotFound)

	err = m.Insert(9, "late", column.NewInt64([]int64{1}))
	testutil.AssertErrorKind(t, err, errors.KindOutOfBounds)
	err = m.Insert(3, "short", column.NewInt64([]int64{1}))
	testutil.AssertErrorKind(t, err, errors.KindLengthMismatch)
	require.NoError(t, m.Insert(3, "last", column.NewInt64([]int64{1, 2, 3, 4})))
	assert.Equal(t, strs("age", "department", "salary", "last"), m.Columns().Labels())
}

func TestReindexRowsUpcasts(t *testing.T) {
	m := testutil.NewManager(t, index.FromStrings("x", "y"),
		testutil.Col{Label: "i", Values: column.NewInt64([]int64{1, 2})},
		testutil.Col{Label: "b", Values: column.NewBool([]bool{true, false})},
		testutil.Col{Label: "o", Values: objects("p", "q")},
	)

	out, err := m.ReindexAxis(index.FromStrings("y", "z", "x"), manager.AxisRows)
	require.NoError(t, err)

	i, err := out.Column("i")
	require.NoError(t, err)
	assert.Equal(t, dtype.F64, i.Dtype())
	assert.InDelta(t, 2.0, i.Float64s()[0], 0)
	assert.True(t, math.IsNaN(i.Float64s()[1]))
	assert.InDelta(t, 1.0, i.Float64s()[2], 0)

	b, err := out.Column("b")
	require.NoError(t, err)
	assert.Equal(t, dtype.Object, b.Dtype())
	assert.Equal(t, []any{false, nil, true}, b.Values())

	o, err := out.Column("o")
	require.NoError(t, err)
	assert.Equal(t, []any{"q", nil, "p"}, o.Values())

	// no missing rows, no upcast
	same, err := m.ReindexAxis(index.FromStrings("y", "x"), manager.AxisRows)
	require.NoError(t, err)
	dt, err := same.Dtype("i")
	require.NoError(t, err)
	assert.Equal(t, dtype.I64, dt)
}

func TestReindexRowsPad(t *testing.T) {
	m := testutil.NewManager(t, index.FromInts(1, 3, 5),
		testutil.Col{Label: "v", Values: column.NewInt64([]int64{10, 30, 50})},
	)

	out, err := m.ReindexAxis(index.FromInts(0, 2, 4, 6), manager.AxisRows, manager.WithMethod(index.Pad))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0), int64(2), int64(4), int64(6)}, out.Rows().Labels())
	v := testutil.Floats(t, out, "v")
	assert.True(t, math.IsNaN(v[0]))
	assert.Equal(t, []float64{10, 30, 50}, v[1:])

	_, err = testutil.NewManager(t, index.FromInts(3, 1),
		testutil.Col{Label: "v", Values: column.NewInt64([]int64{1, 2})},
	).ReindexAxis(index.FromInts(2), manager.AxisRows, manager.WithMethod(index.Pad))
	testutil.AssertErrorKind(t, err, errors.KindNonMonotonic)
}

func TestReindexColumns(t *testing.T) {
	m := testutil.NewManager(t, nil,
		testutil.Col{Label: "a", Values: column.NewInt64([]int64{1, 2})},
		testutil.Col{Label: "b", Values: column.NewFloat64([]float64{3, 4})},
	)

	out, err := m.ReindexAxis(index.FromStrings("b", "new", "a"), manager.AxisColumns)
	require.NoError(t, err)
	assert.Equal(t, strs("b", "new", "a"), out.Columns().Labels())

	dt, err := out.Dtype("new")
	require.NoError(t, err)
	assert.Equal(t, dtype.Object, dt, "interleaved dtype of int64 and float64 blocks")
	col, err := out.Column("new")
	require.NoError(t, err)
	assert.Equal(t, []any{nil, nil}, col.Values())

	dt, err = out.Dtype("a")
	require.NoError(t, err)
	assert.Equal(t, dtype.I64, dt)

	dropped, err := m.ReindexAxis(index.FromStrings("b"), manager.AxisColumns)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped.NBlocks(), "blocks left without items are dropped")

	consolidated, err := m.ReindexAxis(index.FromStrings("a", "b", "c"), manager.AxisColumns,
		manager.WithConsolidate(true))
	require.NoError(t, err)
	assert.True(t, consolidated.IsConsolidated())
}

func TestBlockReindexItems(t *testing.T) {
	blk, err := manager.NewBlock(index.FromStrings("a", "b"), column.NewInt64([]int64{1, 2, 3, 4}), 2)
	require.NoError(t, err)

	tests := []struct {
		name    string
		indexer []int
		targets []label.Label
		items   []label.Label
		missing []bool
	}{
		{"two missing", []int{1, -1, -1}, strs("b", "x", "y"), strs("b", "x", "y"), []bool{false, true, true}},
		{"all missing", []int{-1, -1}, strs("x", "y"), strs("x", "y"), []bool{true, true}},
		{"no missing", []int{1, 0}, nil, strs("b", "a"), []bool{false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := make([]bool, len(tt.indexer))
			for i, pos := range tt.indexer {
				mask[i] = pos >= 0
			}
			out, err := blk.ReindexAxis(tt.indexer, mask, false, manager.AxisColumns, tt.targets)
			require.NoError(t, err)
			assert.Equal(t, tt.items, out.Items().Labels())
			assert.Equal(t, 2, out.Rows())
			for j, want := range tt.missing {
				col := out.Column(j)
				for i := range col.Len() {
					assert.Equal(t, want, col.IsMissing(i), "item %d row %d", j, i)
				}
			}
			if slices.Contains(tt.missing, true) {
				assert.Equal(t, dtype.F64, out.Dtype(), "int64 widens to hold missing")
			}
		})
	}

	_, err = blk.ReindexAxis([]int{-1, -1}, []bool{false, false}, false, manager.AxisColumns, nil)
	testutil.AssertErrorKind(t, err, errors.KindInvalidInput)
	_, err = blk.ReindexAxis([]int{0}, []bool{true}, false, manager.AxisColumns, strs("a", "b"))
	testutil.AssertErrorKind(t, err, errors.KindLengthMismatch)
}

func TestTakeAndSlices(t *testing.T) {
	m := testutil.CreateTestManager(t)

	taken, err := m.Take([]int{3, -1, 0}, manager.AxisRows)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3), nil, int64(0)}, taken.Rows().Labels())
	salary := testutil.Floats(t, taken, "salary")
	assert.InDelta(t, 75000.0, salary[0], 0)
	assert.True(t, math.IsNaN(salary[1]))

	_, err = m.Take([]int{4}, manager.AxisRows)
	testutil.AssertErrorKind(t, err, errors.KindOutOfBounds)

	cols, err := m.Take([]int{3, 0}, manager.AxisColumns)
	require.NoError(t, err)
	assert.Equal(t, strs("salary", "name"), cols.Columns().Labels())

	rows, err := m.GetSlice(1, 3, manager.AxisRows)
	require.NoError(t, err)
	assert.Equal(t, 2, rows.Len())
	name, err := rows.Column("name")
	require.NoError(t, err)
	assert.Equal(t, []any{"Bob", "Charlie"}, name.Values())

	middle, err := m.GetSlice(1, 3, manager.AxisColumns)
	require.NoError(t, err)
	assert.Equal(t, strs("age", "department"), middle.Columns().Labels())

	_, err = m.GetSlice(2, 9, manager.AxisRows)
	testutil.AssertErrorKind(t, err, errors.KindOutOfBounds)

	sel, err := m.Select("salary", "age")
	require.NoError(t, err)
	assert.Equal(t, strs("salary", "age"), sel.Columns().Labels())
	assert.Equal(t, 1, sel.NBlocks())

	_, err = m.Select("nope")
	testutil.AssertErrorKind(t, err, errors.KindNotFound)

	byLabel, err := m.SliceRows(int64(1), int64(2))
	require.NoError(t, err)
	assert.Equal(t, 2, byLabel.Len())
}

func TestGetSliceDoesNotAlias(t *testing.T) {
	m := twoFloatBlocks(t)
	s, err := m.GetSlice(0, 1, manager.AxisRows)
	require.NoError(t, err)
	require.NoError(t, s.Set("a", column.NewFloat64([]float64{99})))

	a, err := m.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, a.Float64s())
}

func TestMerge(t *testing.T) {
	left := testutil.NewManager(t, index.FromStrings("r", "s"),
		testutil.Col{Label: "k", Values: column.NewInt64([]int64{1, 2})},
		testutil.Col{Label: "v", Values: column.NewFloat64([]float64{1, 2})},
	)
	right := testutil.NewManager(t, index.FromStrings("r", "s"),
		testutil.Col{Label: "v", Values: column.NewFloat64([]float64{3, 4})},
		testutil.Col{Label: "w", Values: objects("p", "q")},
	)

	merged, err := left.Merge(right, "_l", "_r")
	require.NoError(t, err)
	assert.Equal(t, strs("k", "v_l", "v_r", "w"), merged.Columns().Labels())
	assert.Equal(t, []float64{3, 4}, testutil.Floats(t, merged, "v_r"))

	_, err = left.Merge(right, "", "")
	testutil.AssertErrorKind(t, err, errors.KindInvalidInput)

	other := testutil.NewManager(t, index.FromStrings("r", "t"),
		testutil.Col{Label: "z", Values: column.NewInt64([]int64{1, 2})},
	)
	_, err = left.Merge(other, "", "")
	testutil.AssertErrorKind(t, err, errors.KindInvalidInput)
}

func TestJoinOnInner(t *testing.T) {
	left := testutil.NewManager(t, nil,
		testutil.Col{Label: "key", Values: objects("a", "b", "a", "c")},
		testutil.Col{Label: "lv", Values: column.NewInt64([]int64{1, 2, 3, 4})},
	)
	right := testutil.NewManager(t, nil,
		testutil.Col{Label: "key", Values: objects("b", "a", "a")},
		testutil.Col{Label: "rv", Values: column.NewInt64([]int64{10, 20, 30})},
	)

	joined, lidx, ridx, err := left.JoinOn(right, manager.JoinOptions{
		How:     algos.Inner,
		LeftOn:  strs("key"),
		RightOn: strs("key"),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 2, 2}, lidx)
	assert.Equal(t, []int{1, 2, 0, 1, 2}, ridx)

	assert.Equal(t, strs("key", "lv", "rv"), joined.Columns().Labels())
	assert.True(t, joined.Rows().Equals(index.Range(5)))
	key, err := joined.Column("key")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "a", "b", "a", "a"}, key.Values())
	lv, err := joined.Column("lv")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 2, 3, 3}, lv.Int64s())
	rv, err := joined.Column("rv")
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 30, 10, 20, 30}, rv.Int64s())
}

func TestJoinOnOuterCoalescesKeys(t *testing.T) {
	left := testutil.NewManager(t, nil,
		testutil.Col{Label: "id", Values: column.NewInt64([]int64{1, 2})},
		testutil.Col{Label: "v", Values: column.NewInt64([]int64{10, 20})},
	)
	right := testutil.NewManager(t, nil,
		testutil.Col{Label: "id", Values: column.NewInt64([]int64{2, 3})},
		testutil.Col{Label: "v", Values: column.NewInt64([]int64{200, 300})},
	)

	joined, lidx, ridx, err := left.JoinOn(right, manager.JoinOptions{
		How:     algos.Outer,
		LeftOn:  strs("id"),
		RightOn: strs("id"),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, -1}, lidx)
	assert.Equal(t, []int{-1, 0, 1}, ridx)

	assert.Equal(t, strs("id", "v.x", "v.y"), joined.Columns().Labels())
	id, err := joined.Column("id")
	require.NoError(t, err)
	assert.Equal(t, dtype.I64, id.Dtype())
	assert.Equal(t, []int64{1, 2, 3}, id.Int64s())

	vx := testutil.Floats(t, joined, "v.x")
	assert.Equal(t, []float64{10, 20}, vx[:2])
	assert.True(t, math.IsNaN(vx[2]))
	vy := testutil.Floats(t, joined, "v.y")
	assert.True(t, math.IsNaN(vy[0]))
	assert.Equal(t, []float64{200, 300}, vy[1:])
}

func TestJoinOnErrors(t *testing.T) {
	m := testutil.CreateTestManager(t)

	_, _, _, err := m.JoinOn(m, manager.JoinOptions{How: algos.Inner})
	testutil.AssertErrorKind(t, err, errors.KindInvalidInput)

	_, _, _, err = m.JoinOn(m, manager.JoinOptions{How: algos.Inner, LeftOn: strs("name"), RightOn: strs("name", "age")})
	testutil.AssertErrorKind(t, err, errors.KindLengthMismatch)

	_, _, _, err = m.JoinOn(m, manager.JoinOptions{How: algos.Inner, LeftOn: strs("nope"), RightOn: strs("name")})
	testutil.AssertErrorKind(t, err, errors.KindNotFound)
}

func TestAsMatrix(t *testing.T) {
	m := testutil.CreateTestManager(t, testutil.WithRowCount(2))

	mx, err := m.AsMatrix()
	require.NoError(t, err)
	assert.Equal(t, dtype.Object, mx.Dtype())
	assert.Equal(t, 2, mx.Rows())
	assert.Equal(t, 4, mx.Cols())
	assert.Equal(t, "Bob", mx.At(1, 0))
	assert.Equal(t, int64(30), mx.At(1, 1))

	sub, err := m.AsMatrix("salary", "ghost")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(100000), nil, int64(80000), nil}, sub.RowMajor())

	_, err = sub.Dense()
	testutil.AssertErrorKind(t, err, errors.KindDtypeMismatch)

	_, err = m.AsMatrix("age", "age")
	testutil.AssertErrorKind(t, err, errors.KindNotUnique)
}

func TestRenameCopyEquals(t *testing.T) {
	m := testutil.CreateTestManager(t)

	renamed, err := m.RenameItems(func(l label.Label) label.Label {
		return strings.ToUpper(l.(string))
	})
	require.NoError(t, err)
	assert.Equal(t, strs("NAME", "AGE", "DEPARTMENT", "SALARY"), renamed.Columns().Labels())

	_, err = m.RenameItems(func(label.Label) label.Label { return "same" })
	testutil.AssertErrorKind(t, err, errors.KindNotUnique)

	cp := m.Copy()
	assert.True(t, cp.Equals(m))
	require.NoError(t, cp.Set("age", column.NewInt64([]int64{0, 0, 0, 0})))
	assert.False(t, cp.Equals(m))

	relabelled, err := m.WithRows(index.FromStrings("a", "b", "c", "d"))
	require.NoError(t, err)
	assert.False(t, relabelled.Equals(m))
}

func TestDescribe(t *testing.T) {
	out := twoFloatBlocks(t).Describe()
	assert.Contains(t, out, "2 rows x 2 columns, 2 blocks")
	assert.Contains(t, out, "float64")

	rendered := testutil.CreateTestManager(t).String()
	assert.Contains(t, rendered, "Alice")
	assert.Contains(t, rendered, "salary")
}

// randomManager builds a manager with one block per column so that
// consolidation has work to do
func randomManager(r *rand.Rand) (*manager.Manager, error) {
	nrows := r.Intn(6)
	ncols := 1 + r.Intn(5)
	dts := []dtype.Dtype{dtype.F64, dtype.I64, dtype.Bool, dtype.Object}

	labels := make([]label.Label, ncols)
	blocks := make([]*manager.Block, ncols)
	for j := range ncols {
		labels[j] = string(rune('a' + j))
		var col column.Column
		switch dts[r.Intn(len(dts))] {
		case dtype.F64:
			v := make([]float64, nrows)
			for i := range v {
				v[i] = float64(r.Intn(50))
				if r.Intn(4) == 0 {
					v[i] = math.NaN()
				}
			}
			col = column.NewFloat64(v)
		case dtype.I64:
			v := make([]int64, nrows)
			for i := range v {
				v[i] = r.Int63n(100)
			}
			col = column.NewInt64(v)
		case dtype.Bool:
			v := make([]bool, nrows)
			for i := range v {
				v[i] = r.Intn(2) == 0
			}
			col = column.NewBool(v)
		default:
			v := make([]any, nrows)
			for i := range v {
				if r.Intn(4) > 0 {
					v[i] = string(rune('p' + r.Intn(5)))
				}
			}
			col = column.NewObject(v)
		}
		blk, err := manager.NewBlock(index.New([]label.Label{labels[j]}), col, nrows)
		if err != nil {
			return nil, err
		}
		blocks[j] = blk
	}
	r.Shuffle(len(blocks), func(i, j int) { blocks[i], blocks[j] = blocks[j], blocks[i] })
	return manager.New(index.New(labels), index.Range(nrows), blocks)
}

func matricesEqual(a, b *manager.Matrix) bool {
	if a.Dtype() != b.Dtype() || a.Rows() != b.Rows() || !a.Columns().Equals(b.Columns()) {
		return false
	}
	for j := range a.Cols() {
		if !column.Equal(a.Column(j), b.Column(j)) {
			return false
		}
	}
	return true
}

func checkManagerProperty(t *testing.T, property func(m *manager.Manager) bool) {
	t.Helper()
	f := func(seed int64) bool {
		m, err := randomManager(rand.New(rand.NewSource(seed)))
		if err != nil {
			return false
		}
		return property(m)
	}
	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 60}))
}

func TestPartitionProperties(t *testing.T) {
	checkManagerProperty(t, func(m *manager.Manager) bool {
		var items []string
		for _, b := range m.Blocks() {
			if b.Rows() != m.Len() || b.Values().Len() != b.Len()*m.Len() {
				return false
			}
			for _, l := range b.Items().Labels() {
				items = append(items, label.Format(l))
			}
		}
		var cols []string
		for _, l := range m.Columns().Labels() {
			cols = append(cols, label.Format(l))
		}
		slices.Sort(items)
		slices.Sort(cols)
		return slices.Equal(items, cols)
	})
}

func TestMaterializationRoundTripProperty(t *testing.T) {
	checkManagerProperty(t, func(m *manager.Manager) bool {
		mx, err := m.AsMatrix()
		if err != nil || !mx.Columns().Equals(m.Columns()) {
			return false
		}
		for j, it := range m.Items() {
			for i := range m.Len() {
				src := it.Column.Value(i)
				if dtype.IsMissing(src, it.Dtype) {
					if !dtype.IsMissing(mx.At(i, j), mx.Dtype()) {
						return false
					}
					continue
				}
				if !label.Equal(src, mx.At(i, j)) {
					return false
				}
			}
		}
		return true
	})
}

func TestConsolidateIdempotentProperty(t *testing.T) {
	checkManagerProperty(t, func(m *manager.Manager) bool {
		once := m.Consolidate()
		twice := once.Consolidate()
		if !once.IsConsolidated() || once.NBlocks() != twice.NBlocks() {
			return false
		}
		for i, b := range once.Blocks() {
			other := twice.Blocks()[i]
			if b.Dtype() != other.Dtype() || !b.Items().Equals(other.Items()) {
				return false
			}
		}
		before, err := m.AsMatrix()
		if err != nil {
			return false
		}
		after, err := twice.AsMatrix()
		if err != nil {
			return false
		}
		return matricesEqual(before, after) && twice.Equals(m)
	})
}

func TestReindexIdentityProperty(t *testing.T) {
	checkManagerProperty(t, func(m *manager.Manager) bool {
		out, err := m.ReindexAxis(m.Columns(), manager.AxisColumns)
		return err == nil && out.Equals(m)
	})
}

func TestReindexTwiceProperty(t *testing.T) {
	checkManagerProperty(t, func(m *manager.Manager) bool {
		y := index.New(append(slices.Clone(m.Columns().Labels()), "y1"))
		x := index.New(append([]label.Label{"x1"}, y.Labels()...))

		viaX, err := m.ReindexAxis(x, manager.AxisColumns)
		if err != nil {
			return false
		}
		viaX, err = viaX.ReindexAxis(y, manager.AxisColumns)
		if err != nil {
			return false
		}
		direct, err := m.ReindexAxis(y, manager.AxisColumns)
		return err == nil && viaX.Equals(direct)
	})
}

func TestUpcastOnMissingProperty(t *testing.T) {
	checkManagerProperty(t, func(m *manager.Manager) bool {
		n := m.Len()
		target := []label.Label{int64(n)}
		for i := n - 1; i >= 0; i-- {
			target = append(target, int64(i))
		}
		out, err := m.ReindexAxis(index.New(target), manager.AxisRows)
		if err != nil {
			return false
		}
		for _, it := range m.Items() {
			got, err := out.Column(it.Label)
			if err != nil {
				return false
			}
			if got.Dtype() != it.Dtype.UpcastForMissing() || !got.IsMissing(0) {
				return false
			}
			for i := range n {
				src := it.Column.Value(n - 1 - i)
				if dtype.IsMissing(src, it.Dtype) {
					continue
				}
				if !label.Equal(src, got.Value(i+1)) {
					return false
				}
			}
		}
		return true
	})
}
