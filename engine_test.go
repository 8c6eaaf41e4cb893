package blockframe_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/paveg/blockframe"
	"github.com/paveg/blockframe/internal/arrowio"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/logging"
	"github.com/paveg/blockframe/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, opts ...blockframe.EngineOption) *blockframe.Engine {
	t.Helper()
	cfg := blockframe.NewConfig()
	cfg.MetricsCollection = true
	e, err := blockframe.NewEngine(cfg, append([]blockframe.EngineOption{blockframe.WithLogger(logging.Discard())}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := blockframe.NewConfig()
	cfg.CompositeKeyThreshold = -1
	_, err := blockframe.NewEngine(cfg)
	assert.Error(t, err)

	cfg = blockframe.NewConfig()
	cfg.LeftSuffix, cfg.RightSuffix = "_dup", "_dup"
	_, err = blockframe.NewEngine(cfg)
	assert.Error(t, err)
}

func TestEngineArithAlignsLabels(t *testing.T) {
	e := newEngine(t)
	l, err := e.FromColumns(
		[]blockframe.Label{"a", "b"},
		[]blockframe.Column{blockframe.Int64Column([]int64{1, 2, 3}), blockframe.Int64Column([]int64{4, 5, 6})},
		blockframe.NewIndex("x", "y", "z"))
	require.NoError(t, err)
	r, err := e.FromColumns(
		[]blockframe.Label{"b", "c"},
		[]blockframe.Column{blockframe.Int64Column([]int64{10, 20}), blockframe.Int64Column([]int64{30, 40})},
		blockframe.NewIndex("y", "w"))
	require.NoError(t, err)

	out, err := e.Add(l, r)
	require.NoError(t, err)
	assert.Equal(t, []blockframe.Label{"a", "b", "c"}, out.Columns().Labels())
	assert.Equal(t, []blockframe.Label{"w", "x", "y", "z"}, out.Rows().Labels())

	b := testutil.Floats(t, out, "b")
	assert.Equal(t, 15.0, b[2])
	assert.True(t, math.IsNaN(b[1]))

	_, err = e.Arith("pow", l, r)
	testutil.AssertErrorKind(t, err, errors.KindInvalidInput)

	ql, qr, err := e.Align(l, r, blockframe.Inner)
	require.NoError(t, err)
	assert.Equal(t, []blockframe.Label{"b"}, ql.Columns().Labels())
	assert.Equal(t, []blockframe.Label{"y"}, qr.Rows().Labels())
}

func TestEngineJoinUsesConfiguredSuffixes(t *testing.T) {
	cfg := blockframe.NewConfig()
	cfg.LeftSuffix, cfg.RightSuffix = "_l", "_r"
	e, err := blockframe.NewEngine(cfg, blockframe.WithLogger(logging.Discard()))
	require.NoError(t, err)

	left := testutil.NewManager(t, nil,
		testutil.Col{Label: "id", Values: blockframe.Int64Column([]int64{1, 2})},
		testutil.Col{Label: "v", Values: blockframe.Int64Column([]int64{10, 20})},
	)
	right := testutil.NewManager(t, nil,
		testutil.Col{Label: "id", Values: blockframe.Int64Column([]int64{2, 3})},
		testutil.Col{Label: "v", Values: blockframe.Int64Column([]int64{200, 300})},
	)

	joined, err := e.Join(left, right, blockframe.JoinOptions{How: blockframe.Outer, LeftOn: []blockframe.Label{"id"}})
	require.NoError(t, err)
	assert.Equal(t, []blockframe.Label{"id", "v_l", "v_r"}, joined.Columns().Labels())
	assert.Equal(t, 3, joined.Len())

	joined, err = e.Join(left, right, blockframe.JoinOptions{
		How:         blockframe.Inner,
		LeftOn:      []blockframe.Label{"id"},
		LeftSuffix:  "_a",
		RightSuffix: "_b",
	})
	require.NoError(t, err)
	assert.Equal(t, []blockframe.Label{"id", "v_a", "v_b"}, joined.Columns().Labels())
	assert.Equal(t, 1, joined.Len())

	_, err = e.Join(left, right, blockframe.JoinOptions{How: blockframe.Inner})
	testutil.AssertErrorKind(t, err, errors.KindInvalidInput)
}

func TestEngineGroupBy(t *testing.T) {
	e := newEngine(t)
	src := testutil.NewManager(t, nil,
		testutil.Col{Label: "k", Values: blockframe.ObjectColumn([]any{"x", "y", "x", "x", "y"})},
		testutil.Col{Label: "v", Values: blockframe.Int64Column([]int64{1, 2, 3, 4, 5})},
	)

	out, err := e.Aggregate(src, []blockframe.GroupKey{blockframe.ByColumn("k")}, "sum")
	require.NoError(t, err)
	assert.Equal(t, []blockframe.Label{"x", "y"}, out.Rows().Labels())
	v, err := out.Column("v")
	require.NoError(t, err)
	assert.Equal(t, []int64{8, 7}, v.Int64s())

	g, err := e.GroupBy(src, []blockframe.GroupKey{blockframe.ByColumn("k")}, blockframe.AxisRows)
	require.NoError(t, err)
	assert.Equal(t, 2, g.NGroups())

	_, err = e.GroupBy(src, []blockframe.GroupKey{blockframe.ByColumn("missing")}, blockframe.AxisRows)
	testutil.AssertErrorKind(t, err, errors.KindNotFound)
}

func TestEngineReindex(t *testing.T) {
	e := newEngine(t)
	m := testutil.NewManager(t, blockframe.NewIndex(1, 3, 5),
		testutil.Col{Label: "v", Values: blockframe.Int64Column([]int64{10, 30, 50})},
	)

	out, err := e.Reindex(m, blockframe.NewIndex(0, 2, 4, 6), blockframe.AxisRows, blockframe.Pad)
	require.NoError(t, err)
	v := testutil.Floats(t, out, "v")
	assert.True(t, math.IsNaN(v[0]))
	assert.Equal(t, []float64{10, 30, 50}, v[1:])
	assert.True(t, out.IsConsolidated())

	_, err = e.Reindex(m, blockframe.NewIndex(2), blockframe.AxisRows, blockframe.Exact)
	require.NoError(t, err)
}

func TestEngineSaveLoad(t *testing.T) {
	e := newEngine(t)
	m := testutil.CreateTestManager(t, testutil.WithMissing(), testutil.WithActiveColumn())

	var buf bytes.Buffer
	require.NoError(t, e.Save(&buf, m))
	loaded, err := e.Load(&buf)
	require.NoError(t, err)
	testutil.AssertManagerEqual(t, m, loaded)

	_, err = e.Load(strings.NewReader("nope"))
	testutil.AssertErrorKind(t, err, errors.KindCorruptImage)
}

func TestEngineArrowAndParquet(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	e := newEngine(t, blockframe.WithAllocator(mem.Allocator))
	m := testutil.CreateTestManager(t, testutil.WithRowCount(6))

	rec, err := e.ToArrow(m)
	require.NoError(t, err)
	back, err := e.FromArrow(rec)
	rec.Release()
	require.NoError(t, err)
	testutil.AssertManagerEqual(t, m, back)

	var buf bytes.Buffer
	require.NoError(t, e.WriteParquet(&buf, m, arrowio.DefaultParquetOptions()))
	read, err := e.ReadParquet(context.Background(), &buf)
	require.NoError(t, err)
	testutil.AssertManagerEqual(t, m, read)
}

func TestEngineRecordsMetrics(t *testing.T) {
	e := newEngine(t)
	m := testutil.CreateTestManager(t)

	_, err := e.Take(m, []int{0, 1}, blockframe.AxisRows)
	require.NoError(t, err)
	_, err = e.Take(m, []int{99}, blockframe.AxisRows)
	require.Error(t, err)

	metrics := e.Metrics().GetMetrics()
	require.Len(t, metrics, 2)
	assert.Equal(t, "Take", metrics[0].Operation)
	assert.Equal(t, int64(2), metrics[0].RowsProcessed)
	assert.False(t, metrics[0].Failed)
	assert.True(t, metrics[1].Failed)

	summary := e.Metrics().GetSummary()
	assert.Equal(t, 2, summary.TotalOperations)
	assert.Equal(t, 1, summary.Failures)

	quiet, err := blockframe.NewEngine(blockframe.NewConfig(), blockframe.WithLogger(logging.Discard()))
	require.NoError(t, err)
	_, err = quiet.Take(m, []int{0}, blockframe.AxisRows)
	require.NoError(t, err)
	assert.Empty(t, quiet.Metrics().GetMetrics())
}

func TestEngineLogsOperations(t *testing.T) {
	cfg := blockframe.NewConfig()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"

	var out bytes.Buffer
	log, err := logging.NewWithOutput(cfg, &out)
	require.NoError(t, err)
	e, err := blockframe.NewEngine(cfg, blockframe.WithLogger(log))
	require.NoError(t, err)

	m := testutil.CreateTestManager(t)
	_, err = e.Take(m, []int{0, 2, 3}, blockframe.AxisRows)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry))
	assert.Equal(t, "Take", entry["op"])
	assert.Equal(t, float64(3), entry["rows"])
	assert.Equal(t, float64(4), entry["columns"])
	assert.Equal(t, "debug", entry["level"])
}
