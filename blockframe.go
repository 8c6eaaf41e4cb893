// Package blockframe is a labelled, column-oriented table engine. A table is
// a block manager: same-dtype columns are stored together in 2-D blocks and
// addressed through a column index and a row index, which may be
// hierarchical. On top of it sit label alignment for binary operations,
// keyed joins, split-apply-combine grouping, reindexing with fill policies
// and a checksummed binary image format.
//
// This package is the public API; Engine carries configuration, logging and
// metrics for the operations.
package blockframe

import (
	"github.com/paveg/blockframe/internal/algos"
	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/config"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/groupby"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/manager"
)

type (
	// Manager is a table of blocks addressed by a column and a row axis
	Manager = manager.Manager
	// Column is a homogeneous 1-D buffer of one dtype
	Column = column.Column
	// Label is an axis label or an object cell
	Label = label.Label
	// Tuple is a composite label of a hierarchical axis
	Tuple = label.Tuple
	// Axis is a flat or hierarchical index
	Axis = index.Axis
	// Index is a flat axis
	Index = index.Index
	// MultiIndex is a hierarchical axis
	MultiIndex = index.MultiIndex
	// Method is a reindex fill policy
	Method = index.Method
	// Dtype tags the element type of a column
	Dtype = dtype.Dtype
	// How selects the rows a join keeps
	How = algos.How
	// GroupKey selects the group key of every position
	GroupKey = groupby.Key
	// GroupBy is a manager split into groups
	GroupBy = groupby.GroupBy
	// Config is the engine configuration
	Config = config.Config
	// FrameError is the error type of every failing operation
	FrameError = errors.FrameError
)

// Element types
const (
	F64       = dtype.F64
	I64       = dtype.I64
	Bool      = dtype.Bool
	Object    = dtype.Object
	Timestamp = dtype.Timestamp
)

// Join policies
const (
	Inner = algos.Inner
	Left  = algos.Left
	Right = algos.Right
	Outer = algos.Outer
)

// Reindex fill policies
const (
	Exact    = index.Exact
	Pad      = index.Pad
	Backfill = index.Backfill
)

// Axes of a manager
const (
	AxisColumns = manager.AxisColumns
	AxisRows    = manager.AxisRows
)

// Group key specifiers
var (
	ByColumn = groupby.ByColumn
	ByFunc   = groupby.ByFunc
	ByLevel  = groupby.ByLevel
)

// ByKeys groups by an explicit key per position
func ByKeys[T any](values []T) GroupKey { return groupby.ByKeys(values) }

// ByMapping groups by looking each axis label up in m
func ByMapping[K comparable, V any](m map[K]V) GroupKey { return groupby.ByMapping(m) }

// NewIndex builds a flat axis from labels
func NewIndex(labels ...Label) *Index { return index.New(labels) }

// NewConfig returns the default configuration
func NewConfig() Config { return config.NewConfig() }
