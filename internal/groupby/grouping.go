package groupby

import (
	"fmt"
	"slices"

	"github.com/paveg/blockframe/internal/algos"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/manager"
	"github.com/paveg/blockframe/internal/validation"
)

type keyKind int

const (
	keyColumn keyKind = iota
	keyValues
	keyFunc
	keyLevel
	keyMapping
)

// Key selects the key of every position along the grouped axis
type Key struct {
	kind    keyKind
	column  label.Label
	values  []label.Label
	fn      func(label.Label) label.Label
	level   int
	mapping *label.Table
	mapped  []label.Label
}

// ByColumn groups rows by the values of a column. The column is left out
// of aggregated output.
func ByColumn(col label.Label) Key {
	return Key{kind: keyColumn, column: label.Normalize(col)}
}

// ByKeys groups by an explicit key per position
func ByKeys[T any](values []T) Key {
	return Key{kind: keyValues, values: label.NormalizeAll(values)}
}

// ByFunc groups by fn applied to each axis label
func ByFunc(fn func(label.Label) label.Label) Key {
	return Key{kind: keyFunc, fn: fn}
}

// ByLevel groups by one level of a hierarchical axis. Level 0 of a flat
// axis is the axis itself.
func ByLevel(level int) Key {
	return Key{kind: keyLevel, level: level}
}

// ByMapping groups by looking each axis label up in m; unmapped labels
// get a missing key and fall out of every group.
func ByMapping[K comparable, V any](m map[K]V) Key {
	table := label.NewTable(len(m))
	mapped := make([]label.Label, 0, len(m))
	for k, v := range m {
		if _, inserted := table.PutIfAbsent(label.Normalize(k), len(mapped)); inserted {
			mapped = append(mapped, label.Normalize(v))
		}
	}
	return Key{kind: keyMapping, mapping: table, mapped: mapped}
}

// Grouping is the factorized form of one key: sorted distinct ids, the
// code of every position (-1 for a missing key) and the size of each group.
type Grouping struct {
	name   string
	codes  []int
	ids    []label.Label
	counts []int
}

// NewGrouping factorizes keys into sorted group ids
func NewGrouping(name string, keys []label.Label) *Grouping {
	codes, ids := algos.SortedFactorize(keys)
	counts := make([]int, len(ids))
	for _, c := range codes {
		if c >= 0 {
			counts[c]++
		}
	}
	return &Grouping{name: name, codes: codes, ids: ids, counts: counts}
}

// Name returns the key name used for the result axis
func (g *Grouping) Name() string { return g.name }

// Codes returns the group code of every position
func (g *Grouping) Codes() []int { return g.codes }

// IDs returns the sorted distinct keys
func (g *Grouping) IDs() []label.Label { return g.ids }

// Counts returns the number of positions per id
func (g *Grouping) Counts() []int { return g.counts }

// NGroups returns the number of distinct keys
func (g *Grouping) NGroups() int { return len(g.ids) }

// resolve turns a key specifier into a grouping over axis of src. The
// returned label is a column to exclude from aggregation, or nil.
func (k Key) resolve(src *manager.Manager, axis int) (*Grouping, label.Label, error) {
	ax := src.Rows()
	if axis == manager.AxisColumns {
		ax = src.Columns()
	}
	n := ax.Len()

	switch k.kind {
	case keyColumn:
		if axis != manager.AxisRows {
			return nil, nil, errors.NewInvalidInputError("GroupBy", "column keys only group rows")
		}
		if err := validation.ValidateColumns(src, "GroupBy", k.column); err != nil {
			return nil, nil, err
		}
		if name, ok := k.column.(string); ok && slices.Contains(ax.Names(), name) {
			return nil, nil, errors.NewKeyAmbiguousError("GroupBy", name,
				"key names both a column and a row axis level")
		}
		col, err := src.Column(k.column)
		if err != nil {
			return nil, nil, err
		}
		return NewGrouping(label.Format(k.column), col.Values()), k.column, nil

	case keyValues:
		if err := validation.ValidateLength(n, len(k.values), "GroupBy", "group keys"); err != nil {
			return nil, nil, err
		}
		return NewGrouping("", k.values), nil, nil

	case keyFunc:
		keys := make([]label.Label, n)
		for i := range keys {
			keys[i] = label.Normalize(k.fn(ax.Label(i)))
		}
		return NewGrouping("", keys), nil, nil

	case keyLevel:
		return levelGrouping(ax, k.level)

	case keyMapping:
		keys := make([]label.Label, n)
		for i := range keys {
			if pos, ok := k.mapping.Get(ax.Label(i)); ok {
				keys[i] = k.mapped[pos]
			}
		}
		return NewGrouping("", keys), nil, nil

	default:
		return nil, nil, errors.NewInvalidInputError("GroupBy", "unknown key kind")
	}
}

func levelGrouping(ax index.Axis, level int) (*Grouping, label.Label, error) {
	if level < 0 || level >= ax.NLevels() {
		return nil, nil, errors.NewInvalidInputError("GroupBy",
			fmt.Sprintf("level %d out of range for axis with %d levels", level, ax.NLevels()))
	}
	mi, ok := ax.(*index.MultiIndex)
	if !ok {
		return NewGrouping(ax.Names()[0], ax.Labels()), nil, nil
	}

	lvl := mi.Level(level)
	codes := mi.Codes(level)
	keys := make([]label.Label, len(codes))
	for i, c := range codes {
		if c >= 0 {
			keys[i] = lvl.Label(int(c))
		}
	}
	return NewGrouping(mi.Names()[level], keys), nil, nil
}
