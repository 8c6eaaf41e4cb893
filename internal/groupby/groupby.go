// Package groupby implements split-apply-combine over a manager: keys are
// factorized into sorted group ids, positions are bucketed by group with a
// counting sort and named reductions run over each contiguous bucket.
package groupby

import (
	"fmt"

	"github.com/paveg/blockframe/internal/algos"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/manager"
)

type options struct {
	axis      int
	threshold int64
}

// Option configures New
type Option func(*options)

// WithAxis groups columns instead of rows when axis is manager.AxisColumns
func WithAxis(axis int) Option {
	return func(o *options) {
		o.axis = axis
	}
}

// WithCompressThreshold bounds the composite key space of multi-key groupings
func WithCompressThreshold(threshold int64) Option {
	return func(o *options) {
		o.threshold = threshold
	}
}

// GroupBy is a manager split into groups along one axis
type GroupBy struct {
	src       *manager.Manager
	axis      int
	groupings []*Grouping
	exclude   []label.Label
	codes     []int
	ngroups   int
	result    index.Axis
	order     []int
	counts    []int
}

// Group is one bucket: its key and the positions it holds, in source order
type Group struct {
	Key       label.Label
	Positions []int
}

// New groups src by one or more keys. Several keys combine into composite
// groups ordered lexicographically by the keys' sorted ids; only
// combinations that occur become groups.
func New(src *manager.Manager, keys []Key, opts ...Option) (*GroupBy, error) {
	o := options{axis: manager.AxisRows, threshold: algos.DefaultCompressThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	if o.axis != manager.AxisRows && o.axis != manager.AxisColumns {
		return nil, errors.NewInvalidInputError("GroupBy", fmt.Sprintf("invalid axis %d", o.axis))
	}
	if len(keys) == 0 {
		return nil, errors.NewInvalidInputError("GroupBy", "no group keys given")
	}

	g := &GroupBy{src: src, axis: o.axis}
	for _, k := range keys {
		grouping, exclude, err := k.resolve(src, o.axis)
		if err != nil {
			return nil, err
		}
		g.groupings = append(g.groupings, grouping)
		if exclude != nil {
			g.exclude = append(g.exclude, exclude)
		}
	}

	if err := g.combine(o.threshold); err != nil {
		return nil, err
	}
	g.order, g.counts = algos.GroupSort(g.codes, g.ngroups)
	return g, nil
}

func (g *GroupBy) combine(threshold int64) error {
	if len(g.groupings) == 1 {
		only := g.groupings[0]
		g.codes = only.codes
		g.ngroups = only.NGroups()
		g.result = index.NewNamed(only.name, only.ids)
		return nil
	}

	codes := make([][]int, len(g.groupings))
	sizes := make([]int, len(g.groupings))
	for i, grouping := range g.groupings {
		codes[i] = grouping.codes
		sizes[i] = grouping.NGroups()
	}
	combined, ngroups, err := algos.GroupIndex(codes, sizes, threshold)
	if err != nil {
		return err
	}
	g.codes = combined
	g.ngroups = ngroups

	// level codes of each observed group, read off its first position
	first := make([]int, ngroups)
	for i := range first {
		first[i] = -1
	}
	for pos, c := range combined {
		if c >= 0 && first[c] < 0 {
			first[c] = pos
		}
	}
	levels := make([]*index.Index, len(g.groupings))
	levelCodes := make([][]int32, len(g.groupings))
	names := make([]string, len(g.groupings))
	for l, grouping := range g.groupings {
		levels[l] = index.NewNamed(grouping.name, grouping.ids)
		names[l] = grouping.name
		levelCodes[l] = make([]int32, ngroups)
		for k, pos := range first {
			levelCodes[l][k] = int32(grouping.codes[pos])
		}
	}
	mi, err := index.NewMultiIndex(levels, levelCodes, names)
	if err != nil {
		return err
	}
	g.result = mi
	return nil
}

// NGroups returns the number of groups
func (g *GroupBy) NGroups() int {
	return g.ngroups
}

// Groupings returns the factorized keys
func (g *GroupBy) Groupings() []*Grouping {
	return g.groupings
}

// Codes returns the group of every position, -1 for positions whose key is missing
func (g *GroupBy) Codes() []int {
	return g.codes
}

// Index returns the group ids as an axis: flat for one key, hierarchical otherwise
func (g *GroupBy) Index() index.Axis {
	return g.result
}

// Groups lists the groups in id order
func (g *GroupBy) Groups() []Group {
	out := make([]Group, g.ngroups)
	offset := 0
	for k, c := range g.counts {
		out[k] = Group{Key: g.result.Label(k), Positions: g.order[offset : offset+c]}
		offset += c
	}
	return out
}

// Indices maps the formatted key of every group to its positions
func (g *GroupBy) Indices() map[string][]int {
	out := make(map[string][]int, g.ngroups)
	for _, grp := range g.Groups() {
		out[label.Format(grp.Key)] = grp.Positions
	}
	return out
}

func (g *GroupBy) groupOf(key label.Label) (int, error) {
	loc, err := g.result.GetLoc(label.Normalize(key))
	if err != nil {
		return 0, err
	}
	positions := loc.Positions()
	if len(positions) != 1 {
		return 0, errors.NewKeyAmbiguousError("GetGroup", label.Format(key),
			fmt.Sprintf("partial key selects %d groups", len(positions)))
	}
	return positions[0], nil
}

// GetGroup returns the part of the source that belongs to key. A composite
// key is a label.Tuple.
func (g *GroupBy) GetGroup(key label.Label) (*manager.Manager, error) {
	k, err := g.groupOf(key)
	if err != nil {
		return nil, err
	}
	return g.src.Take(g.Groups()[k].Positions, g.axis)
}

// HavingCount keeps the groups whose size satisfies keep and returns the
// matching part of the source in source order
func (g *GroupBy) HavingCount(keep func(int) bool) (*manager.Manager, error) {
	var positions []int
	for pos, c := range g.codes {
		if c >= 0 && keep(g.counts[c]) {
			positions = append(positions, pos)
		}
	}
	return g.src.Take(positions, g.axis)
}
