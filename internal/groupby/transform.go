package groupby

import (
	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/kernels"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/manager"
	"github.com/paveg/blockframe/internal/validation"
)

// Transform applies fn to each group's sub-column and scatters the results
// back to the group's positions, so the output keeps the source rows.
// fn must return a column as long as its input. Positions without a group
// keep their source value.
func (g *GroupBy) Transform(fn func(column.Column) (column.Column, error), cols ...label.Label) (*manager.Manager, error) {
	if g.axis == manager.AxisColumns {
		return nil, errors.NewInvalidInputError("Transform", "not supported when grouping columns")
	}
	targets, _, err := g.targets(cols)
	if err != nil {
		return nil, err
	}

	groups := g.Groups()
	out := make([]column.Column, len(targets))
	for i, col := range targets {
		c, err := g.src.Column(col)
		if err != nil {
			return nil, err
		}
		cells := c.Values()
		for _, grp := range groups {
			sub, err := c.Take(grp.Positions)
			if err != nil {
				return nil, err
			}
			res, err := fn(sub)
			if err != nil {
				return nil, err
			}
			if err := validation.ValidateLength(len(grp.Positions), res.Len(), "Transform", "transformed group"); err != nil {
				return nil, err
			}
			for j, pos := range grp.Positions {
				cells[pos] = res.Value(j)
			}
		}
		out[i] = column.FromValues(cells)
	}
	return manager.FromColumns(targets, out, g.src.Rows())
}

// TransformReduce broadcasts the named group reduction back to every
// position of the group. Positions without a group are missing.
func (g *GroupBy) TransformReduce(name string, cols ...label.Label) (*manager.Manager, error) {
	if g.axis == manager.AxisColumns {
		return nil, errors.NewInvalidInputError("TransformReduce", "not supported when grouping columns")
	}
	if _, err := kernels.Lookup(name); err != nil {
		return nil, err
	}
	agg, err := g.Aggregate(name, cols...)
	if err != nil {
		return nil, err
	}
	indexer := make([]int, len(g.codes))
	copy(indexer, g.codes)
	res, err := agg.Take(indexer, manager.AxisRows)
	if err != nil {
		return nil, err
	}
	return res.WithRows(g.src.Rows())
}
