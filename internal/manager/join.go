package manager

import (
	"github.com/paveg/blockframe/internal/algos"
	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/validation"
)

// Default suffixes for overlapping non-key columns of a keyed join
const (
	DefaultLeftSuffix  = ".x"
	DefaultRightSuffix = ".y"
)

// JoinOptions configures JoinOn
type JoinOptions struct {
	How     algos.How
	LeftOn  []label.Label
	RightOn []label.Label
	// LeftSuffix and RightSuffix default to ".x" and ".y" when both are empty
	LeftSuffix  string
	RightSuffix string
	// CompressThreshold bounds the composite key space; zero means the default
	CompressThreshold int64
}

// JoinOn joins two managers on key columns. It returns the joined manager
// on a positional row axis plus the left and right row indexers, where -1
// marks a row with no match on that side. A key label present on both
// sides appears once, filled from whichever side matched.
func (m *Manager) JoinOn(other *Manager, opts JoinOptions) (*Manager, []int, []int, error) {
	if len(opts.LeftOn) == 0 {
		return nil, nil, nil, errors.NewInvalidInputError("JoinOn", "no join keys given")
	}
	if err := validation.ValidateLength(len(opts.LeftOn), len(opts.RightOn), "JoinOn", "right keys"); err != nil {
		return nil, nil, nil, err
	}
	if err := validation.ValidateColumns(m, "JoinOn", opts.LeftOn...); err != nil {
		return nil, nil, nil, err
	}
	if err := validation.ValidateColumns(other, "JoinOn", opts.RightOn...); err != nil {
		return nil, nil, nil, err
	}
	lsuffix, rsuffix := opts.LeftSuffix, opts.RightSuffix
	if lsuffix == "" && rsuffix == "" {
		lsuffix, rsuffix = DefaultLeftSuffix, DefaultRightSuffix
	}

	lkeys, rkeys, err := m.joinKeys(other, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	lidx, ridx := algos.JoinIndexers(lkeys, rkeys, opts.How)
	if lidx == nil {
		return nil, nil, nil, errors.NewInvalidInputError("JoinOn", "unknown join type "+opts.How.String())
	}

	rows := index.Range(len(lidx))
	left, err := m.reindexRows(rows, lidx, index.MaskOf(lidx))
	if err != nil {
		return nil, nil, nil, err
	}
	right, err := other.reindexRows(rows, ridx, index.MaskOf(ridx))
	if err != nil {
		return nil, nil, nil, err
	}

	for i, lk := range opts.LeftOn {
		rk := opts.RightOn[i]
		if !label.Equal(lk, rk) {
			continue
		}
		coalesced, err := coalesceKey(m, other, lk, rk, lidx, ridx)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := left.Set(lk, coalesced); err != nil {
			return nil, nil, nil, err
		}
		if err := right.Delete(rk); err != nil {
			return nil, nil, nil, err
		}
	}

	joined, err := left.Merge(right, lsuffix, rsuffix)
	if err != nil {
		return nil, nil, nil, err
	}
	return joined, lidx, ridx, nil
}

// joinKeys factorizes each key pair jointly and folds the pairs into one
// dense code per row on each side
func (m *Manager) joinKeys(other *Manager, opts JoinOptions) ([]int, []int, error) {
	nl, nr := m.Len(), other.Len()
	codes := make([][]int, len(opts.LeftOn))
	sizes := make([]int, len(opts.LeftOn))

	for i := range opts.LeftOn {
		lcol, err := m.Column(opts.LeftOn[i])
		if err != nil {
			return nil, nil, err
		}
		rcol, err := other.Column(opts.RightOn[i])
		if err != nil {
			return nil, nil, err
		}
		f := algos.NewFactorizer(nl + nr)
		lc := f.Factorize(lcol.Values())
		rc := f.Factorize(rcol.Values())
		codes[i] = append(lc, rc...)
		sizes[i] = f.Len()
	}

	ids, _, err := algos.GroupIndex(codes, sizes, opts.CompressThreshold)
	if err != nil {
		return nil, nil, err
	}
	return ids[:nl], ids[nl:], nil
}

// coalesceKey takes the left key where the left side matched and the
// right key elsewhere
func coalesceKey(l, r *Manager, lk, rk label.Label, lidx, ridx []int) (column.Column, error) {
	lcol, err := l.Column(lk)
	if err != nil {
		return column.Column{}, err
	}
	rcol, err := r.Column(rk)
	if err != nil {
		return column.Column{}, err
	}
	cells := make([]any, len(lidx))
	for i := range lidx {
		switch {
		case lidx[i] >= 0:
			cells[i] = lcol.Value(lidx[i])
		case ridx[i] >= 0:
			cells[i] = rcol.Value(ridx[i])
		}
	}
	return column.FromValues(cells), nil
}
