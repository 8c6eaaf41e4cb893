package blockframe

import (
	"context"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/blockframe/internal/align"
	"github.com/paveg/blockframe/internal/arrowio"
	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/groupby"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/kernels"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/logging"
	"github.com/paveg/blockframe/internal/manager"
	"github.com/paveg/blockframe/internal/monitoring"
	"github.com/paveg/blockframe/internal/persist"
	"github.com/sirupsen/logrus"
)

// Engine runs table operations with one configuration. It holds no table
// state; every call is synchronous and independent.
type Engine struct {
	cfg     Config
	log     *logrus.Logger
	metrics *monitoring.MetricsCollector
	mem     memory.Allocator
}

// EngineOption configures NewEngine
type EngineOption func(*Engine)

// WithLogger replaces the logger built from the configuration
func WithLogger(log *logrus.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// WithAllocator sets the allocator used for Arrow and Parquet conversions
func WithAllocator(mem memory.Allocator) EngineOption {
	return func(e *Engine) {
		e.mem = mem
	}
}

// NewEngine validates cfg and builds an engine
func NewEngine(cfg Config, opts ...EngineOption) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		metrics: monitoring.NewMetricsCollector(cfg.MetricsCollection),
		mem:     memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		log, err := logging.New(cfg)
		if err != nil {
			return nil, err
		}
		e.log = log
	}
	return e, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config { return e.cfg }

// Logger returns the engine logger
func (e *Engine) Logger() *logrus.Logger { return e.log }

// Metrics returns the metrics collector. It records nothing unless
// MetricsCollection is set.
func (e *Engine) Metrics() *monitoring.MetricsCollector { return e.metrics }

// run executes one top-level operation, recording metrics and a debug entry
func (e *Engine) run(op string, fn func() (*Manager, error)) (*Manager, error) {
	var out *Manager
	start := time.Now()
	err := e.metrics.RecordOperation(op, func() (int64, error) {
		var err error
		out, err = fn()
		if err != nil {
			return 0, err
		}
		return int64(out.Len()), nil
	})

	entry := e.log.WithFields(logrus.Fields{"op": op, "duration": time.Since(start)})
	if err != nil {
		entry.WithError(err).Debug("operation failed")
		return nil, err
	}
	entry.WithFields(logrus.Fields{"rows": out.Len(), "columns": out.Width(), "blocks": out.NBlocks()}).Debug("operation done")
	return out, nil
}

// FromColumns builds a manager from labelled columns. A nil rows axis
// means positional rows.
func (e *Engine) FromColumns(labels []Label, cols []Column, rows Axis) (*Manager, error) {
	return e.run("FromColumns", func() (*Manager, error) {
		return manager.FromColumns(labels, cols, rows)
	})
}

// FromMap builds a manager from a map of columns, ordered by label
func (e *Engine) FromMap(cols map[string]Column, rows Axis) (*Manager, error) {
	return e.run("FromMap", func() (*Manager, error) {
		return manager.FromMap(cols, rows)
	})
}

// Add aligns l and r on both axes and adds them elementwise
func (e *Engine) Add(l, r *Manager) (*Manager, error) { return e.Arith("add", l, r) }

// Sub aligns l and r on both axes and subtracts r from l
func (e *Engine) Sub(l, r *Manager) (*Manager, error) { return e.Arith("sub", l, r) }

// Mul aligns l and r on both axes and multiplies them elementwise
func (e *Engine) Mul(l, r *Manager) (*Manager, error) { return e.Arith("mul", l, r) }

// Div aligns l and r on both axes and divides l by r; the result is always float
func (e *Engine) Div(l, r *Manager) (*Manager, error) { return e.Arith("div", l, r) }

// Arith applies the named binary operator (add, sub, mul, div) to l and r
// aligned on the union of their axes
func (e *Engine) Arith(op string, l, r *Manager) (*Manager, error) {
	binary, err := kernels.ParseBinary(op)
	if err != nil {
		return nil, err
	}
	return e.run("Arith."+op, func() (*Manager, error) {
		return align.Arith(l, r, binary)
	})
}

// Align conforms l and r to the joined row and column axes
func (e *Engine) Align(l, r *Manager, how How) (*Manager, *Manager, error) {
	var right *Manager
	left, err := e.run("Align", func() (*Manager, error) {
		a, b, err := align.Align(l, r, how)
		right = b
		return a, err
	})
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// JoinOptions configures Engine.Join. Empty suffixes take the configured ones.
type JoinOptions struct {
	How         How
	LeftOn      []Label
	RightOn     []Label
	LeftSuffix  string
	RightSuffix string
}

// Join joins l and r on key columns. The result has positional rows.
func (e *Engine) Join(l, r *Manager, opts JoinOptions) (*Manager, error) {
	mopts := manager.JoinOptions{
		How:               opts.How,
		LeftOn:            opts.LeftOn,
		RightOn:           opts.RightOn,
		LeftSuffix:        opts.LeftSuffix,
		RightSuffix:       opts.RightSuffix,
		CompressThreshold: e.cfg.CompositeKeyThreshold,
	}
	if mopts.LeftSuffix == "" && mopts.RightSuffix == "" {
		mopts.LeftSuffix, mopts.RightSuffix = e.cfg.LeftSuffix, e.cfg.RightSuffix
	}
	if len(mopts.RightOn) == 0 {
		mopts.RightOn = mopts.LeftOn
	}
	return e.run("Join."+opts.How.String(), func() (*Manager, error) {
		out, _, _, err := l.JoinOn(r, mopts)
		return out, err
	})
}

// GroupBy splits src by keys along the rows, or along the columns when
// axis is AxisColumns
func (e *Engine) GroupBy(src *Manager, keys []GroupKey, axis int) (*GroupBy, error) {
	start := time.Now()
	g, err := groupby.New(src, keys,
		groupby.WithAxis(axis),
		groupby.WithCompressThreshold(e.cfg.CompositeKeyThreshold))
	entry := e.log.WithFields(logrus.Fields{"op": "GroupBy", "duration": time.Since(start)})
	if err != nil {
		entry.WithError(err).Debug("operation failed")
		return nil, err
	}
	entry.WithField("groups", g.NGroups()).Debug("operation done")
	return g, nil
}

// Aggregate groups src by keys along the rows and applies the named
// reduction to cols, or to every non-key column when cols is empty
func (e *Engine) Aggregate(src *Manager, keys []GroupKey, reduction string, cols ...Label) (*Manager, error) {
	return e.run("Aggregate."+reduction, func() (*Manager, error) {
		g, err := groupby.New(src, keys, groupby.WithCompressThreshold(e.cfg.CompositeKeyThreshold))
		if err != nil {
			return nil, err
		}
		return g.Aggregate(reduction, cols...)
	})
}

// Reindex conforms m to target along axis using the fill method. Blocks
// are consolidated afterwards when ConsolidateOnReindex is set.
func (e *Engine) Reindex(m *Manager, target Axis, axis int, method Method) (*Manager, error) {
	return e.run("Reindex", func() (*Manager, error) {
		return m.ReindexAxis(target, axis,
			manager.WithMethod(method),
			manager.WithConsolidate(e.cfg.ConsolidateOnReindex))
	})
}

// Take gathers positions along axis; -1 produces a missing row or column
func (e *Engine) Take(m *Manager, indexer []int, axis int) (*Manager, error) {
	return e.run("Take", func() (*Manager, error) {
		return m.Take(indexer, axis)
	})
}

// Save writes m as a TBL0 image
func (e *Engine) Save(w io.Writer, m *Manager) error {
	_, err := e.run("Save", func() (*Manager, error) {
		return m, persist.Write(w, m)
	})
	return err
}

// Load reads a TBL0 image
func (e *Engine) Load(r io.Reader) (*Manager, error) {
	return e.run("Load", func() (*Manager, error) {
		return persist.Read(r)
	})
}

// ToArrow exports m as an Arrow record; the caller releases it
func (e *Engine) ToArrow(m *Manager) (arrow.Record, error) {
	var rec arrow.Record
	_, err := e.run("ToArrow", func() (*Manager, error) {
		var err error
		rec, err = arrowio.ToRecord(m, e.mem)
		return m, err
	})
	return rec, err
}

// FromArrow imports an Arrow record
func (e *Engine) FromArrow(rec arrow.Record) (*Manager, error) {
	return e.run("FromArrow", func() (*Manager, error) {
		return arrowio.FromRecord(rec)
	})
}

// WriteParquet writes m as a Parquet file
func (e *Engine) WriteParquet(w io.Writer, m *Manager, opts arrowio.ParquetOptions) error {
	_, err := e.run("WriteParquet", func() (*Manager, error) {
		return m, arrowio.WriteParquet(w, m, opts, e.mem)
	})
	return err
}

// ReadParquet reads a Parquet file
func (e *Engine) ReadParquet(ctx context.Context, r io.Reader) (*Manager, error) {
	return e.run("ReadParquet", func() (*Manager, error) {
		return arrowio.ReadParquet(ctx, r, e.mem)
	})
}

// Float64Column, Int64Column, BoolColumn, ObjectColumn and TimeColumn wrap
// buffers as columns without copying
var (
	Float64Column = column.NewFloat64
	Int64Column   = column.NewInt64
	BoolColumn    = column.NewBool
	ObjectColumn  = column.NewObject
	TimeColumn    = column.NewTime
)

// Labels normalizes Go values into labels
func Labels[T any](values []T) []Label { return label.NormalizeAll(values) }

// Range returns the positional axis 0..n-1
func Range(n int) *Index { return index.Range(n) }
