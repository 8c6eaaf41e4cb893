// Package kernels provides the numeric collaborators the engine invokes as
// opaque functions: named group reductions and elementwise binary operators.
package kernels

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/label"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reducer is a named reduction over the present values of one group.
// Float always applies; Int is set when integer input can keep an integer
// result; Any is set when the reduction is defined for every dtype.
type Reducer struct {
	Name  string
	Float func(values []float64) float64
	Int   func(values []int64) int64
	Any   func(values []any) any
	// Count marks reductions whose result is an I64 tally that is never missing
	Count bool
	// Select marks reductions that return one of their inputs
	Select bool
}

// NumericOnly reports whether the reducer rejects Object and timestamp input
func (r Reducer) NumericOnly() bool {
	return r.Any == nil
}

var reducers = map[string]Reducer{
	"sum": {
		Name:  "sum",
		Float: floats.Sum,
		Int:   sum[int64],
	},
	"prod": {
		Name:  "prod",
		Float: floats.Prod,
		Int:   prod[int64],
	},
	"mean": {
		Name:  "mean",
		Float: func(v []float64) float64 { return stat.Mean(v, nil) },
	},
	"var": {
		Name:  "var",
		Float: variance,
	},
	"std": {
		Name:  "std",
		Float: func(v []float64) float64 { return math.Sqrt(variance(v)) },
	},
	"median": {
		Name:  "median",
		Float: median,
	},
	"min": {
		Name:  "min",
		Float: floats.Min,
		Int:   minOf[int64],
		Any:   extreme(-1),
		Select: true,
	},
	"max": {
		Name:  "max",
		Float: floats.Max,
		Int:   maxOf[int64],
		Any:   extreme(1),
		Select: true,
	},
	"first": {
		Name:  "first",
		Float: func(v []float64) float64 { return v[0] },
		Int:   func(v []int64) int64 { return v[0] },
		Any:   func(v []any) any { return v[0] },
		Select: true,
	},
	"last": {
		Name:  "last",
		Float: func(v []float64) float64 { return v[len(v)-1] },
		Int:   func(v []int64) int64 { return v[len(v)-1] },
		Any:   func(v []any) any { return v[len(v)-1] },
		Select: true,
	},
	"count": {
		Name:  "count",
		Float: func(v []float64) float64 { return float64(len(v)) },
		Int:   func(v []int64) int64 { return int64(len(v)) },
		Any:   func(v []any) any { return int64(len(v)) },
		Count: true,
	},
}

// Lookup returns the reducer registered under name
func Lookup(name string) (Reducer, error) {
	r, ok := reducers[name]
	if !ok {
		return Reducer{}, errors.NewInvalidInputError("Lookup", fmt.Sprintf("unknown reduction %q", name))
	}
	return r, nil
}

// Names lists the registered reductions in sorted order
func Names() []string {
	out := make([]string, 0, len(reducers))
	for name := range reducers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ReduceFloat applies r to values with missing (NaN) cells removed.
// Empty input yields NaN except for count, which yields 0.
func ReduceFloat(r Reducer, values []float64) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 && !r.Count {
		return math.NaN()
	}
	return r.Float(present)
}

func sum[T constraints.Integer | constraints.Float](values []T) T {
	var total T
	for _, v := range values {
		total += v
	}
	return total
}

func prod[T constraints.Integer | constraints.Float](values []T) T {
	total := T(1)
	for _, v := range values {
		total *= v
	}
	return total
}

func minOf[T constraints.Ordered](values []T) T {
	return slices.Min(values)
}

func maxOf[T constraints.Ordered](values []T) T {
	return slices.Max(values)
}

// variance is the sample variance (one delta degree of freedom)
func variance(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return stat.Variance(values, nil)
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// extreme picks the minimum (sign -1) or maximum (sign 1) under label order
func extreme(sign int) func([]any) any {
	return func(values []any) any {
		best := values[0]
		for _, v := range values[1:] {
			if label.Compare(v, best)*sign > 0 {
				best = v
			}
		}
		return best
	}
}
