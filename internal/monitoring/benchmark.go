package monitoring

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/olekukonko/tablewriter"
)

const (
	defaultIterations = 3
	bytesToMB         = 1024 * 1024
)

// BenchmarkScenario is one timed engine operation
type BenchmarkScenario struct {
	Name       string
	Rows       int
	Operation  func() error
	Iterations int
}

// BenchmarkResult contains the results of running a benchmark scenario.
type BenchmarkResult struct {
	Scenario        BenchmarkScenario `json:"scenario"`
	Iterations      int               `json:"iterations"`
	AverageDuration time.Duration     `json:"average_duration"`
	MinDuration     time.Duration     `json:"min_duration"`
	MaxDuration     time.Duration     `json:"max_duration"`
	MemoryAllocated int64             `json:"memory_allocated"`
	RowsPerSec      float64           `json:"rows_per_sec"`
	Err             error             `json:"-"`
}

// BenchmarkSuite runs scenarios in order and renders their results
type BenchmarkSuite struct {
	scenarios []BenchmarkScenario
	results   []BenchmarkResult
}

// NewBenchmarkSuite creates a new benchmark suite.
func NewBenchmarkSuite() *BenchmarkSuite {
	return &BenchmarkSuite{}
}

// Add appends a scenario. Iterations default to 3.
func (bs *BenchmarkSuite) Add(name string, rows int, operation func() error) {
	bs.scenarios = append(bs.scenarios, BenchmarkScenario{
		Name:       name,
		Rows:       rows,
		Operation:  operation,
		Iterations: defaultIterations,
	})
}

// AddScenario appends a fully specified scenario
func (bs *BenchmarkSuite) AddScenario(scenario BenchmarkScenario) {
	bs.scenarios = append(bs.scenarios, scenario)
}

// Run executes every scenario. A failing iteration stops its scenario only.
func (bs *BenchmarkSuite) Run() []BenchmarkResult {
	bs.results = make([]BenchmarkResult, 0, len(bs.scenarios))
	for _, scenario := range bs.scenarios {
		bs.results = append(bs.results, runScenario(scenario))
	}
	return bs.results
}

func runScenario(scenario BenchmarkScenario) BenchmarkResult {
	if scenario.Iterations <= 0 {
		scenario.Iterations = 1
	}
	result := BenchmarkResult{Scenario: scenario}

	var memBefore, memAfter runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&memBefore)

	var total time.Duration
	for i := range scenario.Iterations {
		start := time.Now()
		if err := scenario.Operation(); err != nil {
			result.Err = fmt.Errorf("iteration %d: %w", i+1, err)
			break
		}
		d := time.Since(start)
		if result.Iterations == 0 || d < result.MinDuration {
			result.MinDuration = d
		}
		result.MaxDuration = max(result.MaxDuration, d)
		total += d
		result.Iterations++
	}

	runtime.ReadMemStats(&memAfter)
	result.MemoryAllocated = int64(memAfter.TotalAlloc - memBefore.TotalAlloc) //nolint:gosec // Safe memory calculation

	if result.Iterations > 0 {
		result.AverageDuration = total / time.Duration(result.Iterations)
	}
	if result.AverageDuration > 0 {
		result.RowsPerSec = float64(scenario.Rows) / result.AverageDuration.Seconds()
	}
	return result
}

// GetResults returns the results of the last Run
func (bs *BenchmarkSuite) GetResults() []BenchmarkResult {
	return bs.results
}

// Render writes the results of the last Run as a table
func (bs *BenchmarkSuite) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"scenario", "rows", "iterations", "avg", "min", "max", "rows/s", "alloc MB", "status"})
	table.SetAutoFormatHeaders(false)
	for _, r := range bs.results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		table.Append([]string{
			r.Scenario.Name,
			fmt.Sprint(r.Scenario.Rows),
			fmt.Sprint(r.Iterations),
			r.AverageDuration.String(),
			r.MinDuration.String(),
			r.MaxDuration.String(),
			fmt.Sprintf("%.0f", r.RowsPerSec),
			fmt.Sprintf("%.2f", float64(r.MemoryAllocated)/bytesToMB),
			status,
		})
	}
	table.Render()
}

// Clear removes all scenarios and results from the suite.
func (bs *BenchmarkSuite) Clear() {
	bs.scenarios = bs.scenarios[:0]
	bs.results = bs.results[:0]
}
