package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/paveg/blockframe"
	"github.com/paveg/blockframe/internal/arrowio"
	"github.com/paveg/blockframe/internal/config"
	"github.com/paveg/blockframe/internal/monitoring"
	"github.com/paveg/blockframe/internal/version"
)

func customUsage() {
	fmt.Fprintf(os.Stderr, "blockframe CLI (version %s)\n\n", version.Version)
	fmt.Fprintf(os.Stderr, "Usage: blockframe-cli [options]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	fmt.Fprintf(os.Stderr, "  --demo\n\t\tBuild a sample table, group it and print the result\n")
	fmt.Fprintf(os.Stderr, "  --benchmark\n\t\tTime construction, arithmetic, grouping and joins\n")
	fmt.Fprintf(os.Stderr, "  --rows N\n\t\tNumber of rows to use (default: 1000 for demo, 1000000 for benchmark)\n")
	fmt.Fprintf(os.Stderr, "  --inspect FILE\n\t\tPrint the block layout of a .tbl0 or .parquet file\n")
	fmt.Fprintf(os.Stderr, "  --convert FILE --out FILE\n\t\tConvert between .tbl0 and .parquet\n")
	fmt.Fprintf(os.Stderr, "  --config FILE\n\t\tLoad engine configuration from a .json or .yaml file\n")
	fmt.Fprintf(os.Stderr, "  -v, --version\n\t\tPrint version information and exit\n")
	fmt.Fprintf(os.Stderr, "  -h, --help\n\t\tShow this help message and exit\n")
}

func main() {
	versionFlag := flag.Bool("v", false, "Print version and exit")
	flag.BoolVar(versionFlag, "version", false, "Print version and exit")
	demoFlag := flag.Bool("demo", false, "Run basic demo")
	benchmarkFlag := flag.Bool("benchmark", false, "Run benchmark")
	rowsFlag := flag.Int("rows", 0, "Number of rows to use")
	inspectFlag := flag.String("inspect", "", "File to inspect")
	convertFlag := flag.String("convert", "", "File to convert")
	outFlag := flag.String("out", "", "Conversion target")
	configFlag := flag.String("config", "", "Configuration file")

	//nolint:reassign // Standard Go pattern for customizing flag usage message
	flag.Usage = customUsage
	flag.Parse()

	if *versionFlag {
		fmt.Print(version.Info().String())
		return
	}

	engine, err := newEngine(*configFlag)
	if err != nil {
		log.Fatalf("configuring engine: %v", err)
	}

	switch {
	case *demoFlag:
		err = runDemo(engine, *rowsFlag)
	case *benchmarkFlag:
		err = runBenchmark(engine, *rowsFlag)
	case *inspectFlag != "":
		err = runInspect(engine, *inspectFlag)
	case *convertFlag != "":
		err = runConvert(engine, *convertFlag, *outFlag)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// newEngine reads the config file when one is given, the environment otherwise
func newEngine(path string) (*blockframe.Engine, error) {
	cfg := config.LoadFromEnv()
	if path != "" {
		fileCfg, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	return blockframe.NewEngine(cfg)
}

// sampleTable builds an employee table with an int64, a float64 and two object columns
func sampleTable(engine *blockframe.Engine, rows int) (*blockframe.Manager, error) {
	const (
		baseAge         = 25
		ageRange        = 40
		baseSalary      = 40000
		salaryIncrement = 1000
		salaryRange     = 60
	)
	depts := []string{"Engineering", "Sales", "Marketing", "HR", "Finance"}

	names := make([]any, rows)
	ages := make([]int64, rows)
	salaries := make([]float64, rows)
	departments := make([]any, rows)
	for i := range rows {
		names[i] = fmt.Sprintf("Employee_%d", i+1)
		ages[i] = int64(baseAge + (i % ageRange))
		salaries[i] = float64(baseSalary + (i%salaryRange)*salaryIncrement)
		departments[i] = depts[i%len(depts)]
	}

	return engine.FromColumns(
		[]blockframe.Label{"name", "age", "salary", "department"},
		[]blockframe.Column{
			blockframe.ObjectColumn(names),
			blockframe.Int64Column(ages),
			blockframe.Float64Column(salaries),
			blockframe.ObjectColumn(departments),
		},
		nil)
}

func runDemo(engine *blockframe.Engine, rows int) error {
	if rows == 0 {
		rows = 1000
	}
	fmt.Println("blockframe demo")
	fmt.Println("===============")

	table, err := sampleTable(engine, rows)
	if err != nil {
		return err
	}
	fmt.Print(table.Describe())
	fmt.Println(table)

	byDept := []blockframe.GroupKey{blockframe.ByColumn("department")}
	mean, err := engine.Aggregate(table, byDept, "mean", "age", "salary")
	if err != nil {
		return err
	}
	fmt.Println("Mean age and salary by department:")
	fmt.Println(mean)

	doubled, err := engine.Add(mean, mean)
	if err != nil {
		return err
	}
	fmt.Println("Doubled by aligned addition:")
	fmt.Println(doubled)
	return nil
}

func runBenchmark(engine *blockframe.Engine, rows int) error {
	if rows == 0 {
		rows = 1_000_000
	}
	fmt.Println("blockframe benchmark")
	fmt.Println("====================")

	table, err := sampleTable(engine, rows)
	if err != nil {
		return err
	}
	byDept := []blockframe.GroupKey{blockframe.ByColumn("department")}
	ageCounts, err := engine.Aggregate(table, []blockframe.GroupKey{blockframe.ByColumn("age")}, "count", "salary")
	if err != nil {
		return err
	}
	keys, err := engine.FromColumns([]blockframe.Label{"age", "n"},
		[]blockframe.Column{columnOfLabels(ageCounts.Rows()), mustColumn(ageCounts, "salary")}, nil)
	if err != nil {
		return err
	}

	suite := monitoring.NewBenchmarkSuite()
	suite.Add("construction", rows, func() error { _, err := sampleTable(engine, rows); return err })
	suite.Add("aligned add", rows, func() error { _, err := engine.Add(table, table); return err })
	suite.Add("group sum", rows, func() error { _, err := engine.Aggregate(table, byDept, "sum"); return err })
	suite.Add("group mean", rows, func() error { _, err := engine.Aggregate(table, byDept, "mean"); return err })
	suite.Add("inner join on age", rows, func() error {
		_, err := engine.Join(table, keys, blockframe.JoinOptions{How: blockframe.Inner, LeftOn: []blockframe.Label{"age"}})
		return err
	})
	suite.Add("tbl0 save", rows, func() error { return engine.Save(io.Discard, table) })

	suite.Run()
	suite.Render(os.Stdout)
	return nil
}

func columnOfLabels(axis blockframe.Axis) blockframe.Column {
	labels := axis.Labels()
	ages := make([]int64, len(labels))
	for i, l := range labels {
		ages[i], _ = l.(int64)
	}
	return blockframe.Int64Column(ages)
}

func mustColumn(m *blockframe.Manager, l blockframe.Label) blockframe.Column {
	c, err := m.Column(l)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

func load(engine *blockframe.Engine, path string) (*blockframe.Manager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return engine.ReadParquet(context.Background(), f)
	default:
		return engine.Load(f)
	}
}

func save(engine *blockframe.Engine, path string, m *blockframe.Manager) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return engine.WriteParquet(f, m, arrowio.DefaultParquetOptions())
	default:
		return engine.Save(f, m)
	}
}

func runInspect(engine *blockframe.Engine, path string) error {
	m, err := load(engine, path)
	if err != nil {
		return err
	}
	fmt.Print(m.Describe())
	fmt.Println(m)
	return nil
}

func runConvert(engine *blockframe.Engine, in, out string) error {
	if out == "" {
		return fmt.Errorf("--convert requires --out")
	}
	m, err := load(engine, in)
	if err != nil {
		return err
	}
	if err := save(engine, out, m); err != nil {
		return err
	}
	fmt.Printf("wrote %s: %d rows x %d columns\n", out, m.Len(), m.Width())
	return nil
}
