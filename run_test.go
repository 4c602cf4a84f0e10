package oltpbench

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hhkbp2/testify/require"
)

func newTestRun(t *testing.T, kv ...string) (*RunConfig, *BasicDB) {
	p := NewProperties()
	p.Add(PropertySeed, "42")
	for i := 0; i+1 < len(kv); i += 2 {
		p.Add(kv[i], kv[i+1])
	}
	db := NewBasicDB()
	db.SetProperties(p)
	require.Nil(t, db.Init())
	cfg, err := NewRunConfig(p)
	require.Nil(t, err)
	return cfg, db
}

func TestNewRunConfig(t *testing.T) {
	cfg, err := NewRunConfig(Properties{
		PropertyOperationCount:   "10",
		PropertyTarget:           "50.5",
		PropertyMaxExecutionTime: "3",
		PropertySeed:             "7",
		PropertyExporter:         "TextMeasurementExporter",
	})
	require.Nil(t, err)
	require.Equal(t, int64(10), cfg.OperationCount)
	require.Equal(t, 50.5, cfg.Target)
	require.Equal(t, 3*time.Second, cfg.MaxExecutionTime)
	require.Equal(t, int64(7), cfg.Seed)
	require.Equal(t, PropertyWorkloadDefault, cfg.Workload)
	require.Equal(t, "TextMeasurementExporter", cfg.Exporter)

	cfg, err = NewRunConfig(NewProperties())
	require.Nil(t, err)
	require.Equal(t, int64(500), cfg.OperationCount)

	for _, p := range []Properties{
		{PropertyOperationCount: "-1"},
		{PropertyOperationCount: "many"},
		{PropertyTarget: "fast"},
		{PropertyMaxExecutionTime: "1.5"},
		{PropertySeed: "x"},
	} {
		_, err = NewRunConfig(p)
		require.NotNil(t, err)
	}
}

func TestRun(t *testing.T) {
	cfg, db := newTestRun(t, PropertyOperationCount, "300")
	var out bytes.Buffer
	report, err := Run(context.Background(), cfg, db, &out)
	require.Nil(t, err)
	require.Equal(t, int64(300), report.Iterations)
	require.Equal(t, int64(300), report.Successful+report.Errors()+report.Skipped)
	require.Equal(t, report.Conflicts+report.Faults, report.Errors())
	require.Equal(t, int64(0), report.Faults)
	require.Equal(t, int64(0), report.Skipped)
	require.True(t, report.Runtime > 0)

	var measured int64
	for _, s := range report.Operations {
		measured += s.Count
		require.True(t, s.Max >= s.P95)
		require.True(t, s.P95 >= s.Min)
	}
	require.Equal(t, report.Successful, measured)
	// browse dominates with the default proportions
	require.Equal(t, OpBrowse, report.Operations[0].Operation)
	require.True(t, report.Operations[0].Count > 150)

	text := out.String()
	require.True(t, strings.HasPrefix(text, "=== OLTP Workload Summary ===\n"))
	require.Contains(t, text, "errors: ")
	require.Contains(t, text, " / 300\n")
	require.Contains(t, text, "throughput: ")
}

func TestRunZeroIterations(t *testing.T) {
	cfg, db := newTestRun(t, PropertyOperationCount, "0")
	var out bytes.Buffer
	report, err := Run(context.Background(), cfg, db, &out)
	require.Nil(t, err)
	require.Equal(t, int64(0), report.Iterations)
	require.Equal(t, 0, len(report.Operations))
	require.Contains(t, out.String(), "errors: 0 / 0\n")
	require.Contains(t, out.String(), "successful_ops: 0\n")
}

func TestRunWithoutOrders(t *testing.T) {
	cfg, db := newTestRun(t,
		PropertyOperationCount, "25",
		ConfigBasicDBOrders, "0",
		PropertyBrowseProportion, "0",
		PropertySellerProportion, "0",
		PropertyCommentsProportion, "0",
		PropertyProcedureProportion, "1")
	var out bytes.Buffer
	report, err := Run(context.Background(), cfg, db, &out)
	require.Nil(t, err)
	require.Equal(t, int64(25), report.Iterations)
	require.Equal(t, int64(25), report.Skipped)
	require.Equal(t, int64(0), report.Successful)
	require.Equal(t, int64(0), report.Errors())
	require.Contains(t, out.String(), "skipped: 25\n")
}

func TestRunProceduresOnly(t *testing.T) {
	cfg, db := newTestRun(t,
		PropertyOperationCount, "400",
		ConfigBasicDBOrders, "20",
		PropertyBrowseProportion, "0",
		PropertySellerProportion, "0",
		PropertyCommentsProportion, "0",
		PropertyProcedureProportion, "1")
	var out bytes.Buffer
	report, err := Run(context.Background(), cfg, db, &out)
	require.Nil(t, err)
	require.Equal(t, int64(400), report.Iterations)
	// the snapshot of order statuses is taken once, so most calls conflict
	// after the first transitions
	require.True(t, report.Conflicts > 0)
	require.True(t, report.Successful > 0)
	require.Equal(t, int64(0), report.Faults)
	require.Equal(t, int64(400), report.Successful+report.Conflicts)
	for id := int64(1); id <= 20; id++ {
		status, ok := db.OrderStatus(id)
		require.True(t, ok)
		known := false
		for _, s := range basicDBOrderStatuses {
			known = known || s == status
		}
		require.True(t, known)
	}
}

func TestRunSameSeed(t *testing.T) {
	run := func() *Report {
		cfg, db := newTestRun(t,
			PropertyOperationCount, "200",
			PropertyRequestDistribution, "zipfian")
		var out bytes.Buffer
		report, err := Run(context.Background(), cfg, db, &out)
		require.Nil(t, err)
		return report
	}
	r1 := run()
	r2 := run()
	require.Equal(t, r1.Successful, r2.Successful)
	require.Equal(t, r1.Conflicts, r2.Conflicts)
	require.Equal(t, len(r1.Operations), len(r2.Operations))
	for i := range r1.Operations {
		require.Equal(t, r1.Operations[i].Operation, r2.Operations[i].Operation)
		require.Equal(t, r1.Operations[i].Count, r2.Operations[i].Count)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg, db := newTestRun(t, PropertyOperationCount, "100")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	report, err := Run(ctx, cfg, db, &out)
	require.Nil(t, err)
	require.Equal(t, int64(0), report.Iterations)
	require.Contains(t, out.String(), "errors: 0 / 0\n")
}

func TestRunMaxExecutionTime(t *testing.T) {
	cfg, db := newTestRun(t,
		PropertyOperationCount, "100000",
		PropertyMaxExecutionTime, "1",
		ConfigSimulateDelay, "10",
		ConfigRandomizeDelay, "false")
	var out bytes.Buffer
	start := time.Now()
	report, err := Run(context.Background(), cfg, db, &out)
	require.Nil(t, err)
	require.True(t, time.Since(start) < 5*time.Second)
	require.True(t, report.Iterations > 0)
	require.True(t, report.Iterations < cfg.OperationCount)
}

func TestRunTarget(t *testing.T) {
	cfg, db := newTestRun(t,
		PropertyOperationCount, "10",
		PropertyTarget, "200")
	var out bytes.Buffer
	start := time.Now()
	report, err := Run(context.Background(), cfg, db, &out)
	require.Nil(t, err)
	require.Equal(t, int64(10), report.Iterations)
	// 10 iterations at 200/s take at least 9 intervals of 5ms
	require.True(t, time.Since(start) >= 40*time.Millisecond)
}

func TestRunCustomMeasurements(t *testing.T) {
	cfg, db := newTestRun(t,
		PropertyOperationCount, "50",
		PropertyMeasurementType, "hdrhistogram")
	measurements, err := NewDefaultMeasurements(cfg.Properties)
	require.Nil(t, err)
	cfg.Measurements = measurements
	var out bytes.Buffer
	report, err := Run(context.Background(), cfg, db, &out)
	require.Nil(t, err)
	m, ok := measurements.Lookup(OpBrowse)
	require.True(t, ok)
	_, ok = m.(*OneMeasurementHdrHistogram)
	require.True(t, ok)
	require.Equal(t, report.Operations[0].Count, m.Summary().Count)
}

func TestRunExport(t *testing.T) {
	name := filepath.Join(t.TempDir(), "measurements.json")
	cfg, db := newTestRun(t,
		PropertyOperationCount, "40",
		PropertyExporter, "JSONArrayMeasurementExporter",
		PropertyExportFile, name)
	var out bytes.Buffer
	_, err := Run(context.Background(), cfg, db, &out)
	require.Nil(t, err)

	b, err := os.ReadFile(name)
	require.Nil(t, err)
	var exported []innerJSONMeasurement
	require.Nil(t, json.Unmarshal(b, &exported))
	require.True(t, len(exported) > 0)
	found := false
	for _, e := range exported {
		if e.Metric == OpBrowse && e.Measurement == "Operations" {
			found = true
		}
	}
	require.True(t, found)

	cfg, db = newTestRun(t,
		PropertyOperationCount, "1",
		PropertyExporter, "CSVMeasurementExporter",
		PropertyExportFile, name)
	report, err := Run(context.Background(), cfg, db, &out)
	require.NotNil(t, err)
	require.NotNil(t, report)
}

func TestRunInvalid(t *testing.T) {
	cfg, db := newTestRun(t, PropertyWorkload, "CoreWorkload")
	var out bytes.Buffer
	_, err := Run(context.Background(), cfg, db, &out)
	require.NotNil(t, err)

	cfg, db = newTestRun(t, PropertyBrowseProportion, "-0.5")
	_, err = Run(context.Background(), cfg, db, &out)
	require.NotNil(t, err)

	cfg, db = newTestRun(t, PropertyMeasurementType, "timeseries")
	_, err = Run(context.Background(), cfg, db, &out)
	require.NotNil(t, err)

	stub := newStubDB()
	stub.failTable = "Listing"
	cfg, _ = newTestRun(t)
	_, err = Run(context.Background(), cfg, stub, &out)
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "Listing")
}

func TestRunWorkloadFiles(t *testing.T) {
	for _, file := range []string{"marketplace.yaml", "marketplace_hotspot.yaml"} {
		p, err := LoadProperties(filepath.Join("workloads", file))
		require.Nil(t, err)
		p.Add(PropertyOperationCount, "50")
		p.Add(PropertyTarget, "0")
		p.Add(PropertySeed, "5")
		db := NewBasicDB()
		db.SetProperties(p)
		require.Nil(t, db.Init())
		cfg, err := NewRunConfig(p)
		require.Nil(t, err)
		cfg.Exporter = ""
		var out bytes.Buffer
		report, err := Run(context.Background(), cfg, db, &out)
		require.Nil(t, err)
		require.Equal(t, int64(50), report.Iterations)
	}
}
