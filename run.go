package oltpbench

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	g "github.com/hhkbp2/oltpbench/generator"
	"golang.org/x/time/rate"
)

// RunConfig is the configuration of one run, resolved from properties.
type RunConfig struct {
	Properties       Properties
	Workload         string
	OperationCount   int64
	Target           float64
	MaxExecutionTime time.Duration
	Seed             int64
	Exporter         string
	ExportFile       string
	MetricsAddr      string
	// Measurements receives every latency and status. A DefaultMeasurements
	// built from Properties is used when nil.
	Measurements Measurements
}

func NewRunConfig(p Properties) (*RunConfig, error) {
	operationCount, err := p.GetInt64(PropertyOperationCount, PropertyOperationCountDefault)
	if err != nil {
		return nil, err
	}
	if operationCount < 0 {
		return nil, fmt.Errorf("invalid property %s: %d", PropertyOperationCount, operationCount)
	}
	target, err := p.GetFloat64(PropertyTarget, PropertyTargetDefault)
	if err != nil {
		return nil, err
	}
	maxExecutionTime, err := p.GetInt64(PropertyMaxExecutionTime, PropertyMaxExecutionTimeDefault)
	if err != nil {
		return nil, err
	}
	var seed int64
	if _, ok := p[PropertySeed]; ok {
		seed, err = p.GetInt64(PropertySeed, "")
		if err != nil {
			return nil, err
		}
	} else {
		seed = time.Now().UnixNano()
		Infof("no %s given, using %d", PropertySeed, seed)
	}
	return &RunConfig{
		Properties:       p,
		Workload:         p.GetDefault(PropertyWorkload, PropertyWorkloadDefault),
		OperationCount:   operationCount,
		Target:           target,
		MaxExecutionTime: SecondToDuration(maxExecutionTime),
		Seed:             seed,
		Exporter:         p.Get(PropertyExporter),
		ExportFile:       p.Get(PropertyExportFile),
		MetricsAddr:      p.Get(PropertyMetricsAddr),
	}, nil
}

// Run loads the reference data from db, runs cfg.OperationCount iterations
// of the workload one after another and writes the report to w.
// The run ends early when ctx is done or the max execution time is reached;
// the report then covers the iterations done so far.
func Run(ctx context.Context, cfg *RunConfig, db DB, w io.Writer) (*Report, error) {
	refs, err := LoadReferences(ctx, db)
	if err != nil {
		return nil, err
	}
	workload, err := NewWorkload(cfg.Workload)
	if err != nil {
		return nil, err
	}
	if err = workload.Init(cfg.Properties, g.NewRandom(cfg.Seed), refs); err != nil {
		return nil, fmt.Errorf("init workload %s: %w", cfg.Workload, err)
	}
	defer workload.Cleanup()

	measurements := cfg.Measurements
	if measurements == nil {
		measurements, err = NewDefaultMeasurements(cfg.Properties)
		if err != nil {
			return nil, err
		}
	}
	wrapper, err := NewDBWrapper(db, measurements)
	if err != nil {
		return nil, err
	}

	if cfg.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxExecutionTime)
		defer cancel()
	}
	var limiter *rate.Limiter
	if cfg.Target > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Target), 1)
	}

	report := &Report{}
	start := time.Now()
	for i := int64(0); i < cfg.OperationCount; i++ {
		if ctx.Err() != nil {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		report.Count(workload.DoTransaction(ctx, wrapper))
	}
	report.Runtime = time.Since(start)
	if report.Iterations < cfg.OperationCount {
		Warnf("run stopped after %d of %d iterations: %v",
			report.Iterations, cfg.OperationCount, ctx.Err())
	}
	Debugf("measurements: %s", measurements.GetSummary())
	Infow("run finished",
		"iterations", report.Iterations,
		"successful", report.Successful,
		"conflicts", report.Conflicts,
		"faults", report.Faults,
		"skipped", report.Skipped,
		"runtime", report.Runtime)

	report.Summarize(measurements)
	report.Print(w)
	if len(cfg.Exporter) > 0 {
		if err := exportMeasurements(cfg, measurements); err != nil {
			return report, fmt.Errorf("export measurements: %w", err)
		}
	}
	return report, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

func exportMeasurements(cfg *RunConfig, measurements Measurements) error {
	var out io.WriteCloser
	if len(cfg.ExportFile) == 0 {
		out = nopWriteCloser{os.Stdout}
	} else {
		name := ExpandFileName(cfg.ExportFile, time.Now())
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		Infof("exporting measurements to %s", name)
		out = f
	}
	exporter, err := NewMeasurementExporter(cfg.Exporter, out)
	if err != nil {
		out.Close()
		return err
	}
	err = measurements.ExportMeasurements(exporter)
	if err2 := exporter.Close(); err == nil {
		err = err2
	}
	return err
}
