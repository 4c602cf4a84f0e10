package oltpbench

import (
	"fmt"
	"io"
	"time"
)

// OperationSummary is the summary of one operation bucket.
type OperationSummary struct {
	Operation string
	LatencySummary
}

// Report is the outcome of one run.
type Report struct {
	Operations []OperationSummary
	Iterations int64
	Successful int64
	Conflicts  int64
	Faults     int64
	Skipped    int64
	Runtime    time.Duration
}

// Errors is the number of failed iterations, conflicts and faults together.
func (self *Report) Errors() int64 {
	return self.Conflicts + self.Faults
}

// Throughput returns successful operations per second, or 0 when the
// runtime is not positive.
func (self *Report) Throughput() float64 {
	seconds := self.Runtime.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(self.Successful) / seconds
}

// Count records the outcome of one iteration.
func (self *Report) Count(o *Outcome) {
	self.Iterations++
	switch o.Status {
	case StatusOK:
		self.Successful++
	case StatusConflict:
		self.Conflicts++
	case StatusSkipped:
		self.Skipped++
	default:
		self.Faults++
	}
}

// Summarize fills the per operation summaries from measurements, in report
// order, leaving out operations without any measured latency.
func (self *Report) Summarize(measurements Measurements) {
	self.Operations = self.Operations[:0]
	for _, op := range OperationNames {
		m, ok := measurements.Lookup(op)
		if !ok {
			continue
		}
		s := m.Summary()
		if s.Count == 0 {
			continue
		}
		self.Operations = append(self.Operations, OperationSummary{
			Operation:      op,
			LatencySummary: s,
		})
	}
}

func ms(micros int64) float64 {
	return MicrosecondToMillisecond(float64(micros))
}

// Print writes the plain text summary to w.
func (self *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== OLTP Workload Summary ===")
	for _, s := range self.Operations {
		fmt.Fprintf(w, "%-8s  n=%4d  avg=%.2fms  p95=%.2fms  max=%.2fms\n",
			s.Operation, s.Count, MicrosecondToMillisecond(s.Mean), ms(s.P95), ms(s.Max))
	}
	fmt.Fprintf(w, "errors: %d / %d\n", self.Errors(), self.Iterations)
	fmt.Fprintf(w, "conflicts: %d  faults: %d\n", self.Conflicts, self.Faults)
	if self.Skipped > 0 {
		fmt.Fprintf(w, "skipped: %d\n", self.Skipped)
	}
	fmt.Fprintf(w, "total_runtime: %.3f s\n", self.Runtime.Seconds())
	fmt.Fprintf(w, "successful_ops: %d\n", self.Successful)
	fmt.Fprintf(w, "throughput: %.2f ops/s\n", self.Throughput())
}
