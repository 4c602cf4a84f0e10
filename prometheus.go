package oltpbench

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricOperationDurationSeconds = "oltpbench_operation_duration_seconds"
	MetricOperationsTotal          = "oltpbench_operations_total"
)

// PrometheusMeasurements passes every measurement on to the wrapped
// Measurements and mirrors it into prometheus metrics labelled by
// operation and status.
type PrometheusMeasurements struct {
	Measurements
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

func NewPrometheusMeasurements(inner Measurements, reg prometheus.Registerer) (*PrometheusMeasurements, error) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    MetricOperationDurationSeconds,
		Help:    "Latency of workload operations in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 18),
	}, []string{"operation", "status"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: MetricOperationsTotal,
		Help: "Number of workload operations by status.",
	}, []string{"operation", "status"})
	for _, c := range []prometheus.Collector{duration, total} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register prometheus metrics: %w", err)
		}
	}
	return &PrometheusMeasurements{
		Measurements: inner,
		duration:     duration,
		total:        total,
	}, nil
}

// splitOperation splits a bucket name like "sp-CONFLICT" into operation
// and status. Plain operation names carry successful latencies.
func splitOperation(name string) (string, string) {
	if i := strings.LastIndex(name, "-"); i > 0 {
		return name[:i], name[i+1:]
	}
	return name, StatusOK.String()
}

func (self *PrometheusMeasurements) Measure(operation string, latency int64) {
	self.Measurements.Measure(operation, latency)
	op, status := splitOperation(operation)
	self.duration.WithLabelValues(op, status).Observe(float64(latency) / 1e6)
}

func (self *PrometheusMeasurements) ReportStatus(operation string, status StatusType) {
	self.Measurements.ReportStatus(operation, status)
	self.total.WithLabelValues(operation, status.String()).Inc()
}

// MetricsServer serves the metrics of a gatherer over HTTP at /metrics.
type MetricsServer struct {
	server *http.Server
	ln     net.Listener
	errc   chan error
}

// ServeMetrics starts serving on addr, e.g. ":9100", in a separate goroutine.
func ServeMetrics(addr string, gatherer prometheus.Gatherer) (*MetricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("start metrics server: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	self := &MetricsServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln:   ln,
		errc: make(chan error, 1),
	}
	go func() {
		err := self.server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			Errorf("metrics server: %s", err)
			self.errc <- err
		}
		close(self.errc)
	}()
	Infof("serving metrics at http://%s/metrics", ln.Addr())
	return self, nil
}

func (self *MetricsServer) Addr() string {
	return self.ln.Addr().String()
}

func (self *MetricsServer) Shutdown(ctx context.Context) error {
	if err := self.server.Shutdown(ctx); err != nil {
		return err
	}
	return <-self.errc
}
