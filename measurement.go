package oltpbench

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type MeasurementType uint8

const (
	MeasurementRaw MeasurementType = 1 + iota
	MeasurementHDRHistogram
	MeasurementHDRHistogramAndRaw
)

func ParseMeasurementType(s string) (MeasurementType, error) {
	switch s {
	case "raw":
		return MeasurementRaw, nil
	case "hdrhistogram":
		return MeasurementHDRHistogram, nil
	case "hdrhistogram+raw":
		return MeasurementHDRHistogramAndRaw, nil
	default:
		return 0, fmt.Errorf("unknown %s=%s", PropertyMeasurementType, s)
	}
}

// Used to export the collected measurements into a useful format, for example
// human readable text or machine readable JSON.
type MeasurementExporter interface {
	// Write a measurement to the exported format. v should be int64 or float64
	Write(metric string, measurement string, v interface{}) error
	io.Closer
}

type MakeMeasurementExporterFunc func(w io.WriteCloser) MeasurementExporter

var (
	MeasurementExporters map[string]MakeMeasurementExporterFunc
)

func init() {
	MeasurementExporters = map[string]MakeMeasurementExporterFunc{
		"TextMeasurementExporter": func(w io.WriteCloser) MeasurementExporter {
			return NewTextMeasurementExporter(w)
		},
		"JSONMeasurementExporter": func(w io.WriteCloser) MeasurementExporter {
			return NewJSONMeasurementExporter(w)
		},
		"JSONArrayMeasurementExporter": func(w io.WriteCloser) MeasurementExporter {
			return NewJSONArrayMeasurementExporter(w)
		},
	}
}

func NewMeasurementExporter(className string, w io.WriteCloser) (MeasurementExporter, error) {
	f, ok := MeasurementExporters[className]
	if !ok {
		return nil, fmt.Errorf("unsupported measurement exporter: %s", className)
	}
	return f(w), nil
}

// Percentile returns the nearest rank percentile p (0..100) of the values in
// sorted, which must be in ascending order. The rank is p/100*(n-1) rounded
// half to even, so Percentile([1 2 3 4], 50) is 3. It returns 0 for an
// empty slice.
func Percentile(sorted []int64, p float64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	k := int(math.RoundToEven(p / 100.0 * float64(n-1)))
	if k < 0 {
		k = 0
	}
	if k >= n {
		k = n - 1
	}
	return sorted[k]
}

// LatencySummary holds the statistics of one bucket, in microseconds.
type LatencySummary struct {
	Count int64
	Mean  float64
	P95   int64
	Min   int64
	Max   int64
}

// Summarize computes the summary of the given latencies. values is not
// modified.
func Summarize(values []int64) LatencySummary {
	if len(values) == 0 {
		return LatencySummary{}
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var total float64
	for _, v := range sorted {
		total += float64(v)
	}
	return LatencySummary{
		Count: int64(len(sorted)),
		Mean:  total / float64(len(sorted)),
		P95:   Percentile(sorted, 95),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
	}
}

// A single measured metric (such as BROWSE LATENCY)
type OneMeasurement interface {
	Measure(latency int64)
	GetName() string
	GetSummary() string
	// Report a return code.
	ReportStatus(status StatusType)
	StatusCount(status StatusType) uint32
	// Summary returns count, mean, p95, min and max of the latencies.
	Summary() LatencySummary
	// Exports the current measurements to a suitable format.
	ExportMeasurements(exporter MeasurementExporter) error
}

type OneMeasurementBase struct {
	Name            string
	MeasureLock     *sync.Mutex
	ReturnCodes     map[StatusType]uint32
	ReturnCodesLock *sync.Mutex
}

func NewOneMeasurementBase(name string) *OneMeasurementBase {
	return &OneMeasurementBase{
		Name:            name,
		MeasureLock:     &sync.Mutex{},
		ReturnCodes:     make(map[StatusType]uint32),
		ReturnCodesLock: &sync.Mutex{},
	}
}

func (self *OneMeasurementBase) GetName() string {
	return self.Name
}

func (self *OneMeasurementBase) ReportStatus(status StatusType) {
	self.ReturnCodesLock.Lock()
	defer self.ReturnCodesLock.Unlock()
	self.ReturnCodes[status]++
}

func (self *OneMeasurementBase) StatusCount(status StatusType) uint32 {
	self.ReturnCodesLock.Lock()
	defer self.ReturnCodesLock.Unlock()
	return self.ReturnCodes[status]
}

func (self *OneMeasurementBase) ExportStatusCounts(exporter MeasurementExporter) error {
	self.ReturnCodesLock.Lock()
	statuses := make([]StatusType, 0, len(self.ReturnCodes))
	for status := range self.ReturnCodes {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	counts := make([]uint32, 0, len(statuses))
	for _, status := range statuses {
		counts = append(counts, self.ReturnCodes[status])
	}
	self.ReturnCodesLock.Unlock()
	for i, status := range statuses {
		err := exporter.Write(self.GetName(), fmt.Sprintf("Return=%s", status), counts[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// Collects latency measurements, and reports them when requested.
type Measurements interface {
	// Report a single value of a single metric. E.g. for browse latency,
	// operation="browse" and latency is the measured value.
	Measure(operation string, latency int64)

	// Return a one line summary of the measurements.
	GetSummary() string

	// Report a return code for a single DB operation.
	ReportStatus(operation string, status StatusType)

	// Lookup returns the measurement of operation, if anything was
	// reported for it.
	Lookup(operation string) (OneMeasurement, bool)

	// Export the current measurements to a suitable format.
	ExportMeasurements(exporter MeasurementExporter) error
}

type measurementConfig struct {
	measurementType MeasurementType
	percentiles     []float64
	hdrMax          int64
	hdrSig          int
}

func newMeasurementConfig(props Properties) (*measurementConfig, error) {
	measurementType, err := ParseMeasurementType(
		props.GetDefault(PropertyMeasurementType, PropertyMeasurementTypeDefault))
	if err != nil {
		return nil, err
	}
	percentiles, err := parsePercentileValues(
		props.GetDefault(PropertyPercentiles, PropertyPercentilesDefault))
	if err != nil {
		return nil, err
	}
	hdrMax, err := props.GetInt64(PropertyHdrHistogramMax, PropertyHdrHistogramMaxDefault)
	if err != nil {
		return nil, err
	}
	hdrSig, err := props.GetInt64(PropertyHdrHistogramSig, PropertyHdrHistogramSigDefault)
	if err != nil {
		return nil, err
	}
	if hdrSig < 1 || hdrSig > 5 {
		return nil, fmt.Errorf("invalid property %s: %d not in [1, 5]", PropertyHdrHistogramSig, hdrSig)
	}
	if hdrMax < 2 {
		return nil, fmt.Errorf("invalid property %s: %d", PropertyHdrHistogramMax, hdrMax)
	}
	return &measurementConfig{
		measurementType: measurementType,
		percentiles:     percentiles,
		hdrMax:          hdrMax,
		hdrSig:          int(hdrSig),
	}, nil
}

type DefaultMeasurements struct {
	config             *measurementConfig
	opToMeasurementMap map[string]OneMeasurement
	lock               *sync.RWMutex
}

func NewDefaultMeasurements(props Properties) (*DefaultMeasurements, error) {
	config, err := newMeasurementConfig(props)
	if err != nil {
		return nil, err
	}
	return &DefaultMeasurements{
		config:             config,
		opToMeasurementMap: make(map[string]OneMeasurement),
		lock:               &sync.RWMutex{},
	}, nil
}

func (self *DefaultMeasurements) constructOneMeasurement(name string) OneMeasurement {
	c := self.config
	switch c.measurementType {
	case MeasurementHDRHistogram:
		return NewOneMeasurementHdrHistogram(name, c.percentiles, c.hdrMax, c.hdrSig)
	case MeasurementHDRHistogramAndRaw:
		return NewTwoInOneMeasurement(name,
			NewOneMeasurementHdrHistogram("Hdr"+name, c.percentiles, c.hdrMax, c.hdrSig),
			NewOneMeasurementRaw("Raw"+name, c.percentiles))
	default:
		return NewOneMeasurementRaw(name, c.percentiles)
	}
}

// Report a single value of a single metric. E.g. for browse latency,
// operation="browse" and latency is the measured value.
func (self *DefaultMeasurements) Measure(operation string, latency int64) {
	m := self.getOpMeasurement(operation)
	m.Measure(latency)
}

func (self *DefaultMeasurements) GetSummary() string {
	var parts []string
	for _, m := range self.sorted() {
		if s := m.GetSummary(); len(s) > 0 {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (self *DefaultMeasurements) ReportStatus(operation string, status StatusType) {
	m := self.getOpMeasurement(operation)
	m.ReportStatus(status)
}

func (self *DefaultMeasurements) Lookup(operation string) (OneMeasurement, bool) {
	self.lock.RLock()
	defer self.lock.RUnlock()
	m, ok := self.opToMeasurementMap[operation]
	return m, ok
}

func (self *DefaultMeasurements) ExportMeasurements(exporter MeasurementExporter) (err error) {
	defer catch(&err)
	for _, m := range self.sorted() {
		try(m.ExportMeasurements(exporter))
	}
	return
}

func (self *DefaultMeasurements) sorted() []OneMeasurement {
	self.lock.RLock()
	defer self.lock.RUnlock()
	names := make([]string, 0, len(self.opToMeasurementMap))
	for name := range self.opToMeasurementMap {
		names = append(names, name)
	}
	sort.Strings(names)
	ret := make([]OneMeasurement, 0, len(names))
	for _, name := range names {
		ret = append(ret, self.opToMeasurementMap[name])
	}
	return ret
}

func (self *DefaultMeasurements) getOpMeasurement(operation string) OneMeasurement {
	self.lock.RLock()
	m, ok := self.opToMeasurementMap[operation]
	self.lock.RUnlock()
	if !ok {
		self.lock.Lock()
		defer self.lock.Unlock()
		if m, ok = self.opToMeasurementMap[operation]; !ok {
			m = self.constructOneMeasurement(operation)
			self.opToMeasurementMap[operation] = m
		}
	}
	return m
}

// Write human readable text.
type TextMeasurementExporter struct {
	io.WriteCloser
	buf *bufio.Writer
}

func NewTextMeasurementExporter(w io.WriteCloser) *TextMeasurementExporter {
	return &TextMeasurementExporter{
		WriteCloser: w,
		buf:         bufio.NewWriter(w),
	}
}

func (self *TextMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	_, err := fmt.Fprintf(self.buf, "[%s], %s, %v\n", metric, measurement, v)
	return err
}

func (self *TextMeasurementExporter) Close() error {
	err := self.buf.Flush()
	err2 := self.WriteCloser.Close()
	if err != nil {
		return err
	}
	return err2
}

type innerJSONMeasurement struct {
	Metric      string      `json:"metric"`
	Measurement string      `json:"measurement"`
	Value       interface{} `json:"value"`
}

// Export measurements into a machine readable JSON file, one object per line.
type JSONMeasurementExporter struct {
	io.WriteCloser
	buf *bufio.Writer
}

func NewJSONMeasurementExporter(w io.WriteCloser) *JSONMeasurementExporter {
	return &JSONMeasurementExporter{
		WriteCloser: w,
		buf:         bufio.NewWriter(w),
	}
}

func (self *JSONMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	b, err := json.Marshal(&innerJSONMeasurement{
		Metric:      metric,
		Measurement: measurement,
		Value:       v,
	})
	if err != nil {
		return err
	}
	if _, err = self.buf.Write(b); err != nil {
		return err
	}
	return self.buf.WriteByte('\n')
}

func (self *JSONMeasurementExporter) Close() error {
	err := self.buf.Flush()
	err2 := self.WriteCloser.Close()
	if err != nil {
		return err
	}
	return err2
}

// Export measurements into a machine readable JSON Array of measurement objects.
type JSONArrayMeasurementExporter struct {
	io.WriteCloser
	buf        *bufio.Writer
	afterFirst bool
}

func NewJSONArrayMeasurementExporter(w io.WriteCloser) *JSONArrayMeasurementExporter {
	object := &JSONArrayMeasurementExporter{
		WriteCloser: w,
		buf:         bufio.NewWriter(w),
		afterFirst:  false,
	}
	object.buf.WriteString("[")
	return object
}

func (self *JSONArrayMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	b, err := json.Marshal(&innerJSONMeasurement{
		Metric:      metric,
		Measurement: measurement,
		Value:       v,
	})
	if err != nil {
		return err
	}
	if self.afterFirst {
		if _, err = self.buf.WriteString(","); err != nil {
			return err
		}
	} else {
		self.afterFirst = true
	}
	_, err = self.buf.Write(b)
	return err
}

func (self *JSONArrayMeasurementExporter) Close() error {
	_, err := self.buf.WriteString("]")
	if err == nil {
		err = self.buf.Flush()
	}
	err2 := self.WriteCloser.Close()
	if err != nil {
		return err
	}
	return err2
}

func try(err error) {
	if err != nil {
		panic(err)
	}
}

func catch(err *error) {
	if p := recover(); p != nil {
		e, ok := p.(error)
		if !ok {
			panic(p)
		}
		*err = e
	}
}

// Record a series of measurements as raw data points without down sampling.
type OneMeasurementRaw struct {
	*OneMeasurementBase
	percentiles  []float64
	measurements []int64
	totalLatency int64
	// A window of stats to print summary for at the next GetSummary() call.
	// It's suppose to be a one line summary, so we will just print count and
	// average.
	windowOperations   int64
	windowTotalLatency int64
}

func NewOneMeasurementRaw(name string, percentiles []float64) *OneMeasurementRaw {
	return &OneMeasurementRaw{
		OneMeasurementBase: NewOneMeasurementBase(name),
		percentiles:        percentiles,
		measurements:       make([]int64, 0, 64),
	}
}

func (self *OneMeasurementRaw) Measure(latency int64) {
	self.MeasureLock.Lock()
	defer self.MeasureLock.Unlock()

	self.totalLatency += latency
	self.windowTotalLatency += latency
	self.windowOperations++
	self.measurements = append(self.measurements, latency)
}

func (self *OneMeasurementRaw) GetSummary() string {
	self.MeasureLock.Lock()
	defer self.MeasureLock.Unlock()
	if self.windowOperations == 0 {
		return ""
	}
	ret := fmt.Sprintf("[%s count: %d, average latency(us): %.2f]",
		self.GetName(), self.windowOperations,
		float64(self.windowTotalLatency)/float64(self.windowOperations))
	self.windowOperations = 0
	self.windowTotalLatency = 0
	return ret
}

func (self *OneMeasurementRaw) Summary() LatencySummary {
	self.MeasureLock.Lock()
	defer self.MeasureLock.Unlock()
	return Summarize(self.measurements)
}

func (self *OneMeasurementRaw) ExportMeasurements(exporter MeasurementExporter) (err error) {
	defer catch(&err)
	self.MeasureLock.Lock()
	sorted := append([]int64(nil), self.measurements...)
	self.MeasureLock.Unlock()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	name := self.GetName()
	total := len(sorted)
	try(exporter.Write(name, "Operations", total))
	if total > 0 {
		s := Summarize(sorted)
		try(exporter.Write(name, "AverageLatency(us)", s.Mean))
		try(exporter.Write(name, "MinLatency(us)", s.Min))
		try(exporter.Write(name, "MaxLatency(us)", s.Max))
		for _, p := range self.percentiles {
			try(exporter.Write(name, percentileLabel(p), Percentile(sorted, p)))
		}
	}
	try(self.ExportStatusCounts(exporter))
	return
}

// Take measurements and maintain a HdrHistogram of a given metric, such as
// BROWSE LATENCY.
type OneMeasurementHdrHistogram struct {
	*OneMeasurementBase
	histogram   *hdrhistogram.Histogram
	percentiles []float64
	overflow    int64
}

// Helper function to parse the given percentile value string, e.g. "95,99,99.9".
func parsePercentileValues(prop string) ([]float64, error) {
	parts := strings.Split(prop, ",")
	ret := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 || v > 100 {
			return nil, fmt.Errorf("invalid property %s: %q", PropertyPercentiles, prop)
		}
		ret = append(ret, v)
	}
	return ret, nil
}

func NewOneMeasurementHdrHistogram(name string, percentiles []float64, max int64, sig int) *OneMeasurementHdrHistogram {
	return &OneMeasurementHdrHistogram{
		OneMeasurementBase: NewOneMeasurementBase(name),
		histogram:          hdrhistogram.New(1, max, sig),
		percentiles:        percentiles,
	}
}

// Latency is reported in microseconds. Values above the highest trackable
// value are recorded as that value.
func (self *OneMeasurementHdrHistogram) Measure(latency int64) {
	self.MeasureLock.Lock()
	defer self.MeasureLock.Unlock()

	if err := self.histogram.RecordValue(latency); err != nil {
		self.overflow++
		self.histogram.RecordValue(self.histogram.HighestTrackableValue())
	}
}

func (self *OneMeasurementHdrHistogram) GetSummary() string {
	self.MeasureLock.Lock()
	defer self.MeasureLock.Unlock()
	format := "[%s: Count=%d, Max=%d, Min=%d, Avg=%.2f, 90=%d, 99=%d, 99.9=%d, 99.99=%d]"
	return fmt.Sprintf(format,
		self.GetName(),
		self.histogram.TotalCount(),
		self.histogram.Max(),
		self.histogram.Min(),
		self.histogram.Mean(),
		self.histogram.ValueAtQuantile(90),
		self.histogram.ValueAtQuantile(99),
		self.histogram.ValueAtQuantile(99.9),
		self.histogram.ValueAtQuantile(99.99))
}

// Summary reports the histogram's approximation of the statistics, within
// the configured significant digits.
func (self *OneMeasurementHdrHistogram) Summary() LatencySummary {
	self.MeasureLock.Lock()
	defer self.MeasureLock.Unlock()
	count := self.histogram.TotalCount()
	if count == 0 {
		return LatencySummary{}
	}
	return LatencySummary{
		Count: count,
		Mean:  self.histogram.Mean(),
		P95:   self.histogram.ValueAtQuantile(95),
		Min:   self.histogram.Min(),
		Max:   self.histogram.Max(),
	}
}

var (
	Suffixes = []string{"th", "st", "nd", "rd", "th", "th", "th", "th", "th", "th"}
)

func ordinal(p int64) string {
	switch p % 100 {
	case 11, 12, 13:
		return fmt.Sprintf("%dth", p)
	default:
		return fmt.Sprintf("%d%s", p, Suffixes[p%10])
	}
}

func percentileLabel(p float64) string {
	if p == math.Trunc(p) {
		return ordinal(int64(p)) + "PercentileLatency(us)"
	}
	return strconv.FormatFloat(p, 'f', -1, 64) + "thPercentileLatency(us)"
}

// This is called from the main goroutine, on orderly termination.
func (self *OneMeasurementHdrHistogram) ExportMeasurements(exporter MeasurementExporter) (err error) {
	defer catch(&err)
	self.MeasureLock.Lock()
	h := hdrhistogram.Import(self.histogram.Export())
	overflow := self.overflow
	self.MeasureLock.Unlock()

	name := self.GetName()
	try(exporter.Write(name, "Operations", h.TotalCount()))
	try(exporter.Write(name, "AverageLatency(us)", h.Mean()))
	try(exporter.Write(name, "MinLatency(us)", h.Min()))
	try(exporter.Write(name, "MaxLatency(us)", h.Max()))
	for _, p := range self.percentiles {
		try(exporter.Write(name, percentileLabel(p), h.ValueAtQuantile(p)))
	}
	if overflow > 0 {
		try(exporter.Write(name, "Overflow", overflow))
	}
	try(self.ExportStatusCounts(exporter))
	return
}

// Delegates to 2 measurement instances. The summary is taken from the
// second one, which is the exact one for hdrhistogram+raw.
type TwoInOneMeasurement struct {
	*OneMeasurementBase
	thing1 OneMeasurement
	thing2 OneMeasurement
}

func NewTwoInOneMeasurement(name string, thing1, thing2 OneMeasurement) *TwoInOneMeasurement {
	return &TwoInOneMeasurement{
		OneMeasurementBase: NewOneMeasurementBase(name),
		thing1:             thing1,
		thing2:             thing2,
	}
}

func (self *TwoInOneMeasurement) Measure(latency int64) {
	self.thing1.Measure(latency)
	self.thing2.Measure(latency)
}

func (self *TwoInOneMeasurement) GetSummary() string {
	return self.thing1.GetSummary() + " " + self.thing2.GetSummary()
}

func (self *TwoInOneMeasurement) Summary() LatencySummary {
	return self.thing2.Summary()
}

// This is called from the main goroutine, on orderly termination.
func (self *TwoInOneMeasurement) ExportMeasurements(exporter MeasurementExporter) (err error) {
	defer catch(&err)

	try(self.thing1.ExportMeasurements(exporter))
	try(self.thing2.ExportMeasurements(exporter))
	try(self.ExportStatusCounts(exporter))
	return
}
