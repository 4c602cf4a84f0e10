package oltpbench

import (
	"context"
	"time"
)

const (
	OpBrowse    = "browse"
	OpSeller    = "seller"
	OpComments  = "comments"
	OpProcedure = "sp"
)

var (
	// OperationNames lists the operations in report order.
	OperationNames = []string{OpBrowse, OpSeller, OpComments, OpProcedure}
)

// Outcome is the result of one timed database operation.
type Outcome struct {
	Operation string
	Rows      int
	Status    StatusType
	Elapsed   time.Duration
	Err       error
}

// DBWrapper wraps a DB and times every call. The status of each call is
// reported to the measurements, the latency only when the call succeeded
// (or for every call when reportlatencyforeacherror is set, in a separate
// bucket per status).
type DBWrapper struct {
	db                        DB
	measurements              Measurements
	reportLatencyForEachError bool
}

func NewDBWrapper(db DB, measurements Measurements) (*DBWrapper, error) {
	p := db.GetProperties()
	if p == nil {
		p = NewProperties()
	}
	reportLatencyForEachError, err := p.GetBool(
		PropertyReportLatencyForEachError, PropertyReportLatencyForEachErrorDefault)
	if err != nil {
		return nil, err
	}
	return &DBWrapper{
		db:                        db,
		measurements:              measurements,
		reportLatencyForEachError: reportLatencyForEachError,
	}, nil
}

func (self *DBWrapper) DB() DB {
	return self.db
}

func (self *DBWrapper) Measurements() Measurements {
	return self.measurements
}

func (self *DBWrapper) measure(operation string, f func() (int, error)) *Outcome {
	start := time.Now()
	rows, err := f()
	elapsed := time.Since(start)
	status := Classify(err)
	latency := NanosecondToMicrosecond(int64(elapsed))
	switch {
	case status == StatusOK:
		self.measurements.Measure(operation, latency)
	case self.reportLatencyForEachError:
		self.measurements.Measure(operation+"-"+status.String(), latency)
	}
	self.measurements.ReportStatus(operation, status)
	if err != nil {
		Debugf("%s failed after %s: %s", operation, elapsed, err)
	}
	return &Outcome{
		Operation: operation,
		Rows:      rows,
		Status:    status,
		Elapsed:   elapsed,
		Err:       err,
	}
}

func (self *DBWrapper) Browse(ctx context.Context, categoryID int64, limit int64) *Outcome {
	return self.measure(OpBrowse, func() (int, error) {
		return self.db.Browse(ctx, categoryID, limit)
	})
}

func (self *DBWrapper) SellerListings(ctx context.Context, sellerID int64, limit int64) *Outcome {
	return self.measure(OpSeller, func() (int, error) {
		return self.db.SellerListings(ctx, sellerID, limit)
	})
}

func (self *DBWrapper) Comments(ctx context.Context, listingID int64, limit int64) *Outcome {
	return self.measure(OpComments, func() (int, error) {
		return self.db.Comments(ctx, listingID, limit)
	})
}

func (self *DBWrapper) CallProcedure(ctx context.Context, proc Procedure, orderID int64) *Outcome {
	return self.measure(OpProcedure, func() (int, error) {
		return 0, self.db.CallProcedure(ctx, proc, orderID)
	})
}

// Skip reports an iteration of operation that did not touch the database.
func (self *DBWrapper) Skip(operation string) *Outcome {
	self.measurements.ReportStatus(operation, StatusSkipped)
	return &Outcome{
		Operation: operation,
		Status:    StatusSkipped,
	}
}
