package oltpbench

import (
	"context"
	"errors"
	"testing"

	"github.com/hhkbp2/testify/require"
)

func newTestWrapper(t *testing.T, db DB) (*DBWrapper, *DefaultMeasurements) {
	measurements, err := NewDefaultMeasurements(NewProperties())
	require.Nil(t, err)
	wrapper, err := NewDBWrapper(db, measurements)
	require.Nil(t, err)
	return wrapper, measurements
}

func TestDBWrapperSuccess(t *testing.T) {
	wrapper, measurements := newTestWrapper(t, newStubDB())
	ctx := context.Background()

	o := wrapper.Browse(ctx, 1, 20)
	require.Equal(t, OpBrowse, o.Operation)
	require.Equal(t, StatusOK, o.Status)
	require.Equal(t, 1, o.Rows)
	require.Nil(t, o.Err)
	require.True(t, o.Elapsed >= 0)
	require.Equal(t, 2, wrapper.SellerListings(ctx, 1, 20).Rows)
	require.Equal(t, 3, wrapper.Comments(ctx, 1, 30).Rows)

	for _, op := range []string{OpBrowse, OpSeller, OpComments} {
		m, ok := measurements.Lookup(op)
		require.True(t, ok)
		require.Equal(t, int64(1), m.Summary().Count)
		require.Equal(t, uint32(1), m.StatusCount(StatusOK))
	}
}

func TestDBWrapperFailure(t *testing.T) {
	db := newStubDB()
	wrapper, measurements := newTestWrapper(t, db)
	ctx := context.Background()

	db.callErr = errors.New("lost connection")
	o := wrapper.CallProcedure(ctx, ProcedureConfirm, 1)
	require.Equal(t, StatusError, o.Status)
	require.Equal(t, db.callErr, o.Err)

	db.callErr = ErrConflict
	o = wrapper.CallProcedure(ctx, ProcedureCancel, 1)
	require.Equal(t, StatusConflict, o.Status)

	db.callErr = nil
	o = wrapper.CallProcedure(ctx, ProcedureReject, 1)
	require.Equal(t, StatusOK, o.Status)
	require.Equal(t, []Procedure{ProcedureConfirm, ProcedureCancel, ProcedureReject}, db.calls)

	m, ok := measurements.Lookup(OpProcedure)
	require.True(t, ok)
	// only the successful call carries a latency
	require.Equal(t, int64(1), m.Summary().Count)
	require.Equal(t, uint32(1), m.StatusCount(StatusOK))
	require.Equal(t, uint32(1), m.StatusCount(StatusConflict))
	require.Equal(t, uint32(1), m.StatusCount(StatusError))
	_, ok = measurements.Lookup(OpProcedure + "-CONFLICT")
	require.True(t, !ok)
}

func TestDBWrapperReportLatencyForEachError(t *testing.T) {
	db := newStubDB()
	db.SetProperties(Properties{PropertyReportLatencyForEachError: "true"})
	wrapper, measurements := newTestWrapper(t, db)

	db.callErr = ErrConflict
	wrapper.CallProcedure(context.Background(), ProcedureConfirm, 1)
	m, ok := measurements.Lookup(OpProcedure + "-CONFLICT")
	require.True(t, ok)
	require.Equal(t, int64(1), m.Summary().Count)
	m, ok = measurements.Lookup(OpProcedure)
	require.True(t, ok)
	require.Equal(t, int64(0), m.Summary().Count)
}

func TestDBWrapperSkip(t *testing.T) {
	wrapper, measurements := newTestWrapper(t, newStubDB())
	o := wrapper.Skip(OpProcedure)
	require.Equal(t, StatusSkipped, o.Status)
	m, ok := measurements.Lookup(OpProcedure)
	require.True(t, ok)
	require.Equal(t, uint32(1), m.StatusCount(StatusSkipped))
	require.Equal(t, int64(0), m.Summary().Count)
}

func TestDBWrapperInvalidProperty(t *testing.T) {
	db := newStubDB()
	db.SetProperties(Properties{PropertyReportLatencyForEachError: "sometimes"})
	measurements, err := NewDefaultMeasurements(NewProperties())
	require.Nil(t, err)
	_, err = NewDBWrapper(db, measurements)
	require.NotNil(t, err)
}
