package oltpbench

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict is returned when the database rejected an order state
	// transition, e.g. a stored procedure raised SIGNAL SQLSTATE '45000'.
	ErrConflict         = errors.New("the order state transition was rejected")
	ErrNotImplemented   = errors.New("the operation is not implemented for the current binding")
	ErrUnknownProcedure = errors.New("unknown stored procedure")
)

type StatusType uint8

const (
	StatusOK StatusType = 1 + iota
	StatusConflict
	StatusError
	StatusSkipped
)

func (self StatusType) String() string {
	switch self {
	case StatusOK:
		return "OK"
	case StatusConflict:
		return "CONFLICT"
	case StatusError:
		return "ERROR"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return "UNKNOWN_STATUS"
	}
}

// Classify maps the error of one database operation to its status.
func Classify(err error) StatusType {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrConflict):
		return StatusConflict
	default:
		return StatusError
	}
}

// Procedure is one of the order state transitions implemented as stored
// procedures.
type Procedure uint8

const (
	ProcedureConfirm Procedure = 1 + iota
	ProcedureCancel
	ProcedureReject
	ProcedureComplete
)

var (
	procedureNames = map[Procedure]string{
		ProcedureConfirm:  "confirm",
		ProcedureCancel:   "cancel",
		ProcedureReject:   "reject",
		ProcedureComplete: "complete",
	}
)

// Name returns the short name, e.g. "confirm".
func (self Procedure) Name() string {
	if name, ok := procedureNames[self]; ok {
		return name
	}
	return "unknown"
}

// String returns the stored procedure name, e.g. "sp_confirm_order".
func (self Procedure) String() string {
	return fmt.Sprintf("sp_%s_order", self.Name())
}

func ParseProcedure(name string) (Procedure, error) {
	name = strings.ToLower(name)
	for p, n := range procedureNames {
		if n == name || p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownProcedure, name)
}

// Order is an order identifier together with its status at load time.
type Order struct {
	ID     int64
	Status string
}

// DB is a layer for accessing the marketplace database to be benchmarked.
// There is one DB instance per run. It should be constructed using a
// no-argument constructor so it can be looked up by name in Databases.
// Any argument-based initialization is done by Init().
//
// Read operations drain their whole result set before returning, so the
// time spent in a call covers both execution and fetch.
type DB interface {
	// Set the properties for this DB.
	SetProperties(p Properties)

	// Get the properties for this DB.
	GetProperties() Properties

	// Initialize any state for this DB, e.g. open the connection.
	Init() error

	// Cleanup any state for this DB.
	Cleanup() error

	// ReferenceIDs returns the values of column in table in ascending order.
	ReferenceIDs(ctx context.Context, table, column string) ([]int64, error)

	// Orders returns all orders with their status in ascending id order.
	Orders(ctx context.Context) ([]Order, error)

	// Browse reads the newest available listings of a category.
	// It returns the number of rows read.
	Browse(ctx context.Context, categoryID int64, limit int64) (int, error)

	// SellerListings reads the newest listings of a seller.
	SellerListings(ctx context.Context, sellerID int64, limit int64) (int, error)

	// Comments reads the newest comments of a listing.
	Comments(ctx context.Context, listingID int64, limit int64) (int, error)

	// CallProcedure runs an order state transition on one order.
	// A rejected transition is reported as an error wrapping ErrConflict.
	CallProcedure(ctx context.Context, proc Procedure, orderID int64) error
}

type DBBase struct {
	p Properties
}

func NewDBBase() *DBBase {
	return &DBBase{}
}

func (self *DBBase) SetProperties(p Properties) {
	self.p = p
}

func (self *DBBase) GetProperties() Properties {
	return self.p
}

type MakeDBFunc func() DB

var (
	Databases = map[string]MakeDBFunc{
		"basic": func() DB {
			return NewBasicDB()
		},
	}
)

func NewDB(database string, props Properties) (DB, error) {
	f, ok := Databases[database]
	if !ok {
		return nil, fmt.Errorf("unsupported database: %s", database)
	}
	db := f()
	db.SetProperties(props)
	return db, nil
}
