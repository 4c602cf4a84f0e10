package oltpbench

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	g "github.com/hhkbp2/oltpbench/generator"
)

var (
	// Order statuses the synthetic orders are created with, in turn.
	basicDBOrderStatuses = []string{"requested", "confirmed", "completed", "cancelled", "rejected"}

	// Allowed transitions per procedure, from status to status.
	basicDBTransitions = map[Procedure]map[string]string{
		ProcedureConfirm: {
			"requested": "confirmed",
		},
		ProcedureCancel: {
			"requested": "cancelled",
			"confirmed": "cancelled",
		},
		ProcedureReject: {
			"requested": "rejected",
		},
		ProcedureComplete: {
			"confirmed": "completed",
		},
	}
)

// BasicDB is an in-memory marketplace used for dry runs and tests.
// It serves synthetic reference data and applies order transitions the
// way the stored procedures do, reporting a conflict when a transition
// is not allowed from the current status.
type BasicDB struct {
	*DBBase
	verbose        bool
	randomizeDelay bool
	toDelay        int64
	conflictRate   float64
	random         *rand.Rand
	categories     []int64
	users          []int64
	listings       []int64
	orderIDs       []int64
	orders         map[int64]string
}

func NewBasicDB() *BasicDB {
	return &BasicDB{
		DBBase: NewDBBase(),
	}
}

func (self *BasicDB) Delay(ctx context.Context) error {
	if self.toDelay <= 0 {
		return nil
	}
	millis := self.toDelay
	if self.randomizeDelay {
		millis = self.random.Int63n(self.toDelay)
		if millis == 0 {
			return nil
		}
	}
	t := time.NewTimer(time.Duration(millis) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func basicDBSequence(n int64) []int64 {
	ret := make([]int64, 0, n)
	for i := int64(1); i <= n; i++ {
		ret = append(ret, i)
	}
	return ret
}

// Initialize any state for this DB.
func (self *BasicDB) Init() error {
	p := self.GetProperties()
	if p == nil {
		p = NewProperties()
		self.SetProperties(p)
	}
	var err error
	self.verbose, err = p.GetBool(ConfigBasicDBVerbose, ConfigBasicDBVerboseDefault)
	if err != nil {
		return err
	}
	self.toDelay, err = p.GetInt64(ConfigSimulateDelay, ConfigSimulateDelayDefault)
	if err != nil {
		return err
	}
	self.randomizeDelay, err = p.GetBool(ConfigRandomizeDelay, ConfigRandomizeDelayDefault)
	if err != nil {
		return err
	}
	self.conflictRate, err = p.GetFloat64(ConfigBasicDBConflictRate, ConfigBasicDBConflictRateDefault)
	if err != nil {
		return err
	}
	seed, err := p.GetInt64(PropertySeed, "0")
	if err != nil {
		return err
	}
	self.random = g.NewRandom(seed)

	sizes := make(map[string]int64)
	for _, key := range [][2]string{
		{ConfigBasicDBCategories, ConfigBasicDBCategoriesDefault},
		{ConfigBasicDBUsers, ConfigBasicDBUsersDefault},
		{ConfigBasicDBListings, ConfigBasicDBListingsDefault},
		{ConfigBasicDBOrders, ConfigBasicDBOrdersDefault},
	} {
		n, err := p.GetInt64(key[0], key[1])
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("invalid property %s: negative size %d", key[0], n)
		}
		sizes[key[0]] = n
	}
	self.categories = basicDBSequence(sizes[ConfigBasicDBCategories])
	self.users = basicDBSequence(sizes[ConfigBasicDBUsers])
	self.listings = basicDBSequence(sizes[ConfigBasicDBListings])
	self.orderIDs = basicDBSequence(sizes[ConfigBasicDBOrders])
	self.orders = make(map[int64]string, len(self.orderIDs))
	for i, id := range self.orderIDs {
		self.orders[id] = basicDBOrderStatuses[i%len(basicDBOrderStatuses)]
	}
	if self.verbose {
		OutputProperties(p)
	}
	return nil
}

func (self *BasicDB) Cleanup() error {
	return nil
}

func (self *BasicDB) ReferenceIDs(ctx context.Context, table, column string) ([]int64, error) {
	if err := self.Delay(ctx); err != nil {
		return nil, err
	}
	if self.verbose {
		Output("SELECT %s FROM %s", column, table)
	}
	var ids []int64
	switch table {
	case "Category":
		ids = self.categories
	case "User":
		ids = self.users
	case "Listing":
		ids = self.listings
	default:
		return nil, fmt.Errorf("%w: no table %s", ErrNotImplemented, table)
	}
	return append([]int64(nil), ids...), nil
}

func (self *BasicDB) Orders(ctx context.Context) ([]Order, error) {
	if err := self.Delay(ctx); err != nil {
		return nil, err
	}
	if self.verbose {
		Output("SELECT order_id, status FROM Order")
	}
	ret := make([]Order, 0, len(self.orderIDs))
	for _, id := range self.orderIDs {
		ret = append(ret, Order{ID: id, Status: self.orders[id]})
	}
	return ret, nil
}

// rows returns how many rows a read of an existing id would yield.
func (self *BasicDB) rows(id int64, limit int64) int {
	n := id % (limit + 1)
	if n < 0 {
		n = -n
	}
	return int(n)
}

func (self *BasicDB) Browse(ctx context.Context, categoryID int64, limit int64) (int, error) {
	if err := self.Delay(ctx); err != nil {
		return 0, err
	}
	if self.verbose {
		Output("BROWSE category=%d limit=%d", categoryID, limit)
	}
	return self.rows(categoryID, limit), nil
}

func (self *BasicDB) SellerListings(ctx context.Context, sellerID int64, limit int64) (int, error) {
	if err := self.Delay(ctx); err != nil {
		return 0, err
	}
	if self.verbose {
		Output("SELLER seller=%d limit=%d", sellerID, limit)
	}
	return self.rows(sellerID, limit), nil
}

func (self *BasicDB) Comments(ctx context.Context, listingID int64, limit int64) (int, error) {
	if err := self.Delay(ctx); err != nil {
		return 0, err
	}
	if self.verbose {
		Output("COMMENTS listing=%d limit=%d", listingID, limit)
	}
	return self.rows(listingID, limit), nil
}

func (self *BasicDB) CallProcedure(ctx context.Context, proc Procedure, orderID int64) error {
	if err := self.Delay(ctx); err != nil {
		return err
	}
	if self.verbose {
		Output("CALL %s(%d)", proc, orderID)
	}
	transitions, ok := basicDBTransitions[proc]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownProcedure, proc)
	}
	status, ok := self.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: order %d not found", ErrConflict, orderID)
	}
	if self.conflictRate > 0 && self.random.Float64() < self.conflictRate {
		return fmt.Errorf("%w: simulated conflict on order %d", ErrConflict, orderID)
	}
	next, ok := transitions[status]
	if !ok {
		return fmt.Errorf("%w: cannot %s order %d in status %s",
			ErrConflict, proc.Name(), orderID, status)
	}
	self.orders[orderID] = next
	return nil
}

// OrderStatus returns the current status of an order.
func (self *BasicDB) OrderStatus(orderID int64) (string, bool) {
	status, ok := self.orders[orderID]
	return status, ok
}
