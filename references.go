package oltpbench

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// References holds the identifiers the workload picks from. It is loaded
// once before the run and never changes afterwards.
type References struct {
	Categories []int64
	Users      []int64
	Listings   []int64
	Orders     []Order
}

var (
	// An empty identifier set is replaced by this one so that the read
	// operations still have something to query.
	fallbackIDs = []int64{1}
)

// LoadReferences reads the reference identifiers from db. An empty category,
// user or listing set is replaced by [1]. The order set is kept as is; the
// stored procedure operation is skipped when it is empty.
func LoadReferences(ctx context.Context, db DB) (*References, error) {
	refs := &References{}
	targets := []struct {
		table  string
		column string
		ids    *[]int64
	}{
		{"Category", "category_id", &refs.Categories},
		{"User", "user_id", &refs.Users},
		{"Listing", "listing_id", &refs.Listings},
	}
	for _, t := range targets {
		ids, err := db.ReferenceIDs(ctx, t.table, t.column)
		if err != nil {
			return nil, fmt.Errorf("load %s ids: %w", t.table, err)
		}
		if len(ids) == 0 {
			Warnf("no rows in %s, using %v", t.table, fallbackIDs)
			ids = append([]int64(nil), fallbackIDs...)
		}
		*t.ids = ids
	}
	orders, err := db.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load Order rows: %w", err)
	}
	if len(orders) == 0 {
		Warnf("no rows in Order, stored procedure operations will be skipped")
	}
	refs.Orders = orders
	return refs, nil
}

// StatusHistogram counts the orders per status.
func (self *References) StatusHistogram() map[string]int {
	ret := make(map[string]int)
	for _, o := range self.Orders {
		ret[o.Status]++
	}
	return ret
}

// Describe writes the size of every reference set and the order status
// histogram to w.
func (self *References) Describe(w io.Writer) {
	Foutput(w, "categories: %d", len(self.Categories))
	Foutput(w, "users: %d", len(self.Users))
	Foutput(w, "listings: %d", len(self.Listings))
	Foutput(w, "orders: %d", len(self.Orders))
	histogram := self.StatusHistogram()
	statuses := make([]string, 0, len(histogram))
	for s := range histogram {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		Foutput(w, "  %-10s %d", s, histogram[s])
	}
}
