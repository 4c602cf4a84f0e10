package oltpbench

import (
	"context"
	"fmt"
	"math/rand"

	g "github.com/hhkbp2/oltpbench/generator"
)

type MakeWorkloadFunc func() Workload

var (
	Workloads map[string]MakeWorkloadFunc
)

func init() {
	Workloads = map[string]MakeWorkloadFunc{
		"MarketplaceWorkload": func() Workload {
			return NewMarketplaceWorkload()
		},
	}
}

func NewWorkload(className string) (Workload, error) {
	f, ok := Workloads[className]
	if !ok {
		return nil, fmt.Errorf("unsupported workload: %s", className)
	}
	return f(), nil
}

// Workload represents one experiment scenario.
// This class should be constructed using a no-argument constructor,
// so we can load it dynamically. Any argument-based initialization
// should be done by Init().
type Workload interface {
	// Initialize the scenario. Create any generators here.
	// All random draws of the scenario come from r.
	Init(p Properties, r *rand.Rand, refs *References) error

	// Do one iteration against db and return its outcome.
	DoTransaction(ctx context.Context, db *DBWrapper) *Outcome

	// Cleanup the scenario.
	Cleanup() error
}

var (
	requestedProcedures = []Procedure{ProcedureConfirm, ProcedureCancel, ProcedureReject}
	otherProcedures     = []Procedure{ProcedureCancel, ProcedureReject}
)

// ChooseProcedure picks the state transition to try on an order with the
// given status. A requested order is confirmed, cancelled or rejected with
// equal probability. A confirmed order is always completed. Any other order
// is cancelled or rejected with equal probability; the database is expected
// to refuse most of those.
func ChooseProcedure(status string, r *rand.Rand) Procedure {
	switch status {
	case "requested":
		return requestedProcedures[r.Intn(len(requestedProcedures))]
	case "confirmed":
		return ProcedureComplete
	default:
		return otherProcedures[r.Intn(len(otherProcedures))]
	}
}

// MarketplaceWorkload is the marketplace OLTP mix: browsing the available
// listings of a category, listing the listings of a seller, reading the
// comments of a listing, and order state transitions through stored
// procedures.
//
// Properties to control the workload:
//
//	browseproportion: proportion of browse operations (default: 0.70)
//	sellerproportion: proportion of seller listing operations (default: 0.10)
//	commentsproportion: proportion of comment reads (default: 0.10)
//	procedureproportion: proportion of stored procedure calls (default: 0.10)
//	requestdistribution: how to pick category, user and listing ids,
//	    uniform, zipfian, hotspot or exponential (default: uniform)
//	browse.limit, seller.limit, comments.limit: row limits of the reads
//	    (default: 20, 20, 30)
type MarketplaceWorkload struct {
	refs             *References
	random           *rand.Rand
	operationChooser *g.DiscreteGenerator
	categoryChooser  g.IntegerGenerator
	userChooser      g.IntegerGenerator
	listingChooser   g.IntegerGenerator
	orderChooser     g.IntegerGenerator
	browseLimit      int64
	sellerLimit      int64
	commentsLimit    int64
}

func NewMarketplaceWorkload() *MarketplaceWorkload {
	return &MarketplaceWorkload{}
}

func (self *MarketplaceWorkload) Init(p Properties, r *rand.Rand, refs *References) error {
	operationChooser, err := createOperationGenerator(p, r)
	if err != nil {
		return err
	}
	requestDistrib := p.GetDefault(PropertyRequestDistribution, PropertyRequestDistributionDefault)
	categoryChooser, err := createKeyChooser(p, r, requestDistrib, len(refs.Categories))
	if err != nil {
		return err
	}
	userChooser, err := createKeyChooser(p, r, requestDistrib, len(refs.Users))
	if err != nil {
		return err
	}
	listingChooser, err := createKeyChooser(p, r, requestDistrib, len(refs.Listings))
	if err != nil {
		return err
	}
	var orderChooser g.IntegerGenerator
	if len(refs.Orders) > 0 {
		orderChooser = g.NewUniformIntegerGenerator(r, 0, int64(len(refs.Orders)-1))
	}
	browseLimit, err := p.GetInt64(PropertyBrowseLimit, PropertyBrowseLimitDefault)
	if err != nil {
		return err
	}
	sellerLimit, err := p.GetInt64(PropertySellerLimit, PropertySellerLimitDefault)
	if err != nil {
		return err
	}
	commentsLimit, err := p.GetInt64(PropertyCommentsLimit, PropertyCommentsLimitDefault)
	if err != nil {
		return err
	}
	if browseLimit <= 0 || sellerLimit <= 0 || commentsLimit <= 0 {
		return fmt.Errorf("row limits must be positive, got %d/%d/%d",
			browseLimit, sellerLimit, commentsLimit)
	}

	self.refs = refs
	self.random = r
	self.operationChooser = operationChooser
	self.categoryChooser = categoryChooser
	self.userChooser = userChooser
	self.listingChooser = listingChooser
	self.orderChooser = orderChooser
	self.browseLimit = browseLimit
	self.sellerLimit = sellerLimit
	self.commentsLimit = commentsLimit
	return nil
}

func createOperationGenerator(p Properties, r *rand.Rand) (*g.DiscreteGenerator, error) {
	proportions := []struct {
		key          string
		defaultValue string
		operation    string
	}{
		{PropertyBrowseProportion, PropertyBrowseProportionDefault, OpBrowse},
		{PropertySellerProportion, PropertySellerProportionDefault, OpSeller},
		{PropertyCommentsProportion, PropertyCommentsProportionDefault, OpComments},
		{PropertyProcedureProportion, PropertyProcedureProportionDefault, OpProcedure},
	}
	operationChooser := g.NewDiscreteGenerator(r)
	for _, proportion := range proportions {
		weight, err := p.GetFloat64(proportion.key, proportion.defaultValue)
		if err != nil {
			return nil, err
		}
		if weight < 0 {
			return nil, fmt.Errorf("invalid property %s: negative proportion %v", proportion.key, weight)
		}
		if weight > 0 {
			operationChooser.AddValue(weight, proportion.operation)
		}
	}
	if operationChooser.Len() == 0 {
		return nil, fmt.Errorf("all operation proportions are zero")
	}
	return operationChooser, nil
}

// createKeyChooser returns a generator of indexes into a reference set of
// the given size.
func createKeyChooser(p Properties, r *rand.Rand, requestDistrib string, size int) (g.IntegerGenerator, error) {
	last := int64(size - 1)
	var chooser g.IntegerGenerator
	switch requestDistrib {
	case "uniform":
		chooser = g.NewUniformIntegerGenerator(r, 0, last)
	case "zipfian":
		chooser = g.NewScrambledZipfianGenerator(r, 0, last)
	case "hotspot":
		hotsetFraction, err := p.GetFloat64(HotspotDataFraction, HotspotDataFractionDefault)
		if err != nil {
			return nil, err
		}
		hotOpnFraction, err := p.GetFloat64(HotspotOpnFraction, HotspotOpnFractionDefault)
		if err != nil {
			return nil, err
		}
		chooser = g.NewHotspotIntegerGenerator(r, 0, last, hotsetFraction, hotOpnFraction)
	case "exponential":
		percentile, err := p.GetFloat64(PropertyExponentialPercentile, PropertyExponentialPercentileDefault)
		if err != nil {
			return nil, err
		}
		fraction, err := p.GetFloat64(PropertyExponentialFraction, PropertyExponentialFractionDefault)
		if err != nil {
			return nil, err
		}
		chooser = g.NewExponentialGenerator(r, percentile, float64(size)*fraction)
	default:
		return nil, fmt.Errorf("unknown request distribution %q", requestDistrib)
	}
	if size == 1 {
		// nothing to draw from a single identifier
		return g.NewConstantIntegerGenerator(0), nil
	}
	return chooser, nil
}

// nextIndex draws an index in [0, size).
// The exponential distribution is unbounded, so it wraps around.
func nextIndex(chooser g.IntegerGenerator, size int) int {
	i := chooser.NextInt() % int64(size)
	if i < 0 {
		i += int64(size)
	}
	return int(i)
}

func (self *MarketplaceWorkload) DoTransaction(ctx context.Context, db *DBWrapper) *Outcome {
	switch op := self.operationChooser.NextString(); op {
	case OpBrowse:
		return self.doBrowse(ctx, db)
	case OpSeller:
		return self.doSeller(ctx, db)
	case OpComments:
		return self.doComments(ctx, db)
	default:
		return self.doProcedure(ctx, db)
	}
}

func (self *MarketplaceWorkload) doBrowse(ctx context.Context, db *DBWrapper) *Outcome {
	categoryID := self.refs.Categories[nextIndex(self.categoryChooser, len(self.refs.Categories))]
	return db.Browse(ctx, categoryID, self.browseLimit)
}

func (self *MarketplaceWorkload) doSeller(ctx context.Context, db *DBWrapper) *Outcome {
	userID := self.refs.Users[nextIndex(self.userChooser, len(self.refs.Users))]
	return db.SellerListings(ctx, userID, self.sellerLimit)
}

func (self *MarketplaceWorkload) doComments(ctx context.Context, db *DBWrapper) *Outcome {
	listingID := self.refs.Listings[nextIndex(self.listingChooser, len(self.refs.Listings))]
	return db.Comments(ctx, listingID, self.commentsLimit)
}

func (self *MarketplaceWorkload) doProcedure(ctx context.Context, db *DBWrapper) *Outcome {
	if self.orderChooser == nil {
		return db.Skip(OpProcedure)
	}
	order := self.refs.Orders[nextIndex(self.orderChooser, len(self.refs.Orders))]
	proc := ChooseProcedure(order.Status, self.random)
	return db.CallProcedure(ctx, proc, order.ID)
}

func (self *MarketplaceWorkload) Cleanup() error {
	return nil
}
