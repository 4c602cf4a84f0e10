package oltpbench

import (
	"context"
	"math"
	"testing"

	g "github.com/hhkbp2/oltpbench/generator"
	"github.com/hhkbp2/testify/require"
)

func TestChooseProcedure(t *testing.T) {
	r := g.NewRandom(1)
	seen := make(map[string]map[Procedure]int)
	for _, status := range []string{"requested", "confirmed", "completed", "cancelled", ""} {
		seen[status] = make(map[Procedure]int)
		for i := 0; i < 3000; i++ {
			seen[status][ChooseProcedure(status, r)]++
		}
	}
	require.Equal(t, map[Procedure]int{ProcedureComplete: 3000}, seen["confirmed"])
	require.Equal(t, 3, len(seen["requested"]))
	for _, proc := range []Procedure{ProcedureConfirm, ProcedureCancel, ProcedureReject} {
		require.InDelta(t, 1000, seen["requested"][proc], 150)
	}
	for _, status := range []string{"completed", "cancelled", ""} {
		require.Equal(t, 2, len(seen[status]))
		require.InDelta(t, 1500, seen[status][ProcedureCancel], 150)
		require.InDelta(t, 1500, seen[status][ProcedureReject], 150)
	}
}

func TestOperationMixConverges(t *testing.T) {
	chooser, err := createOperationGenerator(NewProperties(), g.NewRandom(42))
	require.Nil(t, err)
	total := 100000
	counts := make(map[string]int)
	for i := 0; i < total; i++ {
		counts[chooser.NextString()]++
	}
	expected := map[string]float64{
		OpBrowse:    0.70,
		OpSeller:    0.10,
		OpComments:  0.10,
		OpProcedure: 0.10,
	}
	for op, p := range expected {
		sigma := math.Sqrt(float64(total) * p * (1 - p))
		require.InDelta(t, float64(total)*p, float64(counts[op]), 5*sigma)
	}
}

func TestOperationMixZeroWeights(t *testing.T) {
	p := Properties{
		PropertyBrowseProportion:    "0",
		PropertySellerProportion:    "0",
		PropertyCommentsProportion:  "0",
		PropertyProcedureProportion: "1",
	}
	chooser, err := createOperationGenerator(p, g.NewRandom(1))
	require.Nil(t, err)
	require.Equal(t, 1, chooser.Len())
	for i := 0; i < 100; i++ {
		require.Equal(t, OpProcedure, chooser.NextString())
	}

	p[PropertyProcedureProportion] = "0"
	_, err = createOperationGenerator(p, g.NewRandom(1))
	require.NotNil(t, err)
	p[PropertyProcedureProportion] = "-0.1"
	_, err = createOperationGenerator(p, g.NewRandom(1))
	require.NotNil(t, err)
}

func TestKeyChooserBounds(t *testing.T) {
	for _, distribution := range []string{"uniform", "zipfian", "hotspot", "exponential"} {
		for _, size := range []int{1, 2, 17, 1000} {
			chooser, err := createKeyChooser(NewProperties(), g.NewRandom(7), distribution, size)
			require.Nil(t, err)
			for i := 0; i < 2000; i++ {
				idx := nextIndex(chooser, size)
				require.True(t, idx >= 0 && idx < size)
			}
		}
	}
	chooser, err := createKeyChooser(NewProperties(), g.NewRandom(7), "zipfian", 1)
	require.Nil(t, err)
	_, ok := chooser.(*g.ConstantIntegerGenerator)
	require.True(t, ok)
	_, err = createKeyChooser(NewProperties(), g.NewRandom(7), "latest", 10)
	require.NotNil(t, err)
	_, err = createKeyChooser(NewProperties(), g.NewRandom(7), "latest", 1)
	require.NotNil(t, err)
}

func newTestWorkload(t *testing.T, p Properties, seed int64, refs *References) *MarketplaceWorkload {
	w := NewMarketplaceWorkload()
	require.Nil(t, w.Init(p, g.NewRandom(seed), refs))
	return w
}

func testReferences() *References {
	return &References{
		Categories: []int64{1, 2, 3},
		Users:      []int64{10, 20},
		Listings:   []int64{100, 200, 300, 400},
		Orders: []Order{
			{ID: 1, Status: "requested"},
			{ID: 2, Status: "confirmed"},
			{ID: 3, Status: "completed"},
		},
	}
}

func TestMarketplaceWorkloadSameSeed(t *testing.T) {
	sequence := func(seed int64) []string {
		db := newStubDB()
		wrapper, _ := newTestWrapper(t, db)
		w := newTestWorkload(t, NewProperties(), seed, testReferences())
		ops := make([]string, 0, 200)
		for i := 0; i < 200; i++ {
			ops = append(ops, w.DoTransaction(context.Background(), wrapper).Operation)
		}
		for _, proc := range db.calls {
			ops = append(ops, proc.Name())
		}
		return ops
	}
	require.Equal(t, sequence(99), sequence(99))
	require.NotEqual(t, sequence(99), sequence(100))
}

func TestMarketplaceWorkloadSkipsWithoutOrders(t *testing.T) {
	refs := testReferences()
	refs.Orders = nil
	p := Properties{
		PropertyBrowseProportion:    "0",
		PropertySellerProportion:    "0",
		PropertyCommentsProportion:  "0",
		PropertyProcedureProportion: "1",
	}
	db := newStubDB()
	wrapper, _ := newTestWrapper(t, db)
	w := newTestWorkload(t, p, 1, refs)
	for i := 0; i < 10; i++ {
		o := w.DoTransaction(context.Background(), wrapper)
		require.Equal(t, StatusSkipped, o.Status)
	}
	require.Equal(t, 0, len(db.calls))
}

func TestMarketplaceWorkloadConfirmedOnlyCompletes(t *testing.T) {
	refs := testReferences()
	refs.Orders = []Order{{ID: 2, Status: "confirmed"}}
	p := Properties{
		PropertyBrowseProportion:    "0",
		PropertySellerProportion:    "0",
		PropertyCommentsProportion:  "0",
		PropertyProcedureProportion: "1",
	}
	db := newStubDB()
	wrapper, _ := newTestWrapper(t, db)
	w := newTestWorkload(t, p, 5, refs)
	for i := 0; i < 50; i++ {
		w.DoTransaction(context.Background(), wrapper)
	}
	require.Equal(t, 50, len(db.calls))
	for _, proc := range db.calls {
		require.Equal(t, ProcedureComplete, proc)
	}
}

func TestMarketplaceWorkloadInvalidProperties(t *testing.T) {
	for _, p := range []Properties{
		{PropertyRequestDistribution: "latest"},
		{PropertyBrowseLimit: "0"},
		{PropertyCommentsLimit: "many"},
		{PropertySellerProportion: "x"},
	} {
		w := NewMarketplaceWorkload()
		require.NotNil(t, w.Init(p, g.NewRandom(1), testReferences()))
	}
}

func TestNewWorkload(t *testing.T) {
	w, err := NewWorkload(PropertyWorkloadDefault)
	require.Nil(t, err)
	_, ok := w.(*MarketplaceWorkload)
	require.True(t, ok)
	_, err = NewWorkload("CoreWorkload")
	require.NotNil(t, err)
}
