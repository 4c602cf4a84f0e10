package generator

import (
	"math/rand"
)

type Pair struct {
	Weight float64
	Value  string
}

// DiscreteGenerator generates a distribution by choosing from a discrete set
// of values, each with its own weight.
type DiscreteGenerator struct {
	random    *rand.Rand
	values    []*Pair
	lastValue string
}

func NewDiscreteGenerator(r *rand.Rand) *DiscreteGenerator {
	return &DiscreteGenerator{
		random:    r,
		values:    make([]*Pair, 0),
		lastValue: "",
	}
}

// NextString draws one uniform value in [0, 1) and returns the value of the
// band it falls into.
func (self *DiscreteGenerator) NextString() string {
	ret := self.Choose(self.random.Float64())
	self.lastValue = ret
	return ret
}

// Choose returns the value whose band contains u, where u is in [0, 1).
// Bands are laid out in the order the values were added, each one as wide
// as its normalized weight.
func (self *DiscreteGenerator) Choose(u float64) string {
	if len(self.values) == 0 {
		panic("discrete generator has no values")
	}
	var sum float64
	for _, p := range self.values {
		sum += p.Weight
	}
	var cumulative float64
	for _, p := range self.values {
		cumulative += p.Weight
		if u < cumulative/sum {
			return p.Value
		}
	}
	// float rounding can leave the last boundary just below 1.0
	return self.values[len(self.values)-1].Value
}

func (self *DiscreteGenerator) LastString() string {
	if len(self.lastValue) == 0 {
		self.lastValue = self.NextString()
	}
	return self.lastValue
}

func (self *DiscreteGenerator) AddValue(weight float64, value string) {
	self.values = append(self.values, &Pair{
		Weight: weight,
		Value:  value,
	})
}

func (self *DiscreteGenerator) Len() int {
	return len(self.values)
}
