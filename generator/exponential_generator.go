package generator

import (
	"math"
	"math/rand"
)

// ExponentialGenerator produces a sequence of longs according to an
// exponential distribution. Smaller intervals are more frequent than larger
// ones, and there is no bound on the length of an interval. When you
// construct an instance of this class, you specify a parameter gamma, which
// corresponds to the rate at which values are produced.
type ExponentialGenerator struct {
	*IntegerGeneratorBase
	random *rand.Rand
	gamma  float64
}

func NewExponentialGeneratorByMean(r *rand.Rand, mean float64) *ExponentialGenerator {
	return &ExponentialGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(0),
		random:               r,
		gamma:                1.0 / mean,
	}
}

// NewExponentialGenerator creates a generator where percentile percent of
// the values fall below theRange.
func NewExponentialGenerator(r *rand.Rand, percentile, theRange float64) *ExponentialGenerator {
	return &ExponentialGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(0),
		random:               r,
		gamma:                -math.Log(1.0-percentile/100.0) / theRange, // 1.0/mean
	}
}

func (self *ExponentialGenerator) NextInt() int64 {
	next := int64(-math.Log(nextPositiveFloat64(self.random)) / self.gamma)
	self.SetLastInt(next)
	return next
}

func (self *ExponentialGenerator) NextString() string {
	return self.IntegerGeneratorBase.NextString(self)
}

func (self *ExponentialGenerator) Mean() float64 {
	return 1.0 / self.gamma
}
