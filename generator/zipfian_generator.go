package generator

import (
	"math"
	"math/rand"
)

const (
	ZipfianConstant = float64(0.99)
)

// Compute the zeta constant needed for the distribution. Do this incrementally
// for a distribution that has n items now but used to have st items.
// Use the zipfian constant theta.
func zetaStatic(st, n int64, theta, initialSum float64) float64 {
	sum := initialSum
	for i := st; i < n; i++ {
		sum += 1 / math.Pow(float64(i+1), theta)
	}
	return sum
}

// A generator of a zipfian distribution. It produces a sequence of items,
// such that some items are more popular than others, according to
// a zipfian distribution. When you construct an instance of this class,
// you specify the number of items in the set to draw from by specifying
// a min and a max (so that the sequence is of items from min to max
// inclusive).
//
// Note that the popular items will be clustered together, e.g. min
// is the most popular, min+1 the next most popular, etc.
// If you don't want this clustering, and instead want the popular items
// scattered throughout the item space, then use ScrambledZipfianGenerator
// instead.
//
// Be aware: initializing this generator may take a long time if there are
// lots of items to choose from, because zeta is a sum sequence from 1 to n.
//
// The algorithm used here is from
// "Quickly Generating Billion-Record Synthetic Databases",
// Jim Gray et al, SIGMOD 1994.
type ZipfianGenerator struct {
	*IntegerGeneratorBase
	random *rand.Rand
	// Number of items.
	items int64
	// Min item to generate.
	base int64
	// Computed parameters for generating the distribution.
	alpha, zetan, eta, theta, zeta2theta float64
}

// NewZipfianGeneratorByInterval creates a zipfian generator for items
// between min and max(inclusive).
func NewZipfianGeneratorByInterval(r *rand.Rand, min, max int64) *ZipfianGenerator {
	return NewZipfianGenerator(r, min, max, ZipfianConstant,
		zetaStatic(0, max-min+1, ZipfianConstant, 0))
}

// NewZipfianGenerator creates a zipfian generator for items between min and
// max(inclusive) for the specified zipfian constant, using the precomputed
// value of zeta.
func NewZipfianGenerator(r *rand.Rand, min, max int64, zipfianConstant, zetan float64) *ZipfianGenerator {
	items := max - min + 1
	theta := zipfianConstant
	zeta2theta := zetaStatic(0, 2, theta, 0)
	object := &ZipfianGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(min),
		random:               r,
		items:                items,
		base:                 min,
		alpha:                1.0 / (1.0 - theta),
		zetan:                zetan,
		eta:                  (1 - math.Pow(2.0/float64(items), 1-theta)) / (1 - zeta2theta/zetan),
		theta:                theta,
		zeta2theta:           zeta2theta,
	}
	return object
}

// NextInt generates the next item. This distribution will be skewed toward
// lower integers; e.g. min will be the most popular, min+1 the next most
// popular, etc.
func (self *ZipfianGenerator) NextInt() int64 {
	u := self.random.Float64()
	uz := u * self.zetan
	var ret int64
	switch {
	case uz < 1.0:
		ret = self.base
	case uz < 1.0+math.Pow(0.5, self.theta):
		ret = self.base + 1
	default:
		ret = self.base + int64(float64(self.items)*math.Pow(self.eta*u-self.eta+1.0, self.alpha))
	}
	self.SetLastInt(ret)
	return ret
}

func (self *ZipfianGenerator) NextString() string {
	return self.IntegerGeneratorBase.NextString(self)
}

func (self *ZipfianGenerator) Mean() float64 {
	panic("unsupported operation")
}

const (
	ScrambledZipfianItemCount = int64(10000000000)
	// zeta(ScrambledZipfianItemCount, ZipfianConstant), precomputed.
	ScrambledZipfianZetan = float64(26.46902820178302)

	fnvOffsetBasis64 = uint64(0xCBF29CE484222325)
	fnvPrime64       = uint64(1099511628211)
)

// Hash returns the 64 bit FNV-1a hash of the eight bytes of v.
func Hash(v int64) uint64 {
	hash := fnvOffsetBasis64
	value := uint64(v)
	for i := 0; i < 8; i++ {
		octet := value & 0x00ff
		value = value >> 8
		hash = hash ^ octet
		hash = hash * fnvPrime64
	}
	return hash
}

// ScrambledZipfianGenerator is a generator of a zipfian distribution with
// the popular items scattered across the item space instead of clustered
// at the low end. It draws from a zipfian over a large fixed item space and
// hashes the result into [min, max].
type ScrambledZipfianGenerator struct {
	*IntegerGeneratorBase
	gen       *ZipfianGenerator
	min       int64
	itemCount int64
}

func NewScrambledZipfianGenerator(r *rand.Rand, min, max int64) *ScrambledZipfianGenerator {
	gen := NewZipfianGenerator(
		r, 0, ScrambledZipfianItemCount-1, ZipfianConstant, ScrambledZipfianZetan)
	return &ScrambledZipfianGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(min),
		gen:                  gen,
		min:                  min,
		itemCount:            max - min + 1,
	}
}

func (self *ScrambledZipfianGenerator) NextInt() int64 {
	ret := self.min + int64(Hash(self.gen.NextInt())%uint64(self.itemCount))
	self.SetLastInt(ret)
	return ret
}

func (self *ScrambledZipfianGenerator) NextString() string {
	return self.IntegerGeneratorBase.NextString(self)
}

// Mean is the mean of the hashed item space, since the hash spreads the
// popular items uniformly.
func (self *ScrambledZipfianGenerator) Mean() float64 {
	return float64(self.min) + float64(self.itemCount-1)/2.0
}
