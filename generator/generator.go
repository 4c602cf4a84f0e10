package generator

import (
	"math/rand"
)

// Generator is an expression that generates a sequence of string values,
// following some distribution (uniform, zipfian, sequential, etc.)
type Generator interface {
	// NextString generates the next string in the distribution.
	NextString() string
	// LastString returns the previous string generated by the distribution,
	// e.g. the string returned by the last NextString() call.
	// Calling LastString() should not advance the distribution or have any
	// side effects. If NextString() has not yet been called, LastString()
	// should return something reasonable.
	LastString() string
}

// NewRandom returns a random source seeded with the given seed.
// All generators of one run draw from the same source, so a fixed seed
// replays the same sequence of operations.
func NewRandom(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// nextPositiveFloat64 returns a float64 in (0.0, 1.0].
func nextPositiveFloat64(r *rand.Rand) float64 {
	return 1.0 - r.Float64()
}
