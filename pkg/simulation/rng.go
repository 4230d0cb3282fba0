package simulation

import (
	"math"
	"math/rand/v2"
)

// txStream builds the random stream for a single transaction. Deriving the
// stream solely from (seed, index) makes every run bit-reproducible no
// matter how transactions are batched or scheduled across goroutines.
func txStream(seed int64, index int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(index)))
}

// sampleDuration draws a normally distributed duration clamped to zero.
// Degenerate negative samples are clamped, never treated as errors.
func sampleDuration(rng *rand.Rand, mean, variance float64) float64 {
	if variance <= 0 {
		return math.Max(0.0, mean)
	}

	return math.Max(0.0, rng.NormFloat64()*math.Sqrt(variance)+mean)
}
