// Package randsrc provides the pseudo-random sources the scoring packages draw
// jitter and synthetic statistics from. Every call site gets its own generator;
// nothing here is shared between requests.
package randsrc

import (
	"math/rand"

	"github.com/spaolacci/murmur3"
)

// Source is the subset of *rand.Rand used by the scorers.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// New returns a generator seeded with seed.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// ForInput returns a generator whose seed mixes the configured seed with a hash
// of the input, so identical inputs under the same seed replay the same draws.
func ForInput(seed int64, input string) *rand.Rand {
	return New(seed ^ Hash64(input))
}

// FromString returns a generator seeded only by the hash of s.
func FromString(s string) *rand.Rand {
	return New(Hash64(s))
}

// Hash64 is the murmur3 64-bit hash of s as a signed seed.
func Hash64(s string) int64 {
	return int64(murmur3.Sum64([]byte(s)))
}

// Bucket maps s onto one of 100 evenly spaced values in [0, 0.99].
func Bucket(s string) float64 {
	return float64(murmur3.Sum32([]byte(s))%100) / 100
}

// Jitter returns a symmetric offset in [-width/2, width/2).
func Jitter(src Source, width float64) float64 {
	return (src.Float64() - 0.5) * width
}

// Uniform returns a value in [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// IntRange returns an integer in [lo, hi]. When hi < lo it returns lo.
func IntRange(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Pick returns one element of items, or the zero value for an empty slice.
func Pick[T any](src Source, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[src.Intn(len(items))]
}
