package game

import mathrand "math/rand"

// RNG is the random source threaded through every stochastic function. Float64 must
// return values in [0, 1). *math/rand.Rand satisfies it.
type RNG interface {
	Float64() float64
}

func NewRNG(seed int64) RNG {
	return mathrand.New(mathrand.NewSource(seed))
}

// Sequence replays a fixed list of draws, wrapping around at the end.
type Sequence struct {
	values []float64
	next   int
}

func NewSequence(values ...float64) *Sequence {
	if len(values) == 0 {
		values = []float64{0}
	}
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

func uniform(rng RNG, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// signedUnit draws from U(-1, 1).
func signedUnit(rng RNG) float64 {
	return rng.Float64()*2 - 1
}

func pickIndex(rng RNG, n int) int {
	if n <= 0 {
		return -1
	}
	i := int(rng.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
