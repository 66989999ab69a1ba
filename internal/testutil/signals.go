// Package testutil holds the excitation signals and assertions shared by
// the circuit tests.
package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine returns length samples of amplitude·sin(2π·freqHz·n/sampleRate).
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	w := 2 * math.Pi * freqHz / sampleRate

	out := make([]float64, length)
	for n := range out {
		out[n] = amplitude * math.Sin(w*float64(n))
	}

	return out
}

// DeterministicNoise returns uniform noise in [-amplitude, amplitude)
// drawn from a generator seeded with seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	rng := rand.New(rand.NewSource(seed))

	out := make([]float64, length)
	for n := range out {
		out[n] = amplitude * (2*rng.Float64() - 1)
	}

	return out
}

// Step is zero before pos and level from pos on. pos <= 0 gives a constant.
func Step(level float64, length, pos int) []float64 {
	out := make([]float64, length)
	for n := max(pos, 0); n < length; n++ {
		out[n] = level
	}

	return out
}

// RMS returns the root mean square of x, 0 for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	var energy float64
	for _, v := range x {
		energy += v * v
	}

	return math.Sqrt(energy / float64(len(x)))
}
