package core

import "math"

// denormalFloor is far below any node voltage or state a circuit stage
// produces; values under it are flushed to keep the solvers off subnormals.
const denormalFloor = 1e-30

// Clamp limits v to [lo, hi]. Swapped bounds are reordered.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}

	return math.Min(math.Max(v, lo), hi)
}

// IsFinite reports whether x is neither NaN nor ±Inf.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// FlushDenormals returns 0 for |x| < 1e-30 and x otherwise.
func FlushDenormals(x float64) float64 {
	if math.Abs(x) < denormalFloor {
		return 0
	}

	return x
}

// LinearToDB converts an amplitude to dB (20·log10). Zero maps to -Inf and
// negative amplitudes to NaN.
func LinearToDB(amplitude float64) float64 {
	switch {
	case amplitude < 0:
		return math.NaN()
	case amplitude == 0:
		return math.Inf(-1)
	default:
		return 20 * math.Log10(amplitude)
	}
}
