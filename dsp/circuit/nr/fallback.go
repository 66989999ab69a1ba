package nr

import "math"

// Fallback selects what a solver does when Newton-Raphson exhausts its
// iteration budget without converging. Solvers never report this to the
// caller; they pick a value and carry on.
type Fallback int

const (
	// FallbackSmallest keeps whichever of the last estimate and the previous
	// sample's solution has the smaller magnitude.
	FallbackSmallest Fallback = iota
	// FallbackPrevious reuses the previous sample's solution.
	FallbackPrevious
	// FallbackKeep keeps the last Newton estimate.
	FallbackKeep
)

func (f Fallback) String() string {
	switch f {
	case FallbackSmallest:
		return "smallest"
	case FallbackPrevious:
		return "previous"
	case FallbackKeep:
		return "keep"
	default:
		return "unknown"
	}
}

// Valid reports whether f is a known policy.
func (f Fallback) Valid() bool {
	return f >= FallbackSmallest && f <= FallbackKeep
}

// ParseFallback maps a policy name back to its value.
func ParseFallback(name string) (Fallback, bool) {
	for f := FallbackSmallest; f <= FallbackKeep; f++ {
		if f.String() == name {
			return f, true
		}
	}

	return FallbackSmallest, false
}

// Resolve applies the policy to a scalar unknown. Non-finite estimates always
// resolve to prev.
func (f Fallback) Resolve(estimate, prev float64) float64 {
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) {
		return prev
	}

	switch f {
	case FallbackPrevious:
		return prev
	case FallbackKeep:
		return estimate
	default:
		if math.Abs(prev) < math.Abs(estimate) {
			return prev
		}

		return estimate
	}
}

// ClampStep limits delta to ±limit. A non-positive limit disables clamping.
func ClampStep(delta, limit float64) float64 {
	if limit <= 0 {
		return delta
	}

	if delta > limit {
		return limit
	}

	if delta < -limit {
		return -limit
	}

	return delta
}
