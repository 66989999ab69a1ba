package testutil

import (
	"math"
	"testing"
)

// RequireFinite fails t at the first NaN or Inf in data.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("sample %d: got=%v, want finite", i, v)
		}
	}
}

// RequireBounded fails t at the first sample whose magnitude exceeds bound,
// such as a supply rail.
func RequireBounded(t *testing.T, data []float64, bound float64) {
	t.Helper()

	for i, v := range data {
		if math.Abs(v) > bound {
			t.Fatalf("sample %d: got=%v, want |x| <= %v", i, v, bound)
		}
	}
}

// MaxAbsDiff returns the largest |a[i]-b[i]| over the shorter of the two
// slices and the index where it occurs. NaN counts as an infinite error.
func MaxAbsDiff(a, b []float64) (float64, int) {
	worst, at := 0.0, -1

	for i := range min(len(a), len(b)) {
		d := math.Abs(a[i] - b[i])
		if math.IsNaN(d) {
			d = math.Inf(1)
		}

		if at < 0 || d > worst {
			worst, at = d, i
		}
	}

	return worst, at
}
