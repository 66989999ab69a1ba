package wright

import (
	"math"
	"testing"
)

func sweep(fn func(x float64)) {
	for x := -10.0; x <= 60; x += 0.01 {
		fn(x)
	}

	for _, x := range []float64{100, 1e3, 1e4, 1e6} {
		fn(x)
	}
}

func TestOmegaExactSolvesDefinition(t *testing.T) {
	sweep(func(x float64) {
		y := OmegaExact(x)
		if y <= 0 {
			t.Fatalf("OmegaExact(%v)=%v want > 0", x, y)
		}

		if got := y + math.Log(y); math.Abs(got-x) > 1e-12*math.Max(1, math.Abs(x)) {
			t.Fatalf("x=%v: y+ln(y)=%v", x, got)
		}
	})
}

func TestOmegaExactKnownValues(t *testing.T) {
	tests := []struct {
		x, want float64
	}{
		{x: 0, want: 0.5671432904097838}, // omega constant
		{x: 1, want: 1},
		{x: 1 + math.E, want: math.E},
	}

	for _, tt := range tests {
		if got := OmegaExact(tt.x); math.Abs(got-tt.want) > 1e-14 {
			t.Fatalf("OmegaExact(%v)=%v want=%v", tt.x, got, tt.want)
		}
	}
}

func TestOmegaExactSpecialValues(t *testing.T) {
	if !math.IsNaN(OmegaExact(math.NaN())) {
		t.Fatal("OmegaExact(NaN) want NaN")
	}

	if !math.IsInf(OmegaExact(math.Inf(1)), 1) {
		t.Fatal("OmegaExact(+Inf) want +Inf")
	}

	if OmegaExact(math.Inf(-1)) != 0 {
		t.Fatal("OmegaExact(-Inf) want 0")
	}

	if got, want := OmegaExact(-100), math.Exp(-100); got != want {
		t.Fatalf("OmegaExact(-100)=%v want=%v", got, want)
	}
}

func TestApproximationAccuracy(t *testing.T) {
	tests := []struct {
		name string
		fn   func(float64) float64
		tol  float64
	}{
		{name: "omega3", fn: Omega3, tol: 0.1},
		{name: "omega4", fn: Omega4, tol: 2e-2},
		{name: "omega", fn: Omega, tol: 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			worst := 0.0

			sweep(func(x float64) {
				want := OmegaExact(x)
				err := math.Abs(tt.fn(x)-want) / math.Max(1, want)
				worst = math.Max(worst, err)

				if err > tt.tol {
					t.Fatalf("x=%v: got=%v want=%v err=%v", x, tt.fn(x), want, err)
				}
			})

			t.Logf("worst error %.3g", worst)
		})
	}
}

func TestRefinementImproves(t *testing.T) {
	for _, x := range []float64{-3, -1, 0, 0.5, 2, 5, 7.9, 8, 20} {
		want := OmegaExact(x)
		e3 := math.Abs(Omega3(x) - want)
		e5 := math.Abs(Omega(x) - want)

		if e5 > e3 {
			t.Fatalf("x=%v: two refinements err=%v worse than cubic err=%v", x, e5, e3)
		}
	}
}

func TestOmega3Continuity(t *testing.T) {
	if got := Omega3(x1); math.Abs(got) > 1e-12 {
		t.Fatalf("Omega3(x1)=%v want ~0", got)
	}

	if lo, hi := Omega3(math.Nextafter(x2, 0)), Omega3(x2); math.Abs(lo-hi) > 1e-9 {
		t.Fatalf("Omega3 jump at x2: %v vs %v", lo, hi)
	}
}

func TestMonotone(t *testing.T) {
	prev := Omega(-10)

	for x := -9.99; x <= 60; x += 0.01 {
		y := Omega(x)
		if y < prev {
			t.Fatalf("Omega not monotone at x=%v: %v < %v", x, y, prev)
		}

		prev = y
	}
}

func BenchmarkOmega(b *testing.B) {
	x := 0.0
	for b.Loop() {
		x = Omega(x*1e-9 + 2)
	}

	_ = x
}

func BenchmarkOmegaExact(b *testing.B) {
	x := 0.0
	for b.Loop() {
		x = OmegaExact(x*1e-9 + 2)
	}

	_ = x
}
