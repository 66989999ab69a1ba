package window

import (
	"math"
	"testing"
)

var allTypes = []Type{
	TypeRectangular,
	TypeHann,
	TypeHamming,
	TypeBlackman,
	TypeBlackmanHarris4Term,
	TypeFlatTop,
	TypeKaiser,
}

func TestGenerateSymmetric(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(Info(typ).Name, func(t *testing.T) {
			w := Generate(typ, 65)
			if len(w) != 65 {
				t.Fatalf("len: got=%d want=65", len(w))
			}

			for i, v := range w {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("w[%d]: got=%v", i, v)
				}

				if d := math.Abs(v - w[len(w)-1-i]); d > 1e-12 {
					t.Fatalf("w[%d]: asymmetric by %v", i, d)
				}
			}

			// The odd-length centre is the peak of every shape. The flat-top
			// coefficients sum to 1 only to 9 digits.
			if math.Abs(w[32]-1) > 1e-8 {
				t.Fatalf("centre: got=%v want=1", w[32])
			}
		})
	}
}

func TestGenerateFirstHalf(t *testing.T) {
	tests := []struct {
		typ  Type
		opts []Option
		want []float64
	}{
		{TypeHann, nil, []float64{0, 0.1882550990706332, 0.6112604669781572, 0.9504844339512095}},
		{TypeHamming, nil, []float64{0.08, 0.25319469114498255, 0.6423596296199047, 0.9544456792351128}},
		{TypeBlackmanHarris4Term, nil, []float64{0.00006, 0.03339172347815117, 0.332833504298565, 0.8893697722232837}},
		{TypeFlatTop, nil, []float64{-0.0004210510000000013, -0.03684078115492348, 0.010703716716153423, 0.7808739149387698}},
		{TypeKaiser, nil, []float64{0.002338830512733327, 0.10919581096049485, 0.48711868430391303, 0.9261577377427728}},
		{TypeKaiser, []Option{WithBeta(0)}, []float64{1, 1, 1, 1}},
		{TypeRectangular, nil, []float64{1, 1, 1, 1}},
	}

	for _, tc := range tests {
		got := Generate(tc.typ, 8, tc.opts...)

		for i, want := range tc.want {
			if math.Abs(got[i]-want) > 1e-12 {
				t.Fatalf("%s[%d]: got=%.16f want=%.16f", Info(tc.typ).Name, i, got[i], want)
			}
		}
	}
}

func TestGeneratePeriodic(t *testing.T) {
	got := Generate(TypeHann, 4, WithPeriodic())
	want := []float64{0, 0.5, 1, 0.5}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("w[%d]: got=%v want=%v", i, got[i], want[i])
		}
	}
}

func TestGenerateDegenerate(t *testing.T) {
	if got := Generate(TypeHann, 0); got != nil {
		t.Fatalf("zero length: got=%v want=nil", got)
	}

	for _, typ := range allTypes {
		if got := Generate(typ, 1); len(got) != 1 || got[0] != 1 {
			t.Fatalf("%s single point: got=%v want=[1]", Info(typ).Name, got)
		}
	}

	if got := Generate(Type(99), 3); got[0] != 1 || got[2] != 1 {
		t.Fatalf("unknown type: got=%v want rectangular", got)
	}

	if a, b := Generate(TypeKaiser, 8, WithBeta(-1)), Generate(TypeKaiser, 8); a[0] != b[0] {
		t.Fatalf("negative beta: got=%v want default %v", a[0], b[0])
	}
}

func TestApply(t *testing.T) {
	buf := make([]float64, 33)
	for i := range buf {
		buf[i] = 2
	}

	Apply(TypeBlackmanHarris4Term, buf)
	w := Generate(TypeBlackmanHarris4Term, len(buf))

	for i := range buf {
		if math.Abs(buf[i]-2*w[i]) > 1e-15 {
			t.Fatalf("buf[%d]: got=%v want=%v", i, buf[i], 2*w[i])
		}
	}

	Apply(TypeHann, nil)
}

func TestAnalyzeMatchesMetadata(t *testing.T) {
	for _, typ := range allTypes[:6] {
		m := Info(typ)

		got, err := Analyze(Generate(typ, 4096, WithPeriodic()))
		if err != nil {
			t.Fatalf("%s: Analyze() error = %v", m.Name, err)
		}

		if math.Abs(got.ENBW-m.ENBW) > 0.01 {
			t.Fatalf("%s: ENBW got=%v want=%v", m.Name, got.ENBW, m.ENBW)
		}

		if math.Abs(got.CoherentGain-m.CoherentGain) > 1e-6 {
			t.Fatalf("%s: coherent gain got=%v want=%v", m.Name, got.CoherentGain, m.CoherentGain)
		}
	}
}

func TestAnalyzeErrors(t *testing.T) {
	if _, err := Analyze(nil); err == nil {
		t.Fatal("empty coefficients: want error")
	}

	if _, err := Analyze([]float64{1, -2, 1}); err == nil {
		t.Fatal("zero sum: want error")
	}
}

func TestInfoUnknown(t *testing.T) {
	if m := Info(Type(99)); m != (Metadata{}) {
		t.Fatalf("got=%+v want zero", m)
	}
}

func TestBesselI0(t *testing.T) {
	tests := []struct{ x, want float64 }{
		{0, 1},
		{1, 1.2660658777520082},
		{8, 427.56411572180474},
	}

	for _, tc := range tests {
		if got := BesselI0(tc.x); math.Abs(got-tc.want) > 1e-12*tc.want {
			t.Fatalf("I0(%v): got=%v want=%v", tc.x, got, tc.want)
		}
	}
}
