package oversample

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-circuit/internal/testutil"
)

var identity = ProcessorFunc(func(x float64) float64 { return x })

type counter struct{ calls int }

func (c *counter) ProcessSample(x float64) float64 {
	c.calls++
	return x
}

func TestNewValidation(t *testing.T) {
	for _, f := range []int{0, -2, MaxFactor + 1} {
		if _, err := New(f); !errors.Is(err, ErrInvalidFactor) {
			t.Fatalf("New(%d) err=%v want ErrInvalidFactor", f, err)
		}
	}
}

func TestFactorOneIsPassThrough(t *testing.T) {
	o, err := New(1)
	if err != nil {
		t.Fatal(err)
	}

	double := ProcessorFunc(func(x float64) float64 { return 2 * x })

	for _, x := range []float64{0.25, -1, 3} {
		if got := o.ProcessSample(x, double); got != 2*x {
			t.Fatalf("ProcessSample(%v)=%v want=%v", x, got, 2*x)
		}
	}

	if o.Latency() != 0 || o.TapsPerPhase() != 0 {
		t.Fatalf("latency=%d taps=%d", o.Latency(), o.TapsPerPhase())
	}

	o.Reset()
}

func TestQualityProfiles(t *testing.T) {
	tests := []struct {
		opts []Option
		taps int
	}{
		{nil, 32},
		{[]Option{WithQuality(QualityFast)}, 16},
		{[]Option{WithQuality(QualityBest)}, 64},
		{[]Option{WithTapsPerPhase(8)}, 8},
		{[]Option{WithTapsPerPhase(-1)}, 32},
	}

	for _, tt := range tests {
		o, err := New(4, tt.opts...)
		if err != nil {
			t.Fatal(err)
		}

		if o.TapsPerPhase() != tt.taps {
			t.Fatalf("taps per phase got=%d want=%d", o.TapsPerPhase(), tt.taps)
		}

		if o.Latency() != tt.taps-1 {
			t.Fatalf("latency got=%d want=%d", o.Latency(), tt.taps-1)
		}

		if len(o.Prototype()) != 4*tt.taps {
			t.Fatalf("prototype length got=%d want=%d", len(o.Prototype()), 4*tt.taps)
		}
	}
}

func TestPrototypeIsLinearPhase(t *testing.T) {
	o, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	h := o.Prototype()

	var sum float64
	for i := range h {
		sum += h[i]

		if d := math.Abs(h[i] - h[len(h)-1-i]); d > 1e-12 {
			t.Fatalf("tap %d asymmetric by %v", i, d)
		}
	}

	if math.Abs(sum-4) > 1e-12 {
		t.Fatalf("prototype gain=%v want=4", sum)
	}
}

func TestIdentityRoundTripIsDelayedInput(t *testing.T) {
	for _, factor := range []int{2, 4, 8} {
		o, err := New(factor)
		if err != nil {
			t.Fatal(err)
		}

		src := testutil.DeterministicSine(1000, 48000, 1, 1000)
		dst := make([]float64, len(src))
		o.ProcessBlock(dst, src, identity)

		lat := o.Latency()
		for i := 200; i < len(src); i++ {
			if d := math.Abs(dst[i] - src[i-lat]); d > 1e-3 {
				t.Fatalf("factor %d sample %d: diff=%v", factor, i, d)
			}
		}
	}
}

func TestBalancedFourTimesAccuracy(t *testing.T) {
	o, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	src := testutil.DeterministicSine(1000, 48000, 1, 1000)
	dst := make([]float64, len(src))
	o.ProcessBlock(dst, src, identity)

	for i := 200; i < len(src); i++ {
		if d := math.Abs(dst[i] - src[i-31]); d > 1e-4 {
			t.Fatalf("sample %d: diff=%v", i, d)
		}
	}
}

func TestDCGain(t *testing.T) {
	o, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	buf := testutil.Step(1, 300, 0)
	o.ProcessBlock(buf, buf, identity)

	if d := math.Abs(buf[len(buf)-1] - 1); d > 1e-6 {
		t.Fatalf("DC gain error=%v", d)
	}
}

func TestProcessorRunsAtOversampledRate(t *testing.T) {
	o, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	var c counter

	buf := make([]float64, 100)
	o.ProcessBlock(buf, buf, &c)

	if c.calls != 400 {
		t.Fatalf("calls=%d want=400", c.calls)
	}
}

func TestResetIsBitExact(t *testing.T) {
	o, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	clip := ProcessorFunc(math.Tanh)
	src := testutil.DeterministicNoise(3, 2, 512)

	first := make([]float64, len(src))
	o.ProcessBlock(first, src, clip)

	o.Reset()

	second := make([]float64, len(src))
	o.ProcessBlock(second, src, clip)

	for i := range first {
		if math.Float64bits(first[i]) != math.Float64bits(second[i]) {
			t.Fatalf("sample %d: first=%v second=%v", i, first[i], second[i])
		}
	}
}

func TestOversamplingReducesAliasing(t *testing.T) {
	const (
		fs   = 48000.0
		freq = 5000.0
		n    = 4800
	)

	hard := ProcessorFunc(func(x float64) float64 { return math.Max(-0.3, math.Min(0.3, x)) })
	src := testutil.DeterministicSine(freq, fs, 1, n)

	// Harmonics of 5 kHz land on multiples of 5 kHz; aliases of harmonics
	// above Nyquist land on multiples of 1 kHz that are not multiples of 5.
	aliasLevel := func(y []float64) float64 {
		var total float64

		for _, f := range []float64{1000, 2000, 3000, 4000, 6000} {
			var re, im float64

			for i, v := range y[n/2:] {
				ph := 2 * math.Pi * f * float64(i) / fs
				re += v * math.Cos(ph)
				im += v * math.Sin(ph)
			}

			total += re*re + im*im
		}

		return total
	}

	plain := make([]float64, n)
	for i, x := range src {
		plain[i] = hard.ProcessSample(x)
	}

	o, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	over := make([]float64, n)
	o.ProcessBlock(over, src, hard)

	if a, b := aliasLevel(over), aliasLevel(plain); !(a < 0.1*b) {
		t.Fatalf("alias energy oversampled=%v plain=%v", a, b)
	}
}

func BenchmarkProcessBlock4x(b *testing.B) {
	o, err := New(4)
	if err != nil {
		b.Fatal(err)
	}

	src := testutil.DeterministicSine(440, 48000, 1, 1024)
	dst := make([]float64, len(src))
	clip := ProcessorFunc(math.Tanh)

	for b.Loop() {
		o.ProcessBlock(dst, src, clip)
	}
}

func TestQualityString(t *testing.T) {
	tests := []struct {
		q    Quality
		want string
	}{
		{QualityFast, "fast"},
		{QualityBalanced, "balanced"},
		{QualityBest, "best"},
		{Quality(7), "Quality(7)"},
	}

	for _, tt := range tests {
		if got := tt.q.String(); got != tt.want {
			t.Fatalf("String() got=%q want=%q", got, tt.want)
		}
	}
}
