package thd

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-circuit/dsp/window"
)

// spectrum returns a squared-magnitude spectrum for a 48000-point FFT at
// 48 kHz (1 Hz per bin) with the given bin amplitudes.
func spectrum(amps map[int]float64) []float64 {
	mag := make([]float64, 48000/2+1)
	for bin, a := range amps {
		mag[bin] = a * a
	}

	return mag
}

func TestCalculateFromMagnitude(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		amps      map[int]float64
		fundHz    float64
		level     float64
		thd       float64
		thdn      float64
		noise     float64
		odd       float64
		even      float64
		rub       float64
		harmonics []float64
	}{
		{
			name: "second and third harmonic with noise",
			cfg:  Config{FundamentalFreq: 1000, RangeUpperFreq: 10000, RubNBuzzStart: 3, WindowType: window.TypeHann},
			amps: map[int]float64{1000: 1, 2000: 0.1, 3000: 0.05, 4500: 0.02},
			fundHz: 1000, level: 1,
			thd: 0.15, thdn: 0.17, noise: 0.02,
			odd: 0.05, even: 0.1, rub: 0.05,
			harmonics: []float64{0.1, 0.05},
		},
		{
			name: "strongest bin is the fundamental",
			cfg:  Config{RangeUpperFreq: 5000},
			amps: map[int]float64{1000: 0.8, 1200: 1.2, 2400: 0.1},
			fundHz: 1200, level: 1.2,
			thd: 0.1 / 1.2, thdn: 0.9 / 1.2, noise: 0.8 / 1.2,
			even:      0.1 / 1.2,
			harmonics: []float64{0.1 / 1.2},
		},
		{
			name: "capture bins widen each harmonic",
			cfg:  Config{FundamentalFreq: 1000, RangeUpperFreq: 5000, CaptureBins: 1},
			amps: map[int]float64{999: 0.2, 1000: 1, 1001: 0.2, 2000: 0.1, 2001: 0.05},
			fundHz: 1000, level: 1.4,
			thd: 0.15 / 1.4, thdn: 0.15 / 1.4,
			even:      0.15 / 1.4,
			harmonics: []float64{0.15 / 1.4},
		},
		{
			name: "second tone is noise",
			cfg:  Config{FundamentalFreq: 1000, RangeUpperFreq: 10000},
			amps: map[int]float64{
				1000: 1, 2000: 0.1, 3000: 0.05,
				1300: 0.8, 2600: 0.2, 3900: 0.1,
			},
			fundHz: 1000, level: 1,
			thd: 0.15, thdn: 1.25, noise: 1.1,
			odd: 0.05, even: 0.1,
			harmonics: []float64{0.1, 0.05},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.SampleRate = 48000
			tc.cfg.FFTSize = 48000

			res := NewCalculator(tc.cfg).CalculateFromMagnitude(spectrum(tc.amps))

			check := func(field string, got, want float64) {
				t.Helper()

				if math.Abs(got-want) > 1e-12 {
					t.Fatalf("%s: got=%.12f want=%.12f", field, got, want)
				}
			}

			check("fundamental", res.FundamentalFreq, tc.fundHz)
			check("level", res.FundamentalLevel, tc.level)
			check("THD", res.THD, tc.thd)
			check("THD+N", res.THDN, tc.thdn)
			check("noise", res.Noise, tc.noise)
			check("odd", res.OddHD, tc.odd)
			check("even", res.EvenHD, tc.even)
			check("rub", res.RubNBuzz, tc.rub)
			check("SINAD", res.SINAD, 20*math.Log10(1/tc.thdn))

			if len(res.Harmonics) != len(tc.harmonics) {
				t.Fatalf("harmonics: got=%v want=%v", res.Harmonics, tc.harmonics)
			}

			for i, want := range tc.harmonics {
				check("harmonic", res.Harmonics[i], want)
			}
		})
	}
}

func TestCalculateFromMagnitudeMaxHarmonics(t *testing.T) {
	amps := map[int]float64{1000: 1, 2000: 0.1, 3000: 0.05, 4000: 0.02}
	cfg := Config{SampleRate: 48000, FFTSize: 48000, FundamentalFreq: 1000, MaxHarmonics: 2}

	res := NewCalculator(cfg).CalculateFromMagnitude(spectrum(amps))
	if math.Abs(res.THD-0.15) > 1e-12 {
		t.Fatalf("THD: got=%v want=0.15", res.THD)
	}
}

func TestCalculateDegenerateInput(t *testing.T) {
	if res := NewCalculator(Config{}).CalculateFromMagnitude([]float64{1}); res.FundamentalLevel != 0 {
		t.Fatalf("single bin: got=%+v", res)
	}

	if res := Analyze(nil, Config{}); res.FundamentalLevel != 0 {
		t.Fatalf("empty spectrum: got=%+v", res)
	}

	res := NewCalculator(Config{SampleRate: 48000, FFTSize: 48000, FundamentalFreq: 1000}).
		CalculateFromMagnitude(spectrum(nil))
	if res.FundamentalFreq != 1000 || res.THD != 0 {
		t.Fatalf("silent spectrum: got=%+v", res)
	}
}

func binCentredSine(n, bin int, sr float64, shape func(float64) float64) ([]float64, float64) {
	freq := float64(bin) * sr / float64(n)

	signal := make([]float64, n)
	for i := range signal {
		signal[i] = shape(math.Sin(2 * math.Pi * freq * float64(i) / sr))
	}

	return signal, freq
}

func TestAnalyzeSignal(t *testing.T) {
	const sr = 48000.0

	tests := []struct {
		name   string
		shape  func(float64) float64
		check  func(Result) bool
		expect string
	}{
		{
			name:   "pure tone",
			shape:  func(x float64) float64 { return x },
			check:  func(r Result) bool { return r.FundamentalLevel > 0 && r.THD < 1e-3 },
			expect: "THD < 1e-3",
		},
		{
			name:   "symmetric curve",
			shape:  func(x float64) float64 { return math.Tanh(3 * x) },
			check:  func(r Result) bool { return r.THD > 0.1 && r.EvenHD < 1e-3*r.OddHD },
			expect: "heavy odd-only distortion",
		},
		{
			name:   "asymmetric curve",
			shape:  func(x float64) float64 { return x + 0.3*x*x },
			check:  func(r Result) bool { return math.Abs(r.EvenHD-0.15) < 0.01 && r.OddHD < 1e-3 },
			expect: "even ≈ 0.15 and odd ≈ 0",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			signal, freq := binCentredSine(8192, 100, sr, tc.shape)

			res := AnalyzeSignal(signal, Config{SampleRate: sr, FundamentalFreq: freq})
			if !tc.check(res) {
				t.Fatalf("got THD=%v odd=%v even=%v, want %s", res.THD, res.OddHD, res.EvenHD, tc.expect)
			}
		})
	}
}

func TestAnalyzeSignalEmpty(t *testing.T) {
	if res := AnalyzeSignal(nil, Config{SampleRate: 48000}); res.FundamentalLevel != 0 {
		t.Fatalf("got=%+v, want zero result", res)
	}
}

type shaper func(float64) float64

func (s shaper) ProcessSample(x float64) float64 { return s(x) }

type counter struct{ n int }

func (c *counter) ProcessSample(x float64) float64 {
	c.n++
	return x
}

func TestMeasure(t *testing.T) {
	res := Measure(shaper(math.Tanh), 2, 0, Config{SampleRate: 48000})

	// 1 kHz lands on bin 171 of 8192.
	want := 171 * 48000.0 / 8192
	if math.Abs(res.FundamentalFreq-want) > 1e-9 {
		t.Fatalf("fundamental: got=%v want=%v", res.FundamentalFreq, want)
	}

	if res.THD < 0.05 {
		t.Fatalf("THD: got=%v, want clipped tone", res.THD)
	}

	if res.EvenHD > 1e-3*res.OddHD {
		t.Fatalf("even=%v odd=%v, want odd-only spectrum", res.EvenHD, res.OddHD)
	}
}

func TestMeasureAsymmetric(t *testing.T) {
	res := Measure(shaper(func(x float64) float64 { return x + 0.3*x*x }), 1, 0,
		Config{SampleRate: 48000, FFTSize: 4096, FundamentalFreq: 750})

	if math.Abs(res.EvenHD-0.15) > 0.01 {
		t.Fatalf("even: got=%v want≈0.15", res.EvenHD)
	}
}

func TestMeasureSettle(t *testing.T) {
	var c counter

	Measure(&c, 1, 300, Config{SampleRate: 48000, FFTSize: 1024})

	if c.n != 1324 {
		t.Fatalf("processed samples: got=%d want=1324", c.n)
	}
}

func TestMeasureInvalid(t *testing.T) {
	if res := Measure(nil, 1, 0, Config{SampleRate: 48000}); res.FundamentalLevel != 0 {
		t.Fatalf("nil processor: got=%+v", res)
	}

	if res := Measure(shaper(math.Tanh), 1, 0, Config{}); res.FundamentalLevel != 0 {
		t.Fatalf("missing sample rate: got=%+v", res)
	}
}
