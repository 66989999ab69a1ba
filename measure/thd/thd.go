// Package thd measures harmonic distortion of a periodic signal: THD, THD+N,
// the odd/even harmonic split and rub-and-buzz content.
//
// Levels are linear magnitude sums over ±CaptureBins around each harmonic,
// relative to the fundamental. A symmetric clipper shows up as OddHD with
// EvenHD near zero; any asymmetry in the transfer curve raises EvenHD.
package thd

import (
	"math"

	"github.com/cwbudde/algo-circuit/dsp/window"
)

const (
	defaultRangeLowerHz = 20.0
	defaultRangeUpperHz = 20000.0
	defaultRubNBuzz     = 10
)

// Config holds THD calculation parameters. Zero values select defaults:
// a 20 Hz to 20 kHz search range, the strongest bin as fundamental, capture
// width from the window's main lobe, rub-and-buzz from the 10th harmonic and
// a Hann window.
type Config struct {
	SampleRate      float64
	FFTSize         int
	FundamentalFreq float64
	RangeLowerFreq  float64
	RangeUpperFreq  float64
	CaptureBins     int
	MaxHarmonics    int
	RubNBuzzStart   int
	WindowType      window.Type
}

// Result holds THD measurement results. All ratios are relative to
// FundamentalLevel.
//
//nolint:revive
type Result struct {
	FundamentalFreq  float64
	FundamentalLevel float64
	THD              float64
	THDN             float64
	THD_dB           float64
	THDN_dB          float64
	OddHD            float64
	EvenHD           float64
	Noise            float64
	RubNBuzz         float64
	Harmonics        []float64
	SINAD            float64
}

// Calculator performs THD analysis on frequency-domain data.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a new THD calculator.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: withDefaults(cfg)}
}

// Analyze is a one-shot THD analysis for a complex spectrum.
func Analyze(spectrum []complex128, cfg Config) Result {
	return NewCalculator(cfg).Calculate(spectrum)
}

// Calculate computes THD metrics from a complex FFT of length FFTSize (or
// len(spectrum) when FFTSize is 0).
func (c *Calculator) Calculate(spectrum []complex128) Result {
	if len(spectrum) < 2 {
		return Result{}
	}

	power := make([]float64, len(spectrum)/2+1)
	for i := range power {
		re, im := real(spectrum[i]), imag(spectrum[i])
		power[i] = re*re + im*im
	}

	calc := *c
	if calc.cfg.FFTSize <= 0 {
		calc.cfg.FFTSize = len(spectrum)
	}

	return calc.CalculateFromMagnitude(power)
}

// CalculateFromMagnitude computes THD metrics from a squared-magnitude
// spectrum holding the bins 0..Nyquist.
func (c *Calculator) CalculateFromMagnitude(magSquared []float64) Result {
	b, ok := c.layout(magSquared)
	if !ok {
		return Result{}
	}

	level := b.sum(magSquared, b.fund)
	if level <= 0 {
		return Result{FundamentalFreq: float64(b.fund) * b.binHz}
	}

	h := c.harmonics(magSquared, b, level)

	var total float64
	for _, p := range magSquared[b.lo : b.hi+1] {
		total += magnitude(p)
	}

	thdn := max(total-level, 0) / level
	thd := h.all / level

	sinad := math.Inf(1)
	if thdn > 0 {
		sinad = -20 * math.Log10(thdn)
	}

	return Result{
		FundamentalFreq:  float64(b.fund) * b.binHz,
		FundamentalLevel: level,
		THD:              thd,
		THDN:             thdn,
		THD_dB:           toDB(thd),
		THDN_dB:          toDB(thdn),
		OddHD:            h.odd / level,
		EvenHD:           h.even / level,
		Noise:            max(thdn-thd, 0),
		RubNBuzz:         h.rub / level,
		Harmonics:        h.ratios,
		SINAD:            sinad,
	}
}

// bins is the resolved search range and capture geometry of one analysis.
type bins struct {
	lo, hi  int
	fund    int
	capture int
	binHz   float64
}

// sum adds the magnitudes of bin ± capture, clipped to the spectrum.
func (b bins) sum(magSquared []float64, bin int) float64 {
	if bin < 0 || bin >= len(magSquared) {
		return 0
	}

	from := max(bin-b.capture, 0)
	to := min(bin+b.capture, len(magSquared)-1)

	var s float64
	for _, p := range magSquared[from : to+1] {
		s += magnitude(p)
	}

	return s
}

func (c *Calculator) layout(magSquared []float64) (bins, bool) {
	if len(magSquared) < 2 {
		return bins{}, false
	}

	cfg := c.cfg

	fftSize := cfg.FFTSize
	if fftSize <= 0 {
		fftSize = 2 * (len(magSquared) - 1)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = float64(fftSize)
	}

	last := len(magSquared) - 1
	b := bins{binHz: sampleRate / float64(fftSize)}
	b.lo = clamp(int(math.Round(cfg.RangeLowerFreq/b.binHz)), 1, last)
	b.hi = clamp(int(math.Round(cfg.RangeUpperFreq/b.binHz)), b.lo, last)

	if cfg.FundamentalFreq > 0 {
		b.fund = clamp(int(math.Round(cfg.FundamentalFreq/b.binHz)), b.lo, b.hi)
	} else {
		b.fund = b.lo
		for i := b.lo + 1; i <= b.hi; i++ {
			if magSquared[i] > magSquared[b.fund] {
				b.fund = i
			}
		}
	}

	b.capture = cfg.CaptureBins
	if b.capture == 0 {
		b.capture = int(math.Round(window.Info(cfg.WindowType).FirstMinimum))
	}

	// Keep the capture windows of neighbouring harmonics apart.
	b.capture = min(b.capture, b.fund/2)

	return b, true
}

type harmonicSums struct {
	all, odd, even, rub float64
	ratios              []float64
}

func (c *Calculator) harmonics(magSquared []float64, b bins, level float64) harmonicSums {
	var h harmonicSums

	counted := 0
	for k := 2; k*b.fund <= b.hi; k++ {
		if c.cfg.MaxHarmonics > 0 && counted >= c.cfg.MaxHarmonics {
			break
		}

		bin := k * b.fund
		if bin < b.lo {
			continue
		}

		v := b.sum(magSquared, bin)
		h.all += v

		if k%2 == 0 {
			h.even += v
		} else {
			h.odd += v
		}

		if k >= c.cfg.RubNBuzzStart {
			h.rub += v
		}

		if v > 0 {
			h.ratios = append(h.ratios, v/level)
		}

		counted++
	}

	return h
}

func withDefaults(cfg Config) Config {
	if cfg.RangeLowerFreq <= 0 {
		cfg.RangeLowerFreq = defaultRangeLowerHz
	}

	if cfg.RangeUpperFreq <= 0 {
		cfg.RangeUpperFreq = defaultRangeUpperHz
	}

	cfg.RangeUpperFreq = max(cfg.RangeUpperFreq, cfg.RangeLowerFreq)

	if cfg.RubNBuzzStart < 1 {
		cfg.RubNBuzzStart = defaultRubNBuzz
	}

	// The zero Type is Rectangular, which leaks too much for harmonic
	// analysis; it selects Hann instead.
	if cfg.WindowType == window.TypeRectangular {
		cfg.WindowType = window.TypeHann
	}

	cfg.CaptureBins = max(cfg.CaptureBins, 0)
	cfg.MaxHarmonics = max(cfg.MaxHarmonics, 0)

	return cfg
}

func magnitude(power float64) float64 {
	if power <= 0 {
		return 0
	}

	return math.Sqrt(power)
}

func toDB(ratio float64) float64 {
	if ratio <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(ratio)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
