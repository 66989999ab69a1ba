package thd

import (
	"math"
	"math/bits"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-circuit/dsp/window"
)

const (
	defaultMeasureFFTSize = 8192
	defaultMeasureFreq    = 1000.0
)

// Processor is a sample-by-sample system under test.
type Processor interface {
	ProcessSample(x float64) float64
}

// AnalyzeSignal performs one-shot THD analysis from a time-domain signal.
// It applies the configured window, performs an FFT, and evaluates THD metrics.
func AnalyzeSignal(signal []float64, cfg Config) Result {
	return NewCalculator(cfg).AnalyzeSignal(signal)
}

// AnalyzeSignal windows signal, zero-pads it to FFTSize (or the next power
// of two) and analyses the spectrum.
func (c *Calculator) AnalyzeSignal(signal []float64) Result {
	if len(signal) == 0 {
		return Result{}
	}

	size := c.cfg.FFTSize
	if size <= 0 {
		size = ceilPow2(len(signal))
	}

	if size < 2 {
		return Result{}
	}

	n := min(len(signal), size)
	frame := make([]float64, n)
	copy(frame, signal[:n])
	window.Apply(c.cfg.WindowType, frame)

	in := make([]complex128, size)
	for i, v := range frame {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return Result{}
	}

	out := make([]complex128, size)
	if err := plan.Forward(out, in); err != nil {
		return Result{}
	}

	calc := *c
	calc.cfg.FFTSize = size

	return calc.Calculate(out)
}

// Measure drives p with a sine of the given amplitude and analyses its
// steady-state response. The test frequency is cfg.FundamentalFreq (1 kHz
// when zero) moved onto the nearest FFT bin so the tone has no leakage.
// settle samples are discarded before the FFTSize (8192 when zero) samples
// that are analysed. cfg.SampleRate must be set.
func Measure(p Processor, amplitude float64, settle int, cfg Config) Result {
	if p == nil || cfg.SampleRate <= 0 {
		return Result{}
	}

	if cfg.FFTSize <= 0 {
		cfg.FFTSize = defaultMeasureFFTSize
	}

	freq := cfg.FundamentalFreq
	if freq <= 0 {
		freq = defaultMeasureFreq
	}

	bin := max(1, int(math.Round(freq*float64(cfg.FFTSize)/cfg.SampleRate)))
	cfg.FundamentalFreq = float64(bin) * cfg.SampleRate / float64(cfg.FFTSize)

	step := 2 * math.Pi * float64(bin) / float64(cfg.FFTSize)
	settle = max(settle, 0)

	for i := range settle {
		p.ProcessSample(amplitude * math.Sin(step*float64(i)))
	}

	capture := make([]float64, cfg.FFTSize)
	for i := range capture {
		capture[i] = p.ProcessSample(amplitude * math.Sin(step*float64(settle+i)))
	}

	return AnalyzeSignal(capture, cfg)
}

func ceilPow2(n int) int {
	if n <= 1 {
		return 1
	}

	return 1 << bits.Len(uint(n-1))
}
