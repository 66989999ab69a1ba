package oversample

import (
	"errors"

	"github.com/cwbudde/algo-circuit/dsp/delay"
	"github.com/cwbudde/algo-vecmath"
)

// MaxFactor is the largest supported oversampling factor.
const MaxFactor = 32

// ErrInvalidFactor indicates a factor outside [1, MaxFactor].
var ErrInvalidFactor = errors.New("oversample: invalid factor")

// Processor is a stage that consumes and produces one sample at a time.
// Every circuit solver in this module satisfies it.
type Processor interface {
	ProcessSample(x float64) float64
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(float64) float64

// ProcessSample calls f(x).
func (f ProcessorFunc) ProcessSample(x float64) float64 { return f(x) }

type config struct {
	quality      Quality
	tapsPerPhase int
	cutoffScale  float64
	kaiserBeta   float64
}

// Option configures the oversampler.
type Option func(*config)

// WithQuality selects a predefined anti-aliasing quality mode.
func WithQuality(q Quality) Option {
	return func(cfg *config) {
		cfg.quality = q
	}
}

// WithTapsPerPhase overrides taps per polyphase branch.
func WithTapsPerPhase(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.tapsPerPhase = n
		}
	}
}

// WithCutoffScale overrides the cutoff as a fraction of the host Nyquist
// frequency, in (0, 1].
func WithCutoffScale(v float64) Option {
	return func(cfg *config) {
		if v > 0 && v <= 1 {
			cfg.cutoffScale = v
		}
	}
}

// WithKaiserBeta overrides the Kaiser window beta parameter.
func WithKaiserBeta(beta float64) Option {
	return func(cfg *config) {
		if beta > 0 {
			cfg.kaiserBeta = beta
		}
	}
}

func (c config) finalized() config {
	p := QualityProfile(c.quality)
	if c.tapsPerPhase <= 0 {
		c.tapsPerPhase = p.TapsPerPhase
	}

	if c.cutoffScale <= 0 || c.cutoffScale > 1 {
		c.cutoffScale = p.CutoffScale
	}

	if c.kaiserBeta <= 0 {
		c.kaiserBeta = p.KaiserBeta
	}

	return c
}

// Oversampler wraps a Processor in an interpolate-process-decimate chain.
// It is not safe for concurrent use.
type Oversampler struct {
	factor  int
	quality Quality

	taps   []float64
	phases [][]float64
	decim  []float64

	in  *delay.Line // host-rate input history
	out *delay.Line // processed oversampled history
}

// New returns an oversampler for the given integer factor. Factor 1 is a
// pass-through with zero latency.
func New(factor int, opts ...Option) (*Oversampler, error) {
	if factor < 1 || factor > MaxFactor {
		return nil, ErrInvalidFactor
	}

	var cfg config
	cfg.quality = QualityBalanced

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	cfg = cfg.finalized()

	o := &Oversampler{factor: factor, quality: cfg.quality}
	if factor == 1 {
		return o, nil
	}

	taps, err := designPrototype(factor, cfg)
	if err != nil {
		return nil, err
	}

	o.taps = taps
	o.phases = splitPhases(taps, factor)
	o.decim = make([]float64, len(taps))
	vecmath.ScaleBlock(o.decim, taps, 1/float64(factor))

	if o.in, err = delay.New(cfg.tapsPerPhase); err != nil {
		return nil, err
	}

	if o.out, err = delay.New(len(taps)); err != nil {
		return nil, err
	}

	return o, nil
}

// Factor returns the oversampling factor.
func (o *Oversampler) Factor() int { return o.factor }

// Quality returns the configured quality mode.
func (o *Oversampler) Quality() Quality { return o.quality }

// TapsPerPhase returns the length of each polyphase branch. Zero for
// factor 1.
func (o *Oversampler) TapsPerPhase() int {
	if len(o.phases) == 0 {
		return 0
	}

	return len(o.phases[0])
}

// Latency returns the round-trip delay in host-rate samples.
func (o *Oversampler) Latency() int {
	if o.factor == 1 {
		return 0
	}

	return o.TapsPerPhase() - 1
}

// Prototype returns a copy of the interpolation filter taps.
func (o *Oversampler) Prototype() []float64 {
	return append([]float64(nil), o.taps...)
}

// ProcessSample feeds one host-rate sample through p at the oversampled
// rate and returns one host-rate sample. p is called Factor() times.
func (o *Oversampler) ProcessSample(x float64, p Processor) float64 {
	if o.factor == 1 {
		return p.ProcessSample(x)
	}

	o.in.Push(x)

	for _, phase := range o.phases {
		var u float64
		for k, c := range phase {
			u += c * o.in.Read(k)
		}

		o.out.Push(p.ProcessSample(u))
	}

	var y float64
	for j, c := range o.decim {
		y += c * o.out.Read(j)
	}

	return y
}

// ProcessBlock processes src into dst. dst and src may be the same slice.
func (o *Oversampler) ProcessBlock(dst, src []float64, p Processor) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = o.ProcessSample(src[i], p)
	}
}

// Reset clears the filter histories. The wrapped stage is not reset.
func (o *Oversampler) Reset() {
	if o.factor == 1 {
		return
	}

	o.in.Reset()
	o.out.Reset()
}
