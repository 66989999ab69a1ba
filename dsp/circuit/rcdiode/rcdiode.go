package rcdiode

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-circuit/dsp/circuit/iv"
	"github.com/cwbudde/algo-circuit/dsp/circuit/nr"
	"github.com/cwbudde/algo-circuit/dsp/core"
)

const (
	defaultResistance     = 2200.0
	defaultCapacitance    = 10e-9
	defaultMaxIterations  = 50
	defaultTolerance      = 1e-6
	defaultWarmStartScale = 0.5

	maxIterationsLimit = 1000
)

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	resistance     float64
	capacitance    float64
	cutoffHz       float64
	maxIterations  int
	tolerance      float64
	warmStart      bool
	warmStartScale float64
	fallback       nr.Fallback
	stats          *nr.Stats
}

func defaultConfig() config {
	return config{
		resistance:     defaultResistance,
		capacitance:    defaultCapacitance,
		maxIterations:  defaultMaxIterations,
		tolerance:      defaultTolerance,
		warmStart:      true,
		warmStartScale: defaultWarmStartScale,
		fallback:       nr.FallbackSmallest,
	}
}

// WithResistance sets the series resistor in ohms.
func WithResistance(r float64) Option {
	return func(cfg *config) error {
		if err := validatePositive(r, "resistance"); err != nil {
			return err
		}

		cfg.resistance = r

		return nil
	}
}

// WithCapacitance sets the shunt capacitor in farads.
func WithCapacitance(c float64) Option {
	return func(cfg *config) error {
		if err := validatePositive(c, "capacitance"); err != nil {
			return err
		}

		cfg.capacitance = c
		cfg.cutoffHz = 0

		return nil
	}
}

// WithCutoffHz derives the capacitor from the resistor and an RC corner
// frequency. It is applied after all other options.
func WithCutoffHz(f float64) Option {
	return func(cfg *config) error {
		if err := validatePositive(f, "cutoff"); err != nil {
			return err
		}

		cfg.cutoffHz = f

		return nil
	}
}

// WithMaxIterations sets the Newton-Raphson iteration budget per sample.
func WithMaxIterations(n int) Option {
	return func(cfg *config) error {
		if n < 1 || n > maxIterationsLimit {
			return fmt.Errorf("rcdiode: max iterations must be in [1, %d]: %d", maxIterationsLimit, n)
		}

		cfg.maxIterations = n

		return nil
	}
}

// WithTolerance sets the convergence threshold on |Δv| in volts.
func WithTolerance(tol float64) Option {
	return func(cfg *config) error {
		if err := validatePositive(tol, "tolerance"); err != nil {
			return err
		}

		cfg.tolerance = tol

		return nil
	}
}

// WithWarmStart enables or disables the sign-flip warm start.
func WithWarmStart(enabled bool) Option {
	return func(cfg *config) error {
		cfg.warmStart = enabled
		return nil
	}
}

// WithWarmStartScale sets the factor applied to the negated previous solution
// when the warm start predicts a zero crossing. Must be in [0, 1].
func WithWarmStartScale(scale float64) Option {
	return func(cfg *config) error {
		if !core.IsFinite(scale) || scale < 0 || scale > 1 {
			return fmt.Errorf("rcdiode: warm start scale must be in [0, 1]: %v", scale)
		}

		cfg.warmStartScale = scale

		return nil
	}
}

// WithFallback selects the non-convergence policy.
func WithFallback(f nr.Fallback) Option {
	return func(cfg *config) error {
		if !f.Valid() {
			return fmt.Errorf("rcdiode: invalid fallback policy: %d", f)
		}

		cfg.fallback = f

		return nil
	}
}

// WithStats attaches an iteration histogram. nil disables recording.
func WithStats(s *nr.Stats) Option {
	return func(cfg *config) error {
		cfg.stats = s
		return nil
	}
}

// State is the persistent solver memory between samples.
type State struct {
	V    float64 // last solved node voltage, seeds the next solve
	Iceq float64 // capacitor companion history current
}

// Solver is the RC + nonlinear device solver. It is not safe for concurrent
// use; stereo processing needs one Solver per channel.
type Solver struct {
	sampleRate float64

	resistance  float64
	capacitance float64
	dev         iv.Func

	maxIterations  int
	tolerance      float64
	warmStart      bool
	warmStartScale float64
	fallback       nr.Fallback
	stats          *nr.Stats

	gr   float64
	geqc float64

	state     State
	lastIters int
	converged bool
}

// New constructs a solver for the given device.
func New(sampleRate float64, dev iv.Func, opts ...Option) (*Solver, error) {
	if err := validatePositive(sampleRate, "sample rate"); err != nil {
		return nil, err
	}

	if dev == nil {
		return nil, fmt.Errorf("rcdiode: device must not be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.cutoffHz > 0 {
		cfg.capacitance = core.CapacitanceForCutoff(cfg.resistance, cfg.cutoffHz)
	}

	s := &Solver{
		sampleRate:     sampleRate,
		resistance:     cfg.resistance,
		capacitance:    cfg.capacitance,
		dev:            dev,
		maxIterations:  cfg.maxIterations,
		tolerance:      cfg.tolerance,
		warmStart:      cfg.warmStart,
		warmStartScale: cfg.warmStartScale,
		fallback:       cfg.fallback,
		stats:          cfg.stats,
		converged:      true,
	}
	s.update()

	return s, nil
}

// SampleRate returns the sample rate in Hz.
func (s *Solver) SampleRate() float64 { return s.sampleRate }

// Resistance returns the series resistor in ohms.
func (s *Solver) Resistance() float64 { return s.resistance }

// Capacitance returns the shunt capacitor in farads.
func (s *Solver) Capacitance() float64 { return s.capacitance }

// CutoffHz returns the linear RC corner frequency.
func (s *Solver) CutoffHz() float64 {
	return 1 / (2 * math.Pi * s.resistance * s.capacitance)
}

// Device returns the nonlinear termination.
func (s *Solver) Device() iv.Func { return s.dev }

// SetSampleRate updates the sample rate and the capacitor companion model.
func (s *Solver) SetSampleRate(sampleRate float64) error {
	if err := validatePositive(sampleRate, "sample rate"); err != nil {
		return err
	}

	s.sampleRate = sampleRate
	s.update()

	return nil
}

// SetCapacitance updates the capacitor.
func (s *Solver) SetCapacitance(c float64) error {
	if err := validatePositive(c, "capacitance"); err != nil {
		return err
	}

	s.capacitance = c
	s.update()

	return nil
}

// SetCutoffHz derives the capacitor from the current resistor.
func (s *Solver) SetCutoffHz(f float64) error {
	if err := validatePositive(f, "cutoff"); err != nil {
		return err
	}

	return s.SetCapacitance(core.CapacitanceForCutoff(s.resistance, f))
}

// SetResistance updates the series resistor. The capacitor is kept, so the
// corner frequency moves.
func (s *Solver) SetResistance(r float64) error {
	if err := validatePositive(r, "resistance"); err != nil {
		return err
	}

	s.resistance = r
	s.update()

	return nil
}

// SetDevice swaps the nonlinear termination. State is kept.
func (s *Solver) SetDevice(dev iv.Func) error {
	if dev == nil {
		return fmt.Errorf("rcdiode: device must not be nil")
	}

	s.dev = dev

	return nil
}

// Reset clears the integrator history and the Newton seed.
func (s *Solver) Reset() {
	s.state = State{}
	s.lastIters = 0
	s.converged = true
}

// State returns a copy of the persistent solver state.
func (s *Solver) State() State { return s.state }

// SetState restores a previously saved state.
func (s *Solver) SetState(st State) error {
	if !core.IsFinite(st.V) || !core.IsFinite(st.Iceq) {
		return fmt.Errorf("rcdiode: state contains NaN or Inf")
	}

	s.state = st

	return nil
}

// LastIterations returns the Newton iteration count of the last sample.
func (s *Solver) LastIterations() int { return s.lastIters }

// LastConverged reports whether the last sample converged within budget.
func (s *Solver) LastConverged() bool { return s.converged }

// ProcessSample drives the network with input voltage x and returns the node
// voltage.
func (s *Solver) ProcessSample(x float64) float64 {
	if !core.IsFinite(x) {
		x = 0
	}

	prev := s.state.V
	gt := s.gr + s.geqc
	// rhs is the current the source and the capacitor history drive into
	// the node. The solution shares its sign, so a start point of the
	// opposite sign is flipped.
	rhs := s.gr*x - s.state.Iceq

	v := prev
	if s.warmStart && v*rhs < 0 {
		v *= -s.warmStartScale
	}

	converged := false
	iters := 0

	for iters < s.maxIterations {
		iters++

		i, g := s.dev.Eval(v)
		f := gt*v + i - rhs
		delta := nr.ClampStep(-f/(gt+g), s.dev.MaxStep(v))
		v += delta

		if math.Abs(delta) <= s.tolerance {
			converged = true
			break
		}
	}

	if !converged {
		v = s.fallback.Resolve(v, prev)
	}

	if !core.IsFinite(v) {
		v = prev
	}

	s.state.V = core.FlushDenormals(v)
	s.state.Iceq = core.FlushDenormals(-2*v*s.geqc - s.state.Iceq)
	s.lastIters = iters
	s.converged = converged
	s.stats.Record(iters, converged)

	return s.state.V
}

// ProcessBlock processes src into dst. dst and src may be the same slice.
func (s *Solver) ProcessBlock(dst, src []float64) {
	core.ProcessBlock(s, dst, src)
}

// ProcessInPlace processes buf in place.
func (s *Solver) ProcessInPlace(buf []float64) {
	core.ProcessInPlace(s, buf)
}

func (s *Solver) update() {
	s.gr = 1 / s.resistance
	s.geqc = core.TrapezoidalConductance(s.capacitance, s.sampleRate)
}

func validatePositive(value float64, name string) error {
	if !core.IsFinite(value) || value <= 0 {
		return fmt.Errorf("rcdiode: %s must be > 0 and finite: %v", name, value)
	}

	return nil
}
