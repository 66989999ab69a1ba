package clipper

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-circuit/dsp/circuit/iv"
	"github.com/cwbudde/algo-circuit/dsp/circuit/nr"
	"github.com/cwbudde/algo-circuit/dsp/circuit/wright"
	"github.com/cwbudde/algo-circuit/dsp/core"
)

// Solver selects how the feedback equation is solved.
type Solver int

const (
	// SolverWrightOmega evaluates the closed form. Fixed cost per sample.
	SolverWrightOmega Solver = iota
	// SolverNewton iterates Newton-Raphson with the exact exponential on the
	// same equation. It is the reference the closed form is checked against.
	SolverNewton
)

func (s Solver) String() string {
	switch s {
	case SolverWrightOmega:
		return "wright-omega"
	case SolverNewton:
		return "newton"
	default:
		return "unknown"
	}
}

const (
	newtonMaxIterations = 100
	newtonTolerance     = 1e-13

	defaultDist     = 0.5
	defaultSatLevel = 1.0
)

// topology holds the fixed part of a clipper circuit.
type topology struct {
	name      string
	rin       float64 // input branch resistor
	cin       float64 // input branch capacitor
	rfMin     float64 // feedback resistor at dist = 0
	rfRange   float64 // added feedback resistance at dist = 1
	cf        float64 // feedback capacitor
	inverting bool
}

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	dist       float64
	satLevel   float64
	highpassHz float64
	lowpassHz  float64
	diode      iv.DiodeParams
	vt         float64
	solver     Solver
	stats      *nr.Stats
}

func defaultConfig() config {
	return config{
		dist:     defaultDist,
		satLevel: defaultSatLevel,
		diode:    iv.Silicon1N914(),
		vt:       core.DefaultThermalVoltage,
		solver:   SolverWrightOmega,
	}
}

// WithDist sets the distortion pot position in [0, 1].
func WithDist(dist float64) Option {
	return func(cfg *config) error {
		if err := validateUnit(dist, "dist"); err != nil {
			return err
		}

		cfg.dist = dist

		return nil
	}
}

// WithSatLevel scales the diode slope n·Vt. Values above 1 raise the
// clipping threshold.
func WithSatLevel(level float64) Option {
	return func(cfg *config) error {
		if err := validatePositive(level, "saturation level"); err != nil {
			return err
		}

		cfg.satLevel = level

		return nil
	}
}

// WithHighpassHz sets the input branch corner frequency.
func WithHighpassHz(f float64) Option {
	return func(cfg *config) error {
		if err := validatePositive(f, "highpass frequency"); err != nil {
			return err
		}

		cfg.highpassHz = f

		return nil
	}
}

// WithLowpassHz sets the feedback corner frequency at full distortion.
func WithLowpassHz(f float64) Option {
	return func(cfg *config) error {
		if err := validatePositive(f, "lowpass frequency"); err != nil {
			return err
		}

		cfg.lowpassHz = f

		return nil
	}
}

// WithDiode selects the clipping diodes. Both diodes of the pair are equal.
func WithDiode(p iv.DiodeParams) Option {
	return func(cfg *config) error {
		if err := validateDiode(p); err != nil {
			return err
		}

		cfg.diode = p

		return nil
	}
}

// WithThermalVoltage overrides kT/q.
func WithThermalVoltage(vt float64) Option {
	return func(cfg *config) error {
		if err := validatePositive(vt, "thermal voltage"); err != nil {
			return err
		}

		cfg.vt = vt

		return nil
	}
}

// WithSolver selects the equation solver.
func WithSolver(s Solver) Option {
	return func(cfg *config) error {
		if s != SolverWrightOmega && s != SolverNewton {
			return fmt.Errorf("clipper: invalid solver: %d", s)
		}

		cfg.solver = s

		return nil
	}
}

// WithStats records Newton iteration counts. Only SolverNewton records.
func WithStats(s *nr.Stats) Option {
	return func(cfg *config) error {
		cfg.stats = s
		return nil
	}
}

// clipper is the shared implementation behind TubeScreamer and JCM.
type clipper struct {
	topo topology

	sampleRate float64
	dist       float64
	satLevel   float64
	cin        float64
	cf         float64
	diode      iv.DiodeParams
	vt         float64
	solver     Solver
	stats      *nr.Stats

	dirty bool

	// Derived coefficients, valid while !dirty.
	gin      float64 // 1/Rin
	geqIn    float64 // 2·Cin·fs
	invInSum float64 // 1/(gin + geqIn)
	gf       float64 // 1/Rf
	geqF     float64 // 2·Cf·fs
	a        float64 // gf + geqF
	invA     float64
	nvt      float64 // n·Vt·sat
	invNvt   float64
	invANvt  float64
	lnK      float64 // ln(Is/(a·nVt'))
	is       float64

	// State.
	jIn   float64 // input capacitor history current
	jF    float64 // feedback capacitor history current
	v     float64 // last feedback voltage
	iters int
}

func newClipper(topo topology, sampleRate float64, opts []Option) (clipper, error) {
	if err := validatePositive(sampleRate, "sample rate"); err != nil {
		return clipper{}, err
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return clipper{}, err
		}
	}

	c := clipper{
		topo:       topo,
		sampleRate: sampleRate,
		dist:       cfg.dist,
		satLevel:   cfg.satLevel,
		cin:        topo.cin,
		cf:         topo.cf,
		diode:      cfg.diode,
		vt:         cfg.vt,
		solver:     cfg.solver,
		stats:      cfg.stats,
		dirty:      true,
	}

	if cfg.highpassHz > 0 {
		c.cin = core.CapacitanceForCutoff(topo.rin, cfg.highpassHz)
	}

	if cfg.lowpassHz > 0 {
		c.cf = core.CapacitanceForCutoff(topo.rfMin+topo.rfRange, cfg.lowpassHz)
	}

	c.UpdateEq()

	return c, nil
}

// Name identifies the topology.
func (c *clipper) Name() string { return c.topo.name }

// SampleRate returns the sample rate in Hz.
func (c *clipper) SampleRate() float64 { return c.sampleRate }

// Dist returns the distortion pot position.
func (c *clipper) Dist() float64 { return c.dist }

// SatLevel returns the saturation level.
func (c *clipper) SatLevel() float64 { return c.satLevel }

// HighpassHz returns the input branch corner frequency.
func (c *clipper) HighpassHz() float64 {
	return 1 / (2 * math.Pi * c.topo.rin * c.cin)
}

// LowpassHz returns the feedback corner frequency at full distortion.
func (c *clipper) LowpassHz() float64 {
	return 1 / (2 * math.Pi * (c.topo.rfMin + c.topo.rfRange) * c.cf)
}

// FeedbackResistance returns Rf for the current dist setting.
func (c *clipper) FeedbackResistance() float64 {
	return c.topo.rfMin + c.dist*c.topo.rfRange
}

// Diode returns the clipping diode parameters.
func (c *clipper) Diode() iv.DiodeParams { return c.diode }

// Solver returns the active equation solver.
func (c *clipper) Solver() Solver { return c.solver }

// Dirty reports whether derived coefficients are stale.
func (c *clipper) Dirty() bool { return c.dirty }

// Iterations returns the Newton iteration count of the last sample. The
// closed form always reports 0.
func (c *clipper) Iterations() int { return c.iters }

// SetSampleRate updates the sample rate. State is kept.
func (c *clipper) SetSampleRate(sampleRate float64) error {
	if err := validatePositive(sampleRate, "sample rate"); err != nil {
		return err
	}

	c.sampleRate = sampleRate
	c.dirty = true

	return nil
}

// SetDist sets the distortion pot position in [0, 1].
func (c *clipper) SetDist(dist float64) error {
	if err := validateUnit(dist, "dist"); err != nil {
		return err
	}

	c.dist = dist
	c.dirty = true

	return nil
}

// SetSatLevel scales the diode slope.
func (c *clipper) SetSatLevel(level float64) error {
	if err := validatePositive(level, "saturation level"); err != nil {
		return err
	}

	c.satLevel = level
	c.dirty = true

	return nil
}

// SetHighpassHz moves the input branch corner by changing Cin.
func (c *clipper) SetHighpassHz(f float64) error {
	if err := validatePositive(f, "highpass frequency"); err != nil {
		return err
	}

	c.cin = core.CapacitanceForCutoff(c.topo.rin, f)
	c.dirty = true

	return nil
}

// SetLowpassHz moves the feedback corner (at full distortion) by changing Cf.
func (c *clipper) SetLowpassHz(f float64) error {
	if err := validatePositive(f, "lowpass frequency"); err != nil {
		return err
	}

	c.cf = core.CapacitanceForCutoff(c.topo.rfMin+c.topo.rfRange, f)
	c.dirty = true

	return nil
}

// SetDiode swaps the clipping diodes.
func (c *clipper) SetDiode(p iv.DiodeParams) error {
	if err := validateDiode(p); err != nil {
		return err
	}

	c.diode = p
	c.dirty = true

	return nil
}

// SetSolver switches the equation solver. State is kept.
func (c *clipper) SetSolver(s Solver) error {
	if s != SolverWrightOmega && s != SolverNewton {
		return fmt.Errorf("clipper: invalid solver: %d", s)
	}

	c.solver = s

	return nil
}

// UpdateEq recomputes the derived coefficients. ProcessSample calls it on
// demand after a setter, so explicit calls only move the cost to a point of
// the caller's choosing.
func (c *clipper) UpdateEq() {
	c.gin = 1 / c.topo.rin
	c.geqIn = core.TrapezoidalConductance(c.cin, c.sampleRate)
	c.invInSum = 1 / (c.gin + c.geqIn)

	c.gf = 1 / c.FeedbackResistance()
	c.geqF = core.TrapezoidalConductance(c.cf, c.sampleRate)
	c.a = c.gf + c.geqF
	c.invA = 1 / c.a

	c.is = c.diode.Is
	c.nvt = c.diode.N * c.vt * c.satLevel
	c.invNvt = 1 / c.nvt
	c.invANvt = 1 / (c.a * c.nvt)
	c.lnK = math.Log(c.is * c.invANvt)

	c.dirty = false
}

// SaturationBound returns an upper bound on |y| for inputs with |x| <= xPeak.
//
// The input branch can carry at most 2·xPeak/Rin once its capacitor is
// charged to the opposite peak. The feedback voltage cannot exceed the diode
// voltage at that current, nVt'·ln(1 + 2·xPeak/(Rin·Is)). The non-inverting
// stage adds the input itself.
func (c *clipper) SaturationBound(xPeak float64) float64 {
	if c.dirty {
		c.UpdateEq()
	}

	xPeak = math.Abs(xPeak)
	bound := c.nvt * math.Log1p(2*xPeak*c.gin/c.is)

	if !c.topo.inverting {
		bound += xPeak
	}

	return bound
}

// Reset clears both capacitor histories and the feedback voltage.
func (c *clipper) Reset() {
	c.jIn = 0
	c.jF = 0
	c.v = 0
	c.iters = 0
}

// ProcessSample runs one sample through the stage.
func (c *clipper) ProcessSample(x float64) float64 {
	if c.dirty {
		c.UpdateEq()
	}

	if !core.IsFinite(x) {
		x = 0
	}

	vc := (c.gin*x - c.jIn) * c.invInSum
	i := c.gin * (x - vc)
	c.jIn = core.FlushDenormals(-2*c.geqIn*vc - c.jIn)

	p := i - c.jF

	var v float64
	if c.solver == SolverNewton {
		v = c.solveNewton(p)
	} else {
		v = c.solveOmega(p)
	}

	if !core.IsFinite(v) {
		v = c.v
	}

	v = core.FlushDenormals(v)
	c.v = v
	c.jF = core.FlushDenormals(-2*c.geqF*v - c.jF)

	if c.topo.inverting {
		return -v
	}

	return x + v
}

// ProcessBlock processes src into dst. dst and src may be the same slice.
func (c *clipper) ProcessBlock(dst, src []float64) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = c.ProcessSample(src[i])
	}
}

// ProcessInPlace processes buf in place.
func (c *clipper) ProcessInPlace(buf []float64) {
	c.ProcessBlock(buf, buf)
}

func (c *clipper) solveOmega(p float64) float64 {
	c.iters = 0

	if p == 0 {
		return 0
	}

	ap := math.Abs(p) + c.is
	v := ap*c.invA - c.nvt*wright.Omega(c.lnK+ap*c.invANvt)

	return math.Copysign(v, p)
}

func (c *clipper) solveNewton(p float64) float64 {
	if p == 0 {
		c.iters = 0
		c.stats.Record(0, true)

		return 0
	}

	v := c.v
	limit := 4 * c.nvt
	converged := false
	iters := 0

	for iters < newtonMaxIterations {
		iters++

		e := math.Exp(math.Abs(v) * c.invNvt)
		f := c.a*v + math.Copysign(c.is*(e-1), v) - p
		g := c.a + c.is*e*c.invNvt

		delta := nr.ClampStep(-f/g, limit)
		v += delta

		if math.Abs(delta) <= newtonTolerance {
			converged = true
			break
		}
	}

	c.iters = iters
	c.stats.Record(iters, converged)

	if !converged {
		return nr.FallbackSmallest.Resolve(v, c.v)
	}

	return v
}

func validatePositive(value float64, name string) error {
	if !core.IsFinite(value) || value <= 0 {
		return fmt.Errorf("clipper: %s must be > 0 and finite: %v", name, value)
	}

	return nil
}

func validateUnit(value float64, name string) error {
	if !core.IsFinite(value) || value < 0 || value > 1 {
		return fmt.Errorf("clipper: %s must be in [0, 1]: %v", name, value)
	}

	return nil
}

func validateDiode(p iv.DiodeParams) error {
	if err := validatePositive(p.Is, "diode saturation current"); err != nil {
		return err
	}

	return validatePositive(p.N, "diode ideality factor")
}
