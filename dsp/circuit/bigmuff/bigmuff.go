// Package bigmuff emulates the Big Muff Pi fuzz on top of the dkm nodal
// simulator: an input booster, two diode-clipping gain stages, the passive
// tone stack and an output recovery stage, powered from a 9 V rail.
//
// The netlist has 4 NPN transistors, 4 clipping diodes (two antiparallel
// pairs) and 2 potentiometers (sustain and tone). Volume is a plain output
// gain. Run it at 4× the audio rate.
package bigmuff

import (
	"fmt"

	"github.com/cwbudde/algo-circuit/dsp/circuit/dkm"
	"github.com/cwbudde/algo-circuit/dsp/circuit/iv"
	"github.com/cwbudde/algo-circuit/dsp/circuit/nr"
	"github.com/cwbudde/algo-circuit/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultSustain = 0.5
	defaultTone    = 0.5
	defaultVolume  = 0.5

	supplyVoltage = 9.0
)

// Node numbers of the netlist.
const (
	nodeVCC = iota + 1
	nodeIn
	nodeB1
	nodeC1
	nodeE1
	nodeSustainTop
	nodeSustainWiper
	nodeB2
	nodeC2
	nodeE2
	nodeD2
	nodeB3
	nodeC3
	nodeE3
	nodeD3
	nodeToneLP
	nodeToneHP
	nodeToneWiper
	nodeB4
	nodeC4
	nodeE4
	nodeOut

	nodeCount = nodeOut
)

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	sustain       float64
	tone          float64
	volume        float64
	maxIterations int
	stats         *nr.Stats
	transistor    dkm.BJTParams
	diode         iv.DiodeParams
}

func defaultConfig() config {
	return config{
		sustain:    defaultSustain,
		tone:       defaultTone,
		volume:     defaultVolume,
		transistor: dkm.NPN2N5088(),
		diode:      iv.Silicon1N914(),
	}
}

// WithSustain sets the sustain pot in [0, 1].
func WithSustain(v float64) Option {
	return func(cfg *config) error {
		if err := validateUnit(v, "sustain"); err != nil {
			return err
		}

		cfg.sustain = v

		return nil
	}
}

// WithTone sets the tone pot in [0, 1]; 0 is dark, 1 is bright.
func WithTone(v float64) Option {
	return func(cfg *config) error {
		if err := validateUnit(v, "tone"); err != nil {
			return err
		}

		cfg.tone = v

		return nil
	}
}

// WithVolume sets the linear output gain in [0, 1].
func WithVolume(v float64) Option {
	return func(cfg *config) error {
		if err := validateUnit(v, "volume"); err != nil {
			return err
		}

		cfg.volume = v

		return nil
	}
}

// WithMaxIterations sets the per-sample Newton budget of the simulator.
func WithMaxIterations(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return fmt.Errorf("bigmuff: max iterations must be >= 1: %d", n)
		}

		cfg.maxIterations = n

		return nil
	}
}

// WithStats records the simulator's iteration counts.
func WithStats(s *nr.Stats) Option {
	return func(cfg *config) error {
		cfg.stats = s
		return nil
	}
}

// WithTransistor replaces the transistor model of all four stages.
func WithTransistor(p dkm.BJTParams) Option {
	return func(cfg *config) error {
		cfg.transistor = p
		return nil
	}
}

// WithDiode replaces the clipping diodes.
func WithDiode(p iv.DiodeParams) Option {
	return func(cfg *config) error {
		cfg.diode = p
		return nil
	}
}

// Muff is a Big Muff Pi circuit instance.
type Muff struct {
	sim *dkm.Simulator

	input   dkm.SourceID
	out     dkm.OutputID
	sustain dkm.PotID
	tone    dkm.PotID

	volume float64
}

// New builds and prepares the circuit at the given sample rate.
func New(sampleRate float64, opts ...Option) (*Muff, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	simOpts := []dkm.Option{dkm.WithStats(cfg.stats)}
	if cfg.maxIterations > 0 {
		simOpts = append(simOpts, dkm.WithMaxIterations(cfg.maxIterations))
	}

	sim, err := dkm.New(simOpts...)
	if err != nil {
		return nil, err
	}

	m := &Muff{sim: sim, volume: cfg.volume}
	if err := m.build(cfg); err != nil {
		return nil, err
	}

	if err := sim.Prepare(sampleRate); err != nil {
		return nil, fmt.Errorf("bigmuff: %w", err)
	}

	return m, nil
}

// build assembles the netlist. Component values follow the common
// NYC-reissue layout with the clipping diodes DC-blocked by 1 µF.
func (m *Muff) build(cfg config) error {
	s := m.sim
	q := cfg.transistor
	d := cfg.diode

	if err := s.DeclareNodes(nodeCount); err != nil {
		return err
	}

	var err error

	if _, err = s.AddVoltageSource(nodeVCC, dkm.Ground, supplyVoltage); err != nil {
		return err
	}

	if m.input, err = s.AddVoltageSource(nodeIn, dkm.Ground, 0); err != nil {
		return err
	}

	// Input booster.
	steps := []func() error{
		func() error { return s.AddCapacitor(nodeIn, nodeB1, 100e-9) },
		func() error { return s.AddResistor(nodeC1, nodeB1, 470e3) },
		func() error { return s.AddResistor(nodeB1, dkm.Ground, 100e3) },
		func() error { return s.AddResistor(nodeVCC, nodeC1, 15e3) },
		func() error { return s.AddResistor(nodeE1, dkm.Ground, 390) },
		func() error { return s.AddCapacitor(nodeC1, nodeB1, 470e-12) },
		func() error { return s.AddBJTNPN(nodeC1, nodeB1, nodeE1, q) },
		func() error { return s.AddCapacitor(nodeC1, nodeSustainTop, 1e-6) },
	}

	if err := run(steps); err != nil {
		return err
	}

	if m.sustain, err = s.AddPotDivider(nodeSustainTop, nodeSustainWiper, dkm.Ground, 100e3, cfg.sustain); err != nil {
		return err
	}

	steps = []func() error{
		// First clipping stage.
		func() error { return s.AddCapacitor(nodeSustainWiper, nodeB2, 1e-6) },
		func() error { return clippingStage(s, nodeB2, nodeC2, nodeE2, nodeD2, q, d) },
		// Second clipping stage.
		func() error { return s.AddCapacitor(nodeC2, nodeB3, 1e-6) },
		func() error { return clippingStage(s, nodeB3, nodeC3, nodeE3, nodeD3, q, d) },
		// Tone stack.
		func() error { return s.AddResistor(nodeC3, nodeToneLP, 22e3) },
		func() error { return s.AddCapacitor(nodeToneLP, dkm.Ground, 10e-9) },
		func() error { return s.AddCapacitor(nodeC3, nodeToneHP, 4e-9) },
		func() error { return s.AddResistor(nodeToneHP, dkm.Ground, 22e3) },
	}

	if err := run(steps); err != nil {
		return err
	}

	if m.tone, err = s.AddPotDivider(nodeToneHP, nodeToneWiper, nodeToneLP, 100e3, cfg.tone); err != nil {
		return err
	}

	steps = []func() error{
		// Output recovery stage.
		func() error { return s.AddCapacitor(nodeToneWiper, nodeB4, 100e-9) },
		func() error { return s.AddResistor(nodeC4, nodeB4, 470e3) },
		func() error { return s.AddResistor(nodeB4, dkm.Ground, 100e3) },
		func() error { return s.AddResistor(nodeVCC, nodeC4, 15e3) },
		func() error { return s.AddResistor(nodeE4, dkm.Ground, 390) },
		func() error { return s.AddBJTNPN(nodeC4, nodeB4, nodeE4, q) },
		func() error { return s.AddCapacitor(nodeC4, nodeOut, 1e-6) },
		func() error { return s.AddResistor(nodeOut, dkm.Ground, 100e3) },
	}

	if err := run(steps); err != nil {
		return err
	}

	m.out, err = s.AddOutput(nodeOut, dkm.Ground)

	return err
}

// clippingStage adds a common-emitter stage with collector-base feedback and
// a DC-blocked antiparallel diode pair across the feedback path.
func clippingStage(s *dkm.Simulator, b, c, e, dj int, q dkm.BJTParams, d iv.DiodeParams) error {
	return run([]func() error{
		func() error { return s.AddResistor(c, b, 470e3) },
		func() error { return s.AddResistor(b, dkm.Ground, 100e3) },
		func() error { return s.AddResistor(nodeVCC, c, 15e3) },
		func() error { return s.AddResistor(e, dkm.Ground, 100) },
		func() error { return s.AddCapacitor(c, b, 470e-12) },
		func() error { return s.AddCapacitor(c, dj, 1e-6) },
		func() error { return s.AddDiodeAntiparallel(dj, b, d, d) },
		func() error { return s.AddBJTNPN(c, b, e, q) },
	})
}

func run(steps []func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	return nil
}

// Simulator exposes the underlying circuit, e.g. for iteration statistics.
func (m *Muff) Simulator() *dkm.Simulator { return m.sim }

// Sustain returns the sustain pot position.
func (m *Muff) Sustain() float64 { return m.sim.Pot(m.sustain) }

// Tone returns the tone pot position.
func (m *Muff) Tone() float64 { return m.sim.Pot(m.tone) }

// Volume returns the output gain.
func (m *Muff) Volume() float64 { return m.volume }

// SetSustain moves the sustain pot.
func (m *Muff) SetSustain(v float64) error {
	if err := validateUnit(v, "sustain"); err != nil {
		return err
	}

	return m.sim.SetPot(m.sustain, v)
}

// SetTone moves the tone pot.
func (m *Muff) SetTone(v float64) error {
	if err := validateUnit(v, "tone"); err != nil {
		return err
	}

	return m.sim.SetPot(m.tone, v)
}

// SetVolume sets the output gain.
func (m *Muff) SetVolume(v float64) error {
	if err := validateUnit(v, "volume"); err != nil {
		return err
	}

	m.volume = v

	return nil
}

// Reset returns the circuit to its bias point.
func (m *Muff) Reset() { m.sim.Reset() }

// ProcessSample runs one input sample (volts at the guitar input) and
// returns the output scaled by volume.
func (m *Muff) ProcessSample(x float64) float64 {
	_ = m.sim.SetSourceVoltage(m.input, sanitize(x))
	m.sim.ProcessSample()

	return m.volume * m.sim.Output(m.out)
}

// ProcessBlock processes src into dst. dst and src may be the same slice.
func (m *Muff) ProcessBlock(dst, src []float64) {
	n := min(len(dst), len(src))
	for i := range n {
		_ = m.sim.SetSourceVoltage(m.input, sanitize(src[i]))
		m.sim.ProcessSample()
		dst[i] = m.sim.Output(m.out)
	}

	vecmath.ScaleBlock(dst[:n], dst[:n], m.volume)
}

// ProcessInPlace processes buf in place.
func (m *Muff) ProcessInPlace(buf []float64) {
	m.ProcessBlock(buf, buf)
}

func sanitize(x float64) float64 {
	if !core.IsFinite(x) {
		return 0
	}

	return x
}

func validateUnit(v float64, name string) error {
	if !core.IsFinite(v) || v < 0 || v > 1 {
		return fmt.Errorf("bigmuff: %s must be in [0, 1]: %v", name, v)
	}

	return nil
}
