package dkm

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-circuit/dsp/circuit/iv"
	"github.com/cwbudde/algo-circuit/dsp/core"
)

// Ground is the reference node.
const Ground = 0

// PotMinResistance is the smallest resistance a potentiometer leg reaches.
const PotMinResistance = 1.0

type (
	// SourceID identifies a voltage source.
	SourceID int
	// PotID identifies a potentiometer.
	PotID int
	// OutputID identifies a node pair read back with Output.
	OutputID int
)

// BJTParams are Ebers–Moll transport model parameters.
type BJTParams struct {
	Is float64 // transport saturation current (A)
	Bf float64 // forward current gain
	Br float64 // reverse current gain
	Nf float64 // forward emission coefficient
	Nr float64 // reverse emission coefficient
}

// NPN2N5088 is a high-gain small-signal NPN, common in fuzz circuits.
func NPN2N5088() BJTParams {
	return BJTParams{Is: 20.3e-15, Bf: 1430, Br: 4, Nf: 1, Nr: 1}
}

// NPN2N3904 is a general purpose small-signal NPN.
func NPN2N3904() BJTParams {
	return BJTParams{Is: 6.734e-15, Bf: 416.4, Br: 0.7371, Nf: 1, Nr: 1}
}

func (p BJTParams) validate() error {
	for _, f := range []struct {
		v    float64
		name string
	}{
		{p.Is, "Is"}, {p.Bf, "Bf"}, {p.Br, "Br"}, {p.Nf, "Nf"}, {p.Nr, "Nr"},
	} {
		if !core.IsFinite(f.v) || f.v <= 0 {
			return fmt.Errorf("dkm: BJT %s must be > 0 and finite: %v", f.name, f.v)
		}
	}

	return nil
}

type resistor struct {
	a, b int
	g    float64
}

type capacitor struct {
	a, b int
	c    float64
	geq  float64
	j    float64 // history current
	j0   float64 // history current at the operating point
}

type source struct {
	a, b int
	v    float64
}

type potLeg struct {
	a, b  int
	upper bool // conducts (1-pos)·R instead of pos·R
}

type pot struct {
	rTotal float64
	pos    float64
	legs   []potLeg
}

func (p *pot) legConductance(l potLeg) float64 {
	frac := p.pos
	if l.upper {
		frac = 1 - p.pos
	}

	return 1 / math.Max(frac*p.rTotal, PotMinResistance)
}

type diode struct {
	a, b   int
	dev    *iv.DiodeAntiparallel
	nvtF   float64
	nvtR   float64
	vcritF float64
	vcritR float64
}

type bjt struct {
	c, b, e int
	p       BJTParams
	nvtF    float64
	nvtR    float64
	vcritF  float64
	vcritR  float64
}

type output struct {
	a, b int
}

func (s *Simulator) checkNodes(nodes ...int) error {
	if s.prepared {
		return ErrPrepared
	}

	for _, n := range nodes {
		if n < 0 {
			return fmt.Errorf("%w: %d", ErrUnknownNode, n)
		}

		if s.declared && n > s.nodeCount {
			return fmt.Errorf("%w: %d (declared %d)", ErrUnknownNode, n, s.nodeCount)
		}
	}

	return nil
}

func (s *Simulator) touch(nodes ...int) {
	if s.declared {
		return
	}

	for _, n := range nodes {
		s.nodeCount = max(s.nodeCount, n)
	}
}

func distinct(a, b int) error {
	if a == b {
		return fmt.Errorf("dkm: element terminals must differ: %d", a)
	}

	return nil
}

func validatePositive(value float64, name string) error {
	if !core.IsFinite(value) || value <= 0 {
		return fmt.Errorf("dkm: %s must be > 0 and finite: %v", name, value)
	}

	return nil
}

// DeclareNodes fixes the node count. Elements added afterwards may only use
// nodes 0..n. Without a declaration the count grows with the elements.
func (s *Simulator) DeclareNodes(n int) error {
	if s.prepared {
		return ErrPrepared
	}

	if n < 1 {
		return fmt.Errorf("dkm: node count must be >= 1: %d", n)
	}

	if n < s.nodeCount {
		return fmt.Errorf("dkm: node count %d below highest node in use %d", n, s.nodeCount)
	}

	s.nodeCount = n
	s.declared = true

	return nil
}

// AddResistor connects r ohms between a and b.
func (s *Simulator) AddResistor(a, b int, r float64) error {
	if err := s.checkNodes(a, b); err != nil {
		return err
	}

	if err := distinct(a, b); err != nil {
		return err
	}

	if err := validatePositive(r, "resistance"); err != nil {
		return err
	}

	s.touch(a, b)
	s.resistors = append(s.resistors, resistor{a: a, b: b, g: 1 / r})

	return nil
}

// AddCapacitor connects c farads between a and b.
func (s *Simulator) AddCapacitor(a, b int, c float64) error {
	if err := s.checkNodes(a, b); err != nil {
		return err
	}

	if err := distinct(a, b); err != nil {
		return err
	}

	if err := validatePositive(c, "capacitance"); err != nil {
		return err
	}

	s.touch(a, b)
	s.capacitors = append(s.capacitors, capacitor{a: a, b: b, c: c})

	return nil
}

// AddVoltageSource forces v(a) − v(b) = v.
func (s *Simulator) AddVoltageSource(a, b int, v float64) (SourceID, error) {
	if err := s.checkNodes(a, b); err != nil {
		return -1, err
	}

	if err := distinct(a, b); err != nil {
		return -1, err
	}

	if !core.IsFinite(v) {
		return -1, fmt.Errorf("dkm: source voltage must be finite: %v", v)
	}

	s.touch(a, b)
	s.sources = append(s.sources, source{a: a, b: b, v: v})

	return SourceID(len(s.sources) - 1), nil
}

// AddPot adds a variable resistor of rTotal·pos ohms between a and b.
func (s *Simulator) AddPot(a, b int, rTotal, pos float64) (PotID, error) {
	if err := s.checkNodes(a, b); err != nil {
		return -1, err
	}

	if err := distinct(a, b); err != nil {
		return -1, err
	}

	if err := validatePot(rTotal, pos); err != nil {
		return -1, err
	}

	s.touch(a, b)
	s.pots = append(s.pots, pot{
		rTotal: rTotal,
		pos:    pos,
		legs:   []potLeg{{a: a, b: b}},
	})

	return PotID(len(s.pots) - 1), nil
}

// AddPotDivider adds a three-terminal potentiometer. The wiper–bottom leg is
// rTotal·pos, the top–wiper leg rTotal·(1−pos), so pos = 1 puts the wiper at
// the top terminal.
func (s *Simulator) AddPotDivider(top, wiper, bottom int, rTotal, pos float64) (PotID, error) {
	if err := s.checkNodes(top, wiper, bottom); err != nil {
		return -1, err
	}

	if err := distinct(top, wiper); err != nil {
		return -1, err
	}

	if err := distinct(wiper, bottom); err != nil {
		return -1, err
	}

	if err := validatePot(rTotal, pos); err != nil {
		return -1, err
	}

	s.touch(top, wiper, bottom)
	s.pots = append(s.pots, pot{
		rTotal: rTotal,
		pos:    pos,
		legs: []potLeg{
			{a: top, b: wiper, upper: true},
			{a: wiper, b: bottom},
		},
	})

	return PotID(len(s.pots) - 1), nil
}

func validatePot(rTotal, pos float64) error {
	if err := validatePositive(rTotal, "pot resistance"); err != nil {
		return err
	}

	if !core.IsFinite(pos) || pos < 0 || pos > 1 {
		return fmt.Errorf("dkm: pot position must be in [0, 1]: %v", pos)
	}

	return nil
}

// AddDiodeAntiparallel connects a diode pair between a and b. fwd conducts
// from a to b, rev from b to a.
func (s *Simulator) AddDiodeAntiparallel(a, b int, fwd, rev iv.DiodeParams) error {
	if err := s.checkNodes(a, b); err != nil {
		return err
	}

	if err := distinct(a, b); err != nil {
		return err
	}

	dev, err := iv.NewDiodeAntiparallel(fwd, rev,
		iv.WithThermalVoltage(s.cfg.vt),
		iv.WithExpMode(s.cfg.expMode),
	)
	if err != nil {
		return err
	}

	nvtF := fwd.N * s.cfg.vt
	nvtR := rev.N * s.cfg.vt

	s.touch(a, b)
	s.diodes = append(s.diodes, diode{
		a:      a,
		b:      b,
		dev:    dev,
		nvtF:   nvtF,
		nvtR:   nvtR,
		vcritF: criticalVoltage(fwd.Is, nvtF),
		vcritR: criticalVoltage(rev.Is, nvtR),
	})

	return nil
}

// AddBJTNPN adds an NPN transistor with collector c, base b, emitter e.
func (s *Simulator) AddBJTNPN(c, b, e int, p BJTParams) error {
	if err := s.checkNodes(c, b, e); err != nil {
		return err
	}

	if c == b || b == e || c == e {
		return fmt.Errorf("dkm: BJT terminals must differ: c=%d b=%d e=%d", c, b, e)
	}

	if err := p.validate(); err != nil {
		return err
	}

	nvtF := p.Nf * s.cfg.vt
	nvtR := p.Nr * s.cfg.vt

	s.touch(c, b, e)
	s.bjts = append(s.bjts, bjt{
		c:      c,
		b:      b,
		e:      e,
		p:      p,
		nvtF:   nvtF,
		nvtR:   nvtR,
		vcritF: criticalVoltage(p.Is, nvtF),
		vcritR: criticalVoltage(p.Is, nvtR),
	})

	return nil
}

// AddOutput registers v(a) − v(b) for read-back with Output.
func (s *Simulator) AddOutput(a, b int) (OutputID, error) {
	if err := s.checkNodes(a, b); err != nil {
		return -1, err
	}

	s.touch(a, b)
	s.outputs = append(s.outputs, output{a: a, b: b})

	return OutputID(len(s.outputs) - 1), nil
}
