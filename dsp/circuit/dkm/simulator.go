package dkm

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-circuit/dsp/circuit/nr"
	"github.com/cwbudde/algo-circuit/dsp/core"
)

var (
	// ErrPrepared is returned when the netlist is modified after Prepare.
	ErrPrepared = errors.New("dkm: circuit already prepared")
	// ErrNotPrepared is returned by calls that need Prepare first.
	ErrNotPrepared = errors.New("dkm: circuit not prepared")
	// ErrUnknownNode is returned for negative or undeclared node numbers.
	ErrUnknownNode = errors.New("dkm: unknown node")
	// ErrSingular is returned when the nodal matrix cannot be factorised.
	ErrSingular = errors.New("dkm: singular circuit matrix")
	// ErrNoOperatingPoint is returned when the DC solve does not converge.
	ErrNoOperatingPoint = errors.New("dkm: DC operating point did not converge")
	// ErrEmptyCircuit is returned by Prepare for a circuit without elements.
	ErrEmptyCircuit = errors.New("dkm: circuit has no elements")
)

// Simulator holds a netlist and its solver state. It is not safe for
// concurrent use.
type Simulator struct {
	cfg config

	nodeCount int
	declared  bool

	resistors  []resistor
	capacitors []capacitor
	sources    []source
	pots       []pot
	diodes     []diode
	bjts       []bjt
	outputs    []output

	prepared   bool
	sampleRate float64
	n          int // unknowns: nodeCount + len(sources)

	lin      []float64 // linear part, capacitors as companion conductances
	linDC    []float64 // linear part, capacitors open
	linDirty bool

	jac  []float64
	rhs  []float64
	f    []float64
	dx   []float64
	x    []float64
	prev []float64
	op   []float64

	perm     []int // static pivot row per column
	permWork []int
	override []int

	iters     int
	converged bool
	cond      float64
}

// New returns an empty circuit.
func New(opts ...Option) (*Simulator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Simulator{cfg: cfg, converged: true}, nil
}

// NodeCount returns the number of non-ground nodes.
func (s *Simulator) NodeCount() int { return s.nodeCount }

// Size returns the number of unknowns of the nodal system. Zero before
// Prepare.
func (s *Simulator) Size() int { return s.n }

// Prepared reports whether Prepare succeeded.
func (s *Simulator) Prepared() bool { return s.prepared }

// SampleRate returns the rate passed to Prepare.
func (s *Simulator) SampleRate() float64 { return s.sampleRate }

// Iterations returns the Newton iteration count of the last sample.
func (s *Simulator) Iterations() int { return s.iters }

// Converged reports whether the last sample converged within budget.
func (s *Simulator) Converged() bool { return s.converged }

// Condition returns the 1-norm condition estimate of the Jacobian at the
// operating point, computed by Prepare.
func (s *Simulator) Condition() float64 { return s.cond }

// PivotOrder returns a copy of the static pivot order: entry k is the
// equation row used as pivot for unknown k.
func (s *Simulator) PivotOrder() []int {
	return append([]int(nil), s.perm...)
}

// SetPivotOrder overrides the pivot order Prepare would discover. order must
// be a permutation of 0..Size()-1; it is checked by Prepare, or immediately
// when the circuit is already prepared. A nil order restores discovery.
func (s *Simulator) SetPivotOrder(order []int) error {
	if order == nil {
		s.override = nil
		return nil
	}

	if s.prepared {
		if err := checkPermutation(order, s.n); err != nil {
			return err
		}

		copy(s.perm, order)
	}

	s.override = append([]int(nil), order...)

	return nil
}

func checkPermutation(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("dkm: pivot order has %d entries, want %d", len(order), n)
	}

	seen := make([]bool, n)
	for _, r := range order {
		if r < 0 || r >= n || seen[r] {
			return fmt.Errorf("dkm: pivot order is not a permutation of 0..%d", n-1)
		}

		seen[r] = true
	}

	return nil
}

// SetSourceVoltage updates a voltage source. This is the audio input.
func (s *Simulator) SetSourceVoltage(id SourceID, v float64) error {
	if id < 0 || int(id) >= len(s.sources) {
		return fmt.Errorf("dkm: source index out of range: %d", id)
	}

	if !core.IsFinite(v) {
		v = 0
	}

	s.sources[id].v = v

	return nil
}

// SourceVoltage returns the current value of a voltage source.
func (s *Simulator) SourceVoltage(id SourceID) float64 {
	if id < 0 || int(id) >= len(s.sources) {
		return 0
	}

	return s.sources[id].v
}

// SetPot moves a potentiometer wiper. pos is clamped to [0, 1].
func (s *Simulator) SetPot(id PotID, pos float64) error {
	if id < 0 || int(id) >= len(s.pots) {
		return fmt.Errorf("dkm: pot index out of range: %d", id)
	}

	if !core.IsFinite(pos) {
		return fmt.Errorf("dkm: pot position must be finite: %v", pos)
	}

	pos = core.Clamp(pos, 0, 1)
	if s.pots[id].pos != pos {
		s.pots[id].pos = pos
		s.linDirty = true
	}

	return nil
}

// Pot returns a potentiometer position.
func (s *Simulator) Pot(id PotID) float64 {
	if id < 0 || int(id) >= len(s.pots) {
		return 0
	}

	return s.pots[id].pos
}

// Output returns v(a) − v(b) for a registered output. Unknown ids read 0.
func (s *Simulator) Output(id OutputID) float64 {
	if id < 0 || int(id) >= len(s.outputs) {
		return 0
	}

	o := s.outputs[id]

	return s.nodeVoltage(o.a) - s.nodeVoltage(o.b)
}

// NodeVoltage returns the last solved voltage of a node.
func (s *Simulator) NodeVoltage(node int) float64 {
	if node < 0 || node > s.nodeCount {
		return 0
	}

	return s.nodeVoltage(node)
}

func (s *Simulator) nodeVoltage(node int) float64 {
	if node == Ground || s.x == nil {
		return 0
	}

	return s.x[node-1]
}

// Prepare fixes the sample rate, finds the DC operating point and discovers
// the pivot order. It may be called again to change the rate; the circuit is
// reset to the new operating point.
func (s *Simulator) Prepare(sampleRate float64) error {
	if err := validatePositive(sampleRate, "sample rate"); err != nil {
		return err
	}

	if s.nodeCount == 0 || s.elementCount() == 0 {
		return ErrEmptyCircuit
	}

	n := s.nodeCount + len(s.sources)
	if s.override != nil {
		if err := checkPermutation(s.override, n); err != nil {
			return err
		}
	}

	s.prepared = false
	s.sampleRate = sampleRate
	s.n = n

	s.lin = make([]float64, n*n)
	s.linDC = make([]float64, n*n)
	s.jac = make([]float64, n*n)
	s.rhs = make([]float64, n)
	s.f = make([]float64, n)
	s.dx = make([]float64, n)
	s.x = make([]float64, n)
	s.prev = make([]float64, n)
	s.op = make([]float64, n)
	s.perm = make([]int, n)
	s.permWork = make([]int, n)

	for i := range s.capacitors {
		c := &s.capacitors[i]
		c.geq = core.TrapezoidalConductance(c.c, sampleRate)
	}

	s.buildLinear()

	if err := s.solveOperatingPoint(); err != nil {
		s.x = nil
		return err
	}

	copy(s.op, s.x)

	for i := range s.capacitors {
		c := &s.capacitors[i]
		c.j0 = -c.geq * s.branchVoltage(c.a, c.b)
	}

	if s.override != nil {
		copy(s.perm, s.override)
	} else if err := s.discoverPivotOrder(); err != nil {
		s.x = nil
		return err
	}

	s.prepared = true
	s.Reset()

	return nil
}

func (s *Simulator) elementCount() int {
	return len(s.resistors) + len(s.capacitors) + len(s.sources) +
		len(s.pots) + len(s.diodes) + len(s.bjts)
}

// Reset restores the operating point found by Prepare.
func (s *Simulator) Reset() {
	if !s.prepared {
		return
	}

	copy(s.x, s.op)
	copy(s.prev, s.op)

	for i := range s.capacitors {
		s.capacitors[i].j = s.capacitors[i].j0
	}

	s.iters = 0
	s.converged = true
}

// ProcessSample advances the circuit by one sample. It does nothing before
// Prepare.
func (s *Simulator) ProcessSample() {
	if !s.prepared {
		return
	}

	if s.linDirty {
		s.buildLinear()
	}

	s.buildRHS(1, true)
	copy(s.prev, s.x)

	converged := false
	iters := 0

	for iters < s.cfg.maxIterations {
		iters++

		s.assemble(s.lin)

		for i := range s.dx {
			s.dx[i] = -s.f[i]
		}

		if !s.solveInPlace() {
			break
		}

		if s.applyStep() {
			converged = true
			break
		}
	}

	if !converged {
		s.resolveFallback()
	}

	for _, v := range s.x {
		if !core.IsFinite(v) {
			copy(s.x, s.prev)
			break
		}
	}

	for i := range s.capacitors {
		c := &s.capacitors[i]
		c.j = core.FlushDenormals(-2*c.geq*s.branchVoltage(c.a, c.b) - c.j)
	}

	s.iters = iters
	s.converged = converged
	s.cfg.stats.Record(iters, converged)
}

func (s *Simulator) resolveFallback() {
	switch s.cfg.fallback {
	case nr.FallbackPrevious:
		copy(s.x, s.prev)
	case nr.FallbackKeep:
	default:
		for i := range s.x {
			s.x[i] = s.cfg.fallback.Resolve(s.x[i], s.prev[i])
		}
	}
}

// applyStep adds the junction-limited Newton step in s.dx to s.x and reports
// convergence.
func (s *Simulator) applyStep() bool {
	alpha := s.limitStep()
	maxDV := 0.0

	for i := range s.x {
		d := alpha * s.dx[i]
		s.x[i] += d

		if i < s.nodeCount {
			maxDV = math.Max(maxDV, math.Abs(d))
		}
	}

	return alpha == 1 && maxDV <= s.cfg.tolerance
}

func (s *Simulator) branchVoltage(a, b int) float64 {
	return s.nodeVoltage(a) - s.nodeVoltage(b)
}

// stepVoltage is the change of v(a) − v(b) the pending step s.dx proposes.
func (s *Simulator) stepVoltage(a, b int) float64 {
	var d float64
	if a != Ground {
		d += s.dx[a-1]
	}

	if b != Ground {
		d -= s.dx[b-1]
	}

	return d
}

// limitStep returns the largest scale in (0, 1] that keeps every junction
// step within pnjlim.
func (s *Simulator) limitStep() float64 {
	alpha := 1.0

	for i := range s.diodes {
		d := &s.diodes[i]
		v := s.branchVoltage(d.a, d.b)
		dv := s.stepVoltage(d.a, d.b)

		alpha = math.Min(alpha, stepScale(v+dv, v, d.nvtF, d.vcritF))
		alpha = math.Min(alpha, stepScale(-v-dv, -v, d.nvtR, d.vcritR))
	}

	for i := range s.bjts {
		q := &s.bjts[i]
		vbe := s.branchVoltage(q.b, q.e)
		vbc := s.branchVoltage(q.b, q.c)

		alpha = math.Min(alpha, stepScale(vbe+s.stepVoltage(q.b, q.e), vbe, q.nvtF, q.vcritF))
		alpha = math.Min(alpha, stepScale(vbc+s.stepVoltage(q.b, q.c), vbc, q.nvtR, q.vcritR))
	}

	return alpha
}

// buildLinear stamps resistors, pots, capacitor companions, source incidence
// and gmin into s.lin and s.linDC.
func (s *Simulator) buildLinear() {
	n := s.n
	clear(s.lin)
	clear(s.linDC)

	stampBoth := func(a, b int, g float64) {
		stampConductance(s.lin, n, a, b, g)
		stampConductance(s.linDC, n, a, b, g)
	}

	for i := 1; i <= s.nodeCount; i++ {
		stampBoth(i, Ground, s.cfg.gmin)
	}

	for _, r := range s.resistors {
		stampBoth(r.a, r.b, r.g)
	}

	for i := range s.pots {
		p := &s.pots[i]
		for _, l := range p.legs {
			stampBoth(l.a, l.b, p.legConductance(l))
		}
	}

	for _, c := range s.capacitors {
		stampConductance(s.lin, n, c.a, c.b, c.geq)
	}

	for k, src := range s.sources {
		row := s.nodeCount + k
		stampSource(s.lin, n, src.a, src.b, row)
		stampSource(s.linDC, n, src.a, src.b, row)
	}

	s.linDirty = false
}

// buildRHS writes the source voltages (scaled) and, for transient solves,
// the capacitor history currents.
func (s *Simulator) buildRHS(sourceScale float64, transient bool) {
	clear(s.rhs)

	if transient {
		for _, c := range s.capacitors {
			if c.a != Ground {
				s.rhs[c.a-1] -= c.j
			}

			if c.b != Ground {
				s.rhs[c.b-1] += c.j
			}
		}
	}

	for k, src := range s.sources {
		s.rhs[s.nodeCount+k] = sourceScale * src.v
	}
}

// assemble evaluates the residual F(x) = L·x + I(x) − rhs into s.f and its
// Jacobian into s.jac.
func (s *Simulator) assemble(lin []float64) {
	n := s.n
	copy(s.jac, lin)

	for r := range n {
		row := lin[r*n : (r+1)*n]
		sum := -s.rhs[r]

		for c, g := range row {
			if g != 0 {
				sum += g * s.x[c]
			}
		}

		s.f[r] = sum
	}

	for i := range s.diodes {
		d := &s.diodes[i]
		cur, g := d.dev.Eval(s.branchVoltage(d.a, d.b))
		s.injectCurrent(d.a, d.b, cur)
		stampConductance(s.jac, n, d.a, d.b, g)
	}

	for i := range s.bjts {
		q := &s.bjts[i]
		vbe := s.branchVoltage(q.b, q.e)
		vbc := s.branchVoltage(q.b, q.c)

		ic, ib, dIcVbe, dIcVbc, dIbVbe, dIbVbc := s.bjtEval(q, vbe, vbc)

		s.addF(q.c, ic)
		s.addF(q.b, ib)
		s.addF(q.e, -ic-ib)

		// vbe = vb − ve, vbc = vb − vc.
		dIcVb, dIcVc, dIcVe := dIcVbe+dIcVbc, -dIcVbc, -dIcVbe
		dIbVb, dIbVc, dIbVe := dIbVbe+dIbVbc, -dIbVbc, -dIbVbe

		s.addJ(q.c, q.b, dIcVb)
		s.addJ(q.c, q.c, dIcVc)
		s.addJ(q.c, q.e, dIcVe)
		s.addJ(q.b, q.b, dIbVb)
		s.addJ(q.b, q.c, dIbVc)
		s.addJ(q.b, q.e, dIbVe)
		s.addJ(q.e, q.b, -dIcVb-dIbVb)
		s.addJ(q.e, q.c, -dIcVc-dIbVc)
		s.addJ(q.e, q.e, -dIcVe-dIbVe)
	}
}

// injectCurrent adds a current flowing from node a through an element to b.
func (s *Simulator) injectCurrent(a, b int, i float64) {
	s.addF(a, i)
	s.addF(b, -i)
}

func (s *Simulator) addF(node int, i float64) {
	if node != Ground {
		s.f[node-1] += i
	}
}

func (s *Simulator) addJ(row, col int, g float64) {
	if row != Ground && col != Ground {
		s.jac[(row-1)*s.n+col-1] += g
	}
}

func stampConductance(m []float64, n, a, b int, g float64) {
	ia, ib := a-1, b-1

	if ia >= 0 {
		m[ia*n+ia] += g
	}

	if ib >= 0 {
		m[ib*n+ib] += g
	}

	if ia >= 0 && ib >= 0 {
		m[ia*n+ib] -= g
		m[ib*n+ia] -= g
	}
}

// stampSource adds the incidence of a voltage source whose branch current is
// unknown number row.
func stampSource(m []float64, n, a, b, row int) {
	if a != Ground {
		m[(a-1)*n+row] += 1
		m[row*n+a-1] += 1
	}

	if b != Ground {
		m[(b-1)*n+row] -= 1
		m[row*n+b-1] -= 1
	}
}
