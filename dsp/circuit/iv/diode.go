package iv

import (
	"fmt"

	"github.com/cwbudde/algo-circuit/dsp/core"
)

// DiodeParams describes one Shockley junction.
type DiodeParams struct {
	Is float64 // saturation current (A)
	N  float64 // ideality factor
}

// Silicon1N914 is a small-signal silicon switching diode.
func Silicon1N914() DiodeParams { return DiodeParams{Is: 2.52e-9, N: 1.752} }

// Silicon1N4148 is the ubiquitous 1N4148 clipping diode.
func Silicon1N4148() DiodeParams { return DiodeParams{Is: 4.352e-9, N: 1.906} }

// Germanium1N34A is a germanium point-contact diode.
func Germanium1N34A() DiodeParams { return DiodeParams{Is: 2e-7, N: 1.3} }

// RedLED is a red light-emitting diode used as a high-headroom clipper.
func RedLED() DiodeParams { return DiodeParams{Is: 9.3e-20, N: 1.5} }

// DiodeOption mutates DiodeAntiparallel construction parameters.
type DiodeOption func(*diodeConfig) error

type diodeConfig struct {
	vt      float64
	expMode ExpMode
}

// WithThermalVoltage overrides the thermal voltage kT/q (V).
func WithThermalVoltage(vt float64) DiodeOption {
	return func(cfg *diodeConfig) error {
		if err := validatePositive(vt, "thermal voltage"); err != nil {
			return err
		}

		cfg.vt = vt

		return nil
	}
}

// WithExpMode selects fast or exact exponential evaluation.
func WithExpMode(mode ExpMode) DiodeOption {
	return func(cfg *diodeConfig) error {
		if !validExpMode(mode) {
			return fmt.Errorf("iv: invalid exp mode: %d", mode)
		}

		cfg.expMode = mode

		return nil
	}
}

// DiodeAntiparallel models two diodes in antiparallel. The first conducts
// for positive voltage, the second for negative voltage:
//
//	i(v) = Is1·(e^{v/(N1·Vt)} − 1) − Is2·(e^{−v/(N2·Vt)} − 1)
type DiodeAntiparallel struct {
	is1, is2 float64
	n1, n2   float64
	vt       float64
	expMode  ExpMode

	// derived
	invNvt1, invNvt2 float64
	step1, step2     float64
	g0               float64
}

// NewDiodeAntiparallel builds an antiparallel pair from two junctions.
func NewDiodeAntiparallel(fwd, rev DiodeParams, opts ...DiodeOption) (*DiodeAntiparallel, error) {
	cfg := diodeConfig{vt: core.DefaultThermalVoltage, expMode: ExpFast}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	d := &DiodeAntiparallel{vt: cfg.vt, expMode: cfg.expMode}
	if err := d.SetDiodes(fwd, rev); err != nil {
		return nil, err
	}

	return d, nil
}

// NewDiodePair builds a symmetric antiparallel pair of identical diodes.
func NewDiodePair(p DiodeParams, opts ...DiodeOption) (*DiodeAntiparallel, error) {
	return NewDiodeAntiparallel(p, p, opts...)
}

// SetDiodes replaces both junction parameter sets.
func (d *DiodeAntiparallel) SetDiodes(fwd, rev DiodeParams) error {
	if err := validatePositive(fwd.Is, "forward saturation current"); err != nil {
		return err
	}

	if err := validatePositive(fwd.N, "forward ideality factor"); err != nil {
		return err
	}

	if err := validatePositive(rev.Is, "reverse saturation current"); err != nil {
		return err
	}

	if err := validatePositive(rev.N, "reverse ideality factor"); err != nil {
		return err
	}

	d.is1, d.n1 = fwd.Is, fwd.N
	d.is2, d.n2 = rev.Is, rev.N
	d.update()

	return nil
}

// SetThermalVoltage updates kT/q.
func (d *DiodeAntiparallel) SetThermalVoltage(vt float64) error {
	if err := validatePositive(vt, "thermal voltage"); err != nil {
		return err
	}

	d.vt = vt
	d.update()

	return nil
}

// Forward returns the parameters of the positive-conducting diode.
func (d *DiodeAntiparallel) Forward() DiodeParams { return DiodeParams{Is: d.is1, N: d.n1} }

// Reverse returns the parameters of the negative-conducting diode.
func (d *DiodeAntiparallel) Reverse() DiodeParams { return DiodeParams{Is: d.is2, N: d.n2} }

// ThermalVoltage returns kT/q.
func (d *DiodeAntiparallel) ThermalVoltage() float64 { return d.vt }

// ExpMode returns the exponential evaluation mode.
func (d *DiodeAntiparallel) ExpMode() ExpMode { return d.expMode }

func (d *DiodeAntiparallel) update() {
	nvt1 := d.n1 * d.vt
	nvt2 := d.n2 * d.vt
	d.invNvt1 = 1 / nvt1
	d.invNvt2 = 1 / nvt2
	d.step1 = 4 * nvt1
	d.step2 = 4 * nvt2
	d.g0 = d.is1*d.invNvt1 + d.is2*d.invNvt2
}

// Eval implements Func.
func (d *DiodeAntiparallel) Eval(v float64) (i, g float64) {
	if v == 0 {
		return 0, d.g0
	}

	e1 := d.expMode.Exp(v * d.invNvt1)
	e2 := d.expMode.Exp(-v * d.invNvt2)

	i = d.is1*(e1-1) - d.is2*(e2-1)
	g = d.is1*d.invNvt1*e1 + d.is2*d.invNvt2*e2

	return i, g
}

// MaxStep implements Func: 4·N·Vt of the diode that conducts at v.
func (d *DiodeAntiparallel) MaxStep(v float64) float64 {
	if v < 0 {
		return d.step2
	}

	return d.step1
}
