package iv

import (
	"fmt"
	"math"
)

// PolynomialMaxStep is the fixed Newton step bound of Polynomial. A power law
// has no exponential blow-up, so a generous constant is safe.
const PolynomialMaxStep = 0.5

// Polynomial is an odd-style power-law device with independently configured
// halves:
//
//	i(v) = a₊·v·|v|^(n₊−1)  for v ≥ 0
//	i(v) = a₋·v·|v|^(n₋−1)  for v < 0
type Polynomial struct {
	posGain, negGain   float64
	posOrder, negOrder float64
}

// NewPolynomial returns a power-law device. Gains must be > 0 and orders ≥ 1.
func NewPolynomial(posGain, posOrder, negGain, negOrder float64) (*Polynomial, error) {
	p := &Polynomial{}
	if err := p.SetPositive(posGain, posOrder); err != nil {
		return nil, err
	}

	if err := p.SetNegative(negGain, negOrder); err != nil {
		return nil, err
	}

	return p, nil
}

// NewSymmetricPolynomial returns a device with identical halves.
func NewSymmetricPolynomial(gain, order float64) (*Polynomial, error) {
	return NewPolynomial(gain, order, gain, order)
}

// SetPositive configures the v ≥ 0 half.
func (p *Polynomial) SetPositive(gain, order float64) error {
	if err := validatePolynomial(gain, order); err != nil {
		return err
	}

	p.posGain, p.posOrder = gain, order

	return nil
}

// SetNegative configures the v < 0 half.
func (p *Polynomial) SetNegative(gain, order float64) error {
	if err := validatePolynomial(gain, order); err != nil {
		return err
	}

	p.negGain, p.negOrder = gain, order

	return nil
}

// Eval implements Func.
func (p *Polynomial) Eval(v float64) (i, g float64) {
	a, n := p.posGain, p.posOrder
	if v < 0 {
		a, n = p.negGain, p.negOrder
	}

	av := math.Abs(v)

	var pw float64

	switch n {
	case 1:
		pw = 1
	case 2:
		pw = av
	case 3:
		pw = av * av
	default:
		pw = math.Pow(av, n-1)
	}

	return a * v * pw, a * n * pw
}

// MaxStep implements Func.
func (p *Polynomial) MaxStep(float64) float64 {
	return PolynomialMaxStep
}

func validatePolynomial(gain, order float64) error {
	if err := validatePositive(gain, "polynomial gain"); err != nil {
		return err
	}

	if err := validatePositive(order, "polynomial order"); err != nil {
		return err
	}

	if order < 1 {
		return fmt.Errorf("iv: polynomial order must be >= 1: %v", order)
	}

	return nil
}
