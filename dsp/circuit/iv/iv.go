package iv

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-approx"
	"github.com/cwbudde/algo-circuit/dsp/core"
)

// Func is a companion IV function of a two-terminal device.
type Func interface {
	// Eval returns the current through the device and dI/dV at voltage v.
	Eval(v float64) (i, g float64)
	// MaxStep returns the largest voltage change one Newton iteration may
	// apply when starting from v.
	MaxStep(v float64) float64
}

// ExpMode selects how exponentials are evaluated.
type ExpMode int

const (
	// ExpFast uses a fast exponential approximation.
	ExpFast ExpMode = iota
	// ExpExact uses math.Exp.
	ExpExact
)

func (m ExpMode) String() string {
	switch m {
	case ExpFast:
		return "fast"
	case ExpExact:
		return "exact"
	default:
		return "unknown"
	}
}

// MaxExpArg clamps exponent arguments so that neither evaluation mode can
// overflow. e^50 ≈ 5e21, far beyond any physical diode current.
const MaxExpArg = 50.0

// Exp evaluates e^x with the selected mode after clamping x to ±MaxExpArg.
func (m ExpMode) Exp(x float64) float64 {
	if x > MaxExpArg {
		x = MaxExpArg
	} else if x < -MaxExpArg {
		x = -MaxExpArg
	}

	if m == ExpFast {
		return approx.FastExp(x)
	}

	return math.Exp(x)
}

func validExpMode(m ExpMode) bool {
	return m == ExpFast || m == ExpExact
}

func validatePositive(value float64, name string) error {
	if !core.IsFinite(value) || value <= 0 {
		return fmt.Errorf("iv: %s must be > 0 and finite: %v", name, value)
	}

	return nil
}
