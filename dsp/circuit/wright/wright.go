// Package wright evaluates the Wright Omega function ω(x), the solution y of
// y + ln(y) = x for real x.
//
// ω turns the implicit diode equation a·v + Is·e^{v/nVt} = p into a closed
// form, which is how the clipper package avoids iterative solves. The
// approximations follow the usual ladder: a piecewise cubic (Omega3), refined
// by one Newton step (Omega4) or three (Omega). All of them have a fixed
// operation count.
package wright

import "math"

// Breakpoints and coefficients of the piecewise cubic.
const (
	x1 = -3.341459552768620
	x2 = 8.0
	a  = -1.314293149877800e-3
	b  = 4.775931364975583e-2
	c  = 3.631952663804445e-1
	d  = 6.313183464296682e-1
)

// Omega3 is the piecewise cubic approximation: 0 below x1, a cubic up to
// x2, and x − ln(x) above.
func Omega3(x float64) float64 {
	switch {
	case x < x1:
		return 0
	case x < x2:
		return d + x*(c+x*(b+x*a))
	default:
		return x - math.Log(x)
	}
}

// Omega4 refines Omega3 with one Newton step on y + ln(y) − x.
func Omega4(x float64) float64 {
	return refine(x, Omega3(x))
}

// Omega refines Omega3 with three Newton steps. The worst relative error
// over [-10, 60] is about 1.5e-7.
func Omega(x float64) float64 {
	return refine(x, refine(x, refine(x, Omega3(x))))
}

// OmegaExact iterates Newton's method until the update stops shrinking. It
// is the reference for tests and for the Newton solver strategy.
func OmegaExact(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}

	if math.IsInf(x, 1) {
		return math.Inf(1)
	}

	if math.IsInf(x, -1) {
		return 0
	}

	// Below ~-745 e^x underflows; ω(x) ≈ e^x there.
	if x < -40 {
		return math.Exp(x)
	}

	var y float64
	if x < 1 {
		y = math.Exp(x)
	} else {
		y = x - math.Log(x)
	}

	for range 100 {
		next := y - (y+math.Log(y)-x)*y/(y+1)
		if next <= 0 {
			next = y / 2
		}

		if math.Abs(next-y) <= 1e-15*math.Abs(next) {
			return next
		}

		y = next
	}

	return y
}

// refine applies y ← y − (y − e^{x−y})/(y + 1), the Newton step on
// y·e^y = e^x expressed without overflow.
func refine(x, y float64) float64 {
	return y - (y-math.Exp(x-y))/(y+1)
}
