package dkm

import "math"

// criticalVoltage is the SPICE vcrit: the junction voltage above which the
// exponential's curvature makes plain Newton steps overshoot.
func criticalVoltage(is, nvt float64) float64 {
	return nvt * math.Log(nvt/(math.Sqrt2*is))
}

// pnjlim limits a proposed junction voltage the way SPICE does: large
// forward steps beyond vcrit are compressed logarithmically.
func pnjlim(vnew, vold, nvt, vcrit float64) float64 {
	if vnew <= vcrit || math.Abs(vnew-vold) <= 2*nvt {
		return vnew
	}

	if vold > 0 {
		arg := 1 + (vnew-vold)/nvt
		if arg > 0 {
			return vold + nvt*math.Log(arg)
		}

		return vcrit
	}

	return nvt * math.Log(vnew/nvt)
}

// stepScale returns the fraction of the step vold→vnew that pnjlim allows,
// in (0, 1].
func stepScale(vnew, vold, nvt, vcrit float64) float64 {
	d := vnew - vold
	if d == 0 {
		return 1
	}

	lim := pnjlim(vnew, vold, nvt, vcrit)

	alpha := (lim - vold) / d
	if !(alpha > 0) || alpha > 1 {
		return 1
	}

	return alpha
}

// bjtEval evaluates the Ebers–Moll transport model. ic and ib flow into the
// collector and base; the emitter carries −(ic+ib). The derivatives are with
// respect to vbe and vbc.
func (s *Simulator) bjtEval(q *bjt, vbe, vbc float64) (ic, ib, dIcVbe, dIcVbc, dIbVbe, dIbVbc float64) {
	p := &q.p

	eF := s.cfg.expMode.Exp(vbe / q.nvtF)
	eR := s.cfg.expMode.Exp(vbc / q.nvtR)

	iF := p.Is * (eF - 1)
	iR := p.Is * (eR - 1)
	gF := p.Is * eF / q.nvtF
	gR := p.Is * eR / q.nvtR

	kR := 1 + 1/p.Br

	ic = iF - iR*kR
	ib = iF/p.Bf + iR/p.Br

	dIcVbe = gF
	dIcVbc = -gR * kR
	dIbVbe = gF / p.Bf
	dIbVbc = gR / p.Br

	return ic, ib, dIcVbe, dIcVbc, dIbVbe, dIbVbc
}
