// Package clipper implements op-amp diode clippers whose single nonlinear
// equation per sample is solved in closed form with the Wright Omega
// function.
//
// Both topologies share the same reduced network. The input reaches the
// op-amp summing node through a series R–C high-pass branch. The feedback
// path is Rf ∥ Cf ∥ a symmetric antiparallel diode pair. Both capacitors are
// discretised with the trapezoidal rule. After the linear branch is solved
// explicitly, the feedback voltage v obeys
//
//	a·v + sgn(v)·Is·(e^{|v|/nVt'} − 1) = p
//
// with a = 1/Rf + 2·Cf·fs and p the input current minus the feedback
// capacitor history. Its solution is
//
//	v = sgn(p)·((|p|+Is)/a − nVt'·ω(ln(Is/(a·nVt')) + (|p|+Is)/(a·nVt')))
//
// where nVt' = n·Vt·sat is the diode slope scaled by the saturation level.
//
// TubeScreamer is the non-inverting stage (y = x + v). JCM is the inverting
// stage (y = −v). The solvers do not oversample; run them at 4× the audio
// rate to keep aliasing acceptable.
package clipper
