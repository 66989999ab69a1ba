// Package rcdiode solves a one-port RC network terminated by a nonlinear
// device, one sample at a time.
//
// Topology: a series resistor R from the input to node v, a capacitor C from
// v to ground, and an iv.Func device from v to ground. The capacitor is
// discretised with the trapezoidal rule, which turns it into a conductance
// Geq = 2·C·fs in parallel with a history current source Iceq. Nodal analysis
// of the node then gives
//
//	(Gr + Geq)·v + I(v) = Gr·x − Iceq
//
// which is solved for v with damped Newton-Raphson: every step is clamped to
// ±MaxStep(v) of the device, the loop stops once |Δv| ≤ tolerance or after a
// fixed iteration budget. The budget bounds the worst-case cost per sample;
// running out of it is not an error (see nr.Fallback).
package rcdiode
