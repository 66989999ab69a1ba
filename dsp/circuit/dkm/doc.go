// Package dkm is a small modified-nodal-analysis circuit simulator for
// audio-rate emulation of transistor and diode circuits.
//
// A circuit is described once with the Add* methods, then Prepare fixes the
// sample rate, converts capacitors to trapezoidal companion models, finds the
// DC operating point and discovers a pivot order for the Newton Jacobian.
// After that the per-sample loop is
//
//	sim.SetSourceVoltage(in, x)
//	sim.ProcessSample()
//	y := sim.Output(out)
//
// Every sample runs Newton-Raphson over the full unknown vector (node
// voltages plus one branch current per voltage source). Diodes and
// Ebers–Moll NPN transistors are re-linearised each iteration; the linear
// part of the matrix is cached and only rebuilt when a potentiometer moves.
// Junction voltage steps are limited the way SPICE does (pnjlim). When the
// iteration budget runs out the solver keeps going with a fallback solution
// instead of failing.
//
// Nodes are small caller-chosen integers. Ground is node 0.
package dkm
