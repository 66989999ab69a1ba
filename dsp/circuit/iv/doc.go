// Package iv provides companion IV functions for two-terminal nonlinear
// devices.
//
// A Func maps a branch voltage to the branch current and the differential
// conductance dI/dV. Solvers linearise the device around the current estimate
// with these two numbers on every Newton-Raphson iteration, so Func
// implementations must be pure, allocation-free and cheap.
//
// MaxStep bounds how far a single Newton step may move the branch voltage
// before the linearisation stops being trustworthy.
//
// Implementations:
//   - DiodeAntiparallel: two exponential junctions facing opposite directions.
//   - Polynomial: odd-symmetric power law with independent halves.
package iv
