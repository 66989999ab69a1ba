// Package nr holds the pieces shared by the Newton-Raphson circuit solvers:
// the non-convergence fallback policy, step clamping and the optional
// iteration statistics used to tune warm starts and pivot orders.
//
// Nothing here allocates on the per-sample path.
package nr
