package dkm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// pivotThreshold is the fraction of the column maximum the static pivot
	// must reach before the dynamic rescue swaps in a larger one.
	pivotThreshold = 1e-3

	dcMaxIterations = 500
	dcSourceSteps   = 20
)

// eliminate solves a·x = b by Gaussian elimination without moving rows:
// order[k] names the row used to eliminate unknown k. With discover set the
// order is rebuilt by partial pivoting; otherwise order is followed unless a
// pivot falls below pivotThreshold of its column maximum. The order actually
// used is left in work. a and b are destroyed.
func eliminate(a, b, x []float64, n int, order, work []int, discover bool) bool {
	copy(work, order)

	for k := range n {
		best := k
		bestAbs := math.Abs(a[work[k]*n+k])
		colMax := bestAbs

		for i := k + 1; i < n; i++ {
			v := math.Abs(a[work[i]*n+k])
			if v > colMax {
				colMax = v
				best = i
			}
		}

		if discover || bestAbs < pivotThreshold*colMax {
			work[k], work[best] = work[best], work[k]
		}

		prow := work[k]
		piv := a[prow*n+k]

		if piv == 0 || math.IsNaN(piv) || math.IsInf(piv, 0) {
			return false
		}

		pr := a[prow*n : (prow+1)*n]

		for i := k + 1; i < n; i++ {
			r := work[i]

			f := a[r*n+k] / piv
			if f == 0 {
				continue
			}

			row := a[r*n : (r+1)*n]
			row[k] = 0

			for j := k + 1; j < n; j++ {
				row[j] -= f * pr[j]
			}

			b[r] -= f * b[prow]
		}
	}

	for k := n - 1; k >= 0; k-- {
		prow := work[k]
		pr := a[prow*n : (prow+1)*n]
		sum := b[prow]

		for j := k + 1; j < n; j++ {
			sum -= pr[j] * x[j]
		}

		x[k] = sum / pr[k]
	}

	return true
}

// solveInPlace solves s.jac·Δ = s.dx with the static pivot order and leaves
// Δ in s.dx.
func (s *Simulator) solveInPlace() bool {
	if !eliminate(s.jac, s.dx, s.f, s.n, s.perm, s.permWork, false) {
		return false
	}

	copy(s.dx, s.f)

	return true
}

// discoverPivotOrder runs partial pivoting once on the transient Jacobian at
// the operating point and keeps the resulting row order.
func (s *Simulator) discoverPivotOrder() error {
	s.buildRHS(1, false)
	s.assemble(s.lin)

	for i := range s.perm {
		s.perm[i] = i
	}

	if !eliminate(s.jac, s.dx, s.f, s.n, s.perm, s.permWork, true) {
		return ErrSingular
	}

	copy(s.perm, s.permWork)

	return nil
}

// solveOperatingPoint runs Newton-Raphson with capacitors open. If a direct
// attempt fails the sources are ramped up in steps from zero.
func (s *Simulator) solveOperatingPoint() error {
	clear(s.x)

	ok, err := s.newtonDC(1)
	if err != nil && !errors.Is(err, ErrSingular) {
		return err
	}

	if !ok {
		clear(s.x)

		for step := 1; step <= dcSourceSteps; step++ {
			ok, err = s.newtonDC(float64(step) / dcSourceSteps)
			if err != nil {
				return err
			}

			if !ok {
				return ErrNoOperatingPoint
			}
		}
	}

	s.assemble(s.lin)
	s.cond = mat.Cond(mat.NewDense(s.n, s.n, append([]float64(nil), s.jac...)), 1)

	return nil
}

// newtonDC solves the DC system with every source scaled by scale, starting
// from s.x. Linear solves go through gonum's LU.
func (s *Simulator) newtonDC(scale float64) (bool, error) {
	n := s.n
	s.buildRHS(scale, false)

	jac := mat.NewDense(n, n, s.jac)
	rhs := mat.NewVecDense(n, s.dx)

	var step mat.VecDense

	for range dcMaxIterations {
		s.assemble(s.linDC)

		for i := range s.dx {
			s.dx[i] = -s.f[i]
		}

		if err := step.SolveVec(jac, rhs); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
				return false, fmt.Errorf("%w: %v", ErrSingular, err)
			}
		}

		copy(s.dx, step.RawVector().Data)

		for _, d := range s.dx {
			if math.IsNaN(d) || math.IsInf(d, 0) {
				return false, ErrSingular
			}
		}

		if s.applyStep() {
			return true, nil
		}
	}

	return false, nil
}
