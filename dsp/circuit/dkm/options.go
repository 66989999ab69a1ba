package dkm

import (
	"fmt"

	"github.com/cwbudde/algo-circuit/dsp/circuit/iv"
	"github.com/cwbudde/algo-circuit/dsp/circuit/nr"
	"github.com/cwbudde/algo-circuit/dsp/core"
)

const (
	defaultMaxIterations = 50
	defaultTolerance     = 1e-6
	defaultGmin          = 1e-12

	maxIterationsLimit = 10000
)

// Option mutates simulator configuration.
type Option func(*config) error

type config struct {
	maxIterations int
	tolerance     float64
	fallback      nr.Fallback
	stats         *nr.Stats
	vt            float64
	expMode       iv.ExpMode
	gmin          float64
}

func defaultConfig() config {
	return config{
		maxIterations: defaultMaxIterations,
		tolerance:     defaultTolerance,
		fallback:      nr.FallbackPrevious,
		vt:            core.DefaultThermalVoltage,
		expMode:       iv.ExpExact,
		gmin:          defaultGmin,
	}
}

// WithMaxIterations sets the per-sample Newton iteration budget.
func WithMaxIterations(n int) Option {
	return func(cfg *config) error {
		if n < 1 || n > maxIterationsLimit {
			return fmt.Errorf("dkm: max iterations must be in [1, %d]: %d", maxIterationsLimit, n)
		}

		cfg.maxIterations = n

		return nil
	}
}

// WithTolerance sets the convergence threshold on the largest node voltage
// change in volts.
func WithTolerance(tol float64) Option {
	return func(cfg *config) error {
		if !core.IsFinite(tol) || tol <= 0 {
			return fmt.Errorf("dkm: tolerance must be > 0 and finite: %v", tol)
		}

		cfg.tolerance = tol

		return nil
	}
}

// WithFallback selects the non-convergence policy. FallbackSmallest is
// applied per unknown.
func WithFallback(f nr.Fallback) Option {
	return func(cfg *config) error {
		if !f.Valid() {
			return fmt.Errorf("dkm: invalid fallback policy: %d", f)
		}

		cfg.fallback = f

		return nil
	}
}

// WithStats attaches an iteration histogram. nil disables recording.
func WithStats(s *nr.Stats) Option {
	return func(cfg *config) error {
		cfg.stats = s
		return nil
	}
}

// WithThermalVoltage sets kT/q for every junction.
func WithThermalVoltage(vt float64) Option {
	return func(cfg *config) error {
		if !core.IsFinite(vt) || vt <= 0 {
			return fmt.Errorf("dkm: thermal voltage must be > 0 and finite: %v", vt)
		}

		cfg.vt = vt

		return nil
	}
}

// WithExpMode selects the exponential used by the junction models. The
// default is ExpExact.
func WithExpMode(mode iv.ExpMode) Option {
	return func(cfg *config) error {
		if mode != iv.ExpFast && mode != iv.ExpExact {
			return fmt.Errorf("dkm: invalid exp mode: %d", mode)
		}

		cfg.expMode = mode

		return nil
	}
}

// WithGmin sets the conductance tied from every node to ground. It keeps
// nodes that only connect through capacitors or reverse-biased junctions
// solvable.
func WithGmin(g float64) Option {
	return func(cfg *config) error {
		if !core.IsFinite(g) || g < 0 {
			return fmt.Errorf("dkm: gmin must be >= 0 and finite: %v", g)
		}

		cfg.gmin = g

		return nil
	}
}
