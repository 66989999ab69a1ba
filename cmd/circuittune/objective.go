package main

import (
	"math"

	"github.com/cwbudde/algo-circuit/dsp/circuit/iv"
	"github.com/cwbudde/algo-circuit/dsp/circuit/nr"
	"github.com/cwbudde/algo-circuit/dsp/circuit/rcdiode"
)

const (
	defaultMaxError = 1e-4

	cutoffHz       = 2000
	maxIterations  = 50
	refTolerance   = 1e-12
	refIterations  = 200
	failurePenalty = 20
	errorPenalty   = 10
	boundPenalty   = 100
)

// knob maps one normalised search coordinate onto a solver setting.
type knob struct {
	lo, hi float64
}

// Search coordinates: warm start on/off, warm-start scale, log10 tolerance,
// fallback policy.
var knobs = []knob{
	{0, 1},
	{0, 1},
	{-9, -4},
	{0, 3},
}

func (k knob) value(u float64) float64 {
	u = min(max(u, 0), 1)
	return k.lo + u*(k.hi-k.lo)
}

type candidate struct {
	warmStart      bool
	warmStartScale float64
	tolerance      float64
	fallback       nr.Fallback
}

func defaultCandidate() candidate {
	return candidate{
		warmStart:      true,
		warmStartScale: 0.5,
		tolerance:      1e-6,
		fallback:       nr.FallbackSmallest,
	}
}

// decode turns a point of the unit hypercube into a candidate.
func decode(pos []float64) candidate {
	get := func(i int) float64 {
		if i < len(pos) {
			return knobs[i].value(pos[i])
		}

		return knobs[i].lo
	}

	fb := nr.Fallback(min(int(get(3)), int(nr.FallbackKeep)))

	return candidate{
		warmStart:      get(0) >= 0.5,
		warmStartScale: get(1),
		tolerance:      math.Pow(10, get(2)),
		fallback:       fb,
	}
}

type metrics struct {
	meanIters float64
	maxIters  int
	failures  uint64
	maxError  float64
	score     float64
}

// bench holds the test signal and the reference response every candidate is
// compared against.
type bench struct {
	sampleRate float64
	input      []float64
	reference  []float64
	bound      float64
	maxError   float64
	dev        iv.Func
}

func newBench(sampleRate float64, input []float64, maxError float64) (*bench, error) {
	dev, err := iv.NewDiodePair(iv.Silicon1N914())
	if err != nil {
		return nil, err
	}

	ref, err := rcdiode.New(sampleRate, dev,
		rcdiode.WithCutoffHz(cutoffHz),
		rcdiode.WithTolerance(refTolerance),
		rcdiode.WithMaxIterations(refIterations),
	)
	if err != nil {
		return nil, err
	}

	reference := make([]float64, len(input))
	ref.ProcessBlock(reference, input)

	var peak float64
	for _, x := range input {
		peak = max(peak, math.Abs(x))
	}

	return &bench{
		sampleRate: sampleRate,
		input:      input,
		reference:  reference,
		bound:      peak * 1.01,
		maxError:   maxError,
		dev:        dev,
	}, nil
}

// evaluate runs one candidate over the test signal. Lower scores are better:
// the mean iteration count plus penalties for non-convergence, deviation
// from the reference and output beyond the input peak.
func (b *bench) evaluate(c candidate) metrics {
	stats, err := nr.NewStats(maxIterations)
	if err != nil {
		return metrics{score: math.Inf(1)}
	}

	s, err := rcdiode.New(b.sampleRate, b.dev,
		rcdiode.WithCutoffHz(cutoffHz),
		rcdiode.WithMaxIterations(maxIterations),
		rcdiode.WithTolerance(c.tolerance),
		rcdiode.WithWarmStart(c.warmStart),
		rcdiode.WithWarmStartScale(c.warmStartScale),
		rcdiode.WithFallback(c.fallback),
		rcdiode.WithStats(stats),
	)
	if err != nil {
		return metrics{score: math.Inf(1)}
	}

	m := metrics{}
	outOfBound := false

	for i, x := range b.input {
		y := s.ProcessSample(x)
		m.maxError = max(m.maxError, math.Abs(y-b.reference[i]))

		if math.Abs(y) > b.bound {
			outOfBound = true
		}
	}

	m.meanIters = stats.Mean()
	m.maxIters = stats.Max()
	m.failures = stats.Failures()
	m.score = m.meanIters

	if n := stats.Samples(); n > 0 {
		m.score += failurePenalty * float64(m.failures) / float64(n)
	}

	if m.maxError > b.maxError {
		m.score += errorPenalty + math.Log10(m.maxError/b.maxError)
	}

	if outOfBound {
		m.score += boundPenalty
	}

	return m
}

// testSignal is a low tone with a quieter high partial, enough to drive the
// diodes hard and switch polarity often.
func testSignal(n int, level, sampleRate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = level * (0.8*math.Sin(2*math.Pi*220*t) + 0.2*math.Sin(2*math.Pi*3100*t))
	}

	return out
}
