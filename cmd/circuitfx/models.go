package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cwbudde/algo-circuit/dsp/circuit/bigmuff"
	"github.com/cwbudde/algo-circuit/dsp/circuit/clipper"
	"github.com/cwbudde/algo-circuit/dsp/circuit/iv"
	"github.com/cwbudde/algo-circuit/dsp/circuit/nr"
	"github.com/cwbudde/algo-circuit/dsp/circuit/rcdiode"
	"github.com/cwbudde/algo-circuit/dsp/oversample"
)

// params are the knobs exposed on the command line. Each model reads the
// ones it understands.
type params struct {
	cutoffHz float64
	dist     float64
	sat      float64
	sustain  float64
	tone     float64
	volume   float64
	solver   string
}

type modelEntry struct {
	name        string
	description string
	build       func(sampleRate float64, p params, stats *nr.Stats) (oversample.Processor, error)
}

var models = []modelEntry{
	{"rcdiode", "RC lowpass into an antiparallel 1N914 pair (Newton-Raphson)", buildRCDiode},
	{"ts", "Tube Screamer clipping stage (closed form)", buildTubeScreamer},
	{"jcm", "JCM-style inverting clipper (closed form)", buildJCM},
	{"bigmuff", "Big Muff Pi, full nodal simulation", buildBigMuff},
}

func lookupModel(name string) (modelEntry, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range models {
		if m.name == name {
			return m, nil
		}
	}

	return modelEntry{}, fmt.Errorf("unknown model %q (use -list to see available)", name)
}

func modelNames() []string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.name
	}

	sort.Strings(names)

	return names
}

func buildRCDiode(sampleRate float64, p params, stats *nr.Stats) (oversample.Processor, error) {
	dev, err := iv.NewDiodePair(iv.Silicon1N914())
	if err != nil {
		return nil, err
	}

	return rcdiode.New(sampleRate, dev,
		rcdiode.WithCutoffHz(p.cutoffHz),
		rcdiode.WithStats(stats),
	)
}

func clipperOptions(p params, stats *nr.Stats) ([]clipper.Option, error) {
	var solver clipper.Solver

	switch strings.ToLower(p.solver) {
	case "", "omega":
		solver = clipper.SolverWrightOmega
	case "newton":
		solver = clipper.SolverNewton
	default:
		return nil, fmt.Errorf("unknown solver %q (omega or newton)", p.solver)
	}

	return []clipper.Option{
		clipper.WithDist(p.dist),
		clipper.WithSatLevel(p.sat),
		clipper.WithSolver(solver),
		clipper.WithStats(stats),
	}, nil
}

func buildTubeScreamer(sampleRate float64, p params, stats *nr.Stats) (oversample.Processor, error) {
	opts, err := clipperOptions(p, stats)
	if err != nil {
		return nil, err
	}

	return clipper.NewTubeScreamer(sampleRate, opts...)
}

func buildJCM(sampleRate float64, p params, stats *nr.Stats) (oversample.Processor, error) {
	opts, err := clipperOptions(p, stats)
	if err != nil {
		return nil, err
	}

	return clipper.NewJCM(sampleRate, opts...)
}

func buildBigMuff(sampleRate float64, p params, stats *nr.Stats) (oversample.Processor, error) {
	return bigmuff.New(sampleRate,
		bigmuff.WithSustain(p.sustain),
		bigmuff.WithTone(p.tone),
		bigmuff.WithVolume(p.volume),
		bigmuff.WithStats(stats),
	)
}
