// Command circuittune searches Newton-Raphson solver settings of the RC diode
// clipper for the lowest iteration count that still tracks a tightly
// converged reference.
//
// Usage:
//
//	circuittune [flags]
//
// The search runs a mayfly optimiser over the warm-start scale, the
// convergence tolerance and the non-convergence fallback.
//
// Examples:
//
//	circuittune
//	circuittune -pop 20 -iters 40 -level 8
//	circuittune -variant ma -seed 7
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/mayfly"
	"github.com/sirupsen/logrus"
)

func main() {
	variant := flag.String("variant", "desma", "mayfly variant: ma, desma, olce, eobbma, gsasma, mpma, aoblmoa")
	pop := flag.Int("pop", 12, "mayfly population size")
	iters := flag.Int("iters", 20, "mayfly iterations")
	seed := flag.Int64("seed", 1, "random seed")
	rate := flag.Float64("rate", 192000, "solver sample rate in Hz")
	samples := flag.Int("samples", 9600, "test signal length in samples")
	level := flag.Float64("level", 4, "test signal peak amplitude in volts")
	maxErr := flag.Float64("max-error", defaultMaxError, "largest tolerated deviation from the reference in volts")
	verbose := flag.Bool("v", false, "log every improvement")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: circuittune [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Tunes the RC diode clipper's Newton solver settings.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  circuittune\n")
		fmt.Fprintf(os.Stderr, "  circuittune -pop 20 -iters 40 -level 8\n")
	}
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	b, err := newBench(*rate, testSignal(*samples, *level, *rate), *maxErr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := newMayflyConfig(strings.ToLower(*variant), *pop, len(knobs), *iters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg.Rand = rand.New(rand.NewSource(*seed))

	baseline := defaultCandidate()
	baseM := b.evaluate(baseline)

	best, bestM := baseline, baseM
	evals := 0
	start := time.Now()

	cfg.ObjectiveFunc = func(pos []float64) float64 {
		cand := decode(pos)
		m := b.evaluate(cand)
		evals++

		if m.score < bestM.score {
			best, bestM = cand, m
			logrus.WithFields(logrus.Fields{
				"eval":  evals,
				"score": fmt.Sprintf("%.4f", m.score),
				"mean":  fmt.Sprintf("%.3f", m.meanIters),
			}).Debug("improved")
		}

		return m.score
	}

	if _, err := runMayfly(cfg); err != nil {
		logrus.WithError(err).Warn("optimiser stopped early")
	}

	logrus.WithFields(logrus.Fields{
		"evals":   evals,
		"elapsed": time.Since(start).Round(time.Millisecond),
		"variant": strings.ToLower(*variant),
	}).Info("search finished")

	printResults(os.Stdout, []row{
		{"default", baseline, baseM},
		{"best", best, bestM},
	})
}

func newMayflyConfig(variant string, pop, dims, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config

	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}

	if pop < 2 || iters < 1 {
		return nil, fmt.Errorf("population must be >= 2 and iterations >= 1: %d, %d", pop, iters)
	}

	cfg.ProblemSize = dims
	cfg.LowerBound = 0
	cfg.UpperBound = 1
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	// Both populations must supply NC/2 parents.
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))

	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()

	return mayfly.Optimize(cfg)
}

type row struct {
	label string
	cand  candidate
	m     metrics
}

func printResults(w io.Writer, rows []row) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Setting\tWarm start\tTolerance\tFallback\tMean iters\tMax iters\tFailures\tMax error [V]\tScore\n")
	fmt.Fprintf(tw, "-------\t----------\t---------\t--------\t----------\t---------\t--------\t-------------\t-----\n")

	for _, r := range rows {
		ws := "off"
		if r.cand.warmStart {
			ws = fmt.Sprintf("%.3f", r.cand.warmStartScale)
		}

		fmt.Fprintf(tw, "%s\t%s\t%.2e\t%s\t%.3f\t%d\t%d\t%.2e\t%.4f\n",
			r.label,
			ws,
			r.cand.tolerance,
			r.cand.fallback,
			r.m.meanIters,
			r.m.maxIters,
			r.m.failures,
			r.m.maxError,
			r.m.score,
		)
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
