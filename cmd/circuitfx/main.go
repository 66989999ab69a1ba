// Command circuitfx renders audio through one of the circuit models.
//
// Usage:
//
//	circuitfx [flags]
//
// Without -in it synthesises a sine test tone and reports its harmonic
// distortion after processing. The model always runs inside a polyphase
// oversampler.
//
// Examples:
//
//	circuitfx -model ts -dist 0.8 -out ts.wav
//	circuitfx -model bigmuff -in guitar.wav -out muff.wav -sustain 0.9
//	circuitfx -model rcdiode -freq 220 -level 2 -report rc.html
//	circuitfx -list
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-circuit/dsp/circuit/nr"
	"github.com/cwbudde/algo-circuit/dsp/core"
	"github.com/cwbudde/algo-circuit/dsp/oversample"
	"github.com/cwbudde/algo-circuit/measure/thd"
)

const statsBuckets = 64

func main() {
	in := flag.String("in", "", "input WAV file (empty synthesises a sine)")
	out := flag.String("out", "", "output WAV file")
	model := flag.String("model", "ts", "circuit model (use -list)")
	factor := flag.Int("factor", 4, "oversampling factor")
	quality := flag.String("quality", "balanced", "oversampler quality: fast, balanced or best")
	bits := flag.Int("bits", 24, "output bit depth")
	reportPath := flag.String("report", "", "write an HTML report to this file")
	list := flag.Bool("list", false, "list available models")
	verbose := flag.Bool("v", false, "verbose logging")

	freq := flag.Float64("freq", 440, "test tone frequency in Hz")
	level := flag.Float64("level", 0.5, "test tone peak amplitude in volts")
	duration := flag.Float64("duration", 1, "test tone duration in seconds")
	rate := flag.Int("rate", 48000, "test tone sample rate in Hz")

	var p params

	flag.Float64Var(&p.cutoffHz, "cutoff", 1000, "rcdiode: RC cutoff in Hz")
	flag.Float64Var(&p.dist, "dist", 0.5, "ts/jcm: distortion pot [0, 1]")
	flag.Float64Var(&p.sat, "sat", 1, "ts/jcm: saturation level")
	flag.StringVar(&p.solver, "solver", "omega", "ts/jcm: omega or newton")
	flag.Float64Var(&p.sustain, "sustain", 0.5, "bigmuff: sustain pot [0, 1]")
	flag.Float64Var(&p.tone, "tone", 0.5, "bigmuff: tone pot [0, 1]")
	flag.Float64Var(&p.volume, "volume", 0.5, "bigmuff: volume [0, 1]")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: circuitfx [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Processes audio through a nonlinear circuit model.\n")
		fmt.Fprintf(os.Stderr, "Without -in, a sine test tone is generated and its THD reported.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  circuitfx -model ts -dist 0.8 -out ts.wav\n")
		fmt.Fprintf(os.Stderr, "  circuitfx -model bigmuff -in guitar.wav -out muff.wav\n")
		fmt.Fprintf(os.Stderr, "  circuitfx -model rcdiode -level 2 -report rc.html\n")
		fmt.Fprintf(os.Stderr, "  circuitfx -list\n")
	}
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *list {
		printList()
		return
	}

	if err := run(options{
		in:         *in,
		out:        *out,
		model:      *model,
		factor:     *factor,
		quality:    *quality,
		bits:       *bits,
		reportPath: *reportPath,
		freq:       *freq,
		level:      *level,
		duration:   *duration,
		rate:       *rate,
		params:     p,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	in         string
	out        string
	model      string
	factor     int
	quality    string
	bits       int
	reportPath string
	freq       float64
	level      float64
	duration   float64
	rate       int
	params     params
}

func run(o options) error {
	entry, err := lookupModel(o.model)
	if err != nil {
		return err
	}

	q, err := parseQuality(o.quality)
	if err != nil {
		return err
	}

	input, sampleRate, err := loadInput(o)
	if err != nil {
		return err
	}

	stats, err := nr.NewStats(statsBuckets)
	if err != nil {
		return err
	}

	ovs, err := oversample.New(o.factor, oversample.WithQuality(q))
	if err != nil {
		return err
	}

	proc, err := entry.build(float64(sampleRate*o.factor), o.params, stats)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"model":      entry.name,
		"samples":    len(input),
		"sampleRate": sampleRate,
		"factor":     o.factor,
		"quality":    q.String(),
		"latency":    ovs.Latency(),
	}).Info("processing")

	output := make([]float64, len(input))
	ovs.ProcessBlock(output, input, proc)

	if stats.Samples() > 0 {
		logrus.WithFields(logrus.Fields{
			"samples":  stats.Samples(),
			"mean":     fmt.Sprintf("%.3f", stats.Mean()),
			"max":      stats.Max(),
			"failures": stats.Failures(),
		}).Info("newton iterations")
	}

	logrus.WithFields(logrus.Fields{
		"in":  fmt.Sprintf("%.2f dBFS", core.LinearToDB(core.Peak(input))),
		"out": fmt.Sprintf("%.2f dBFS", core.LinearToDB(core.Peak(output))),
	}).Info("peak levels")

	if o.in == "" {
		logDistortion(output, float64(sampleRate), o.freq)
	}

	if o.reportPath != "" {
		r := report{
			model:      entry.name,
			sampleRate: sampleRate,
			factor:     o.factor,
			input:      input,
			output:     output,
			stats:      stats,
		}
		if err := r.writeFile(o.reportPath); err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		logrus.WithField("path", o.reportPath).Info("report written")
	}

	if o.out == "" {
		return nil
	}

	if gain := normalize(output); gain != 1 {
		logrus.WithField("gain", fmt.Sprintf("%.4f", gain)).Warn("output exceeded full scale, normalised")
	}

	if err := writeWAVMono(o.out, output, sampleRate, o.bits); err != nil {
		return fmt.Errorf("write %s: %w", o.out, err)
	}

	logrus.WithField("path", o.out).Info("output written")

	return nil
}

func loadInput(o options) ([]float64, int, error) {
	if o.in != "" {
		data, sr, err := readWAVMono(o.in)
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", o.in, err)
		}

		return data, sr, nil
	}

	if o.rate <= 0 {
		return nil, 0, fmt.Errorf("sample rate must be > 0: %d", o.rate)
	}

	if o.freq <= 0 || o.freq >= float64(o.rate)/2 {
		return nil, 0, fmt.Errorf("test tone frequency must be in (0, %d): %v", o.rate/2, o.freq)
	}

	n := int(o.duration * float64(o.rate))
	if n <= 0 {
		return nil, 0, fmt.Errorf("duration must be > 0: %v", o.duration)
	}

	return sine(n, o.freq, o.level, float64(o.rate)), o.rate, nil
}

func parseQuality(name string) (oversample.Quality, error) {
	for _, q := range []oversample.Quality{oversample.QualityFast, oversample.QualityBalanced, oversample.QualityBest} {
		if q.String() == name {
			return q, nil
		}
	}

	return 0, fmt.Errorf("unknown quality %q (fast, balanced or best)", name)
}

// logDistortion analyses the settled second half of a processed test tone.
func logDistortion(output []float64, sampleRate, freq float64) {
	tail := output[len(output)/2:]
	if len(tail) < 1024 {
		logrus.Debug("signal too short for THD analysis")
		return
	}

	res := thd.AnalyzeSignal(tail, thd.Config{
		SampleRate:      sampleRate,
		FundamentalFreq: freq,
	})

	logrus.WithFields(logrus.Fields{
		"fundamental": fmt.Sprintf("%.1f Hz", res.FundamentalFreq),
		"thd":         fmt.Sprintf("%.2f dB", res.THD_dB),
		"thdn":        fmt.Sprintf("%.2f dB", res.THDN_dB),
		"odd":         fmt.Sprintf("%.4g", res.OddHD),
		"even":        fmt.Sprintf("%.4g", res.EvenHD),
	}).Info("distortion")
}

func printList() {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Model\tDescription\n")
	fmt.Fprintf(tw, "-----\t-----------\n")

	for _, name := range modelNames() {
		m, _ := lookupModel(name)
		fmt.Fprintf(tw, "%s\t%s\n", m.name, m.description)
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func sine(n int, freq, amp, sampleRate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}

	return out
}

// normalize scales x so its peak is at most 1 and returns the gain applied.
func normalize(x []float64) float64 {
	peak := core.Peak(x)
	if peak <= 1 {
		return 1
	}

	gain := 1 / peak
	for i := range x {
		x[i] *= gain
	}

	return gain
}
