package main

import (
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/cwbudde/algo-circuit/dsp/circuit/nr"
)

const maxPlotPoints = 2000

type report struct {
	model      string
	sampleRate int
	factor     int
	input      []float64
	output     []float64
	stats      *nr.Stats
}

func (r report) writeFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return r.render(f)
}

func (r report) render(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "circuitfx: " + r.model
	page.AddCharts(r.waveformChart())

	if r.stats != nil && r.stats.Samples() > 0 {
		page.AddCharts(r.iterationChart())
	}

	return page.Render(w)
}

func (r report) waveformChart() *charts.Line {
	step := plotStride(len(r.input), maxPlotPoints)
	in := decimate(r.input, step)
	out := decimate(r.output, step)

	axis := make([]string, len(in))
	for i := range axis {
		axis[i] = strconv.FormatFloat(float64(i*step)/float64(r.sampleRate)*1000, 'f', 2, 64)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Waveform",
			Subtitle: r.model + " at " + strconv.Itoa(r.factor) + "x oversampling, time in ms",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: true,
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)

	line.SetXAxis(axis).
		AddSeries("input", lineData(in)).
		AddSeries("output", lineData(out))

	return line
}

func (r report) iterationChart() *charts.Bar {
	hist := r.stats.Histogram()

	axis := make([]string, len(hist))
	items := make([]opts.BarData, len(hist))

	for i, n := range hist {
		axis[i] = strconv.Itoa(i)
		items[i] = opts.BarData{Value: n}
	}

	axis[len(axis)-1] += "+"

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Newton iterations per sample",
			Subtitle: r.stats.String(),
		}),
	)

	bar.SetXAxis(axis).AddSeries("samples", items)

	return bar
}

// plotStride returns the smallest stride that keeps n samples within
// maxPoints.
func plotStride(n, maxPoints int) int {
	if maxPoints < 1 || n <= maxPoints {
		return 1
	}

	return (n + maxPoints - 1) / maxPoints
}

func decimate(x []float64, step int) []float64 {
	if step <= 1 {
		return x
	}

	out := make([]float64, 0, (len(x)+step-1)/step)
	for i := 0; i < len(x); i += step {
		out = append(out, x[i])
	}

	return out
}

func lineData(x []float64) []opts.LineData {
	items := make([]opts.LineData, len(x))
	for i, v := range x {
		items[i] = opts.LineData{Value: v}
	}

	return items
}
