package oversample

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-circuit/dsp/window"
	"github.com/cwbudde/algo-vecmath"
)

// Quality picks the anti-imaging/anti-aliasing filter profile.
type Quality int

const (
	QualityFast     Quality = iota // 16 taps per phase, about 55 dB rejection
	QualityBalanced                // 32 taps per phase, about 75 dB; the default
	QualityBest                    // 64 taps per phase, about 90 dB
)

func (q Quality) String() string {
	switch q {
	case QualityFast:
		return "fast"
	case QualityBalanced:
		return "balanced"
	case QualityBest:
		return "best"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// Profile is the filter design behind a Quality.
type Profile struct {
	TapsPerPhase      int
	CutoffScale       float64
	KaiserBeta        float64
	NominalStopbandDB float64
}

// QualityProfile returns the design used for q. Unknown values use the
// balanced profile.
func QualityProfile(q Quality) Profile {
	switch q {
	case QualityFast:
		return Profile{TapsPerPhase: 16, CutoffScale: 0.88, KaiserBeta: 5.0, NominalStopbandDB: 55}
	case QualityBest:
		return Profile{TapsPerPhase: 64, CutoffScale: 0.96, KaiserBeta: 9.0, NominalStopbandDB: 90}
	default:
		return Profile{TapsPerPhase: 32, CutoffScale: 0.92, KaiserBeta: 7.5, NominalStopbandDB: 75}
	}
}

// designPrototype returns a windowed-sinc lowpass of tapsPerPhase·factor
// taps. The cutoff sits at cutoffScale of the host Nyquist and the taps are
// scaled to a DC gain of factor, which restores the level lost to zero
// stuffing.
func designPrototype(factor int, cfg config) ([]float64, error) {
	if cfg.tapsPerPhase <= 0 {
		return nil, errors.New("oversample: taps per phase must be > 0")
	}

	fc := cfg.cutoffScale / (2 * float64(factor))
	if fc <= 0 || fc >= 0.5 {
		return nil, fmt.Errorf("oversample: invalid cutoff %.6f", fc)
	}

	taps := window.Generate(window.TypeKaiser, cfg.tapsPerPhase*factor, window.WithBeta(cfg.kaiserBeta))
	mid := float64(len(taps)-1) / 2

	var dc float64
	for n := range taps {
		taps[n] *= 2 * fc * sinc(2*fc*(float64(n)-mid))
		dc += taps[n]
	}

	if dc == 0 {
		return nil, errors.New("oversample: designed zero-sum filter")
	}

	vecmath.ScaleBlock(taps, taps, float64(factor)/dc)

	return taps, nil
}

// splitPhases deals the prototype into factor polyphase branches,
// phases[p][k] = taps[p+k·factor].
func splitPhases(taps []float64, factor int) [][]float64 {
	phases := make([][]float64, factor)
	for i, h := range taps {
		phases[i%factor] = append(phases[i%factor], h)
	}

	return phases
}

// sinc is the normalised sinc, sin(πx)/(πx).
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}

	return math.Sin(math.Pi*x) / (math.Pi * x)
}
