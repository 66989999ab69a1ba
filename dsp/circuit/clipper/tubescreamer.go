package clipper

// TubeScreamer is the non-inverting clipping stage of the TS808/TS9
// overdrive: 4.7 kΩ + 47 nF to ground on the inverting input (720 Hz
// high-pass), 51 kΩ + 500 kΩ drive pot in feedback with 51 pF across it.
// The output is the input plus the feedback voltage, so clean signal always
// passes through.
type TubeScreamer struct {
	clipper
}

var tubeScreamerTopology = topology{
	name:    "tubescreamer",
	rin:     4.7e3,
	cin:     47e-9,
	rfMin:   51e3,
	rfRange: 500e3,
	cf:      51e-12,
}

// NewTubeScreamer builds the stage at the given sample rate.
func NewTubeScreamer(sampleRate float64, opts ...Option) (*TubeScreamer, error) {
	c, err := newClipper(tubeScreamerTopology, sampleRate, opts)
	if err != nil {
		return nil, err
	}

	return &TubeScreamer{clipper: c}, nil
}
