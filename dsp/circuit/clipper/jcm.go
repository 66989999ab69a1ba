package clipper

// JCM is an inverting op-amp clipper in the style of Marshall-in-a-box
// pedals: 10 kΩ + 100 nF input branch (159 Hz high-pass), 10 kΩ + 1 MΩ gain
// pot in feedback with 100 pF across it. Only the clipped feedback voltage
// reaches the output, which makes the stage hard-limited by the diodes.
type JCM struct {
	clipper
}

var jcmTopology = topology{
	name:      "jcm",
	rin:       10e3,
	cin:       100e-9,
	rfMin:     10e3,
	rfRange:   1e6,
	cf:        100e-12,
	inverting: true,
}

// NewJCM builds the stage at the given sample rate.
func NewJCM(sampleRate float64, opts ...Option) (*JCM, error) {
	c, err := newClipper(jcmTopology, sampleRate, opts)
	if err != nil {
		return nil, err
	}

	return &JCM{clipper: c}, nil
}
