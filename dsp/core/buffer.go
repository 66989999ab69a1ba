package core

// SampleProcessor is anything driven one sample at a time. Every circuit
// core in this module satisfies it.
type SampleProcessor interface {
	ProcessSample(x float64) float64
}

// ProcessBlock runs p over src and writes the result to dst. dst and src may
// alias; processing is strictly sample by sample so in-place use is safe.
// Only min(len(dst), len(src)) samples are processed.
func ProcessBlock(p SampleProcessor, dst, src []float64) {
	n := min(len(dst), len(src))
	if n == 0 {
		return
	}

	_ = dst[n-1]
	_ = src[n-1]

	for i := range n {
		dst[i] = p.ProcessSample(src[i])
	}
}

// ProcessInPlace runs p over buf in place.
func ProcessInPlace(p SampleProcessor, buf []float64) {
	ProcessBlock(p, buf, buf)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// Peak returns the largest absolute value in buf.
func Peak(buf []float64) float64 {
	peak := 0.0

	for _, v := range buf {
		if v < 0 {
			v = -v
		}

		if v > peak {
			peak = v
		}
	}

	return peak
}
