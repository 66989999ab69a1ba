package nr

import "fmt"

// Stats is an iteration-count histogram. Solvers record into it only when
// one is attached, so the hot path pays a nil check when statistics are off.
//
// Bucket i counts samples that needed i iterations; the last bucket collects
// everything at or above its index.
type Stats struct {
	buckets   []uint64
	samples   uint64
	failures  uint64
	total     uint64
	maxIters  int
	lastIters int
}

// NewStats returns a histogram with buckets for 0..maxIterations.
func NewStats(maxIterations int) (*Stats, error) {
	if maxIterations < 1 {
		return nil, fmt.Errorf("nr: stats bucket count must be >= 1: %d", maxIterations)
	}

	return &Stats{buckets: make([]uint64, maxIterations+1)}, nil
}

// Record adds one solved sample.
func (s *Stats) Record(iterations int, converged bool) {
	if s == nil {
		return
	}

	idx := iterations
	if idx < 0 {
		idx = 0
	}

	if idx >= len(s.buckets) {
		idx = len(s.buckets) - 1
	}

	s.buckets[idx]++
	s.samples++
	s.total += uint64(max(iterations, 0))
	s.lastIters = iterations

	if iterations > s.maxIters {
		s.maxIters = iterations
	}

	if !converged {
		s.failures++
	}
}

// Reset clears all counters.
func (s *Stats) Reset() {
	for i := range s.buckets {
		s.buckets[i] = 0
	}

	s.samples, s.failures, s.total = 0, 0, 0
	s.maxIters, s.lastIters = 0, 0
}

// Histogram returns a copy of the bucket counts.
func (s *Stats) Histogram() []uint64 {
	out := make([]uint64, len(s.buckets))
	copy(out, s.buckets)

	return out
}

// Samples returns the number of recorded samples.
func (s *Stats) Samples() uint64 { return s.samples }

// Failures returns the number of samples that hit the iteration cap.
func (s *Stats) Failures() uint64 { return s.failures }

// Max returns the largest iteration count seen.
func (s *Stats) Max() int { return s.maxIters }

// Last returns the iteration count of the most recent sample.
func (s *Stats) Last() int { return s.lastIters }

// Mean returns the average iteration count, 0 when nothing was recorded.
func (s *Stats) Mean() float64 {
	if s.samples == 0 {
		return 0
	}

	return float64(s.total) / float64(s.samples)
}

// String summarises the histogram on one line.
func (s *Stats) String() string {
	return fmt.Sprintf("samples=%d mean=%.3f max=%d failures=%d", s.samples, s.Mean(), s.maxIters, s.failures)
}
