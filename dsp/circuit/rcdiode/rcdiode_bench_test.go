package rcdiode

import (
	"testing"

	"github.com/cwbudde/algo-circuit/internal/testutil"
)

func BenchmarkProcessBlock(b *testing.B) {
	dev := mustDiode(b)

	s, err := New(48000, dev)
	if err != nil {
		b.Fatal(err)
	}

	src := testutil.DeterministicSine(1000, 48000, 1, 1024)
	dst := make([]float64, len(src))

	b.ReportAllocs()
	b.SetBytes(int64(len(src) * 8))

	for b.Loop() {
		s.ProcessBlock(dst, src)
	}
}
