package clipper

import (
	"testing"

	"github.com/cwbudde/algo-circuit/internal/testutil"
)

func benchmarkSolver(b *testing.B, s Solver) {
	c, err := NewJCM(176400, WithDist(1), WithSolver(s))
	if err != nil {
		b.Fatal(err)
	}

	src := testutil.DeterministicSine(1000, 176400, 1, 1024)
	dst := make([]float64, len(src))

	b.ReportAllocs()
	b.SetBytes(int64(len(src) * 8))

	for b.Loop() {
		c.ProcessBlock(dst, src)
	}
}

func BenchmarkWrightOmega(b *testing.B) { benchmarkSolver(b, SolverWrightOmega) }

func BenchmarkNewton(b *testing.B) { benchmarkSolver(b, SolverNewton) }
