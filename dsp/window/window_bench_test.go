package window

import (
	"strconv"
	"testing"
)

func BenchmarkGenerate(b *testing.B) {
	for _, typ := range []Type{TypeHann, TypeBlackmanHarris4Term, TypeKaiser} {
		b.Run(Info(typ).Name+"/"+strconv.Itoa(4096), func(b *testing.B) {
			b.ReportAllocs()

			for b.Loop() {
				_ = Generate(typ, 4096)
			}
		})
	}
}

func BenchmarkApply(b *testing.B) {
	buf := make([]float64, 4096)

	b.ReportAllocs()

	for b.Loop() {
		Apply(TypeHann, buf)
	}
}
