package bigmuff_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-circuit/dsp/circuit/bigmuff"
)

func ExampleMuff() {
	muff, err := bigmuff.New(96000, bigmuff.WithSustain(0.7), bigmuff.WithVolume(1))
	if err != nil {
		panic(err)
	}

	buf := make([]float64, 960)
	for i := range buf {
		buf[i] = 0.1 * math.Sin(2*math.Pi*500*float64(i)/96000)
	}

	muff.ProcessInPlace(buf)

	peak := 0.0
	for _, y := range buf {
		peak = math.Max(peak, math.Abs(y))
	}

	fmt.Println(peak > 0.5, peak < 9)
	// Output: true true
}
