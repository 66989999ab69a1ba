package core_test

import (
	"fmt"

	"github.com/cwbudde/algo-circuit/dsp/core"
)

type halver struct{}

func (halver) ProcessSample(x float64) float64 { return x / 2 }

func ExampleProcessInPlace() {
	buf := []float64{1, -2, 4}
	core.ProcessInPlace(halver{}, buf)

	fmt.Println(buf, core.Peak(buf))

	// Output:
	// [0.5 -1 2] 2
}
