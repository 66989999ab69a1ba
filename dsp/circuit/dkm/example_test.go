package dkm_test

import (
	"fmt"

	"github.com/cwbudde/algo-circuit/dsp/circuit/dkm"
)

func Example() {
	sim, err := dkm.New()
	if err != nil {
		panic(err)
	}

	in, _ := sim.AddVoltageSource(1, dkm.Ground, 0)
	_ = sim.AddResistor(1, 2, 1e3)
	_ = sim.AddCapacitor(2, dkm.Ground, 1e-6)
	out, _ := sim.AddOutput(2, dkm.Ground)

	if err := sim.Prepare(48000); err != nil {
		panic(err)
	}

	_ = sim.SetSourceVoltage(in, 1)
	for range 4800 {
		sim.ProcessSample()
	}

	fmt.Printf("%.3f\n", sim.Output(out))
	// Output: 1.000
}
