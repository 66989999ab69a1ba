package core

import "math"

const (
	// Boltzmann is the Boltzmann constant in J/K.
	Boltzmann = 1.380649e-23
	// ElectronCharge is the elementary charge in C.
	ElectronCharge = 1.602176634e-19
	// RoomTemperature is 300.15 K (27 °C), the SPICE nominal temperature.
	RoomTemperature = 300.15
	// DefaultThermalVoltage is kT/q at RoomTemperature.
	DefaultThermalVoltage = Boltzmann * RoomTemperature / ElectronCharge
)

// ThermalVoltage returns kT/q for the given absolute temperature.
// RoomTemperature and non-positive or non-finite temperatures return
// DefaultThermalVoltage exactly.
func ThermalVoltage(tempK float64) float64 {
	if tempK == RoomTemperature || !IsFinite(tempK) || tempK <= 0 {
		return DefaultThermalVoltage
	}

	return Boltzmann * tempK / ElectronCharge
}

// TrapezoidalConductance returns the companion conductance 2·C·fs of a
// capacitor discretised with the trapezoidal rule.
func TrapezoidalConductance(capacitance, sampleRate float64) float64 {
	return 2 * capacitance * sampleRate
}

// CapacitanceForCutoff returns C such that an RC pair has its -3 dB corner
// at cutoffHz: C = 1/(2π·R·f).
func CapacitanceForCutoff(resistance, cutoffHz float64) float64 {
	return 1 / (2 * math.Pi * resistance * cutoffHz)
}
