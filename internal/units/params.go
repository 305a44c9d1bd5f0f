package units

// Params holds the fixed constants of the three-phase state machine.
// Windows are measured in steps since the phase was entered.
type Params struct {
	// RestingPotential seeds the series and is restored on leaving the
	// refractory phase.
	RestingPotential float64

	// Threshold is the depolarization boundary; crossing is strict (>).
	Threshold float64

	// SpikeOnset is the potential written on the step a unit activates.
	SpikeOnset float64

	// Peak is held while fewer than HoldWindow steps have elapsed.
	Peak float64

	// AfterHyperDrop is subtracted each step in [HoldWindow, AfterHyperWindow).
	AfterHyperDrop float64

	HoldWindow       int
	AfterHyperWindow int

	// Recovery is added on every refractory step.
	Recovery float64

	// RefractoryWindow bounds the refractory exit check (elapsed < window).
	RefractoryWindow int

	// Leaky integration, used by Dendrites only: every LeakEvery-th
	// nonzero step subtracts Leak, other steps add Integrate, and a
	// positive input adds InputBoost.
	LeakEvery  int
	Leak       float64
	Integrate  float64
	InputBoost float64
}

// DefaultDendriteParams returns the canonical Dendrite constants.
func DefaultDendriteParams() Params {
	return Params{
		RestingPotential: -70.0,
		Threshold:        -55.0,
		SpikeOnset:       -55.0,
		Peak:             40.0,
		AfterHyperDrop:   60.0,
		HoldWindow:       2,
		AfterHyperWindow: 4,
		Recovery:         15.5,
		RefractoryWindow: 3,
		LeakEvery:        3,
		Leak:             6.0,
		Integrate:        3.0,
		InputBoost:       3.0,
	}
}

// DefaultNeuronParams returns the canonical Neuron constants. Neurons pass
// sub-threshold input through, so the leak fields are zero.
func DefaultNeuronParams() Params {
	return Params{
		RestingPotential: -70.0,
		Threshold:        -55.0,
		SpikeOnset:       -55.0,
		Peak:             40.0,
		AfterHyperDrop:   60.0,
		HoldWindow:       2,
		AfterHyperWindow: 4,
		Recovery:         15.5,
		RefractoryWindow: 3,
	}
}

// SynapseParams holds the fixed Synapse constants.
type SynapseParams struct {
	// Coupling scales every input potential before summation.
	Coupling float64

	// Weight multiplies the summed, coupled input.
	Weight float64
}

// DefaultSynapseParams returns the canonical Synapse constants.
func DefaultSynapseParams() SynapseParams {
	return SynapseParams{
		Coupling: 0.01,
		Weight:   1.0,
	}
}
