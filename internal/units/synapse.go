package units

import (
	"fmt"
	"math"
)

// maxValue is the largest float64 below 1. tanh rounds to exactly ±1 for
// large arguments; values are clamped here to stay inside (-1, 1).
var maxValue = math.Nextafter(1, 0)

// Synapse transmits a smoothed, saturated current derived from upstream
// Dendrite potentials. It never spikes and keeps no series: Value is
// overwritten on every step.
type Synapse struct {
	inputList
	id     ID
	params SynapseParams
	value  float64
}

// NewSynapse creates a Synapse with the default constants and a zero value.
func NewSynapse(id ID) *Synapse {
	return &Synapse{
		id:     id,
		params: DefaultSynapseParams(),
	}
}

func (s *Synapse) ID() ID     { return s.id }
func (s *Synapse) Kind() Kind { return KindSynapse }

// Value returns the value computed by the latest step.
func (s *Synapse) Value() float64 {
	return s.value
}

// Params returns the synapse constants.
func (s *Synapse) Params() SynapseParams {
	return s.params
}

// Compute reads potential[t] of every input and updates the value.
func (s *Synapse) Compute(t int, src Source) error {
	raw := 0.0
	for _, in := range s.inputs {
		p, err := src.PotentialAt(in, t)
		if err != nil {
			return fmt.Errorf("input %d: %w", in, err)
		}
		raw += p * s.params.Coupling
	}
	raw *= s.params.Weight

	// First-order smoothing (factor 0.5, sign-inverted), then saturation.
	v := -(s.value - raw) / 2
	v = math.Tanh(2 * v)
	s.value = math.Max(-maxValue, math.Min(maxValue, v))
	return nil
}
