package units

import "fmt"

// Neuron aggregates Dendrite potentials directly. It compares the summed
// input against the threshold and passes sub-threshold input through as
// its potential.
type Neuron struct {
	inputList
	membrane
	id ID
}

// NewNeuron creates a resting Neuron with the default constants.
func NewNeuron(id ID) *Neuron {
	return &Neuron{
		membrane: newMembrane(DefaultNeuronParams()),
		id:       id,
	}
}

func (n *Neuron) ID() ID     { return n.id }
func (n *Neuron) Kind() Kind { return KindNeuron }

// Compute evaluates step t and appends potential[t+1].
func (n *Neuron) Compute(t int, src Source) error {
	p, err := n.current(t)
	if err != nil {
		return err
	}

	input := 0.0
	for _, in := range n.inputs {
		v, err := src.PotentialAt(in, t)
		if err != nil {
			return fmt.Errorf("input %d: %w", in, err)
		}
		input += v
	}

	n.advance(t, p, input, func(float64) float64 {
		return input
	})
	return nil
}
