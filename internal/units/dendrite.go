package units

import "fmt"

// Dendrite is the canonical spiking unit. It leaks and integrates while
// resting, reads Synapse values as input, and spikes when its own potential
// crosses the threshold.
//
// A Dendrite seeded with a stimulus is driven: its series is the stimulus
// and Compute only checks that the stimulus covers the step.
type Dendrite struct {
	inputList
	membrane
	id     ID
	driven bool
}

// NewDendrite creates a resting Dendrite with the default constants.
func NewDendrite(id ID) *Dendrite {
	return &Dendrite{
		membrane: newMembrane(DefaultDendriteParams()),
		id:       id,
	}
}

func (d *Dendrite) ID() ID     { return d.id }
func (d *Dendrite) Kind() Kind { return KindDendrite }

// Driven reports whether the series was replaced by a seeded stimulus.
func (d *Dendrite) Driven() bool {
	return d.driven
}

// Seed replaces the potential series with a precomputed stimulus. The
// stimulus must cover every step of the run.
func (d *Dendrite) Seed(values []float64) {
	d.potential.reset(values)
	d.driven = true
}

// Covers returns ErrStimulusExhausted when a driven Dendrite has no
// stimulus sample for step t. Undriven dendrites always cover t.
func (d *Dendrite) Covers(t int) error {
	if d.driven && t >= d.potential.Len() {
		return fmt.Errorf("%w: step %d, stimulus length %d", ErrStimulusExhausted, t, d.potential.Len())
	}
	return nil
}

// Compute evaluates step t and appends potential[t+1].
func (d *Dendrite) Compute(t int, src Source) error {
	if d.driven {
		return d.Covers(t)
	}

	p, err := d.current(t)
	if err != nil {
		return err
	}

	input := 0.0
	for _, in := range d.inputs {
		v, err := src.SynapseValue(in)
		if err != nil {
			return fmt.Errorf("input %d: %w", in, err)
		}
		input += v
	}

	d.advance(t, p, p, func(p float64) float64 {
		if t%d.params.LeakEvery == 0 && t != 0 {
			p -= d.params.Leak
		} else {
			p += d.params.Integrate
		}
		if input > 0 {
			p += d.params.InputBoost
		}
		return p
	})
	return nil
}
