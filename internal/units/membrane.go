package units

import "fmt"

// membrane is the state machine shared by Dendrite and Neuron. The two
// variants differ only in what is compared against the threshold and in
// the sub-threshold update.
type membrane struct {
	params         Params
	potential      *Series
	phase          Phase
	activationTime int
	refractionTime int
}

func newMembrane(p Params) membrane {
	return membrane{
		params:    p,
		potential: NewSeries(p.RestingPotential),
	}
}

// Series returns the unit's potential series. Callers must not append to it.
func (m *membrane) Series() *Series {
	return m.potential
}

// Params returns the unit's constants.
func (m *membrane) Params() Params {
	return m.params
}

// Phase returns the current phase.
func (m *membrane) Phase() Phase {
	return m.phase
}

// Activated reports whether the unit is in the depolarization phase.
func (m *membrane) Activated() bool {
	return m.phase == Activated
}

// Refractory reports whether the unit is recovering.
func (m *membrane) Refractory() bool {
	return m.phase == Refractory
}

// ActivationTime returns the step at which the unit last activated.
func (m *membrane) ActivationTime() int {
	return m.activationTime
}

// RefractionTime returns the step at which the unit last became refractory.
func (m *membrane) RefractionTime() int {
	return m.refractionTime
}

// State returns a snapshot of the phase bookkeeping.
func (m *membrane) State() State {
	return State{
		Phase:          m.phase,
		Activated:      m.Activated(),
		Refract:        m.Refractory(),
		ActivationTime: m.activationTime,
		RefractionTime: m.refractionTime,
		Length:         m.potential.Len(),
	}
}

// current checks that step t is the next one to compute and returns
// potential[t].
func (m *membrane) current(t int) (float64, error) {
	n := m.potential.Len()
	switch {
	case t+1 > n:
		return 0, fmt.Errorf("%w: step %d, series length %d", ErrOutOfOrder, t, n)
	case t+1 < n:
		return 0, fmt.Errorf("%w: step %d, series length %d", ErrAlreadyComputed, t, n)
	}
	return m.potential.At(t)
}

// advance runs one step of the phase machine from potential p and appends
// the result. crossing is the quantity compared against the threshold
// while resting; rest computes the sub-threshold potential.
func (m *membrane) advance(t int, p, crossing float64, rest func(p float64) float64) {
	switch m.phase {
	case Activated:
		elapsed := t - m.activationTime
		switch {
		case elapsed < m.params.HoldWindow:
			p = m.params.Peak
		case elapsed < m.params.AfterHyperWindow:
			p -= m.params.AfterHyperDrop
		default:
			m.phase = Refractory
			m.refractionTime = t
		}

	case Refractory:
		elapsed := t - m.refractionTime
		p += m.params.Recovery
		// Exit check is elapsed < window, so the phase ends on its first
		// evaluated step.
		if elapsed < m.params.RefractoryWindow {
			m.phase = Resting
			p = m.params.RestingPotential
		}

	default:
		if crossing > m.params.Threshold {
			m.phase = Activated
			m.activationTime = t
			p = m.params.SpikeOnset
		} else {
			p = rest(p)
		}
	}

	m.potential.append(p)
}
