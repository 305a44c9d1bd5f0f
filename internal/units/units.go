// Package units implements the discrete-time signal-processing units of a
// spikenet network: Dendrites and Neurons, which walk a three-phase
// resting/activated/refractory state machine and record a potential series,
// and Synapses, which transmit a smoothed, saturated current.
//
// Units never hold references to each other. Inputs are stored as IDs and
// resolved through a Source at compute time, so a unit may feed any number
// of downstream units while the composer owns the canonical state.
package units

import "fmt"

// ID identifies a unit inside a network arena.
type ID int

// Kind names the concrete unit variant.
type Kind string

const (
	KindDendrite Kind = "dendrite"
	KindSynapse  Kind = "synapse"
	KindNeuron   Kind = "neuron"
)

// ParseKind maps a kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDendrite, KindSynapse, KindNeuron:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown unit kind %q (valid: dendrite, synapse, neuron)", s)
	}
}

// Source resolves upstream readings while a unit computes a step.
type Source interface {
	// PotentialAt returns potential[t] of a Dendrite or Neuron.
	PotentialAt(id ID, t int) (float64, error)

	// SynapseValue returns the current value of a Synapse.
	SynapseValue(id ID) (float64, error)
}

// Unit is the capability set shared by every unit variant.
type Unit interface {
	ID() ID
	Kind() Kind
	Inputs() []ID
	AddInput(id ID)

	// Compute evaluates step t. Every input must already be evaluated
	// for t.
	Compute(t int, src Source) error
}

// Stateful is implemented by units that own a potential series and a phase.
type Stateful interface {
	Unit
	Series() *Series
	State() State
}

// State is a read-only snapshot of a stateful unit.
type State struct {
	Phase          Phase `json:"phase"`
	Activated      bool  `json:"activated"`
	Refract        bool  `json:"refract"`
	ActivationTime int   `json:"activation_time"`
	RefractionTime int   `json:"refraction_time"`
	Length         int   `json:"length"`
}

// inputList is the ordered, append-only input collection embedded by all
// unit variants.
type inputList struct {
	inputs []ID
}

// Inputs returns a copy of the input IDs in wiring order.
func (l *inputList) Inputs() []ID {
	return append([]ID(nil), l.inputs...)
}

// AddInput appends an upstream unit.
func (l *inputList) AddInput(id ID) {
	l.inputs = append(l.inputs, id)
}
