package network

import (
	"fmt"

	"github.com/nvandessel/spikenet/internal/units"
)

// UnitInfo describes a unit in the arena.
type UnitInfo struct {
	ID     units.ID   `json:"id"`
	Name   string     `json:"name"`
	Kind   units.Kind `json:"kind"`
	Inputs []string   `json:"inputs,omitempty"`
	Driven bool       `json:"driven,omitempty"`
}

// Trace is a named potential series.
type Trace struct {
	Name   string     `json:"name"`
	Kind   units.Kind `json:"kind"`
	Values []float64  `json:"values"`
}

// View is a Neuron's series together with the series of its direct inputs.
type View struct {
	Neuron Trace   `json:"neuron"`
	Inputs []Trace `json:"inputs"`
}

// Units lists every unit in insertion order.
func (n *Network) Units() []UnitInfo {
	out := make([]UnitInfo, 0, len(n.units))
	for _, u := range n.units {
		info := UnitInfo{
			ID:   u.ID(),
			Name: n.names[u.ID()],
			Kind: u.Kind(),
		}
		for _, in := range u.Inputs() {
			info.Inputs = append(info.Inputs, n.names[in])
		}
		if d, ok := u.(*units.Dendrite); ok {
			info.Driven = d.Driven()
		}
		out = append(out, info)
	}
	return out
}

// Edges lists every wiring relation, grouped by consumer in insertion order.
func (n *Network) Edges() []Edge {
	var out []Edge
	for _, u := range n.units {
		for _, in := range u.Inputs() {
			out = append(out, Edge{From: in, To: u.ID()})
		}
	}
	return out
}

// Series returns a copy of a Dendrite's or Neuron's potential series.
func (n *Network) Series(id units.ID) ([]float64, error) {
	s, err := n.stateful(id)
	if err != nil {
		return nil, err
	}
	return s.Series().Values(), nil
}

// State returns a snapshot of a Dendrite's or Neuron's phase bookkeeping.
func (n *Network) State(id units.ID) (units.State, error) {
	s, err := n.stateful(id)
	if err != nil {
		return units.State{}, err
	}
	return s.State(), nil
}

// Traces returns the series of every stateful unit in insertion order.
func (n *Network) Traces() []Trace {
	var out []Trace
	for _, u := range n.units {
		s, ok := u.(units.Stateful)
		if !ok {
			continue
		}
		out = append(out, Trace{
			Name:   n.names[u.ID()],
			Kind:   u.Kind(),
			Values: s.Series().Values(),
		})
	}
	return out
}

// View returns a Neuron's series and the series of each direct input.
func (n *Network) View(id units.ID) (View, error) {
	u, err := n.unit(id)
	if err != nil {
		return View{}, err
	}
	neuron, ok := u.(*units.Neuron)
	if !ok {
		return View{}, fmt.Errorf("%w: %s is not a neuron", units.ErrWrongKind, n.names[id])
	}

	v := View{
		Neuron: Trace{Name: n.names[id], Kind: units.KindNeuron, Values: neuron.Series().Values()},
	}
	for _, in := range neuron.Inputs() {
		values, err := n.Series(in)
		if err != nil {
			return View{}, err
		}
		v.Inputs = append(v.Inputs, Trace{Name: n.names[in], Kind: n.units[in].Kind(), Values: values})
	}
	return v, nil
}

func (n *Network) stateful(id units.ID) (units.Stateful, error) {
	u, err := n.unit(id)
	if err != nil {
		return nil, err
	}
	s, ok := u.(units.Stateful)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no potential", units.ErrWrongKind, n.names[id])
	}
	return s, nil
}
