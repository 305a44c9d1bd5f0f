package scenario

import (
	"fmt"
	"sort"
)

var builtins = map[string]func() *Scenario{
	"demo":  Demo,
	"xor":   XORGate,
	"noise": Noise,
}

// BuiltinNames lists the built-in scenarios.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of a built-in scenario.
func Builtin(name string) (*Scenario, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (built-in: %v)", name, BuiltinNames())
	}
	return fn(), nil
}

// Demo is the reference network: two dendrites driven by encoded pulse
// trains (every 10th and every 20th step), each feeding a synapse, each
// synapse feeding a dendrite, and both dendrites feeding one neuron.
func Demo() *Scenario {
	return &Scenario{
		Name:  "demo",
		Steps: 100,
		Stimuli: []StimulusSpec{
			{Name: "pulse10", Kind: StimulusLogic, Interval: 10, Encode: true},
			{Name: "pulse20", Kind: StimulusLogic, Interval: 20, Encode: true},
		},
		Units: []UnitSpec{
			{Name: "d1", Kind: "dendrite", Stimulus: "pulse10"},
			{Name: "d2", Kind: "dendrite", Stimulus: "pulse20"},
			{Name: "s1", Kind: "synapse", Inputs: []string{"d1"}},
			{Name: "s2", Kind: "synapse", Inputs: []string{"d2"}},
			{Name: "d3", Kind: "dendrite", Inputs: []string{"s1"}},
			{Name: "d4", Kind: "dendrite", Inputs: []string{"s2"}},
			{Name: "n1", Kind: "neuron", Inputs: []string{"d3", "d4"}},
		},
	}
}

// XORGate drives one dendrite with the encoded XOR of two pulse trains.
func XORGate() *Scenario {
	return &Scenario{
		Name:  "xor",
		Steps: 100,
		Stimuli: []StimulusSpec{
			{Name: "a", Kind: StimulusLogic, Interval: 10},
			{Name: "b", Kind: StimulusLogic, Interval: 15},
			{Name: "a_xor_b", Kind: StimulusXOR, Of: []string{"a", "b"}, Level: 0.5, Encode: true},
		},
		Units: []UnitSpec{
			{Name: "in", Kind: "dendrite", Stimulus: "a_xor_b"},
			{Name: "s", Kind: "synapse", Inputs: []string{"in"}},
			{Name: "d", Kind: "dendrite", Inputs: []string{"s"}},
			{Name: "n", Kind: "neuron", Inputs: []string{"d"}},
		},
	}
}

// Noise drives a dendrite with encoded, seeded random noise.
func Noise() *Scenario {
	return &Scenario{
		Name:  "noise",
		Steps: 100,
		Stimuli: []StimulusSpec{
			{Name: "noise", Kind: StimulusRandom, Scale: 0.6, Seed: 7, Encode: true},
		},
		Units: []UnitSpec{
			{Name: "in", Kind: "dendrite", Stimulus: "noise"},
			{Name: "s", Kind: "synapse", Inputs: []string{"in"}},
			{Name: "d", Kind: "dendrite", Inputs: []string{"s"}},
			{Name: "n", Kind: "neuron", Inputs: []string{"d"}},
		},
	}
}
