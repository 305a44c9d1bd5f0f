// Package scenario describes a network in YAML (stimuli, units, wiring and
// run length) and builds it into a runnable network.Network.
package scenario

import (
	"fmt"
	"os"

	"github.com/nvandessel/spikenet/internal/network"
	"github.com/nvandessel/spikenet/internal/stimulus"
	"github.com/nvandessel/spikenet/internal/units"
	"gopkg.in/yaml.v3"
)

// Stimulus kinds.
const (
	StimulusLogic    = "logic"
	StimulusRandom   = "random"
	StimulusCosine   = "cosine"
	StimulusXOR      = "xor"
	StimulusConstant = "constant"
)

// Scenario is a complete, runnable network description.
type Scenario struct {
	Name    string         `json:"name" yaml:"name"`
	Steps   int            `json:"steps" yaml:"steps"`
	Stimuli []StimulusSpec `json:"stimuli,omitempty" yaml:"stimuli,omitempty"`
	Units   []UnitSpec     `json:"units" yaml:"units"`
}

// StimulusSpec describes one generated input sequence.
type StimulusSpec struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`

	// Length overrides the sequence length. Zero means the scenario's
	// step count.
	Length int `json:"length,omitempty" yaml:"length,omitempty"`

	// Interval is the pulse spacing for logic waves.
	Interval int `json:"interval,omitempty" yaml:"interval,omitempty"`

	// Amplitude of logic pulses and cosine waves. Zero selects the
	// default (0.6 for logic, 1 for cosine).
	Amplitude float64 `json:"amplitude,omitempty" yaml:"amplitude,omitempty"`

	// Scale and Seed parameterize random noise.
	Scale float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
	Seed  uint64  `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Period is the cosine cycle length in steps.
	Period int `json:"period,omitempty" yaml:"period,omitempty"`

	// Of names the two raw stimuli combined by xor.
	Of []string `json:"of,omitempty" yaml:"of,omitempty"`

	// Level is the xor high level and the constant value.
	Level float64 `json:"level,omitempty" yaml:"level,omitempty"`

	// Encode passes the raw signal through the spike encoder.
	Encode bool `json:"encode,omitempty" yaml:"encode,omitempty"`
}

// UnitSpec describes one unit and its inputs.
type UnitSpec struct {
	Name     string   `json:"name" yaml:"name"`
	Kind     string   `json:"kind" yaml:"kind"`
	Inputs   []string `json:"inputs,omitempty" yaml:"inputs,omitempty,flow"`
	Stimulus string   `json:"stimulus,omitempty" yaml:"stimulus,omitempty"`
}

// Load reads a scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Marshal encodes the scenario as YAML.
func (s *Scenario) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate checks names, kinds and references. It does not check for
// cycles; Build reports those through the network.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if s.Steps <= 0 {
		return fmt.Errorf("scenario %s: steps must be positive, got %d", s.Name, s.Steps)
	}

	stimuli := make(map[string]bool, len(s.Stimuli))
	for _, st := range s.Stimuli {
		if st.Name == "" {
			return fmt.Errorf("scenario %s: stimulus name is required", s.Name)
		}
		if stimuli[st.Name] {
			return fmt.Errorf("scenario %s: duplicate stimulus %q", s.Name, st.Name)
		}
		switch st.Kind {
		case StimulusLogic, StimulusRandom, StimulusCosine, StimulusConstant:
		case StimulusXOR:
			if len(st.Of) != 2 {
				return fmt.Errorf("scenario %s: xor stimulus %q needs exactly two sources", s.Name, st.Name)
			}
			for _, ref := range st.Of {
				if !stimuli[ref] {
					return fmt.Errorf("scenario %s: xor stimulus %q references unknown or later stimulus %q", s.Name, st.Name, ref)
				}
			}
		default:
			return fmt.Errorf("scenario %s: stimulus %q has unknown kind %q", s.Name, st.Name, st.Kind)
		}
		if st.Length < 0 {
			return fmt.Errorf("scenario %s: stimulus %q has negative length", s.Name, st.Name)
		}
		if st.Length > s.Steps {
			return fmt.Errorf("scenario %s: stimulus %q length %d exceeds %d steps", s.Name, st.Name, st.Length, s.Steps)
		}
		stimuli[st.Name] = true
	}

	kinds := make(map[string]units.Kind, len(s.Units))
	for _, u := range s.Units {
		if u.Name == "" {
			return fmt.Errorf("scenario %s: unit name is required", s.Name)
		}
		if _, dup := kinds[u.Name]; dup {
			return fmt.Errorf("scenario %s: duplicate unit %q", s.Name, u.Name)
		}
		kind, err := units.ParseKind(u.Kind)
		if err != nil {
			return fmt.Errorf("scenario %s: unit %q: %w", s.Name, u.Name, err)
		}
		kinds[u.Name] = kind
	}
	if len(kinds) == 0 {
		return fmt.Errorf("scenario %s: at least one unit is required", s.Name)
	}

	for _, u := range s.Units {
		for _, in := range u.Inputs {
			if _, ok := kinds[in]; !ok {
				return fmt.Errorf("scenario %s: unit %q has unknown input %q", s.Name, u.Name, in)
			}
		}
		if u.Stimulus != "" {
			if kinds[u.Name] != units.KindDendrite {
				return fmt.Errorf("scenario %s: only dendrites take a stimulus, %q is a %s", s.Name, u.Name, u.Kind)
			}
			if !stimuli[u.Stimulus] {
				return fmt.Errorf("scenario %s: unit %q references unknown stimulus %q", s.Name, u.Name, u.Stimulus)
			}
		}
	}
	return nil
}

// Build generates the stimuli, creates and wires the units, and seeds the
// driven dendrites.
func (s *Scenario) Build(opts ...network.Option) (*network.Network, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	signals, err := s.Signals()
	if err != nil {
		return nil, err
	}

	net := network.New(opts...)
	for _, u := range s.Units {
		if _, err := net.Add(units.Kind(u.Kind), u.Name); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}
	for _, u := range s.Units {
		to, _ := net.Lookup(u.Name)
		for _, in := range u.Inputs {
			from, _ := net.Lookup(in)
			if err := net.Connect(from, to); err != nil {
				return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
			}
		}
		if u.Stimulus != "" {
			if err := net.Seed(to, signals[u.Stimulus]); err != nil {
				return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
			}
		}
	}
	if _, err := net.Order(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return net, nil
}

// Signals generates every stimulus, applying the encoder where requested.
func (s *Scenario) Signals() (map[string][]float64, error) {
	raw := make(map[string][]float64, len(s.Stimuli))
	out := make(map[string][]float64, len(s.Stimuli))

	for _, st := range s.Stimuli {
		values, err := s.generate(st, raw)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: stimulus %q: %w", s.Name, st.Name, err)
		}
		raw[st.Name] = values
		if st.Encode {
			values, err = stimulus.Encode([][]float64{values}, stimulus.DefaultEncoderParams())
			if err != nil {
				return nil, fmt.Errorf("scenario %s: stimulus %q: %w", s.Name, st.Name, err)
			}
		}
		out[st.Name] = values
	}
	return out, nil
}

func (s *Scenario) generate(st StimulusSpec, raw map[string][]float64) ([]float64, error) {
	length := st.Length
	if length == 0 {
		length = s.Steps
	}

	switch st.Kind {
	case StimulusLogic:
		amp := st.Amplitude
		if amp == 0 {
			amp = stimulus.DefaultPulseAmplitude
		}
		return stimulus.Pulse(st.Interval, length, amp)
	case StimulusRandom:
		return stimulus.Random(length, st.Scale, st.Seed)
	case StimulusCosine:
		amp := st.Amplitude
		if amp == 0 {
			amp = 1
		}
		return stimulus.Cosine(length, st.Period, amp)
	case StimulusConstant:
		return stimulus.Constant(length, st.Level)
	case StimulusXOR:
		return stimulus.XOR(raw[st.Of[0]], raw[st.Of[1]], st.Level)
	}
	return nil, fmt.Errorf("unknown stimulus kind %q", st.Kind)
}
