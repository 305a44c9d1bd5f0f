package units

import "fmt"

// Phase is the state of a Dendrite or Neuron. Activated and Refractory are
// mutually exclusive by construction.
type Phase int

const (
	// Resting units integrate input and may cross threshold.
	Resting Phase = iota
	// Activated units are in the depolarization phase.
	Activated
	// Refractory units are recovering and cannot re-activate.
	Refractory
)

func (p Phase) String() string {
	switch p {
	case Resting:
		return "resting"
	case Activated:
		return "activated"
	case Refractory:
		return "refractory"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText renders the phase name in JSON and YAML output.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
