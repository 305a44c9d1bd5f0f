package stimulus

import "fmt"

// EncoderParams holds the spike encoder constants. Windows are in steps.
type EncoderParams struct {
	RestingPotential float64
	// Threshold is compared against the summed signal with >=.
	Threshold        float64
	SpikeOnset       float64
	Peak             float64
	AfterHyperDrop   float64
	HoldWindow       int
	AfterHyperWindow int
	Recovery         float64
	RefractoryWindow int
}

// DefaultEncoderParams returns the canonical encoder constants.
func DefaultEncoderParams() EncoderParams {
	return EncoderParams{
		RestingPotential: -70.0,
		Threshold:        0.5,
		SpikeOnset:       -55.0,
		Peak:             40.0,
		AfterHyperDrop:   60.0,
		HoldWindow:       2,
		AfterHyperWindow: 4,
		Recovery:         15.5,
		RefractoryWindow: 3,
	}
}

// Encode sums the signals per step and converts the result into a potential
// series with one spike per threshold crossing. All signals must share the
// same length; the output has that length.
func Encode(signals [][]float64, p EncoderParams) ([]float64, error) {
	if len(signals) == 0 {
		return nil, fmt.Errorf("encode: at least one signal is required")
	}
	length := len(signals[0])
	for i, s := range signals {
		if len(s) != length {
			return nil, fmt.Errorf("encode: signal %d has length %d, want %d", i, len(s), length)
		}
	}

	var (
		potential      = p.RestingPotential
		activated      bool
		refract        bool
		activationTime int
		refractionTime int
		out            = make([]float64, 0, length)
	)

	for t := 0; t < length; t++ {
		input := 0.0
		for _, s := range signals {
			input += s[t]
		}

		switch {
		case activated:
			elapsed := t - activationTime
			switch {
			case elapsed < p.HoldWindow:
				potential = p.Peak
			case elapsed < p.AfterHyperWindow:
				potential -= p.AfterHyperDrop
			default:
				activated = false
				refract = true
				refractionTime = t
			}
		case refract:
			potential += p.Recovery
			if t-refractionTime < p.RefractoryWindow {
				refract = false
				potential = p.RestingPotential
			}
		case input >= p.Threshold:
			activated = true
			activationTime = t
			potential = p.SpikeOnset
		}

		out = append(out, potential)
	}
	return out, nil
}
