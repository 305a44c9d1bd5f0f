// Package stimulus generates precomputed input sequences for seeding driven
// dendrites: pulse trains, seeded noise, cosine waves, the XOR of two
// waves, and a spike encoder turning a raw signal into a potential series.
//
// Every generator is a pure function of its arguments; sequences are
// indexed by step and never depend on wall-clock time.
package stimulus

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// DefaultPulseAmplitude is the level of a logic pulse. It sits above the
// encoder threshold so every pulse produces one encoded spike.
const DefaultPulseAmplitude = 0.6

// Pulse returns a logic wave of the given length that is amplitude at every
// nonzero multiple of interval and 0 elsewhere.
func Pulse(interval, length int, amplitude float64) ([]float64, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("pulse interval must be positive, got %d", interval)
	}
	if length < 0 {
		return nil, fmt.Errorf("length must be non-negative, got %d", length)
	}
	out := make([]float64, length)
	for t := range out {
		if t%interval == 0 && t != 0 {
			out[t] = amplitude
		}
	}
	return out, nil
}

// Random returns uniform noise in [0, scale). The same seed always yields
// the same sequence.
func Random(length int, scale float64, seed uint64) ([]float64, error) {
	if length < 0 {
		return nil, fmt.Errorf("length must be non-negative, got %d", length)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, length)
	for t := range out {
		out[t] = scale * rng.Float64()
	}
	return out, nil
}

// Cosine returns amplitude*cos(2πt/period), one cycle every period steps.
func Cosine(length, period int, amplitude float64) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("cosine period must be positive, got %d", period)
	}
	if length < 0 {
		return nil, fmt.Errorf("length must be non-negative, got %d", length)
	}
	out := make([]float64, length)
	for t := range out {
		out[t] = amplitude * math.Cos(2*math.Pi*float64(t)/float64(period))
	}
	return out, nil
}

// Constant returns a flat sequence.
func Constant(length int, level float64) ([]float64, error) {
	if length < 0 {
		return nil, fmt.Errorf("length must be non-negative, got %d", length)
	}
	out := make([]float64, length)
	for t := range out {
		out[t] = level
	}
	return out, nil
}

// XOR returns 1 where exactly one of a and b is at or above level and 0
// elsewhere. Both inputs must have the same length.
func XOR(a, b []float64, level float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("xor inputs differ in length: %d != %d", len(a), len(b))
	}
	out := make([]float64, len(a))
	for t := range a {
		if (a[t] >= level) != (b[t] >= level) {
			out[t] = 1
		}
	}
	return out, nil
}
