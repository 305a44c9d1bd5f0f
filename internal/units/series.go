package units

import "fmt"

// Series is an append-only potential time series. Index t holds the value
// in effect at step t.
type Series struct {
	values []float64
}

// NewSeries creates a series holding the given seed values.
func NewSeries(seed ...float64) *Series {
	return &Series{values: append([]float64(nil), seed...)}
}

// Len returns the number of values recorded.
func (s *Series) Len() int {
	return len(s.values)
}

// At returns the value at index t. Reading past the end fails with
// ErrNotComputed.
func (s *Series) At(t int) (float64, error) {
	if t < 0 || t >= len(s.values) {
		return 0, fmt.Errorf("%w: index %d, length %d", ErrNotComputed, t, len(s.values))
	}
	return s.values[t], nil
}

// Last returns the most recent value, or false for an empty series.
func (s *Series) Last() (float64, bool) {
	if len(s.values) == 0 {
		return 0, false
	}
	return s.values[len(s.values)-1], true
}

// Values returns a copy of the recorded values.
func (s *Series) Values() []float64 {
	return append([]float64(nil), s.values...)
}

func (s *Series) append(v float64) {
	s.values = append(s.values, v)
}

func (s *Series) reset(values []float64) {
	s.values = append(s.values[:0:0], values...)
}
