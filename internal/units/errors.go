package units

import "errors"

var (
	// ErrNotComputed is returned when reading a series index that has not
	// been produced yet.
	ErrNotComputed = errors.New("units: potential not computed for step")

	// ErrOutOfOrder is returned when Compute(t) is called before step t-1
	// completed.
	ErrOutOfOrder = errors.New("units: step evaluated out of order")

	// ErrAlreadyComputed is returned when Compute(t) is called twice.
	ErrAlreadyComputed = errors.New("units: step already computed")

	// ErrStimulusExhausted is returned when a seeded stimulus is shorter
	// than the run.
	ErrStimulusExhausted = errors.New("units: seeded stimulus shorter than run")

	// ErrWrongKind is returned when a Source is asked for a reading the
	// unit cannot provide.
	ErrWrongKind = errors.New("units: unit kind does not provide this reading")
)
