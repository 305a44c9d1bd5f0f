// Package store defines the RunStore interface for persisting completed
// simulation runs and their traces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/spikenet/internal/units"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is a completed simulation run.
type RunRecord struct {
	ID          string       `json:"id"`
	Scenario    string       `json:"scenario"`
	Steps       int          `json:"steps"`
	CreatedAt   time.Time    `json:"created_at"`
	Units       []UnitTrace  `json:"units"`
	Transitions []Transition `json:"transitions,omitempty"`
}

// UnitTrace is one unit's wiring and recorded series. Synapses have no
// series and carry an empty Values slice.
type UnitTrace struct {
	Name   string    `json:"name"`
	Kind   string    `json:"kind"`
	Inputs []string  `json:"inputs,omitempty"`
	Values []float64 `json:"values,omitempty"`
}

// Transition is a recorded phase change.
type Transition struct {
	Step      int     `json:"step"`
	Unit      string  `json:"unit"`
	Kind      string  `json:"kind"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Potential float64 `json:"potential"`
}

// RunSummary is the listing view of a run.
type RunSummary struct {
	ID          string    `json:"id"`
	Scenario    string    `json:"scenario"`
	Steps       int       `json:"steps"`
	Units       int       `json:"units"`
	Transitions int       `json:"transitions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary returns the listing view of r.
func (r *RunRecord) Summary() RunSummary {
	return RunSummary{
		ID:          r.ID,
		Scenario:    r.Scenario,
		Steps:       r.Steps,
		Units:       len(r.Units),
		Transitions: len(r.Transitions),
		CreatedAt:   r.CreatedAt,
	}
}

// Unit returns the trace named name, or nil.
func (r *RunRecord) Unit(name string) *UnitTrace {
	for i := range r.Units {
		if r.Units[i].Name == name {
			return &r.Units[i]
		}
	}
	return nil
}

// Activations maps each unit name to the steps at which it entered the
// activated phase, in step order.
func (r *RunRecord) Activations() map[string][]int {
	out := make(map[string][]int)
	for _, tr := range r.Transitions {
		if tr.To == units.Activated.String() {
			out[tr.Unit] = append(out[tr.Unit], tr.Step)
		}
	}
	return out
}

// RunStore defines the interface for storing and querying runs.
type RunStore interface {
	// SaveRun stores a run and returns its ID. A new UUID is assigned when
	// the record has none.
	SaveRun(ctx context.Context, run *RunRecord) (string, error)

	// GetRun returns a run by ID, or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns run summaries, newest first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// DeleteRun removes a run, or returns ErrRunNotFound.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}
