package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/spikenet/internal/network"
)

// Recorder collects phase transitions while a network runs. Pass
// Recorder.Observe to network.WithTransitionHook.
type Recorder struct {
	mu          sync.Mutex
	transitions []Transition
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Observe records a transition.
func (r *Recorder) Observe(tr network.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, Transition{
		Step:      tr.Step,
		Unit:      tr.Name,
		Kind:      string(tr.Kind),
		From:      tr.From.String(),
		To:        tr.To.String(),
		Potential: tr.Potential,
	})
}

// Transitions returns a copy of the recorded transitions.
func (r *Recorder) Transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transition(nil), r.transitions...)
}

// Snapshot builds a RunRecord from the network's current readouts. The
// record gets a fresh ID and the current time.
func (r *Recorder) Snapshot(scenario string, net *network.Network) *RunRecord {
	rec := &RunRecord{
		ID:        uuid.NewString(),
		Scenario:  scenario,
		Steps:     net.Steps(),
		CreatedAt: time.Now().UTC(),
	}

	series := make(map[string][]float64)
	for _, tr := range net.Traces() {
		series[tr.Name] = tr.Values
	}
	for _, u := range net.Units() {
		rec.Units = append(rec.Units, UnitTrace{
			Name:   u.Name,
			Kind:   string(u.Kind),
			Inputs: u.Inputs,
			Values: series[u.Name],
		})
	}
	if r != nil {
		rec.Transitions = r.Transitions()
	}
	return rec
}
