package scenario

import (
	"context"

	"github.com/nvandessel/spikenet/internal/network"
	"github.com/nvandessel/spikenet/internal/store"
)

// Run builds the scenario, runs it and returns the recorded run. steps > 0
// overrides the scenario's step count, and stimuli are generated to match;
// explicit stimulus lengths are capped at the new count.
// When the run fails part way, the partial record is returned with the
// error.
func (s *Scenario) Run(ctx context.Context, steps int, opts ...network.Option) (*store.RunRecord, error) {
	sc := *s
	if steps > 0 {
		sc.Steps = steps
		sc.Stimuli = append([]StimulusSpec(nil), s.Stimuli...)
		for i := range sc.Stimuli {
			sc.Stimuli[i].Length = min(sc.Stimuli[i].Length, steps)
		}
	}

	rec := store.NewRecorder()
	opts = append(opts, network.WithTransitionHook(rec.Observe))
	net, err := sc.Build(opts...)
	if err != nil {
		return nil, err
	}

	runErr := net.Run(ctx, sc.Steps)
	return rec.Snapshot(sc.Name, net), runErr
}
