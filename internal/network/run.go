package network

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvandessel/spikenet/internal/units"
)

// Step evaluates the next step for every unit in topological order. The
// first call freezes the wiring. A unit failure aborts the step with a
// *StepError; the network must not be stepped again afterwards.
//
// Driven dendrites are checked before any unit computes, so a stimulus
// that ends early leaves every series at the previous step.
func (n *Network) Step(ctx context.Context) error {
	order, err := n.Order()
	if err != nil {
		return err
	}
	n.started = true

	t := n.next
	for _, id := range order {
		if d, ok := n.units[id].(*units.Dendrite); ok {
			if err := d.Covers(t); err != nil {
				return &StepError{Step: t, Unit: id, Name: n.names[id], Err: err}
			}
		}
	}
	before := n.phases()

	for _, id := range order {
		u := n.units[id]
		if err := u.Compute(t, n); err != nil {
			return &StepError{Step: t, Unit: id, Name: n.names[id], Err: err}
		}
	}
	n.next++

	n.reportTransitions(t, before)

	if n.logger.Enabled(ctx, slog.LevelDebug) {
		n.logger.Debug("step completed", "step", t, "units", len(order))
	}
	if n.logger.Enabled(ctx, levelTrace) {
		n.traceValues(ctx, t)
	}

	for _, hook := range n.stepHooks {
		if err := hook(ctx, t); err != nil {
			return fmt.Errorf("step hook at step %d: %w", t, err)
		}
	}
	return nil
}

// Run evaluates steps more steps. The context is checked between steps; a
// cancelled context aborts the whole run.
func (n *Network) Run(ctx context.Context, steps int) error {
	if steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", steps)
	}
	if _, err := n.Order(); err != nil {
		return err
	}

	n.logger.Info("run started", "units", len(n.units), "steps", steps, "from", n.next)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run aborted at step %d: %w", n.next, err)
		}
		if err := n.Step(ctx); err != nil {
			return err
		}
	}
	n.logger.Info("run completed", "steps", n.next)
	return nil
}

// PotentialAt implements units.Source.
func (n *Network) PotentialAt(id units.ID, t int) (float64, error) {
	u, err := n.unit(id)
	if err != nil {
		return 0, err
	}
	s, ok := u.(units.Stateful)
	if !ok {
		return 0, fmt.Errorf("%w: %s has no potential", units.ErrWrongKind, n.names[id])
	}
	return s.Series().At(t)
}

// SynapseValue implements units.Source and returns a Synapse's current value.
func (n *Network) SynapseValue(id units.ID) (float64, error) {
	u, err := n.unit(id)
	if err != nil {
		return 0, err
	}
	s, ok := u.(*units.Synapse)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a synapse", units.ErrWrongKind, n.names[id])
	}
	return s.Value(), nil
}

func (n *Network) traceValues(ctx context.Context, t int) {
	for _, u := range n.units {
		s, ok := u.(units.Stateful)
		if !ok {
			continue
		}
		p := potentialAfter(s, t)
		n.logger.Log(ctx, levelTrace, "unit value",
			"step", t, "unit", n.names[u.ID()], "phase", s.State().Phase.String(), "potential", p)
	}
}

func (n *Network) phases() map[units.ID]units.Phase {
	if len(n.transitionHooks) == 0 {
		return nil
	}
	out := make(map[units.ID]units.Phase)
	for _, u := range n.units {
		if s, ok := u.(units.Stateful); ok {
			out[u.ID()] = s.State().Phase
		}
	}
	return out
}

func (n *Network) reportTransitions(t int, before map[units.ID]units.Phase) {
	if before == nil {
		return
	}
	for _, u := range n.units {
		s, ok := u.(units.Stateful)
		if !ok {
			continue
		}
		to := s.State().Phase
		from := before[u.ID()]
		if from == to {
			continue
		}
		p := potentialAfter(s, t)
		tr := Transition{
			Step:      t,
			Unit:      u.ID(),
			Name:      n.names[u.ID()],
			Kind:      u.Kind(),
			From:      from,
			To:        to,
			Potential: p,
		}
		for _, hook := range n.transitionHooks {
			hook(tr)
		}
	}
}

// potentialAfter is the value a unit holds once step t is done: the newly
// appended sample, or the stimulus sample at t for a driven dendrite.
func potentialAfter(s units.Stateful, t int) float64 {
	if d, ok := s.(*units.Dendrite); ok && d.Driven() {
		p, _ := d.Series().At(t)
		return p
	}
	p, _ := s.Series().Last()
	return p
}
