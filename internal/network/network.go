// Package network composes units into a directed acyclic graph and drives
// the time-stepped evaluation loop.
//
// The Network is an arena: it owns every unit, hands out integer IDs, and is
// the only party that mutates unit state, one step at a time in topological
// order. A Network is not safe for concurrent use.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nvandessel/spikenet/internal/units"
)

var (
	// ErrCycle is returned when the wiring contains a cycle.
	ErrCycle = errors.New("network: wiring contains a cycle")

	// ErrInvalidWiring is returned for an edge between incompatible kinds.
	ErrInvalidWiring = errors.New("network: invalid wiring")

	// ErrUnknownUnit is returned for an ID outside the arena.
	ErrUnknownUnit = errors.New("network: unknown unit")

	// ErrFrozen is returned when mutating wiring after the run started.
	ErrFrozen = errors.New("network: wiring is frozen once the run starts")
)

// StepError reports the unit that failed during a step.
type StepError struct {
	Step int
	Unit units.ID
	Name string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d, unit %s (%d): %v", e.Step, e.Name, e.Unit, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Transition records a phase change observed after a step.
type Transition struct {
	Step      int         `json:"step"`
	Unit      units.ID    `json:"unit"`
	Name      string      `json:"name"`
	Kind      units.Kind  `json:"kind"`
	From      units.Phase `json:"from"`
	To        units.Phase `json:"to"`
	Potential float64     `json:"potential"`
}

// Edge is a wiring relation: From feeds To.
type Edge struct {
	From units.ID `json:"from"`
	To   units.ID `json:"to"`
}

// levelTrace matches logging.LevelTrace; every unit value is logged per
// step at this level.
const levelTrace = slog.LevelDebug - 4

// Option configures a Network.
type Option func(*Network)

// WithLogger sets the logger used for per-step debug output.
func WithLogger(l *slog.Logger) Option {
	return func(n *Network) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithTransitionHook registers a callback for every phase change.
func WithTransitionHook(fn func(Transition)) Option {
	return func(n *Network) {
		n.transitionHooks = append(n.transitionHooks, fn)
	}
}

// WithStepHook registers a callback run after each completed step. Hooks
// must not touch unit state; a returned error aborts the run.
func WithStepHook(fn func(ctx context.Context, step int) error) Option {
	return func(n *Network) {
		n.stepHooks = append(n.stepHooks, fn)
	}
}

// Network owns the units and drives evaluation.
type Network struct {
	units  []units.Unit
	names  []string
	byName map[string]units.ID

	order   []units.ID
	next    int
	started bool

	logger          *slog.Logger
	transitionHooks []func(Transition)
	stepHooks       []func(ctx context.Context, step int) error
}

// New creates an empty network.
func New(opts ...Option) *Network {
	n := &Network{
		byName: make(map[string]units.ID),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// AddDendrite adds a resting Dendrite.
func (n *Network) AddDendrite(name string) (units.ID, error) {
	return n.add(name, func(id units.ID) units.Unit { return units.NewDendrite(id) })
}

// AddSynapse adds a Synapse.
func (n *Network) AddSynapse(name string) (units.ID, error) {
	return n.add(name, func(id units.ID) units.Unit { return units.NewSynapse(id) })
}

// AddNeuron adds a resting Neuron.
func (n *Network) AddNeuron(name string) (units.ID, error) {
	return n.add(name, func(id units.ID) units.Unit { return units.NewNeuron(id) })
}

// Add adds a unit of the given kind.
func (n *Network) Add(kind units.Kind, name string) (units.ID, error) {
	switch kind {
	case units.KindDendrite:
		return n.AddDendrite(name)
	case units.KindSynapse:
		return n.AddSynapse(name)
	case units.KindNeuron:
		return n.AddNeuron(name)
	default:
		return 0, fmt.Errorf("unknown unit kind %q", kind)
	}
}

func (n *Network) add(name string, build func(units.ID) units.Unit) (units.ID, error) {
	if n.started {
		return 0, ErrFrozen
	}
	id := units.ID(len(n.units))
	if name == "" {
		name = fmt.Sprintf("u%d", id)
	}
	if _, exists := n.byName[name]; exists {
		return 0, fmt.Errorf("unit name %q already used", name)
	}
	n.units = append(n.units, build(id))
	n.names = append(n.names, name)
	n.byName[name] = id
	n.order = nil
	return id, nil
}

// Connect wires from as an input of to. Allowed edges are
// dendrite->synapse, synapse->dendrite and dendrite->neuron.
func (n *Network) Connect(from, to units.ID) error {
	if n.started {
		return ErrFrozen
	}
	src, err := n.unit(from)
	if err != nil {
		return err
	}
	dst, err := n.unit(to)
	if err != nil {
		return err
	}
	if !allowed(src.Kind(), dst.Kind()) {
		return fmt.Errorf("%w: %s %s -> %s %s", ErrInvalidWiring, src.Kind(), n.names[from], dst.Kind(), n.names[to])
	}
	dst.AddInput(from)
	n.order = nil
	return nil
}

func allowed(from, to units.Kind) bool {
	switch to {
	case units.KindDendrite:
		return from == units.KindSynapse
	case units.KindSynapse, units.KindNeuron:
		return from == units.KindDendrite
	}
	return false
}

// Seed replaces a Dendrite's series with a precomputed stimulus.
func (n *Network) Seed(id units.ID, values []float64) error {
	if n.started {
		return ErrFrozen
	}
	u, err := n.unit(id)
	if err != nil {
		return err
	}
	d, ok := u.(*units.Dendrite)
	if !ok {
		return fmt.Errorf("%w: seed target %s is a %s", ErrInvalidWiring, n.names[id], u.Kind())
	}
	if len(values) == 0 {
		return fmt.Errorf("seed for %s is empty", n.names[id])
	}
	d.Seed(values)
	return nil
}

// Lookup returns the ID of a named unit.
func (n *Network) Lookup(name string) (units.ID, bool) {
	id, ok := n.byName[name]
	return id, ok
}

// Name returns the name of a unit.
func (n *Network) Name(id units.ID) string {
	if int(id) < 0 || int(id) >= len(n.names) {
		return ""
	}
	return n.names[id]
}

// Len returns the number of units.
func (n *Network) Len() int {
	return len(n.units)
}

// Steps returns the number of completed steps.
func (n *Network) Steps() int {
	return n.next
}

func (n *Network) unit(id units.ID) (units.Unit, error) {
	if int(id) < 0 || int(id) >= len(n.units) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownUnit, id)
	}
	return n.units[id], nil
}
