// Package metrics exposes Prometheus counters for simulation runs and MCP
// tool calls. A nil *Metrics is valid and records nothing, so callers can
// wire it unconditionally.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nvandessel/spikenet/internal/network"
)

const namespace = "spikenet"

// Metrics holds the spikenet collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	StepsTotal       prometheus.Counter
	TransitionsTotal *prometheus.CounterVec
	ToolCallsTotal   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "total",
				Help:      "Total number of scenario runs",
			},
			[]string{"scenario", "status"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "duration_seconds",
				Help:      "Wall-clock duration of scenario runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scenario"},
		),

		StepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "network",
				Name:      "steps_total",
				Help:      "Total number of completed network steps",
			},
		),

		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "network",
				Name:      "transitions_total",
				Help:      "Total number of unit phase transitions",
			},
			[]string{"kind", "to"},
		),

		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mcp",
				Name:      "tool_calls_total",
				Help:      "Total number of MCP tool calls",
			},
			[]string{"tool", "status"},
		),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StepsTotal,
		m.TransitionsTotal,
		m.ToolCallsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// NetworkOptions returns the hooks that feed StepsTotal and
// TransitionsTotal from a running network.
func (m *Metrics) NetworkOptions() []network.Option {
	if m == nil {
		return nil
	}
	return []network.Option{
		network.WithTransitionHook(m.ObserveTransition),
		network.WithStepHook(m.countStep),
	}
}

// ObserveTransition counts one phase change.
func (m *Metrics) ObserveTransition(tr network.Transition) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(string(tr.Kind), tr.To.String()).Inc()
}

func (m *Metrics) countStep(ctx context.Context, step int) error {
	m.StepsTotal.Inc()
	return nil
}

// ObserveRun records a finished run and how long it took.
func (m *Metrics) ObserveRun(scenario string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(scenario, status(err)).Inc()
	m.RunDuration.WithLabelValues(scenario).Observe(d.Seconds())
}

// ObserveToolCall records one MCP tool call.
func (m *Metrics) ObserveToolCall(tool string, err error) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
