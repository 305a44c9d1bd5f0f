package visualization

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"github.com/nvandessel/spikenet/internal/store"
	"github.com/nvandessel/spikenet/internal/units"
)

// Panel geometry in SVG user units.
const (
	panelWidth  = 800
	panelHeight = 120
	panelPad    = 6
)

// PlotOptions selects what RenderHTML draws.
type PlotOptions struct {
	// Focus names a Neuron. When set, only that neuron and its direct
	// inputs are plotted, the neuron last.
	Focus string

	// Threshold draws a dashed reference line. Zero disables it.
	Threshold float64

	// Refresh makes the page reload itself from the server every Refresh
	// seconds. Zero disables it.
	Refresh int
}

// DefaultPlotOptions draws every trace with the canonical threshold.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Threshold: units.DefaultDendriteParams().Threshold}
}

// panel is one stacked SVG plot.
type panel struct {
	Name       string
	Kind       string
	Points     string
	Min, Max   float64
	Last       float64
	Samples    int
	ThresholdY float64
	ShowThresh bool
	Spikes     []float64
}

type plotTemplateData struct {
	Title   string
	RunID   string
	Steps   int
	Width   int
	Height  int
	Refresh int
	Panels  []panel
}

// RenderHTML produces a self-contained HTML page with one SVG panel per
// unit series.
func RenderHTML(run *store.RunRecord, opts PlotOptions) ([]byte, error) {
	traces, err := selectTraces(run, opts.Focus)
	if err != nil {
		return nil, err
	}

	spikes := run.Activations()

	data := plotTemplateData{
		Title:   run.Scenario,
		RunID:   run.ID,
		Steps:   run.Steps,
		Width:   panelWidth,
		Height:  panelHeight,
		Refresh: opts.Refresh,
	}
	for _, tr := range traces {
		data.Panels = append(data.Panels, buildPanel(tr, opts.Threshold, spikes[tr.Name]))
	}

	tmplBytes, err := templates.ReadFile("templates/traces.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read HTML template: %w", err)
	}
	tmpl, err := template.New("traces").Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}

// selectTraces returns the units to plot: all units with a series, or the
// focused neuron's inputs followed by the neuron.
func selectTraces(run *store.RunRecord, focus string) ([]store.UnitTrace, error) {
	if focus == "" {
		var out []store.UnitTrace
		for _, u := range run.Units {
			if len(u.Values) > 0 {
				out = append(out, u)
			}
		}
		return out, nil
	}

	n := run.Unit(focus)
	if n == nil {
		return nil, fmt.Errorf("unit %q not in run", focus)
	}
	if n.Kind != string(units.KindNeuron) {
		return nil, fmt.Errorf("%w: %s is a %s, not a neuron", units.ErrWrongKind, focus, n.Kind)
	}
	var out []store.UnitTrace
	for _, in := range n.Inputs {
		if u := run.Unit(in); u != nil {
			out = append(out, *u)
		}
	}
	return append(out, *n), nil
}

func buildPanel(tr store.UnitTrace, threshold float64, spikes []int) panel {
	if len(tr.Values) == 0 {
		return panel{Name: tr.Name, Kind: tr.Kind}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range tr.Values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	showThresh := threshold != 0
	if showThresh {
		lo = math.Min(lo, threshold)
		hi = math.Max(hi, threshold)
	}
	if hi == lo {
		hi, lo = hi+1, lo-1
	}

	n := len(tr.Values)
	xStep := 0.0
	if n > 1 {
		xStep = float64(panelWidth) / float64(n-1)
	}
	y := func(v float64) float64 {
		span := float64(panelHeight - 2*panelPad)
		return panelPad + span*(hi-v)/(hi-lo)
	}

	var pts strings.Builder
	for i, v := range tr.Values {
		if i > 0 {
			pts.WriteByte(' ')
		}
		pts.WriteString(strconv.FormatFloat(float64(i)*xStep, 'f', 2, 64))
		pts.WriteByte(',')
		pts.WriteString(strconv.FormatFloat(y(v), 'f', 2, 64))
	}

	p := panel{
		Name:       tr.Name,
		Kind:       tr.Kind,
		Points:     pts.String(),
		Min:        lo,
		Max:        hi,
		Last:       tr.Values[n-1],
		Samples:    n,
		ShowThresh: showThresh,
	}
	if showThresh {
		p.ThresholdY = y(threshold)
	}
	// A transition at step t is visible in potential[t+1].
	for _, s := range spikes {
		p.Spikes = append(p.Spikes, float64(s+1)*xStep)
	}
	return p
}
