// Package visualization renders spikenet wiring graphs and potential traces
// in various output formats.
package visualization

import (
	"fmt"
	"strings"

	"github.com/nvandessel/spikenet/internal/network"
	"github.com/nvandessel/spikenet/internal/store"
	"github.com/nvandessel/spikenet/internal/units"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatDOT, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: dot, json, html)", s)
	}
}

// nodeStyles maps unit kinds to DOT shape and fill color.
var nodeStyles = map[units.Kind][2]string{
	units.KindDendrite: {"ellipse", "steelblue"},
	units.KindSynapse:  {"diamond", "goldenrod"},
	units.KindNeuron:   {"doublecircle", "tomato"},
}

// RenderDOT produces a Graphviz DOT representation of the wiring graph.
// Edges point from producer to consumer.
func RenderDOT(name string, list []network.UnitInfo) string {
	if name == "" {
		name = "spikenet"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", name)
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, u := range list {
		style, ok := nodeStyles[u.Kind]
		if !ok {
			style = [2]string{"box", "lightgray"}
		}
		tooltip := string(u.Kind)
		if u.Driven {
			tooltip += " (driven)"
		}
		fmt.Fprintf(&b, "  %q [shape=%s, fillcolor=%q, tooltip=%q];\n", u.Name, style[0], style[1], tooltip)
	}
	b.WriteString("\n")

	for _, u := range list {
		for _, in := range u.Inputs {
			fmt.Fprintf(&b, "  %q -> %q;\n", in, u.Name)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON graph representation with nodes and edges arrays.
func RenderJSON(list []network.UnitInfo) map[string]interface{} {
	jsonNodes := make([]map[string]interface{}, 0, len(list))
	jsonEdges := make([]map[string]interface{}, 0, len(list))
	for _, u := range list {
		jsonNodes = append(jsonNodes, map[string]interface{}{
			"id":     u.Name,
			"kind":   string(u.Kind),
			"driven": u.Driven,
		})
		for _, in := range u.Inputs {
			jsonEdges = append(jsonEdges, map[string]interface{}{
				"source": in,
				"target": u.Name,
			})
		}
	}

	return map[string]interface{}{
		"nodes":      jsonNodes,
		"edges":      jsonEdges,
		"node_count": len(jsonNodes),
		"edge_count": len(jsonEdges),
	}
}

// UnitsFromRun recovers the wiring of a stored run. IDs follow the stored
// unit order.
func UnitsFromRun(run *store.RunRecord) []network.UnitInfo {
	out := make([]network.UnitInfo, 0, len(run.Units))
	for i, u := range run.Units {
		out = append(out, network.UnitInfo{
			ID:     units.ID(i),
			Name:   u.Name,
			Kind:   units.Kind(u.Kind),
			Inputs: u.Inputs,
		})
	}
	return out
}
