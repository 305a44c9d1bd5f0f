package mcp

import "github.com/nvandessel/spikenet/internal/store"

// RunInput defines the input for the spikenet_run tool.
type RunInput struct {
	Scenario string `json:"scenario,omitempty" jsonschema:"Built-in scenario name (demo, xor, noise). Defaults to demo. Ignored when yaml is set"`
	YAML     string `json:"yaml,omitempty" jsonschema:"Full scenario document in YAML, as printed by 'spikenet scenario dump'"`
	Steps    int    `json:"steps,omitempty" jsonschema:"Number of steps to run. Zero uses the scenario's own step count"`
	Save     bool   `json:"save,omitempty" jsonschema:"Keep the run in the server's run store so it can be listed and exported"`
}

// RunOutput defines the output for the spikenet_run tool.
type RunOutput struct {
	RunID       string       `json:"run_id" jsonschema:"ID of the run"`
	Scenario    string       `json:"scenario" jsonschema:"Scenario name"`
	Steps       int          `json:"steps" jsonschema:"Number of completed steps"`
	Saved       bool         `json:"saved" jsonschema:"Whether the run was stored"`
	Units       []UnitResult `json:"units" jsonschema:"Per-unit summary in insertion order"`
	Transitions int          `json:"transitions" jsonschema:"Number of phase transitions recorded"`
}

// UnitResult summarizes one unit of a run.
type UnitResult struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Inputs      []string `json:"inputs,omitempty"`
	Samples     int      `json:"samples"`
	Final       float64  `json:"final,omitempty"`
	Min         float64  `json:"min,omitempty"`
	Max         float64  `json:"max,omitempty"`
	Activations []int    `json:"activations,omitempty" jsonschema:"Steps at which the unit entered the activated phase"`
}

// GraphInput defines the input for the spikenet_graph tool.
type GraphInput struct {
	Scenario string `json:"scenario,omitempty" jsonschema:"Built-in scenario name. Defaults to demo. Ignored when yaml is set"`
	YAML     string `json:"yaml,omitempty" jsonschema:"Full scenario document in YAML"`
	Format   string `json:"format,omitempty" jsonschema:"Output format: dot (Graphviz) or json. Defaults to dot"`
}

// GraphOutput defines the output for the spikenet_graph tool.
type GraphOutput struct {
	Format    string `json:"format" jsonschema:"Format of the rendered graph"`
	Graph     any    `json:"graph" jsonschema:"Rendered graph: a DOT string or a JSON object with nodes and edges"`
	NodeCount int    `json:"node_count" jsonschema:"Number of units"`
	EdgeCount int    `json:"edge_count" jsonschema:"Number of wiring edges"`
}

// RunsInput defines the input for the spikenet_runs tool.
type RunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs to return, newest first. Zero returns all"`
}

// RunsOutput defines the output for the spikenet_runs tool.
type RunsOutput struct {
	Runs  []store.RunSummary `json:"runs" jsonschema:"Stored runs, newest first"`
	Count int                `json:"count" jsonschema:"Number of runs returned"`
}

// ExportInput defines the input for the spikenet_export tool.
type ExportInput struct {
	RunID string `json:"run_id" jsonschema:"ID of a stored run"`
	Path  string `json:"path,omitempty" jsonschema:"Output file path inside an allowed export directory. Defaults to ~/.spikenet/exports/<run_id>.arrow"`
}

// ExportOutput defines the output for the spikenet_export tool.
type ExportOutput struct {
	Path  string `json:"path" jsonschema:"Written Arrow IPC file"`
	Bytes int64  `json:"bytes" jsonschema:"File size in bytes"`
	Rows  int    `json:"rows" jsonschema:"Number of (unit, step) samples written"`
}
