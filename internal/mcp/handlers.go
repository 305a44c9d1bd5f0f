package mcp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/spikenet/internal/export"
	"github.com/nvandessel/spikenet/internal/network"
	"github.com/nvandessel/spikenet/internal/pathutil"
	"github.com/nvandessel/spikenet/internal/scenario"
	"github.com/nvandessel/spikenet/internal/store"
	"github.com/nvandessel/spikenet/internal/visualization"
)

const scenarioURIPrefix = "spikenet://scenarios/"

// registerTools registers all spikenet tools with the MCP server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "spikenet_run",
		Description: "Run a spiking network scenario for a number of steps and summarize each unit's potential trace and activations",
	}, s.handleRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "spikenet_graph",
		Description: "Render a scenario's wiring graph (dendrites, synapses, neurons) in DOT (Graphviz) or JSON format",
	}, s.handleGraph)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "spikenet_runs",
		Description: "List saved runs, newest first",
	}, s.handleRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "spikenet_export",
		Description: "Export a saved run's traces as an Apache Arrow IPC file",
	}, s.handleExport)
}

// registerResources registers the built-in scenario catalogue.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         "spikenet://scenarios",
		Name:        "spikenet-scenarios",
		Description: "Built-in scenarios that spikenet_run and spikenet_graph accept by name.",
		MIMEType:    "text/markdown",
	}, s.handleScenariosResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: scenarioURIPrefix + "{name}",
		Name:        "spikenet-scenario",
		Description: "YAML definition of a built-in scenario. Edit it and pass it back through the yaml argument.",
		MIMEType:    "application/yaml",
	}, s.handleScenarioResource)
}

// observe writes one tool-call event and returns the hook to finish it.
func (s *Server) observe(tool string, params map[string]any) func(error) {
	start := time.Now()
	return func(err error) {
		event := map[string]any{
			"event":       "tool_call",
			"tool":        tool,
			"duration_ms": time.Since(start).Milliseconds(),
			"status":      "success",
		}
		for k, v := range params {
			event[k] = v
		}
		if err != nil {
			event["status"] = "error"
			event["error"] = err.Error()
			s.logger.Debug("tool call failed", "tool", tool, "error", err)
		}
		s.events.Log(event)
		s.metrics.ObserveToolCall(tool, err)
	}
}

// resolveScenario parses inline YAML or looks up a built-in by name.
func resolveScenario(name, yamlDoc string) (*scenario.Scenario, error) {
	if strings.TrimSpace(yamlDoc) != "" {
		return scenario.Parse([]byte(yamlDoc))
	}
	if name == "" {
		name = "demo"
	}
	return scenario.Builtin(name)
}

func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	done := s.observe("spikenet_run", map[string]any{"scenario": args.Scenario, "steps": args.Steps, "inline": args.YAML != ""})
	defer func() { done(retErr) }()

	if err := s.limiters.Check("spikenet_run"); err != nil {
		return nil, RunOutput{}, err
	}
	if args.Steps < 0 || args.Steps > s.maxSteps {
		return nil, RunOutput{}, fmt.Errorf("steps must be between 0 and %d, got %d", s.maxSteps, args.Steps)
	}

	sc, err := resolveScenario(args.Scenario, args.YAML)
	if err != nil {
		return nil, RunOutput{}, err
	}
	if sc.Steps > s.maxSteps {
		return nil, RunOutput{}, fmt.Errorf("scenario asks for %d steps, limit is %d", sc.Steps, s.maxSteps)
	}

	opts := append([]network.Option{network.WithLogger(s.logger)}, s.metrics.NetworkOptions()...)
	start := time.Now()
	run, err := sc.Run(ctx, args.Steps, opts...)
	s.metrics.ObserveRun(sc.Name, time.Since(start), err)
	if err != nil {
		var stepErr *network.StepError
		if errors.As(err, &stepErr) {
			return nil, RunOutput{}, fmt.Errorf("run stopped after %d steps: %w", run.Steps, err)
		}
		return nil, RunOutput{}, err
	}

	out := summarize(run)
	if args.Save {
		if _, err := s.store.SaveRun(ctx, run); err != nil {
			return nil, RunOutput{}, fmt.Errorf("save run: %w", err)
		}
		out.Saved = true
	}
	return nil, out, nil
}

// summarize reduces a run to per-unit statistics.
func summarize(run *store.RunRecord) RunOutput {
	activations := run.Activations()

	out := RunOutput{
		RunID:       run.ID,
		Scenario:    run.Scenario,
		Steps:       run.Steps,
		Transitions: len(run.Transitions),
	}
	for _, u := range run.Units {
		r := UnitResult{
			Name:        u.Name,
			Kind:        u.Kind,
			Inputs:      u.Inputs,
			Samples:     len(u.Values),
			Activations: activations[u.Name],
		}
		if len(u.Values) > 0 {
			r.Final = u.Values[len(u.Values)-1]
			r.Min, r.Max = math.Inf(1), math.Inf(-1)
			for _, v := range u.Values {
				r.Min = math.Min(r.Min, v)
				r.Max = math.Max(r.Max, v)
			}
		}
		out.Units = append(out.Units, r)
	}
	return out
}

func (s *Server) handleGraph(ctx context.Context, req *sdk.CallToolRequest, args GraphInput) (_ *sdk.CallToolResult, _ GraphOutput, retErr error) {
	done := s.observe("spikenet_graph", map[string]any{"scenario": args.Scenario, "format": args.Format})
	defer func() { done(retErr) }()

	if err := s.limiters.Check("spikenet_graph"); err != nil {
		return nil, GraphOutput{}, err
	}

	format := visualization.FormatDOT
	if args.Format != "" {
		f, err := visualization.ParseFormat(args.Format)
		if err != nil {
			return nil, GraphOutput{}, err
		}
		if f == visualization.FormatHTML {
			return nil, GraphOutput{}, fmt.Errorf("html is not available over MCP; use 'spikenet plot'")
		}
		format = f
	}

	sc, err := resolveScenario(args.Scenario, args.YAML)
	if err != nil {
		return nil, GraphOutput{}, err
	}
	net, err := sc.Build()
	if err != nil {
		return nil, GraphOutput{}, err
	}
	list := net.Units()
	edges := len(net.Edges())

	if format == visualization.FormatJSON {
		return nil, GraphOutput{
			Format:    string(format),
			Graph:     visualization.RenderJSON(list),
			NodeCount: len(list),
			EdgeCount: edges,
		}, nil
	}
	return nil, GraphOutput{
		Format:    string(format),
		Graph:     visualization.RenderDOT(sc.Name, list),
		NodeCount: len(list),
		EdgeCount: edges,
	}, nil
}

func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	done := s.observe("spikenet_runs", map[string]any{"limit": args.Limit})
	defer func() { done(retErr) }()

	if err := s.limiters.Check("spikenet_runs"); err != nil {
		return nil, RunsOutput{}, err
	}

	runs, err := s.store.ListRuns(ctx, args.Limit)
	if err != nil {
		return nil, RunsOutput{}, fmt.Errorf("list runs: %w", err)
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	return nil, RunsOutput{Runs: runs, Count: len(runs)}, nil
}

func (s *Server) handleExport(ctx context.Context, req *sdk.CallToolRequest, args ExportInput) (_ *sdk.CallToolResult, _ ExportOutput, retErr error) {
	done := s.observe("spikenet_export", map[string]any{"run_id": args.RunID})
	defer func() { done(retErr) }()

	if err := s.limiters.Check("spikenet_export"); err != nil {
		return nil, ExportOutput{}, err
	}
	if args.RunID == "" {
		return nil, ExportOutput{}, fmt.Errorf("run_id is required")
	}

	path := args.Path
	if path == "" {
		if len(s.exportDirs) == 0 {
			return nil, ExportOutput{}, fmt.Errorf("no export directory configured")
		}
		path = filepath.Join(s.exportDirs[0], args.RunID+".arrow")
	}
	if err := pathutil.ValidatePath(path, s.exportDirs); err != nil {
		return nil, ExportOutput{}, err
	}

	run, err := s.store.GetRun(ctx, args.RunID)
	if err != nil {
		return nil, ExportOutput{}, err
	}
	size, err := export.WriteArrowFile(path, run)
	if err != nil {
		return nil, ExportOutput{}, err
	}

	rows := 0
	for _, u := range run.Units {
		rows += len(u.Values)
	}
	return nil, ExportOutput{Path: path, Bytes: size, Rows: rows}, nil
}

func (s *Server) handleScenariosResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# spikenet scenarios\n\n")
	for _, name := range scenario.BuiltinNames() {
		sc, err := scenario.Builtin(name)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&sb, "- `%s`: %d units, %d stimuli, %d steps (%s%s)\n",
			name, len(sc.Units), len(sc.Stimuli), sc.Steps, scenarioURIPrefix, name)
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      "spikenet://scenarios",
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

func (s *Server) handleScenarioResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	name := strings.TrimPrefix(uri, scenarioURIPrefix)
	sc, err := scenario.Builtin(name)
	if err != nil {
		return nil, fmt.Errorf("scenario not found: %w", err)
	}
	data, err := sc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal scenario %s: %w", name, err)
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/yaml",
				Text:     string(data),
			},
		},
	}, nil
}
