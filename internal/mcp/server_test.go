package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nvandessel/spikenet/internal/export"
	"github.com/nvandessel/spikenet/internal/logging"
	"github.com/nvandessel/spikenet/internal/metrics"
	"github.com/nvandessel/spikenet/internal/ratelimit"
	"github.com/nvandessel/spikenet/internal/scenario"
	"github.com/nvandessel/spikenet/internal/store"
)

// setupTestServer returns a server with an in-memory store and an export
// directory under t.TempDir().
func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	exportDir := t.TempDir()
	server, err := NewServer(&Config{
		Name:       "test-server",
		Version:    "v1.0.0",
		ExportDirs: []string{exportDir},
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return server, exportDir
}

func TestNewServer(t *testing.T) {
	server, _ := setupTestServer(t)

	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if server.store == nil || !server.ownsStore {
		t.Error("expected an owned in-memory store")
	}
	if server.maxSteps != DefaultMaxSteps {
		t.Errorf("maxSteps = %d, want %d", server.maxSteps, DefaultMaxSteps)
	}
	for _, tool := range []string{"spikenet_run", "spikenet_graph", "spikenet_runs", "spikenet_export"} {
		if server.limiters[tool] == nil {
			t.Errorf("missing rate limiter for %s", tool)
		}
	}
}

func TestNewServer_DefaultExportDirs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	server, err := NewServer(&Config{Name: "t", Version: "v0"})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	if len(server.exportDirs) == 0 || !strings.HasSuffix(server.exportDirs[0], filepath.Join(".spikenet", "exports")) {
		t.Errorf("exportDirs = %v", server.exportDirs)
	}
}

func TestHandleRun_Demo(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleRun(ctx, &sdk.CallToolRequest{}, RunInput{Scenario: "demo"})
	if err != nil {
		t.Fatalf("handleRun failed: %v", err)
	}

	if out.RunID == "" || out.Scenario != "demo" || out.Steps != 100 {
		t.Errorf("output = %+v", out)
	}
	if out.Saved {
		t.Error("run should not be saved unless requested")
	}
	if len(out.Units) != 7 {
		t.Fatalf("len(Units) = %d, want 7", len(out.Units))
	}

	var n1 *UnitResult
	for i := range out.Units {
		if out.Units[i].Name == "n1" {
			n1 = &out.Units[i]
		}
	}
	if n1 == nil {
		t.Fatal("n1 missing from output")
	}
	if n1.Samples != 101 {
		t.Errorf("n1 samples = %d, want 101", n1.Samples)
	}
	if len(n1.Activations) == 0 {
		t.Error("expected n1 activations in the demo run")
	}
	if n1.Max < n1.Final || n1.Min > n1.Final {
		t.Errorf("n1 range [%v, %v] does not contain final %v", n1.Min, n1.Max, n1.Final)
	}
}

func TestHandleRun_YAMLAndSave(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	data, err := scenario.Demo().Marshal()
	if err != nil {
		t.Fatal(err)
	}

	_, out, err := server.handleRun(ctx, nil, RunInput{YAML: string(data), Steps: 50, Save: true})
	if err != nil {
		t.Fatalf("handleRun failed: %v", err)
	}
	if out.Steps != 50 || !out.Saved {
		t.Errorf("output = %+v", out)
	}

	run, err := server.store.GetRun(ctx, out.RunID)
	if err != nil {
		t.Fatalf("saved run not found: %v", err)
	}
	if run.Steps != 50 {
		t.Errorf("stored steps = %d, want 50", run.Steps)
	}
}

func TestHandleRun_Errors(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		args    RunInput
		wantErr string
	}{
		{"unknown scenario", RunInput{Scenario: "nope"}, "unknown scenario"},
		{"negative steps", RunInput{Steps: -1}, "steps must be between"},
		{"too many steps", RunInput{Steps: DefaultMaxSteps + 1}, "steps must be between"},
		{"bad yaml", RunInput{YAML: "units: ["}, "yaml"},
		{"short stimulus", RunInput{YAML: `
name: short
steps: 20
stimuli:
  - {name: p, kind: logic, interval: 5, length: 10}
units:
  - {name: d1, kind: dendrite, stimulus: p}
`}, "run stopped after 10 steps"},
		{"stimulus longer than run", RunInput{Steps: 10, YAML: `
name: big
steps: 10
stimuli:
  - {name: c, kind: constant, level: -60, length: 5000000}
units:
  - {name: d1, kind: dendrite, stimulus: c}
`}, "exceeds"},
		{"scenario steps over limit", RunInput{Steps: 10, YAML: `
name: long
steps: 200000
units:
  - {name: d1, kind: dendrite}
`}, "limit is"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := server.handleRun(ctx, nil, tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(strings.ToLower(err.Error()), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestHandleGraph(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleGraph(ctx, nil, GraphInput{})
	if err != nil {
		t.Fatalf("handleGraph failed: %v", err)
	}
	dot, ok := out.Graph.(string)
	if out.Format != "dot" || !ok || !strings.HasPrefix(dot, `digraph "demo"`) {
		t.Errorf("DOT output = %+v", out)
	}
	if out.NodeCount != 7 || out.EdgeCount != 6 {
		t.Errorf("counts = %d nodes, %d edges, want 7, 6", out.NodeCount, out.EdgeCount)
	}

	_, out, err = server.handleGraph(ctx, nil, GraphInput{Scenario: "xor", Format: "json"})
	if err != nil {
		t.Fatalf("handleGraph(json) failed: %v", err)
	}
	if _, ok := out.Graph.(map[string]interface{}); !ok {
		t.Errorf("JSON graph has type %T", out.Graph)
	}

	if _, _, err := server.handleGraph(ctx, nil, GraphInput{Format: "html"}); err == nil {
		t.Error("html format should be rejected")
	}
	if _, _, err := server.handleGraph(ctx, nil, GraphInput{Format: "png"}); err == nil {
		t.Error("unknown format should be rejected")
	}
}

func TestHandleRunsAndExport(t *testing.T) {
	server, exportDir := setupTestServer(t)
	ctx := context.Background()

	_, empty, err := server.handleRuns(ctx, nil, RunsInput{})
	if err != nil {
		t.Fatalf("handleRuns failed: %v", err)
	}
	if empty.Count != 0 || empty.Runs == nil {
		t.Errorf("empty store output = %+v", empty)
	}

	_, run, err := server.handleRun(ctx, nil, RunInput{Scenario: "demo", Save: true})
	if err != nil {
		t.Fatal(err)
	}

	_, listed, err := server.handleRuns(ctx, nil, RunsInput{Limit: 5})
	if err != nil {
		t.Fatalf("handleRuns failed: %v", err)
	}
	if listed.Count != 1 || listed.Runs[0].ID != run.RunID {
		t.Errorf("runs = %+v", listed)
	}

	_, exported, err := server.handleExport(ctx, nil, ExportInput{RunID: run.RunID})
	if err != nil {
		t.Fatalf("handleExport failed: %v", err)
	}
	if exported.Path != filepath.Join(exportDir, run.RunID+".arrow") {
		t.Errorf("path = %s", exported.Path)
	}
	stored, err := server.store.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatal(err)
	}
	wantRows := 0
	for _, u := range stored.Units {
		wantRows += len(u.Values)
	}
	if exported.Rows != wantRows || wantRows == 0 {
		t.Errorf("rows = %d, want %d", exported.Rows, wantRows)
	}
	back, err := export.ReadArrowFile(exported.Path)
	if err != nil {
		t.Fatalf("ReadArrowFile: %v", err)
	}
	if back.ID != run.RunID {
		t.Errorf("exported run id = %s, want %s", back.ID, run.RunID)
	}
}

func TestHandleExport_Errors(t *testing.T) {
	server, exportDir := setupTestServer(t)
	ctx := context.Background()

	// The export limiter has a small burst; reset it before each call.
	exportRun := func(args ExportInput) error {
		server.limiters = ratelimit.NewToolLimiters()
		_, _, err := server.handleExport(ctx, nil, args)
		return err
	}

	if err := exportRun(ExportInput{}); err == nil {
		t.Error("missing run_id should fail")
	}
	if err := exportRun(ExportInput{RunID: "missing"}); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("unknown run error = %v, want ErrRunNotFound", err)
	}

	id, err := server.store.SaveRun(ctx, &store.RunRecord{Scenario: "x"})
	if err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(t.TempDir(), "escape.arrow")
	err = exportRun(ExportInput{RunID: id, Path: outside})
	if err == nil || !strings.Contains(err.Error(), "outside allowed directories") {
		t.Errorf("export outside allowed dirs error = %v", err)
	}
	if _, err := os.Stat(outside); err == nil {
		t.Error("file must not be written outside allowed dirs")
	}

	traversal := filepath.Join(exportDir, "..", "escape.arrow")
	if err := exportRun(ExportInput{RunID: id, Path: traversal}); err == nil {
		t.Error("path traversal should be rejected")
	}
}

func TestHandleRun_RateLimited(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	var lastErr error
	for i := 0; i < 20 && lastErr == nil; i++ {
		_, _, lastErr = server.handleGraph(ctx, nil, GraphInput{})
	}
	if lastErr == nil || !strings.Contains(lastErr.Error(), "rate limit exceeded") {
		t.Errorf("expected rate limit error, got %v", lastErr)
	}
}

func TestToolCallsAreLogged(t *testing.T) {
	dir := t.TempDir()
	events := logging.NewEventLogger(dir, "debug")
	server, err := NewServer(&Config{Name: "t", Version: "v0", Events: events, ExportDirs: []string{dir}})
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	server.handleGraph(context.Background(), nil, GraphInput{})
	server.handleRun(context.Background(), nil, RunInput{Scenario: "nope"})
	events.Close()

	data, err := os.ReadFile(filepath.Join(dir, logging.EventsFile))
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d events, want 2:\n%s", len(lines), data)
	}
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &last); err != nil {
		t.Fatal(err)
	}
	if last["tool"] != "spikenet_run" || last["status"] != "error" {
		t.Errorf("last event = %v", last)
	}
}

func TestScenarioResources(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	res, err := server.handleScenariosResource(ctx, &sdk.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleScenariosResource failed: %v", err)
	}
	text := res.Contents[0].Text
	for _, name := range scenario.BuiltinNames() {
		if !strings.Contains(text, "`"+name+"`") {
			t.Errorf("catalogue missing %s:\n%s", name, text)
		}
	}

	res, err = server.handleScenarioResource(ctx, &sdk.ReadResourceRequest{
		Params: &sdk.ReadResourceParams{URI: scenarioURIPrefix + "demo"},
	})
	if err != nil {
		t.Fatalf("handleScenarioResource failed: %v", err)
	}
	sc, err := scenario.Parse([]byte(res.Contents[0].Text))
	if err != nil {
		t.Fatalf("resource YAML does not parse: %v", err)
	}
	if sc.Name != "demo" {
		t.Errorf("scenario name = %s, want demo", sc.Name)
	}

	_, err = server.handleScenarioResource(ctx, &sdk.ReadResourceRequest{
		Params: &sdk.ReadResourceParams{URI: scenarioURIPrefix + "missing"},
	})
	if err == nil {
		t.Error("unknown scenario resource should fail")
	}
}

func TestServer_InMemoryClient(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientTransport, serverTransport := sdk.NewInMemoryTransports()
	ss, err := server.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools.Tools) != 4 {
		t.Errorf("got %d tools, want 4", len(tools.Tools))
	}

	res, err := cs.CallTool(ctx, &sdk.CallToolParams{
		Name:      "spikenet_run",
		Arguments: map[string]any{"scenario": "demo", "steps": 40},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool returned error: %+v", res.Content)
	}
	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatal(err)
	}
	var out RunOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode structured content: %v", err)
	}
	if out.Steps != 40 {
		t.Errorf("steps = %d, want 40", out.Steps)
	}
}

func TestServer_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	server, err := NewServer(&Config{Name: "t", Version: "v0", Metrics: m, ExportDirs: []string{t.TempDir()}})
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()
	ctx := context.Background()

	if _, _, err := server.handleRun(ctx, nil, RunInput{Steps: 20}); err != nil {
		t.Fatalf("handleRun failed: %v", err)
	}
	server.handleGraph(ctx, nil, GraphInput{Format: "png"})

	if got := testutil.ToFloat64(m.StepsTotal); got != 20 {
		t.Errorf("steps_total = %v, want 20", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("demo", "success")); got != 1 {
		t.Errorf("demo runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("spikenet_run", "success")); got != 1 {
		t.Errorf("run tool calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("spikenet_graph", "error")); got != 1 {
		t.Errorf("failed graph calls = %v, want 1", got)
	}
}
