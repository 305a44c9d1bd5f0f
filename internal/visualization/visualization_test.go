package visualization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/spikenet/internal/scenario"
	"github.com/nvandessel/spikenet/internal/store"
	"github.com/nvandessel/spikenet/internal/units"
)

func demoRun(t *testing.T) *store.RunRecord {
	t.Helper()
	run, err := scenario.Demo().Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("demo run: %v", err)
	}
	return run
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"dot", "json", "html"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", s, err)
		}
	}
	if _, err := ParseFormat("svg"); err == nil {
		t.Error("ParseFormat(svg) should fail")
	}
}

func TestRenderDOT(t *testing.T) {
	run := demoRun(t)
	dot := RenderDOT("demo", UnitsFromRun(run))

	for _, want := range []string{
		`digraph "demo" {`,
		`"d1" [shape=ellipse`,
		`"s1" [shape=diamond`,
		`"n1" [shape=doublecircle`,
		`"d1" -> "s1";`,
		`"s1" -> "d3";`,
		`"d3" -> "n1";`,
		`"d4" -> "n1";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if got := strings.Count(dot, "->"); got != 6 {
		t.Errorf("DOT has %d edges, want 6", got)
	}
}

func TestRenderDOT_DefaultName(t *testing.T) {
	if dot := RenderDOT("", nil); !strings.HasPrefix(dot, `digraph "spikenet"`) {
		t.Errorf("RenderDOT(\"\") = %q", dot)
	}
}

func TestRenderJSON(t *testing.T) {
	graph := RenderJSON(UnitsFromRun(demoRun(t)))

	if graph["node_count"] != 7 {
		t.Errorf("node_count = %v, want 7", graph["node_count"])
	}
	if graph["edge_count"] != 6 {
		t.Errorf("edge_count = %v, want 6", graph["edge_count"])
	}
	if _, err := json.Marshal(graph); err != nil {
		t.Errorf("graph is not JSON-serializable: %v", err)
	}
}

func TestRenderHTML_AllTraces(t *testing.T) {
	html, err := RenderHTML(demoRun(t), DefaultPlotOptions())
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	page := string(html)

	// Five stateful units, synapses have no panel.
	if got := strings.Count(page, "<polyline"); got != 5 {
		t.Errorf("page has %d traces, want 5", got)
	}
	if !strings.Contains(page, `class="threshold"`) {
		t.Error("expected threshold line")
	}
	if !strings.Contains(page, `class="spike"`) {
		t.Error("expected spike markers")
	}
	if strings.Contains(page, "http-equiv=\"refresh\"") {
		t.Error("refresh should be off by default")
	}
}

func TestRenderHTML_Focus(t *testing.T) {
	opts := DefaultPlotOptions()
	opts.Focus = "n1"
	html, err := RenderHTML(demoRun(t), opts)
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	page := string(html)
	if got := strings.Count(page, "<polyline"); got != 3 {
		t.Errorf("focused page has %d traces, want 3", got)
	}
	if strings.Index(page, "<h2>d3") > strings.Index(page, "<h2>n1") {
		t.Error("neuron panel should follow its inputs")
	}
}

func TestRenderHTML_FocusErrors(t *testing.T) {
	run := demoRun(t)

	opts := DefaultPlotOptions()
	opts.Focus = "d1"
	if _, err := RenderHTML(run, opts); !errors.Is(err, units.ErrWrongKind) {
		t.Errorf("focus on dendrite error = %v, want ErrWrongKind", err)
	}

	opts.Focus = "missing"
	if _, err := RenderHTML(run, opts); err == nil {
		t.Error("focus on unknown unit should fail")
	}
}

func TestRenderHTML_EscapesNames(t *testing.T) {
	run := &store.RunRecord{
		Scenario: "<script>alert(1)</script>",
		Units:    []store.UnitTrace{{Name: "<b>x</b>", Kind: "dendrite", Values: []float64{-70, -70}}},
	}
	html, err := RenderHTML(run, PlotOptions{})
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	if strings.Contains(string(html), "<script>alert") || strings.Contains(string(html), "<b>x</b>") {
		t.Error("names must be HTML-escaped")
	}
}

func TestBuildPanel_Scaling(t *testing.T) {
	p := buildPanel(store.UnitTrace{Name: "d", Values: []float64{-70, 40}}, -55, []int{0})

	if p.Min != -70 || p.Max != 40 {
		t.Errorf("range = [%v, %v], want [-70, 40]", p.Min, p.Max)
	}
	// Highest value at the top edge, lowest at the bottom edge.
	want := "0.00,114.00 800.00,6.00"
	if p.Points != want {
		t.Errorf("Points = %q, want %q", p.Points, want)
	}
	if len(p.Spikes) != 1 || p.Spikes[0] != 800 {
		t.Errorf("Spikes = %v, want [800]", p.Spikes)
	}
	if !p.ShowThresh || p.ThresholdY <= 6 || p.ThresholdY >= 114 {
		t.Errorf("ThresholdY = %v", p.ThresholdY)
	}
}

func TestBuildPanel_Flat(t *testing.T) {
	p := buildPanel(store.UnitTrace{Name: "flat", Values: []float64{-70}}, 0, nil)
	if p.Min >= p.Max {
		t.Errorf("flat series should get a non-empty range, got [%v, %v]", p.Min, p.Max)
	}
	if p.ShowThresh {
		t.Error("zero threshold should hide the reference line")
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := NewServer(func(ctx context.Context) (*store.RunRecord, error) {
		return scenario.Demo().Run(ctx, 0)
	}, DefaultPlotOptions())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestServer_ServesHTML(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/html; charset=utf-8", ct)
	}
	if !strings.Contains(body, "<svg") {
		t.Error("expected SVG panels")
	}

	resp, _ = get(t, ts.URL+"/?focus=d1")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("GET /?focus=d1 status = %d, want 400", resp.StatusCode)
	}

	resp, _ = get(t, ts.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_RunEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/api/run")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var run store.RunRecord
	if err := json.Unmarshal([]byte(body), &run); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if run.Steps != 100 || len(run.Units) != 7 {
		t.Errorf("run = %+v", run.Summary())
	}
}

func TestServer_GraphEndpoint(t *testing.T) {
	ts := newTestServer(t)

	_, body := get(t, ts.URL+"/api/graph?format=dot")
	if !strings.HasPrefix(body, "digraph") {
		t.Errorf("DOT body = %q", body)
	}

	_, body = get(t, ts.URL+"/api/graph")
	var graph map[string]any
	if err := json.Unmarshal([]byte(body), &graph); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if graph["node_count"] != float64(7) {
		t.Errorf("node_count = %v, want 7", graph["node_count"])
	}
}

func TestServer_MetricsRoute(t *testing.T) {
	srv := NewServer(func(ctx context.Context) (*store.RunRecord, error) {
		return &store.RunRecord{}, nil
	}, PlotOptions{})

	ts := httptest.NewServer(srv.Handler())
	resp, _ := get(t, ts.URL+"/metrics")
	ts.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /metrics without handler status = %d, want 404", resp.StatusCode)
	}

	srv.HandleMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "spikenet_runs_total 1")
	}))
	ts = httptest.NewServer(srv.Handler())
	defer ts.Close()
	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK || body != "spikenet_runs_total 1" {
		t.Errorf("GET /metrics = %d %q", resp.StatusCode, body)
	}
}

func TestServer_CleanShutdown(t *testing.T) {
	srv := NewServer(func(ctx context.Context) (*store.RunRecord, error) {
		return &store.RunRecord{}, nil
	}, PlotOptions{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.Addr() == "" {
		t.Fatal("server did not start within timeout")
	}
	if !strings.HasPrefix(srv.Addr(), "127.0.0.1:") && !strings.HasPrefix(srv.Addr(), "[::1]:") {
		t.Errorf("Addr() = %q, want a loopback address", srv.Addr())
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("unexpected error on shutdown: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down within 3 seconds")
	}
}
