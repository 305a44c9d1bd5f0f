package visualization

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nvandessel/spikenet/internal/store"
)

// RunFunc produces a completed run. The server calls it per request, so
// each page load simulates a fresh network.
type RunFunc func(ctx context.Context) (*store.RunRecord, error)

// Server serves the trace plot HTML and the run and graph JSON APIs.
type Server struct {
	run        RunFunc
	opts       PlotOptions
	metrics    http.Handler
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a new trace visualization server.
func NewServer(run RunFunc, opts PlotOptions) *Server {
	return &Server{
		run:  run,
		opts: opts,
	}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// HandleMetrics serves h at /metrics. Call it before ListenAndServe.
func (s *Server) HandleMetrics(h http.Handler) {
	s.metrics = h
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/api/graph", s.handleGraph)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// ListenAndServe starts the HTTP server on an OS-assigned port and blocks
// until the context is cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	run, err := s.run(r.Context())
	if err != nil {
		http.Error(w, "run error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	opts := s.opts
	if focus := r.URL.Query().Get("focus"); focus != "" {
		opts.Focus = focus
	}
	html, err := RenderHTML(run, opts)
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.run(r.Context())
	if err != nil {
		http.Error(w, "run error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	run, err := s.run(r.Context())
	if err != nil {
		http.Error(w, "run error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	list := UnitsFromRun(run)
	if r.URL.Query().Get("format") == string(FormatDOT) {
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		fmt.Fprint(w, RenderDOT(run.Scenario, list))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RenderJSON(list))
}
