// Package mcp provides an MCP (Model Context Protocol) server that lets an
// agent run spikenet scenarios and inspect their wiring and traces.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/spikenet/internal/logging"
	"github.com/nvandessel/spikenet/internal/metrics"
	"github.com/nvandessel/spikenet/internal/pathutil"
	"github.com/nvandessel/spikenet/internal/ratelimit"
	"github.com/nvandessel/spikenet/internal/store"
)

// DefaultMaxSteps bounds the step count a tool call may request.
const DefaultMaxSteps = 100_000

// Server wraps the MCP SDK server and provides spikenet tools.
type Server struct {
	server     *sdk.Server
	store      store.RunStore
	ownsStore  bool
	logger     *slog.Logger
	events     *logging.EventLogger
	metrics    *metrics.Metrics
	limiters   ratelimit.ToolLimiters
	exportDirs []string
	maxSteps   int
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "spikenet")
	Version string // Server version

	// Store keeps saved runs. Nil selects an in-memory store owned by
	// the server.
	Store store.RunStore

	// Logger receives operational output. Nil discards it.
	Logger *slog.Logger

	// Events receives one JSONL event per tool call. May be nil.
	Events *logging.EventLogger

	// Metrics counts tool calls, runs, steps and transitions. May be nil.
	Metrics *metrics.Metrics

	// ExportDirs are the directories spikenet_export may write into.
	// Nil selects pathutil.AllowedExportDirs().
	ExportDirs []string

	// MaxSteps bounds requested step counts. Zero selects DefaultMaxSteps.
	MaxSteps int
}

// NewServer creates a new MCP server with spikenet tools and resources.
func NewServer(cfg *Config) (*Server, error) {
	s := &Server{
		store:      cfg.Store,
		logger:     cfg.Logger,
		events:     cfg.Events,
		metrics:    cfg.Metrics,
		limiters:   ratelimit.NewToolLimiters(),
		exportDirs: cfg.ExportDirs,
		maxSteps:   cfg.MaxSteps,
	}
	if s.store == nil {
		s.store = store.NewInMemoryRunStore()
		s.ownsStore = true
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.maxSteps <= 0 {
		s.maxSteps = DefaultMaxSteps
	}
	if s.exportDirs == nil {
		dirs, err := pathutil.AllowedExportDirs()
		if err != nil {
			return nil, fmt.Errorf("resolving export directories: %w", err)
		}
		s.exportDirs = dirs
	}

	s.server = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			s.logger.Debug("mcp client initialized")
		},
	})

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server started", "transport", "stdio")
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.logger.Info("mcp server stopped")

	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close releases the run store when the server created it.
func (s *Server) Close() error {
	if s.ownsStore {
		return s.store.Close()
	}
	return nil
}
