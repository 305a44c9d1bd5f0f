package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/spikenet/internal/logging"
	"github.com/nvandessel/spikenet/internal/mcp"
	"github.com/nvandessel/spikenet/internal/metrics"
	"github.com/nvandessel/spikenet/internal/pathutil"
	"github.com/nvandessel/spikenet/internal/store"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run spikenet as an MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools:
  spikenet_run     run a built-in or inline YAML scenario
  spikenet_graph   render a scenario's wiring as DOT or JSON
  spikenet_runs    list saved runs
  spikenet_export  export a saved run as Apache Arrow

With --metrics-addr, Prometheus metrics for tool calls, runs, steps and
transitions are served at http://<addr>/metrics.

Runs saved through the server go to the SQLite store when store.enabled
is set, otherwise they live only as long as the server. Logs go to
stderr so they never corrupt the protocol stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			maxSteps, _ := cmd.Flags().GetInt("max-steps")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			eventsDir, err := cfg.EventsDir()
			if err != nil {
				return err
			}
			events := logging.NewEventLogger(eventsDir, cfg.Logging.Level)
			defer events.Close()

			exportDirs, err := pathutil.AllowedExportDirs(cfg.Export.Dir)
			if err != nil {
				return err
			}

			var runs store.RunStore
			if cfg.Store.Enabled {
				s, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer s.Close()
				runs = s
				logger.Info("using run store", "path", pathutil.RedactPath(s.Path()))
			}

			var m *metrics.Metrics
			if metricsAddr != "" {
				m = metrics.New()
				stop, err := serveMetrics(metricsAddr, m)
				if err != nil {
					return err
				}
				defer stop()
				logger.Info("serving metrics", "addr", metricsAddr)
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:       "spikenet",
				Version:    version,
				Store:      runs,
				Logger:     logger,
				Events:     events,
				Metrics:    m,
				ExportDirs: exportDirs,
				MaxSteps:   maxSteps,
			})
			if err != nil {
				return fmt.Errorf("create MCP server: %w", err)
			}

			logger.Info("export directory", "path", filepath.Clean(exportDirs[0]))
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().Int("max-steps", mcp.DefaultMaxSteps, "Largest step count a tool call may request")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. localhost:9464)")
	return cmd
}

// serveMetrics starts an HTTP server for /metrics and returns a function
// that shuts it down.
func serveMetrics(addr string, m *metrics.Metrics) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}
