package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/spikenet/internal/config"
	"github.com/nvandessel/spikenet/internal/logging"
	"github.com/nvandessel/spikenet/internal/metrics"
	"github.com/nvandessel/spikenet/internal/network"
	"github.com/nvandessel/spikenet/internal/store"
	"github.com/nvandessel/spikenet/internal/visualization"
)

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [scenario]",
		Short: "Plot unit potentials as HTML",
		Long: `Run a scenario (or load a saved run with --run) and render one SVG
panel per unit series into a self-contained HTML page.

With --focus the page shows only that neuron and its direct inputs.
With --serve a local server re-runs the scenario on every page load and
exposes Prometheus metrics at /metrics.

Examples:
  spikenet plot                           # demo network, opens a browser
  spikenet plot --focus n1 -o n1.html     # neuron view written to a file
  spikenet plot --run <id>                # plot a saved run
  spikenet plot xor --serve --refresh 5   # live page, reloads every 5s`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			runID, _ := cmd.Flags().GetString("run")
			focus, _ := cmd.Flags().GetString("focus")
			output, _ := cmd.Flags().GetString("output")
			noOpen, _ := cmd.Flags().GetBool("no-open")
			serve, _ := cmd.Flags().GetBool("serve")
			refresh, _ := cmd.Flags().GetInt("refresh")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("steps") {
				steps = cfg.Run.Steps
			}

			opts := visualization.DefaultPlotOptions()
			opts.Focus = focus

			if runID != "" {
				if serve {
					return fmt.Errorf("--serve re-runs a scenario and cannot be combined with --run")
				}
				run, err := loadRun(cmd.Context(), cfg, runID)
				if err != nil {
					return err
				}
				return writePlot(cmd, run, opts, output, cfg, noOpen)
			}

			sc, err := loadScenario(cmd, args)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			var m *metrics.Metrics
			if serve {
				m = metrics.New()
			}
			runFn := func(ctx context.Context) (*store.RunRecord, error) {
				netOpts := append([]network.Option{network.WithLogger(logger)}, m.NetworkOptions()...)
				start := time.Now()
				run, err := sc.Run(ctx, steps, netOpts...)
				m.ObserveRun(sc.Name, time.Since(start), err)
				return run, err
			}

			if serve {
				opts.Refresh = refresh
				return runPlotServer(cmd, runFn, opts, m, noOpen)
			}

			run, err := runFn(cmd.Context())
			if err != nil {
				return fmt.Errorf("run %s: %w", sc.Name, err)
			}
			return writePlot(cmd, run, opts, output, cfg, noOpen)
		},
	}

	addScenarioFlags(cmd)
	cmd.Flags().Int("steps", 0, "Number of steps (default: the scenario's own)")
	cmd.Flags().String("run", "", "Plot a saved run instead of running a scenario")
	cmd.Flags().String("focus", "", "Plot only this neuron and its direct inputs")
	cmd.Flags().StringP("output", "o", "", "Output file path (default: export dir or the temp dir)")
	cmd.Flags().Bool("no-open", false, "Don't open browser after generating HTML")
	cmd.Flags().Bool("serve", false, "Start a local server that re-runs the scenario per page load")
	cmd.Flags().Int("refresh", 0, "With --serve, reload the page every N seconds")

	return cmd
}

func loadRun(ctx context.Context, cfg *config.SpikenetConfig, id string) (*store.RunRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.GetRun(ctx, id)
}

// writePlot renders the run to a self-contained HTML file.
func writePlot(cmd *cobra.Command, run *store.RunRecord, opts visualization.PlotOptions, output string, cfg *config.SpikenetConfig, noOpen bool) error {
	htmlBytes, err := visualization.RenderHTML(run, opts)
	if err != nil {
		return fmt.Errorf("render HTML: %w", err)
	}

	outPath := output
	if outPath == "" {
		dir := cfg.Export.Dir
		if dir == "" {
			dir = os.TempDir()
		}
		outPath = filepath.Join(dir, "spikenet-"+run.Scenario+".html")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(outPath, htmlBytes, 0644); err != nil {
		return fmt.Errorf("write HTML file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Plot written to %s\n", outPath)

	if !noOpen {
		if err := visualization.OpenBrowser(outPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, outPath)
		}
	}
	return nil
}

// runPlotServer starts the trace server and blocks until Ctrl-C.
func runPlotServer(cmd *cobra.Command, run visualization.RunFunc, opts visualization.PlotOptions, m *metrics.Metrics, noOpen bool) error {
	srv := visualization.NewServer(run, opts)
	srv.HandleMetrics(m.Handler())

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && srv.Addr() == "" {
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}

	addr := srv.Addr()
	if addr == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Plot server running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Metrics at %s/metrics\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
