package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nvandessel/spikenet/internal/config"
	"github.com/nvandessel/spikenet/internal/scenario"
	"github.com/nvandessel/spikenet/internal/store"
)

// loadConfig reads --config when given, otherwise ~/.spikenet/config.yaml
// with SPIKENET_* overrides.
func loadConfig(cmd *cobra.Command) (*config.SpikenetConfig, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.SpikenetConfig
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// addScenarioFlags registers --file, shared by every command that takes
// a scenario.
func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Scenario YAML file (overrides the scenario name)")
}

// loadScenario resolves --file or the optional scenario name argument.
// With neither, the demo network is used.
func loadScenario(cmd *cobra.Command, args []string) (*scenario.Scenario, error) {
	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("pass either a scenario name or --file, not both")
		}
		return scenario.Load(file)
	}
	name := "demo"
	if len(args) > 0 {
		name = args[0]
	}
	return scenario.Builtin(name)
}

// openStore opens the configured SQLite run store.
func openStore(cfg *config.SpikenetConfig) (*store.SQLiteRunStore, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteRunStore(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
