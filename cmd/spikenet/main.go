package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by the release build through -ldflags.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spikenet",
		Short: "Spiking neural network simulator",
		Long: `spikenet simulates small networks of spiking units.

Dendrites, synapses and neurons are wired into a directed acyclic graph
and stepped in lockstep. Runs can be plotted, saved to a local store,
exported as Apache Arrow, and driven by agents over MCP.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.spikenet/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newGraphCmd(),
		newPlotCmd(),
		newRunsCmd(),
		newExportCmd(),
		newScenarioCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}
