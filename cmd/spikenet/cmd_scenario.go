package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/spikenet/internal/scenario"
)

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Inspect built-in scenarios",
		Long: `List the built-in scenarios or print one as YAML.

A dumped scenario is a starting point for your own network:
  spikenet scenario dump demo > mine.yaml
  spikenet run -f mine.yaml`,
	}

	cmd.AddCommand(
		newScenarioListCmd(),
		newScenarioDumpCmd(),
		newScenarioValidateCmd(),
	)
	return cmd
}

type scenarioInfo struct {
	Name    string `json:"name"`
	Steps   int    `json:"steps"`
	Units   int    `json:"units"`
	Stimuli int    `json:"stimuli"`
}

func newScenarioListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			var infos []scenarioInfo
			for _, name := range scenario.BuiltinNames() {
				sc, err := scenario.Builtin(name)
				if err != nil {
					return err
				}
				infos = append(infos, scenarioInfo{
					Name:    name,
					Steps:   sc.Steps,
					Units:   len(sc.Units),
					Stimuli: len(sc.Stimuli),
				})
			}

			if jsonOut {
				return writeJSON(cmd, infos)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-10s %6s %6s %8s\n", "NAME", "STEPS", "UNITS", "STIMULI")
			for _, in := range infos {
				fmt.Fprintf(w, "%-10s %6d %6d %8d\n", in.Name, in.Steps, in.Units, in.Stimuli)
			}
			return nil
		},
	}
}

func newScenarioDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <name>",
		Short: "Print a built-in scenario as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			sc, err := scenario.Builtin(args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, sc)
			}
			data, err := sc.Marshal()
			if err != nil {
				return fmt.Errorf("marshal scenario: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newScenarioValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a scenario file without running it",
		Long: `Parse a scenario file, check names and references, and build the
network to detect invalid wiring and cycles.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			net, err := sc.Build()
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"name":  sc.Name,
					"valid": true,
					"units": net.Len(),
					"edges": len(net.Edges()),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scenario %s is valid: %d units, %d edges, %d steps\n",
				sc.Name, net.Len(), len(net.Edges()), sc.Steps)
			return nil
		},
	}
}
