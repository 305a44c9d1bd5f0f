package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/spikenet/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [scenario]",
		Short: "Print a scenario's wiring graph",
		Long: `Output the wiring of a scenario in DOT (Graphviz) or JSON format.

Dendrites are drawn as ellipses, synapses as diamonds and neurons as
double circles. Driven dendrites are filled.

Examples:
  spikenet graph | dot -Tsvg > demo.svg
  spikenet graph xor --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut && !cmd.Flags().Changed("format") {
				format = string(visualization.FormatJSON)
			}

			f, err := visualization.ParseFormat(format)
			if err != nil {
				return err
			}

			sc, err := loadScenario(cmd, args)
			if err != nil {
				return err
			}
			net, err := sc.Build()
			if err != nil {
				return err
			}

			switch f {
			case visualization.FormatDOT:
				fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(sc.Name, net.Units()))
			case visualization.FormatJSON:
				return writeJSON(cmd, visualization.RenderJSON(net.Units()))
			default:
				return fmt.Errorf("unsupported format %q (use 'dot' or 'json'; 'spikenet plot' renders HTML)", format)
			}
			return nil
		},
	}

	addScenarioFlags(cmd)
	cmd.Flags().String("format", "dot", "Output format: dot or json")

	return cmd
}
