package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/spikenet/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage saved runs",
		Long: `List, inspect and delete runs saved with 'spikenet run --save'.

Runs live in the SQLite store at ~/.spikenet/runs.db unless store.path
is configured.`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
	)
	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if runs == nil {
				runs = []store.RunSummary{}
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{"runs": runs, "count": len(runs)})
			}

			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No saved runs. Use 'spikenet run --save' to keep one.")
				return nil
			}
			fmt.Fprintf(w, "%-36s  %-12s %8s %6s %11s  %s\n", "ID", "SCENARIO", "STEPS", "UNITS", "TRANSITIONS", "CREATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%-36s  %-12s %8s %6d %11s  %s\n",
					r.ID, r.Scenario, humanize.Comma(int64(r.Steps)), r.Units,
					humanize.Comma(int64(r.Transitions)), humanize.Time(r.CreatedAt))
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			run, err := loadRun(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, run)
			}
			w := cmd.OutOrStdout()
			printRun(w, run, false)
			fmt.Fprintf(w, "\nCreated %s (%s)\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(run.CreatedAt))
			return nil
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, map[string]any{"deleted": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}
