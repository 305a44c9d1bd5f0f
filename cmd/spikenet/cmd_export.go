package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/spikenet/internal/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a saved run as Apache Arrow",
		Long: `Write a saved run's potential series to an Arrow IPC file with one row
per (unit, step) sample. Columns: unit, kind, step, value. The run ID,
scenario and step count are stored in the schema metadata.

The default output is <export.dir>/<run-id>.arrow, or the current
directory when export.dir is not configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			output, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			run, err := loadRun(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join(cfg.Export.Dir, run.ID+".arrow")
			}
			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}

			size, err := export.WriteArrowFile(output, run)
			if err != nil {
				return err
			}
			rows := 0
			for _, u := range run.Units {
				rows += len(u.Values)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{"path": output, "bytes": size, "rows": rows})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s rows (%s) to %s\n",
				humanize.Comma(int64(rows)), humanize.Bytes(uint64(size)), output)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file path")
	return cmd
}
