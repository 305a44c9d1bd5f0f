package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/spikenet/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show spikenet configuration",
		Long: `View the effective spikenet configuration.

Configuration is stored in ~/.spikenet/config.yaml. Environment
variables (SPIKENET_LOG_LEVEL, SPIKENET_STEPS, SPIKENET_DELAY,
SPIKENET_STORE_ENABLED, SPIKENET_STORE_PATH, SPIKENET_EXPORT_DIR,
SPIKENET_EVENTS_DIR) override the file.

Examples:
  spikenet config list                 # Show all settings
  spikenet config list --yaml > ~/.spikenet/config.yaml`,
	}

	cmd.AddCommand(newConfigListCmd())
	return cmd
}

func newConfigListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			yamlOut, _ := cmd.Flags().GetBool("yaml")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			switch {
			case jsonOut:
				return writeJSON(cmd, cfg)
			case yamlOut:
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("marshal config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			storePath, err := cfg.StorePath()
			if err != nil {
				return err
			}
			eventsDir, err := cfg.EventsDir()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Configuration (%s):\n", filepath.Join(configDir(), "config.yaml"))
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Logging:")
			fmt.Fprintf(w, "  logging.level:       %s\n", valueOrDefault(cfg.Logging.Level, "info"))
			fmt.Fprintf(w, "  logging.events_dir:  %s\n", eventsDir)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Run:")
			fmt.Fprintf(w, "  run.steps:           %s\n", stepsOrDefault(cfg.Run.Steps))
			fmt.Fprintf(w, "  run.delay:           %v\n", cfg.Run.Delay)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Store:")
			fmt.Fprintf(w, "  store.enabled:       %v\n", cfg.Store.Enabled)
			fmt.Fprintf(w, "  store.path:          %s\n", storePath)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Export:")
			fmt.Fprintf(w, "  export.dir:          %s\n", valueOrDefault(cfg.Export.Dir, "(current directory)"))
			return nil
		},
	}

	cmd.Flags().Bool("yaml", false, "Output as YAML (config file format)")
	return cmd
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func stepsOrDefault(steps int) string {
	if steps == 0 {
		return "(scenario default)"
	}
	return fmt.Sprint(steps)
}

func configDir() string {
	dir, err := config.Dir()
	if err != nil {
		return "~/" + config.DirName
	}
	return dir
}
