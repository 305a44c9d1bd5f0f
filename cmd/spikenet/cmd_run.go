package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nvandessel/spikenet/internal/logging"
	"github.com/nvandessel/spikenet/internal/network"
	"github.com/nvandessel/spikenet/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "Run a scenario and summarize each unit",
		Long: `Build a scenario, step it and print each unit's final potential,
range and activation count.

The scenario is a built-in name (see 'spikenet scenario list') or a YAML
file given with --file. Without either the demo network runs.

Examples:
  spikenet run                       # demo network, 100 steps
  spikenet run xor --steps 500       # longer run of the xor scenario
  spikenet run -f net.yaml --save    # run a file and keep it in the store
  spikenet run --delay 10ms          # pace the run to watch it live`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			steps, _ := cmd.Flags().GetInt("steps")
			delay, _ := cmd.Flags().GetDuration("delay")
			save, _ := cmd.Flags().GetBool("save")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("steps") {
				steps = cfg.Run.Steps
			}
			if !cmd.Flags().Changed("delay") {
				delay = cfg.Run.Delay
			}
			if !cmd.Flags().Changed("save") {
				save = cfg.Store.Enabled
			}
			if steps < 0 {
				return fmt.Errorf("--steps must be non-negative, got %d", steps)
			}
			if delay < 0 {
				return fmt.Errorf("--delay must be non-negative, got %v", delay)
			}

			sc, err := loadScenario(cmd, args)
			if err != nil {
				return err
			}

			eventsDir, err := cfg.EventsDir()
			if err != nil {
				return err
			}
			runID := uuid.NewString()
			events := logging.NewEventLogger(eventsDir, cfg.Logging.Level).WithRun(runID)
			defer events.Close()

			opts := []network.Option{
				network.WithLogger(logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())),
				network.WithTransitionHook(events.LogTransition),
			}
			if delay > 0 {
				opts = append(opts, network.WithStepHook(pace(delay)))
			}

			ctx, cancel := signalContext(context.Background())
			defer cancel()

			run, runErr := sc.Run(ctx, steps, opts...)
			if run == nil {
				return runErr
			}
			run.ID = runID

			if save {
				s, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer s.Close()
				if _, err := s.SaveRun(ctx, run); err != nil {
					return fmt.Errorf("save run: %w", err)
				}
			}

			if jsonOut {
				if err := writeJSON(cmd, runResult(run, save, runErr)); err != nil {
					return err
				}
			} else {
				printRun(cmd.OutOrStdout(), run, save)
			}
			if runErr != nil {
				return fmt.Errorf("run stopped after %d steps: %w", run.Steps, runErr)
			}
			return nil
		},
	}

	addScenarioFlags(cmd)
	cmd.Flags().Int("steps", 0, "Number of steps (default: the scenario's own, or run.steps from config)")
	cmd.Flags().Duration("delay", 0, "Pause between steps, for watching a run live")
	cmd.Flags().Bool("save", false, "Save the run to the store (default: store.enabled from config)")

	return cmd
}

// pace returns a step hook that sleeps between steps. It never touches
// unit state, so results are the same with or without it.
func pace(delay time.Duration) func(ctx context.Context, step int) error {
	return func(ctx context.Context, step int) error {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// unitStats summarizes one unit's series.
type unitStats struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	Final       float64 `json:"final"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Activations []int   `json:"activations"`
}

func statsFor(u store.UnitTrace, activations []int) unitStats {
	st := unitStats{Name: u.Name, Kind: u.Kind, Activations: activations}
	if st.Activations == nil {
		st.Activations = []int{}
	}
	if len(u.Values) == 0 {
		return st
	}
	st.Final = u.Values[len(u.Values)-1]
	st.Min, st.Max = math.Inf(1), math.Inf(-1)
	for _, v := range u.Values {
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	return st
}

func runResult(run *store.RunRecord, saved bool, runErr error) map[string]any {
	activations := run.Activations()
	var stats []unitStats
	for _, u := range run.Units {
		if len(u.Values) == 0 {
			continue
		}
		stats = append(stats, statsFor(u, activations[u.Name]))
	}
	out := map[string]any{
		"run_id":      run.ID,
		"scenario":    run.Scenario,
		"steps":       run.Steps,
		"saved":       saved,
		"transitions": len(run.Transitions),
		"units":       stats,
	}
	if runErr != nil {
		out["error"] = runErr.Error()
	}
	return out
}

func printRun(w io.Writer, run *store.RunRecord, saved bool) {
	fmt.Fprintf(w, "Run %s: scenario %s, %s steps, %s transitions\n",
		run.ID, run.Scenario, humanize.Comma(int64(run.Steps)), humanize.Comma(int64(len(run.Transitions))))
	if saved {
		fmt.Fprintln(w, "Saved to store.")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-12s %-9s %9s %9s %9s %7s\n", "UNIT", "KIND", "FINAL", "MIN", "MAX", "SPIKES")

	activations := run.Activations()
	for _, u := range run.Units {
		if len(u.Values) == 0 {
			fmt.Fprintf(w, "  %-12s %-9s %9s %9s %9s %7s\n", u.Name, u.Kind, "-", "-", "-", "-")
			continue
		}
		st := statsFor(u, activations[u.Name])
		fmt.Fprintf(w, "  %-12s %-9s %9.2f %9.2f %9.2f %7d\n",
			st.Name, st.Kind, st.Final, st.Min, st.Max, len(st.Activations))
	}
}
