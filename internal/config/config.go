// Package config provides unified configuration loading for spikenet.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-user configuration and data directory under $HOME.
const DirName = ".spikenet"

// SpikenetConfig contains all spikenet configuration settings.
type SpikenetConfig struct {
	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Run contains defaults for simulation runs.
	Run RunConfig `json:"run" yaml:"run"`

	// Store contains settings for run persistence.
	Store StoreConfig `json:"store" yaml:"store"`

	// Export contains settings for trace export.
	Export ExportConfig `json:"export" yaml:"export"`
}

// LoggingConfig configures spikenet's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables transition logging to events.jsonl.
	// "trace" additionally logs every unit value on every step.
	Level string `json:"level" yaml:"level"`

	// EventsDir is where events.jsonl is written. Defaults to ~/.spikenet.
	EventsDir string `json:"events_dir,omitempty" yaml:"events_dir,omitempty"`
}

// RunConfig holds simulation run defaults.
type RunConfig struct {
	// Steps overrides the scenario's step count when positive.
	Steps int `json:"steps,omitempty" yaml:"steps,omitempty"`

	// Delay is a cosmetic pause between steps for watching a run live.
	// It never affects results.
	Delay time.Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	// Enabled saves every run to the store.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file. Supports ${VAR} expansion.
	// Defaults to ~/.spikenet/runs.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ExportConfig configures trace export.
type ExportConfig struct {
	// Dir is the default directory for Arrow and HTML output.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Default returns a SpikenetConfig with sensible defaults.
func Default() *SpikenetConfig {
	return &SpikenetConfig{
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Enabled: false,
		},
	}
}

// Dir returns the per-user spikenet directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.spikenet/config.yaml -> environment variables
func Load() (*SpikenetConfig, error) {
	config := Default()

	if dir, err := Dir(); err == nil {
		configPath := filepath.Join(dir, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*SpikenetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Path = expandEnvVars(config.Store.Path)
	config.Export.Dir = expandEnvVars(config.Export.Dir)
	config.Logging.EventsDir = expandEnvVars(config.Logging.EventsDir)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *SpikenetConfig) Validate() error {
	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Run.Steps < 0 {
		return fmt.Errorf("run.steps must be non-negative, got %d", c.Run.Steps)
	}

	if c.Run.Delay < 0 {
		return fmt.Errorf("run.delay must be non-negative, got %v", c.Run.Delay)
	}

	return nil
}

// StorePath returns the configured database path or the default one.
func (c *SpikenetConfig) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "runs.db"), nil
}

// EventsDir returns the configured events directory or the default one.
func (c *SpikenetConfig) EventsDir() (string, error) {
	if c.Logging.EventsDir != "" {
		return c.Logging.EventsDir, nil
	}
	return Dir()
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *SpikenetConfig) {
	if v := os.Getenv("SPIKENET_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("SPIKENET_EVENTS_DIR"); v != "" {
		config.Logging.EventsDir = v
	}

	if v := os.Getenv("SPIKENET_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Run.Steps = n
		}
	}

	if v := os.Getenv("SPIKENET_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Run.Delay = d
		}
	}

	if v := os.Getenv("SPIKENET_STORE_ENABLED"); v != "" {
		config.Store.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("SPIKENET_STORE_PATH"); v != "" {
		config.Store.Path = v
	}

	if v := os.Getenv("SPIKENET_EXPORT_DIR"); v != "" {
		config.Export.Dir = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
