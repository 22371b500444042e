// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/telescene/lib/sealed"
)

// Config is the master configuration for Telescene.
type Config struct {
	// Sampling configures the telemetry loop.
	Sampling SamplingConfig `yaml:"sampling"`

	// Display configures the terminal widget.
	Display DisplayConfig `yaml:"display"`

	// Snapshot configures on-disk frame snapshots.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`
}

// SamplingConfig configures the telemetry loop.
type SamplingConfig struct {
	// Interval is the time between samples.
	// Default: 1s
	Interval time.Duration `yaml:"interval"`

	// ProcRoot is the procfs mount to read.
	// Default: /proc
	ProcRoot string `yaml:"proc_root"`

	// DiskPath is the filesystem whose usage is shown.
	// Default: /
	DiskPath string `yaml:"disk_path"`

	// HistoryLength is the number of samples kept by history nodes.
	// Default: 60
	HistoryLength int `yaml:"history_length"`

	// TopProcesses is the number of processes shown, busiest first.
	// Default: 10
	TopProcesses int `yaml:"top_processes"`
}

// DisplayConfig configures the terminal widget.
type DisplayConfig struct {
	// Theme selects the color palette.
	// Values: "dark", "light", "plain"
	// Default: dark
	Theme string `yaml:"theme"`

	// Width caps the rendered width in cells. Zero uses the full
	// terminal width.
	Width int `yaml:"width"`

	// ShowOwnership adds the scene graph's ownership counters to the
	// status line.
	// Default: true
	ShowOwnership bool `yaml:"show_ownership"`
}

// SnapshotConfig configures on-disk frame snapshots.
type SnapshotConfig struct {
	// Enabled turns on periodic snapshots. The "s" key saves a
	// snapshot regardless.
	Enabled bool `yaml:"enabled"`

	// Directory holds snapshot files.
	// Default: ${HOME}/.local/state/telescene
	Directory string `yaml:"directory"`

	// File is the snapshot file name inside Directory.
	// Default: latest.tsnp
	File string `yaml:"file"`

	// Interval is the time between periodic snapshots.
	// Default: 30s
	Interval time.Duration `yaml:"interval"`

	// Compression is the body compression.
	// Values: "none", "lz4", "zstd"
	// Default: zstd
	Compression string `yaml:"compression"`

	// Recipients are age public keys (age1...). When set, snapshot
	// files are sealed to them and need a matching identity to read.
	Recipients []string `yaml:"recipients"`
}

// Path returns the full snapshot file path.
func (s SnapshotConfig) Path() string {
	return filepath.Join(s.Directory, s.File)
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is the minimum level logged.
	// Values: "debug", "info", "warn", "error"
	// Default: info
	Level string `yaml:"level"`

	// Format selects the slog handler.
	// Values: "text", "json"
	// Default: text
	Format string `yaml:"format"`

	// File is where log output goes. Empty means stderr. While the
	// widget owns the terminal, stderr output is discarded unless a
	// file is set.
	File string `yaml:"file"`
}

// SlogLevel returns Level as a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

var (
	themes       = []string{"dark", "light", "plain"}
	compressions = []string{"none", "lz4", "zstd"}
	logFormats   = []string{"text", "json"}
	logLevels    = []string{"debug", "info", "warn", "error"}
)

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Sampling: SamplingConfig{
			Interval:      time.Second,
			ProcRoot:      "/proc",
			DiskPath:      "/",
			HistoryLength: 60,
			TopProcesses:  10,
		},
		Display: DisplayConfig{
			Theme:         "dark",
			ShowOwnership: true,
		},
		Snapshot: SnapshotConfig{
			Directory:   filepath.Join(homeDir, ".local", "state", "telescene"),
			File:        "latest.tsnp",
			Interval:    30 * time.Second,
			Compression: "zstd",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the file named by TELESCENE_CONFIG.
// Returns an error if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv("TELESCENE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TELESCENE_CONFIG environment variable not set; " +
			"set it to the path of your telescene.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from path on top of [Default] and
// expands variables in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	return yaml.Unmarshal(data, c)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Snapshot.Directory = expandVars(c.Snapshot.Directory, vars)
	vars["TELESCENE_STATE"] = c.Snapshot.Directory

	c.Snapshot.File = expandVars(c.Snapshot.File, vars)
	c.Sampling.ProcRoot = expandVars(c.Sampling.ProcRoot, vars)
	c.Sampling.DiskPath = expandVars(c.Sampling.DiskPath, vars)
	c.Log.File = expandVars(c.Log.File, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default} in s. Known vars take
// precedence over the environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Sampling.Interval < 10*time.Millisecond {
		errs = append(errs, fmt.Errorf("sampling.interval must be at least 10ms, got %s", c.Sampling.Interval))
	}
	if c.Sampling.ProcRoot == "" {
		errs = append(errs, errors.New("sampling.proc_root is required"))
	}
	if c.Sampling.HistoryLength < 2 {
		errs = append(errs, fmt.Errorf("sampling.history_length must be at least 2, got %d", c.Sampling.HistoryLength))
	}
	if c.Sampling.TopProcesses < 0 {
		errs = append(errs, fmt.Errorf("sampling.top_processes must not be negative, got %d", c.Sampling.TopProcesses))
	}

	if !slices.Contains(themes, c.Display.Theme) {
		errs = append(errs, fmt.Errorf("display.theme must be one of: %v", themes))
	}
	if c.Display.Width < 0 {
		errs = append(errs, fmt.Errorf("display.width must not be negative, got %d", c.Display.Width))
	}

	if c.Snapshot.Directory == "" || c.Snapshot.File == "" {
		errs = append(errs, errors.New("snapshot.directory and snapshot.file are required"))
	}
	if c.Snapshot.Enabled && c.Snapshot.Interval < c.Sampling.Interval {
		errs = append(errs, fmt.Errorf("snapshot.interval (%s) must not be shorter than sampling.interval (%s)",
			c.Snapshot.Interval, c.Sampling.Interval))
	}
	if !slices.Contains(compressions, c.Snapshot.Compression) {
		errs = append(errs, fmt.Errorf("snapshot.compression must be one of: %v", compressions))
	}
	if _, err := sealed.ParseRecipients(c.Snapshot.Recipients); err != nil {
		errs = append(errs, fmt.Errorf("snapshot.recipients: %w", err))
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the snapshot directory.
func (c *Config) EnsurePaths() error {
	if err := os.MkdirAll(c.Snapshot.Directory, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Snapshot.Directory, err)
	}
	return nil
}
