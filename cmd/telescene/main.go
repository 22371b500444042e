// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// telescene is a terminal system monitor. It samples host and process
// telemetry into a scene graph and shows it as a live bubbletea widget.
//
// When stdout is not a terminal, or with --once, it prints a single
// frame as plain text and exits. The frame is taken one sampling
// interval after startup so that rates and CPU shares have a baseline.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/telescene/lib/clock"
	"github.com/bureau-foundation/telescene/lib/config"
	"github.com/bureau-foundation/telescene/lib/process"
	"github.com/bureau-foundation/telescene/lib/sealed"
	"github.com/bureau-foundation/telescene/lib/snapshot"
	"github.com/bureau-foundation/telescene/lib/telemetry"
	"github.com/bureau-foundation/telescene/lib/version"
	"github.com/bureau-foundation/telescene/lib/widget"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// options are the command-line flags.
type options struct {
	configPath string
	once       bool
	logOutput  string
	theme      string
	dump       string
	identity   string
	version    bool
	help       bool
}

func parseFlags(args []string) (options, *pflag.FlagSet, error) {
	var flags options
	flagSet := pflag.NewFlagSet("telescene", pflag.ContinueOnError)
	flagSet.StringVar(&flags.configPath, "config", "", "path to the config file (default: $TELESCENE_CONFIG, else built-in defaults)")
	flagSet.BoolVar(&flags.once, "once", false, "print one frame and exit")
	flagSet.StringVar(&flags.logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.StringVar(&flags.theme, "theme", "", "color theme: dark, light or plain (overrides the config)")
	flagSet.StringVar(&flags.dump, "dump", "", "print the snapshot file at this path as JSON and exit")
	flagSet.StringVar(&flags.identity, "identity", "", "age identity file for reading sealed snapshots with --dump")
	flagSet.BoolVar(&flags.version, "version", false, "print version information and exit")
	flagSet.BoolVarP(&flags.help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return options{}, flagSet, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, flagSet, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return flags, flagSet, nil
}

func run(args []string) error {
	flags, flagSet, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) || (err == nil && flags.help) {
		printHelp(flagSet)
		return nil
	}
	if err != nil {
		return err
	}
	if flags.version {
		version.Print("telescene")
		return nil
	}
	if flags.dump != "" {
		return dumpSnapshot(flags.dump, flags.identity, os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	stdoutTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	interactive := stdoutTerminal && !flags.once
	if interactive || cfg.Snapshot.Enabled {
		if err := cfg.EnsurePaths(); err != nil {
			return err
		}
	}

	logger, closeLog, err := newLogger(cfg.Log, interactive, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	sampler, err := newSampler(cfg, logger)
	if err != nil {
		return err
	}
	defer sampler.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !interactive {
		theme := widget.PlainTheme
		width := cfg.Display.Width
		if stdoutTerminal {
			theme, _ = widget.ThemeNamed(cfg.Display.Theme)
			if columns, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width == 0 {
				width = columns
			}
		}
		return printOnce(ctx, sampler, clock.Real(), cfg.Sampling.Interval, os.Stdout, widget.RenderOptions{
			Theme:         theme,
			Width:         width,
			ShowOwnership: cfg.Display.ShowOwnership,
			Selected:      -1,
		})
	}
	return runWidget(ctx, sampler, cfg, logger)
}

// loadConfig applies the --config flag, then TELESCENE_CONFIG, then
// the defaults, and overlays the remaining flags.
func loadConfig(flags options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case flags.configPath != "":
		cfg, err = config.LoadFile(flags.configPath)
	case os.Getenv("TELESCENE_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if flags.theme != "" {
		cfg.Display.Theme = flags.theme
	}
	if flags.logOutput != "" {
		cfg.Log.File = flags.logOutput
		cfg.Log.Format = "json"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newSampler(cfg *config.Config, logger *slog.Logger) (*telemetry.Sampler, error) {
	compression, err := snapshot.ParseCompression(cfg.Snapshot.Compression)
	if err != nil {
		return nil, err
	}
	recipients, err := sealed.ParseRecipients(cfg.Snapshot.Recipients)
	if err != nil {
		return nil, err
	}
	writer := snapshot.NewWriter(cfg.Snapshot.Path(), compression, logger)
	if len(recipients) > 0 {
		writer.SealTo(recipients)
	}
	snapshotInterval := cfg.Snapshot.Interval
	if !cfg.Snapshot.Enabled {
		snapshotInterval = 0
	}
	return telemetry.New(telemetry.Options{
		Clock:            clock.Real(),
		Interval:         cfg.Sampling.Interval,
		ProcRoot:         cfg.Sampling.ProcRoot,
		DiskPath:         cfg.Sampling.DiskPath,
		HistoryLength:    cfg.Sampling.HistoryLength,
		TopProcesses:     cfg.Sampling.TopProcesses,
		Snapshots:        writer,
		SnapshotInterval: snapshotInterval,
		Logger:           logger,
	})
}

// runWidget samples in the background and runs the widget until the
// user quits or ctx is cancelled.
func runWidget(ctx context.Context, sampler *telemetry.Sampler, cfg *config.Config, logger *slog.Logger) error {
	theme, _ := widget.ThemeNamed(cfg.Display.Theme)
	model := widget.NewModel(sampler, widget.Options{
		Theme:         theme,
		ShowOwnership: cfg.Display.ShowOwnership,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	samplerDone := make(chan error, 1)
	go func() { samplerDone <- sampler.Run(ctx) }()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if finalModel, ok := final.(widget.Model); ok {
		finalModel.Close()
	}
	cancel()
	samplerErr := <-samplerDone

	// The program is only killed through ctx: a signal or shutdown.
	if errors.Is(err, tea.ErrProgramKilled) {
		err = nil
	}
	if samplerErr != nil {
		logger.Error("sampler stopped", "error", samplerErr)
	}
	return errors.Join(err, samplerErr)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `telescene: live host and process telemetry in the terminal.

Samples /proc every interval and shows CPU, memory, disk, network and
the busiest processes. When stdout is not a terminal, prints one frame
and exits.

Usage:
  telescene [flags]
  telescene --dump latest.tsnp [--identity key.txt]

Keys:
  j/k   select a process     p   pause the display
  s     save a snapshot      q   quit

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
