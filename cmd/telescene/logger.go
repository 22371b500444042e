// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/telescene/lib/config"
)

// newLogger builds the process logger. With a log file, records go
// there in the configured format. Without one, they go to stderr,
// except while the widget owns the terminal, when they are discarded.
// The returned function closes the log file.
func newLogger(cfg config.LogConfig, interactive bool, stderr io.Writer) (*slog.Logger, func(), error) {
	output := stderr
	closeLog := func() {}
	switch {
	case cfg.File != "":
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		output = file
		closeLog = func() { file.Close() }
	case interactive:
		return slog.New(slog.DiscardHandler), closeLog, nil
	}

	options := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, options)
	} else {
		handler = slog.NewTextHandler(output, options)
	}
	return slog.New(handler), closeLog, nil
}
