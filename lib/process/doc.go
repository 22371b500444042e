// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for telescene binaries.
// Fatal is the one place that writes to stderr without the structured
// logger, which may not exist yet when configuration fails or may be
// discarding output while the widget owns the terminal.
package process
