// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of telescene is running.
//
// Release builds stamp [Version], [GitCommit], [GitDirty] and
// [BuildTime] with -ldflags -X. Anything left unstamped is filled from
// the VCS settings the Go toolchain records in the binary, so a plain
// "go install" still reports its revision. Test binaries carry no VCS
// settings and report "unknown".
//
// [Info] is the one-line form, [Full] adds the Go toolchain and
// platform, and [Print] / [Fprint] write "telescene <Full>" for
// --version.
package version
