// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Telescene.
//
// Configuration is loaded from a single file specified by either the
// TELESCENE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. Running without a file uses [Default].
//
// Files are YAML. Files ending in .json or .jsonc are accepted too:
// comments and trailing commas are stripped with tidwall/jsonc and the
// result (valid YAML, being JSON) goes through the same decoder.
// Durations are written as Go duration strings ("500ms", "2s").
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${TELESCENE_STATE} (the snapshot directory), and
// ${VAR:-default} patterns are expanded.
//
// Snapshot recipients (age public keys) are checked by [Config.Validate]
// so that a typo fails at startup rather than at the first snapshot.
//
// Key exports:
//
//   - [Config] -- master struct with Sampling, Display, Snapshot, Log
//   - [Default] -- returns a Config with defaults for an interactive terminal
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
