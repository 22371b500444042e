// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/alecthomas/chroma/v2/quick"

	"github.com/bureau-foundation/telescene/lib/sealed"
	"github.com/bureau-foundation/telescene/lib/snapshot"
)

// dumpSnapshot decodes the snapshot at path and writes it to w as
// indented JSON, syntax-highlighted when color is set. identityPath
// names an age identity file for sealed snapshots.
func dumpSnapshot(path, identityPath string, w io.Writer, color bool) error {
	var identities []age.Identity
	if identityPath != "" {
		var err error
		if identities, err = sealed.LoadIdentities(identityPath); err != nil {
			return fmt.Errorf("loading identity: %w", err)
		}
	}

	frame, err := snapshot.ReadSealed(path, identities)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(frame, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s as JSON: %w", path, err)
	}
	data = append(data, '\n')

	if color {
		if err := quick.Highlight(w, string(data), "json", "terminal256", "monokai"); err == nil {
			return nil
		}
	}
	_, err = w.Write(data)
	return err
}
