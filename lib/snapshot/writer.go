// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"

	"github.com/bureau-foundation/telescene/lib/scene"
	"github.com/bureau-foundation/telescene/lib/sealed"
)

// ErrSealed is returned by Read for a snapshot sealed to age
// recipients. Use ReadSealed with a matching identity.
var ErrSealed = errors.New("snapshot: file is sealed")

// Writer writes frames to one snapshot file. It is safe for concurrent
// use; writes are serialized.
type Writer struct {
	path        string
	compression Compression
	logger      *slog.Logger
	recipients  []age.Recipient

	mu   sync.Mutex
	last Digest
}

// NewWriter returns a writer for path. The parent directory is created
// on the first write. A nil logger discards output.
func NewWriter(path string, compression Compression, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{path: path, compression: compression, logger: logger}
}

// SealTo makes every later write encrypt the file to recipients. With
// no recipients, files are written in the clear.
func (w *Writer) SealTo(recipients []age.Recipient) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recipients = recipients
}

// Path returns the snapshot file path.
func (w *Writer) Path() string {
	return w.path
}

// Write stores frame unless its content equals the last frame written.
// Returns whether the file was written.
func (w *Writer) Write(frame scene.Frame) (bool, error) {
	content, err := ContentDigest(frame)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if content == w.last {
		w.logger.Debug("snapshot unchanged, skipping write", "path", w.path, "digest", content)
		return false, nil
	}
	if err := w.writeLocked(frame); err != nil {
		return false, err
	}
	w.last = content
	return true, nil
}

// Force stores frame regardless of the last frame written.
func (w *Writer) Force(frame scene.Frame) error {
	content, err := ContentDigest(frame)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeLocked(frame); err != nil {
		return err
	}
	w.last = content
	return nil
}

func (w *Writer) writeLocked(frame scene.Frame) error {
	data, sum, err := Encode(frame, w.compression)
	if err != nil {
		return err
	}
	if len(w.recipients) > 0 {
		if data, err = sealed.Seal(data, w.recipients); err != nil {
			return fmt.Errorf("snapshot: sealing: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("snapshot: creating directory: %w", err)
	}
	if err := writeAtomic(w.path, data); err != nil {
		return err
	}
	w.logger.Debug("snapshot written",
		"path", w.path,
		"bytes", len(data),
		"nodes", len(frame.Nodes),
		"digest", sum,
		"sealed", len(w.recipients) > 0,
	)
	return nil
}

// writeAtomic writes data to a temporary file beside path, syncs it and
// renames it into place, so readers never see a partial snapshot.
func writeAtomic(path string, data []byte) error {
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("snapshot: creating temporary file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("snapshot: writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("snapshot: syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("snapshot: closing temporary file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("snapshot: renaming into place: %w", err)
	}

	if parent, err := os.Open(filepath.Dir(path)); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// Read loads and decodes the snapshot at path.
func Read(path string) (scene.Frame, error) {
	return ReadSealed(path, nil)
}

// ReadSealed loads and decodes the snapshot at path, opening it with
// identities if it is sealed. Returns ErrSealed for a sealed file when
// identities is empty.
func ReadSealed(path string, identities []age.Identity) (scene.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scene.Frame{}, err
	}
	if sealed.IsSealed(data) {
		if len(identities) == 0 {
			return scene.Frame{}, fmt.Errorf("%s: %w", path, ErrSealed)
		}
		if data, err = sealed.Open(data, identities); err != nil {
			return scene.Frame{}, fmt.Errorf("snapshot: opening %s: %w", path, err)
		}
	}
	frame, err := Decode(data)
	if err != nil {
		return scene.Frame{}, fmt.Errorf("snapshot: reading %s: %w", path, err)
	}
	return frame, nil
}
