// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
)

// WriteFiles writes each entry of files (slash-separated path relative
// to root, mapped to content) below root, creating directories as
// needed. Existing files are overwritten.
//
//	testutil.WriteFiles(t, root, map[string]string{
//		"stat":     "cpu  10 0 5 100 0 0 0 0 0 0\n",
//		"42/stat":  "42 (worker) S 1 ...",
//	})
func WriteFiles(t TB, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}
