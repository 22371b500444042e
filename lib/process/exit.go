// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run().
func Fatal(err error) {
	Report(os.Stderr, err)
	os.Exit(1)
}

// Report writes err the way Fatal does, without exiting. Errors joined
// with errors.Join are written one per line.
func Report(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
