// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Telescene packages.
//
// [RequireReceive] and [RequireClosed] (which drains until close)
// encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls. Sampling loops under test
// run on the fake clock from lib/clock; these helpers are the only
// place the test suite waits on the wall clock.
//
// [WriteFiles] lays out a synthetic file tree, typically a fake proc
// root for hwinfo, proctree and telemetry tests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Telescene-internal dependencies.
package testutil
