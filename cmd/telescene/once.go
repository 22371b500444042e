// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/telescene/lib/clock"
	"github.com/bureau-foundation/telescene/lib/telemetry"
	"github.com/bureau-foundation/telescene/lib/widget"
)

// printOnce samples twice, interval apart, and writes the second frame
// to w. The first sample only establishes the baseline for CPU shares
// and network rates.
func printOnce(ctx context.Context, sampler *telemetry.Sampler, clk clock.Clock, interval time.Duration, w io.Writer, options widget.RenderOptions) error {
	if _, err := sampler.Sample(clk.Now()); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clk.After(interval):
	}
	frame, err := sampler.Sample(clk.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, widget.Render(frame, options))
	return err
}
