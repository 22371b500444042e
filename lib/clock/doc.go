// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the telemetry
// sampler and anything else that runs on a schedule.
//
// Production code holds a [Clock] and gets [Real] by default. Tests use
// [Fake], whose time only moves when [FakeClock.Advance] is called, so
// a sampling loop can be stepped one tick at a time:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	sampler := telemetry.NewSampler(graph, telemetry.Options{Clock: fake})
//	go sampler.Run(ctx)
//	fake.WaitForWaiters(1)
//	fake.Advance(time.Second)
package clock
