// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// InterfaceCounters holds cumulative byte counters of one network
// interface.
type InterfaceCounters struct {
	Name          string
	ReceiveBytes  uint64
	TransmitBytes uint64
}

// InterfaceRate is the throughput of one interface between two
// readings, in bytes per second.
type InterfaceRate struct {
	Name     string
	Receive  float64
	Transmit float64
}

// Network parses /proc/net/dev. The loopback interface is skipped.
// Results are sorted by interface name.
func (r *Reader) Network() ([]InterfaceCounters, error) {
	path := r.path("net", "dev")
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hwinfo: %w", err)
	}
	defer file.Close()

	var counters []InterfaceCounters
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		// Two header lines, then
		// "  eth0: 1234 10 0 0 0 0 0 0 5678 20 0 0 0 0 0 0"
		// with 8 receive fields followed by 8 transmit fields.
		name, rest, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "lo" {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 16 {
			return nil, fmt.Errorf("hwinfo: %s: interface %s has %d fields, want 16", path, name, len(fields))
		}
		receive, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("hwinfo: %s: %s receive bytes: %w", path, name, err)
		}
		transmit, err := strconv.ParseUint(fields[8], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("hwinfo: %s: %s transmit bytes: %w", path, name, err)
		}
		counters = append(counters, InterfaceCounters{Name: name, ReceiveBytes: receive, TransmitBytes: transmit})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("hwinfo: reading %s: %w", path, err)
	}
	slices.SortFunc(counters, func(a, b InterfaceCounters) int { return strings.Compare(a.Name, b.Name) })
	return counters, nil
}

// NetworkRates pairs interfaces present in both readings and returns
// their throughput over interval. Counters that went backwards (an
// interface was recreated) report zero.
func NetworkRates(previous, current []InterfaceCounters, interval time.Duration) []InterfaceRate {
	if interval <= 0 {
		return nil
	}
	before := make(map[string]InterfaceCounters, len(previous))
	for _, counters := range previous {
		before[counters.Name] = counters
	}

	seconds := interval.Seconds()
	var rates []InterfaceRate
	for _, now := range current {
		then, ok := before[now.Name]
		if !ok {
			continue
		}
		rates = append(rates, InterfaceRate{
			Name:     now.Name,
			Receive:  counterRate(then.ReceiveBytes, now.ReceiveBytes, seconds),
			Transmit: counterRate(then.TransmitBytes, now.TransmitBytes, seconds),
		})
	}
	return rates
}

func counterRate(then, now uint64, seconds float64) float64 {
	if now < then {
		return 0
	}
	return float64(now-then) / seconds
}
