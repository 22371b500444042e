// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MemoryInfo is a snapshot of /proc/meminfo, in bytes.
type MemoryInfo struct {
	Total     uint64
	Available uint64
	SwapTotal uint64
	SwapFree  uint64
}

// Used returns Total minus Available.
func (m MemoryInfo) Used() uint64 {
	if m.Available > m.Total {
		return 0
	}
	return m.Total - m.Available
}

// UsedPercent returns Used as a percentage of Total.
func (m MemoryInfo) UsedPercent() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Used()) / float64(m.Total) * 100
}

// SwapUsed returns SwapTotal minus SwapFree.
func (m MemoryInfo) SwapUsed() uint64 {
	if m.SwapFree > m.SwapTotal {
		return 0
	}
	return m.SwapTotal - m.SwapFree
}

// Memory parses /proc/meminfo. MemTotal and MemAvailable are required;
// swap fields default to zero.
func (r *Reader) Memory() (MemoryInfo, error) {
	path := r.path("meminfo")
	file, err := os.Open(path)
	if err != nil {
		return MemoryInfo{}, fmt.Errorf("hwinfo: %w", err)
	}
	defer file.Close()

	var info MemoryInfo
	targets := map[string]*uint64{
		"MemTotal":     &info.Total,
		"MemAvailable": &info.Available,
		"SwapTotal":    &info.SwapTotal,
		"SwapFree":     &info.SwapFree,
	}

	seen := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		// "MemTotal:       32823216 kB"
		key, rest, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		target, wanted := targets[key]
		if !wanted {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return MemoryInfo{}, fmt.Errorf("hwinfo: %s: %s has no value", path, key)
		}
		value, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return MemoryInfo{}, fmt.Errorf("hwinfo: %s: %s: %w", path, key, err)
		}
		if len(fields) > 1 && fields[1] == "kB" {
			value *= 1024
		}
		*target = value
		if key == "MemTotal" || key == "MemAvailable" {
			seen++
		}
	}
	if err := scanner.Err(); err != nil {
		return MemoryInfo{}, fmt.Errorf("hwinfo: reading %s: %w", path, err)
	}
	if seen < 2 {
		return MemoryInfo{}, fmt.Errorf("hwinfo: %s lacks MemTotal or MemAvailable", path)
	}
	return info, nil
}

// LoadAverage holds the 1, 5 and 15 minute load averages.
type LoadAverage struct {
	One, Five, Fifteen float64
}

// Load parses /proc/loadavg.
func (r *Reader) Load() (LoadAverage, error) {
	path := r.path("loadavg")
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadAverage{}, fmt.Errorf("hwinfo: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return LoadAverage{}, fmt.Errorf("hwinfo: %s: expected 3 load values, got %q", path, data)
	}
	var values [3]float64
	for index := range values {
		values[index], err = strconv.ParseFloat(fields[index], 64)
		if err != nil {
			return LoadAverage{}, fmt.Errorf("hwinfo: %s: %w", path, err)
		}
	}
	return LoadAverage{One: values[0], Five: values[1], Fifteen: values[2]}, nil
}

// Uptime parses the first field of /proc/uptime.
func (r *Reader) Uptime() (time.Duration, error) {
	path := r.path("uptime")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("hwinfo: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("hwinfo: %s is empty", path)
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("hwinfo: %s: %w", path, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
