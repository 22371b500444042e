// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Reader reads procfs files below Root.
type Reader struct {
	Root string
}

// NewReader returns a Reader rooted at procRoot, or /proc if empty.
func NewReader(procRoot string) *Reader {
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &Reader{Root: procRoot}
}

func (r *Reader) path(elements ...string) string {
	return r.Root + "/" + strings.Join(elements, "/")
}

// CPUReading holds cumulative jiffies from the aggregate line of
// /proc/stat:
//
//	cpu  user nice system idle iowait irq softirq steal guest guest_nice
//
// Busy is user+nice+system+irq+softirq+steal and Idle is idle+iowait.
// guest time is already folded into user/nice by the kernel.
type CPUReading struct {
	Busy uint64
	Idle uint64
}

// CPU parses the aggregate line of /proc/stat.
func (r *Reader) CPU() (CPUReading, error) {
	path := r.path("stat")
	file, err := os.Open(path)
	if err != nil {
		return CPUReading{}, fmt.Errorf("hwinfo: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return CPUReading{}, fmt.Errorf("hwinfo: %s is empty", path)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 9 || fields[0] != "cpu" {
		return CPUReading{}, fmt.Errorf("hwinfo: %s: unexpected aggregate line %q", path, scanner.Text())
	}

	var values [8]uint64
	for index := range values {
		parsed, err := strconv.ParseUint(fields[index+1], 10, 64)
		if err != nil {
			return CPUReading{}, fmt.Errorf("hwinfo: %s: field %d: %w", path, index+1, err)
		}
		values[index] = parsed
	}

	const (
		user = iota
		nice
		system
		idle
		iowait
		irq
		softirq
		steal
	)
	return CPUReading{
		Busy: values[user] + values[nice] + values[system] + values[irq] + values[softirq] + values[steal],
		Idle: values[idle] + values[iowait],
	}, nil
}

// CPUPercent returns utilization between two readings in [0, 100].
// Returns 0 when no time passed or the counters went backwards.
func CPUPercent(previous, current CPUReading) float64 {
	if current.Busy < previous.Busy || current.Idle < previous.Idle {
		return 0
	}
	busy := current.Busy - previous.Busy
	total := busy + current.Idle - previous.Idle
	if total == 0 {
		return 0
	}
	return float64(busy) / float64(total) * 100
}
