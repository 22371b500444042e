// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proctree

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Process is one live process. Its identity (PID, start time) is
// fixed; counters change on every refresh.
type Process struct {
	PID       int
	StartTime uint64

	mu         sync.Mutex
	ppid       int
	command    string
	state      string
	cpuTicks   uint64
	rssBytes   uint64
	cpuPercent float64
}

// Info is a copy of a process's fields.
type Info struct {
	PID        int     `cbor:"pid" json:"pid"`
	PPID       int     `cbor:"ppid" json:"ppid"`
	Command    string  `cbor:"command" json:"command"`
	State      string  `cbor:"state" json:"state"`
	CPUPercent float64 `cbor:"cpu_percent" json:"cpu_percent"`
	RSSBytes   uint64  `cbor:"rss_bytes" json:"rss_bytes"`
}

// Info returns the process's current fields.
func (p *Process) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Info{
		PID:        p.PID,
		PPID:       p.ppid,
		Command:    p.command,
		State:      p.state,
		CPUPercent: p.cpuPercent,
		RSSBytes:   p.rssBytes,
	}
}

// update applies a new stat sample. totalDelta is the number of
// machine-wide jiffies elapsed since the previous sample.
func (p *Process) update(sample statSample, totalDelta uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if totalDelta > 0 && sample.cpuTicks >= p.cpuTicks {
		p.cpuPercent = float64(sample.cpuTicks-p.cpuTicks) / float64(totalDelta) * 100
	} else {
		p.cpuPercent = 0
	}
	p.ppid = sample.ppid
	p.command = sample.command
	p.state = sample.state
	p.cpuTicks = sample.cpuTicks
	p.rssBytes = sample.rssBytes
}

func newProcess(sample statSample) *Process {
	return &Process{
		PID:       sample.pid,
		StartTime: sample.startTime,
		ppid:      sample.ppid,
		command:   sample.command,
		state:     sample.state,
		cpuTicks:  sample.cpuTicks,
		rssBytes:  sample.rssBytes,
	}
}

// statSample is the parsed content of /proc/<pid>/stat.
type statSample struct {
	pid       int
	ppid      int
	command   string
	state     string
	cpuTicks  uint64
	startTime uint64
	rssBytes  uint64
}

// Field positions after the closing parenthesis of the command name,
// which is field 2 of proc(5); index 0 here is field 3 (state).
const (
	fieldState     = 0
	fieldPPID      = 1
	fieldUserTime  = 11
	fieldSysTime   = 12
	fieldStartTime = 19
	fieldRSS       = 21
)

func readStat(path string, pageSize uint64) (statSample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return statSample{}, err
	}
	return parseStat(string(data), pageSize)
}

// parseStat parses a stat line. The command is enclosed in
// parentheses and may itself contain spaces and parentheses, so it
// runs from the first '(' to the last ')'.
func parseStat(line string, pageSize uint64) (statSample, error) {
	open := strings.IndexByte(line, '(')
	closing := strings.LastIndexByte(line, ')')
	if open < 0 || closing < open {
		return statSample{}, fmt.Errorf("proctree: malformed stat line %q", line)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(line[:open]))
	if err != nil {
		return statSample{}, fmt.Errorf("proctree: stat pid: %w", err)
	}
	fields := strings.Fields(line[closing+1:])
	if len(fields) <= fieldRSS {
		return statSample{}, fmt.Errorf("proctree: stat for pid %d has %d fields", pid, len(fields)+2)
	}

	numbers := map[int]uint64{}
	for _, index := range []int{fieldPPID, fieldUserTime, fieldSysTime, fieldStartTime, fieldRSS} {
		value, err := strconv.ParseInt(fields[index], 10, 64)
		if err != nil {
			return statSample{}, fmt.Errorf("proctree: stat for pid %d, field %d: %w", pid, index+3, err)
		}
		numbers[index] = uint64(max(value, 0))
	}

	return statSample{
		pid:       pid,
		ppid:      int(numbers[fieldPPID]),
		command:   line[open+1 : closing],
		state:     fields[fieldState],
		cpuTicks:  numbers[fieldUserTime] + numbers[fieldSysTime],
		startTime: numbers[fieldStartTime],
		rssBytes:  numbers[fieldRSS] * pageSize,
	}, nil
}
