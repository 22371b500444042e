// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Host is static identity shown in the widget header.
type Host struct {
	Hostname string
	Kernel   string
	CPUModel string
	CPUCount int
}

// Probe reads static host identity. Missing sources leave the
// corresponding field empty rather than failing: a container without
// /proc/cpuinfo still has a hostname worth showing.
func (r *Reader) Probe() Host {
	var host Host
	host.Hostname, _ = os.Hostname()

	var uname unix.Utsname
	if err := unix.Uname(&uname); err == nil {
		host.Kernel = unix.ByteSliceToString(uname.Release[:])
	}

	host.CPUModel, host.CPUCount = r.readCPUInfo()
	return host
}

// readCPUInfo returns the first "model name" and the number of
// "processor" entries in cpuinfo.
func (r *Reader) readCPUInfo() (model string, count int) {
	file, err := os.Open(r.path("cpuinfo"))
	if err != nil {
		return "", 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "processor":
			count++
		case "model name":
			if model == "" {
				model = strings.TrimSpace(value)
			}
		}
	}
	return model, count
}
