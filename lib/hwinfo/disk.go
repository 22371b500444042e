// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskInfo is the capacity of the filesystem containing Path, in bytes.
type DiskInfo struct {
	Path      string
	Total     uint64
	Free      uint64
	Available uint64
}

// Used returns Total minus Free.
func (d DiskInfo) Used() uint64 {
	if d.Free > d.Total {
		return 0
	}
	return d.Total - d.Free
}

// UsedPercent reports usage the way df does: used over the space
// visible to unprivileged users (used + available).
func (d DiskInfo) UsedPercent() float64 {
	visible := d.Used() + d.Available
	if visible == 0 {
		return 0
	}
	return float64(d.Used()) / float64(visible) * 100
}

// DiskUsage calls statfs(2) on path.
func DiskUsage(path string) (DiskInfo, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return DiskInfo{}, fmt.Errorf("hwinfo: statfs %s: %w", path, err)
	}
	blockSize := uint64(stat.Bsize)
	return DiskInfo{
		Path:      path,
		Total:     stat.Blocks * blockSize,
		Free:      stat.Bfree * blockSize,
		Available: stat.Bavail * blockSize,
	}, nil
}
