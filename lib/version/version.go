// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
)

// Stamped at link time:
//
//	go build -ldflags "-X github.com/bureau-foundation/telescene/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// build is what Info prints, after falling back to the binary's
// embedded VCS settings.
type build struct {
	commit string
	dirty  bool
	time   string
}

func current() build {
	stamped := build{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return stamped
	}
	return stamped.withSettings(info.Settings)
}

// withSettings fills unstamped fields from vcs.* build settings.
func (b build) withSettings(settings []debug.BuildSetting) build {
	if b.commit != "unknown" {
		return b
	}
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			b.commit = setting.Value[:min(len(setting.Value), 7)]
		case "vcs.modified":
			b.dirty = setting.Value == "true"
		case "vcs.time":
			if b.time == "unknown" {
				b.time = setting.Value
			}
		}
	}
	return b
}

func (b build) String() string {
	commit := b.commit
	if b.dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, b.time)
}

// Info returns "VERSION (COMMIT[-dirty], BUILDTIME)".
func Info() string {
	return current().String()
}

// Full returns Info followed by the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Print writes "name Full()" to stdout.
func Print(name string) {
	Fprint(os.Stdout, name)
}

// Fprint writes "name Full()" to w.
func Fprint(w io.Writer, name string) {
	fmt.Fprintf(w, "%s %s\n", name, Full())
}
