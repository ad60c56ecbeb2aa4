// Package version holds the build version of nqs.
package version

import (
	"fmt"
	"runtime/debug"
)

// Overridden at build time:
// go build -ldflags "-X nqs/internal/version.Version=0.2.0 -X nqs/internal/version.Commit=abc123"
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with a short commit hash when one is known.
func Info() string {
	if c := shortCommit(); c != "" {
		return Version + " (" + c + ")"
	}
	return Version
}

// Full returns multi-line version information including the Go toolchain.
func Full() string {
	goVersion := "unknown"
	if bi, ok := debug.ReadBuildInfo(); ok {
		goVersion = bi.GoVersion
	}
	return fmt.Sprintf("nqs version %s\nCommit: %s\nBuilt: %s\nGo: %s", Version, Commit, BuildDate, goVersion)
}

func shortCommit() string {
	if Commit == "unknown" || len(Commit) <= 7 {
		return ""
	}
	return Commit[:7]
}
