// Package version holds build information for the abicompat binary.
package version

import (
	"runtime"
	"runtime/debug"
)

// Overridden at build time:
// go build -ldflags "-X abicompat/internal/version.Version=1.0.0 -X abicompat/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// revision returns Commit, or the VCS revision stamped by the go tool when
// no commit was set through ldflags.
func revision() (commit, date string) {
	commit, date = Commit, BuildDate
	if commit != "unknown" {
		return commit, date
	}
	info, ok := readBuildInfo()
	if !ok {
		return commit, date
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
		case "vcs.time":
			if date == "unknown" {
				date = s.Value
			}
		}
	}
	return commit, date
}

// Info returns the version with an abbreviated commit when known.
func Info() string {
	commit, _ := revision()
	if commit != "unknown" && len(commit) > 7 {
		return Version + " (" + commit[:7] + ")"
	}
	return Version
}

// Full returns the version, commit, build date and Go toolchain, one per line.
func Full() string {
	commit, date := revision()
	return "abicompat version " + Version + "\n" +
		"Commit: " + commit + "\n" +
		"Built: " + date + "\n" +
		"Go: " + runtime.Version()
}
