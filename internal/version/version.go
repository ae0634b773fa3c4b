// Package version reports the build of the doclife binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// These variables are set at build time via ldflags
var (
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the version string of the binary. Without ldflags it falls
// back to the VCS stamp the Go toolchain embeds.
func String() string {
	commit, built := Commit, BuildTime
	if commit == "unknown" || built == "unknown" {
		vcsCommit, vcsTime := vcsStamp()
		if commit == "unknown" && vcsCommit != "" {
			commit = vcsCommit
		}
		if built == "unknown" && vcsTime != "" {
			built = vcsTime
		}
	}
	return fmt.Sprintf("doclife dev (commit: %s, built: %s)", short(commit), built)
}

func vcsStamp() (revision, at string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			at = s.Value
		}
	}
	return revision, at
}

func short(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
