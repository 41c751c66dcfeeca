// Package buildinfo provides build-time properties injected via ldflags.
package buildinfo

import "runtime/debug"

// Properties holds build-time properties injected via ldflags.
type Properties struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Package-level variables for ldflags injection (unexported).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Get returns the current build properties. When the commit was not
// injected via ldflags it falls back to the VCS revision stamped by
// the Go toolchain, if any.
func Get() Properties {
	p := Properties{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
	}
	if p.GitCommit == "unknown" {
		if rev, ok := vcsRevision(); ok {
			p.GitCommit = rev
		}
	}
	return p
}

// vcsRevision reads the VCS revision recorded in the binary's build
// information.
func vcsRevision() (string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value, true
		}
	}
	return "", false
}
