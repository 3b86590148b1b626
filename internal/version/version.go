// Package version holds build metadata for the bclegal binary, set with
// -ldflags "-X github.com/54b3r/bclegal-go/internal/version.Version=v0.3.0".
package version

import (
	"fmt"
	"runtime/debug"
)

// Populated at build time. The defaults keep `go run` builds usable.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info is the JSON form served by /api/status and printed by `bclegal version`.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Get returns the build metadata. When Commit was not injected it falls back
// to the VCS revision recorded by the Go toolchain, if any.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildDate: BuildDate, GoVersion: "unknown"}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	if info.Commit != "unknown" {
		return info
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			info.Commit = s.Value[:7]
		}
	}
	return info
}

// String renders Info on one line.
func (i Info) String() string {
	return fmt.Sprintf("bclegal %s (commit %s, built %s, %s)", i.Version, i.Commit, i.BuildDate, i.GoVersion)
}
