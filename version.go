// Package cerberus provides version information for the Cerberus gateway.
package cerberus

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build metadata, overridden at release time via
// -ldflags "-X github.com/kadirpekel/cerberus.Version=...".
var (
	Version   = "0.1.0-alpha"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersion returns the running build's version information. Builds made
// without ldflags fall back to the VCS revision stamped by the toolchain.
func GetVersion() Info {
	commit := GitCommit
	if commit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					commit = s.Value
					break
				}
			}
		}
	}
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: commit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the version on one line.
func (i Info) String() string {
	return fmt.Sprintf("Cerberus %s (built %s, commit %s, %s %s)",
		i.Version, i.BuildDate, i.GitCommit, i.GoVersion, i.Platform)
}
