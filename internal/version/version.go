// Package version exposes the build metadata stamped into the binary.
package version

import "runtime"

// Stamped at build time via -ldflags "-X .../internal/version.version=...".
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Info is the payload of the version endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
	}
}
