// Package version carries build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X calendar-cache/internal/version.Version=v1.2.0" ./cmd/calcache
package version

import "fmt"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata reported by the CLI and the HTTP index.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Current returns the metadata of the running binary.
func Current() Info {
	return Info{Version: Version, Commit: Commit, BuildDate: BuildDate}
}

func (i Info) String() string {
	return fmt.Sprintf("calcache %s (commit %s, built %s)", i.Version, i.Commit, i.BuildDate)
}
