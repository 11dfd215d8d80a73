// Package buildinfo holds build-time metadata injected via -ldflags:
//
//	-X github.com/garyellow/rentcar-bot/internal/buildinfo.Version=v1.4.0
//	-X github.com/garyellow/rentcar-bot/internal/buildinfo.Commit=$(git rev-parse HEAD)
//	-X github.com/garyellow/rentcar-bot/internal/buildinfo.BuildDate=$(date -u +%FT%TZ)
package buildinfo

// Set by the linker; empty in `go run` and test builds.
var (
	Version   = ""
	Commit    = ""
	BuildDate = ""
)

// Info is the build metadata reported in logs, /readyz and the Sentry release.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// Get returns the injected metadata. Version is "dev" when nothing was set,
// and the commit is shortened to 12 characters.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildDate: BuildDate}
	if info.Version == "" {
		info.Version = "dev"
	}
	if len(info.Commit) > 12 {
		info.Commit = info.Commit[:12]
	}
	return info
}

// Release is the Sentry release name: "rentcar-bot@<version>", with the
// commit appended for untagged builds.
func (i Info) Release() string {
	release := "rentcar-bot@" + i.Version
	if i.Version == "dev" && i.Commit != "" {
		release += "+" + i.Commit
	}
	return release
}
