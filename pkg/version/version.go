package version

// Injected at build time via -ldflags "-X tastesync/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata reported by `tastesync version` and /health.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

func GetInfo() Info {
	return Info{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
}

// GetShortCommit returns the first 7 characters of the commit hash.
func GetShortCommit() string {
	if len(GitCommit) >= 7 {
		return GitCommit[:7]
	}
	return GitCommit
}
