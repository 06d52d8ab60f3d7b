package version

import "fmt"

// Version is stamped at build time:
// go build -ldflags "-X git.home.luguber.info/inful/sitepipe/internal/version.Version=v0.3.0".
var Version = "dev"

// Build metadata, stamped the same way.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for --version output.
func String() string {
	if GitCommit == "unknown" && BuildTime == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
