package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the service current released version.
// This value can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/hrygo/feedlens/internal/version.Version=v1.0.0"
var Version = "1.0.0"

// DevVersion is the service current development version.
var DevVersion = "1.0.0-dev"

// GitCommit is the git commit hash at build time.
var GitCommit = "unknown"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or equal to target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) > -1
}

func canonical(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return fmt.Sprintf("v%s", version)
}

// String returns the version string with optional commit hash.
func String() string {
	v := Version
	if GitCommit != "" && GitCommit != "unknown" {
		shortCommit := GitCommit
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}
		v = fmt.Sprintf("%s-%s", v, shortCommit)
	}
	return v
}
