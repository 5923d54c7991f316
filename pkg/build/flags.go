// SPDX-License-Identifier: MIT
//
// Package build carries build metadata embedded at compile time via
// linker flags: application name, build timestamp, Git commit hash,
// and semantic version. Binaries built without ldflags (go run, test
// binaries) fall back to development defaults instead of failing.
package build

import "fmt"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation and stay empty for plain go build / go run invocations.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "spectra",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies build information from the ldflags variables into the
// buildFlags struct, keeping the development defaults for any flag the
// build did not set. Call once early in program startup.
func Initialize() {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build information. Safe to call before
// Initialize; the development defaults are returned in that case.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the build information for version output and startup logs.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
