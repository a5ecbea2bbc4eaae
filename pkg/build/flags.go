// SPDX-License-Identifier: MIT
//
// Package build holds the build information embedded with linker flags:
//
//	go build -ldflags "-X pitch/pkg/build.buildVersion=0.2.0 \
//	  -X pitch/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X pitch/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds that set nothing keep the defaults below.
package build

import "fmt"

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String is the one-line form shown by --version.
func (f ldFlags) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", f.Version, f.Commit, f.Time)
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultFlags()
)

func defaultFlags() *ldFlags {
	return &ldFlags{
		Name:        "pitch",
		Description: "Record or play audio and watch its zoomed pitch spectrum",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies the ldflags variables into the build information. With
// none set it keeps the development defaults. A release build must set the
// version, commit and time together; a partial set is an error.
func Initialize() error {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildVersion == "" && buildCommit == "" && buildTime == "" {
		return nil
	}

	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}

	buildFlags.Version = buildVersion
	buildFlags.Commit = buildCommit
	buildFlags.Time = buildTime
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
