/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package blogstore

import (
	"runtime/debug"

	"go.uber.org/zap"
)

// Build metadata. Values set with -ldflags "-X" win; anything left as
// "unknown" is filled from the binary's embedded build info.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Modified  bool   `json:"modified,omitempty"`
}

// GetVersionInfo returns the build metadata, using the VCS stamp the Go
// toolchain embeds when the linker flags were not set.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	if info.GoVersion == "unknown" && bi.GoVersion != "" {
		info.GoVersion = bi.GoVersion
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// Fields renders the build metadata for structured logs.
func (v VersionInfo) Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", v.Version),
		zap.String("git_commit", v.GitCommit),
		zap.String("build_date", v.BuildDate),
		zap.String("go_version", v.GoVersion),
		zap.Bool("modified", v.Modified),
	}
}
