// Package version reports build information for the blockframe binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/paveg/blockframe/internal/persist"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7
	arrowModule      = "github.com/apache/arrow-go/v18"
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// BuildInfo contains build information plus the storage formats the binary speaks
type BuildInfo struct {
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	Dirty        bool   `json:"dirty"`
	Release      bool   `json:"release"`
	Module       string `json:"module"`
	ImageFormat  string `json:"image_format"`
	ArrowVersion string `json:"arrow_version"`
}

// Info returns the build information of the running binary
func Info() BuildInfo {
	info := BuildInfo{
		Version:      Version,
		BuildDate:    BuildDate,
		GitCommit:    GitCommit,
		GoVersion:    GoVersion,
		Dirty:        strings.HasSuffix(GitCommit, "-dirty"),
		Release:      IsRelease(),
		ImageFormat:  persist.Magic,
		ArrowVersion: unknownValue,
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.Module = buildInfo.Main.Path
		for _, dep := range buildInfo.Deps {
			if dep.Path == arrowModule {
				info.ArrowVersion = dep.Version
			}
		}
	}
	return info
}

// String returns a formatted version string
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString("blockframe\n")
	fmt.Fprintf(&sb, "Version: %s", b.Version)
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	if !b.Release {
		sb.WriteString(" (development build)")
	}
	sb.WriteString("\n")

	if b.BuildDate != unknownValue && b.BuildDate != "" {
		fmt.Fprintf(&sb, "Build Date: %s\n", b.BuildDate)
	}
	if b.GitCommit != unknownValue && b.GitCommit != "" {
		commit := b.GitCommit
		if len(commit) > commitHashLength {
			commit = commit[:commitHashLength]
		}
		fmt.Fprintf(&sb, "Git Commit: %s\n", commit)
	}
	fmt.Fprintf(&sb, "Go Version: %s\n", b.GoVersion)
	if b.Module != "" {
		fmt.Fprintf(&sb, "Module: %s\n", b.Module)
	}
	fmt.Fprintf(&sb, "Image Format: %s\n", b.ImageFormat)
	if b.ArrowVersion != "" {
		fmt.Fprintf(&sb, "Arrow: %s\n", b.ArrowVersion)
	}
	return sb.String()
}

// IsRelease returns true if this is a release version (not dev)
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}
