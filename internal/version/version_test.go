package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, "TBL0", info.ImageFormat)

	str := info.String()
	assert.Contains(t, str, "blockframe")
	assert.Contains(t, str, "Version:")
	assert.Contains(t, str, "Image Format: TBL0")
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{
		Version:      "v1.0.0",
		BuildDate:    "2024-01-01T00:00:00Z",
		GitCommit:    "abc123def456",
		GoVersion:    "go1.24.0",
		Release:      true,
		ImageFormat:  "TBL0",
		ArrowVersion: "v18.3.1",
	}

	str := info.String()
	assert.Contains(t, str, "Version: v1.0.0\n")
	assert.Contains(t, str, "Build Date: 2024-01-01T00:00:00Z")
	assert.Contains(t, str, "Git Commit: abc123d\n")
	assert.Contains(t, str, "Go Version: go1.24.0")
	assert.Contains(t, str, "Arrow: v18.3.1")
	assert.NotContains(t, str, "Module:")
}

func TestBuildInfoStringOmitsUnknowns(t *testing.T) {
	info := BuildInfo{Version: "dev", BuildDate: unknownValue, GitCommit: "abc-dirty", Dirty: true}

	str := info.String()
	assert.Contains(t, str, "Version: dev (dirty) (development build)")
	assert.NotContains(t, str, "Build Date")
}

func TestIsRelease(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	tests := []struct {
		version  string
		expected bool
	}{
		{"v1.0.0", true},
		{"dev", false},
		{"v1.0.0-rc.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			Version = tt.version
			assert.Equal(t, tt.expected, IsRelease())

			info := Info()
			assert.Equal(t, tt.expected, info.Release)
			assert.Equal(t, !tt.expected, strings.Contains(info.String(), "(development build)"))
		})
	}
}
