package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the current application version
	Version = "1.0.0"

	// DataFormatVersion identifies the unified dataset CSV layout.
	// Bump when columns are added or renamed so older exports can be
	// told apart from current ones.
	DataFormatVersion = "v1"

	// APIVersion covers the JSON API and WebSocket message envelope
	APIVersion = "v1"
)

// Populated at build time via -ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is the version payload served by the version endpoint
// and printed by the CLI tools.
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo collects static and runtime version details
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}
}

// GetVersionString returns the short human-readable version
func GetVersionString() string {
	return fmt.Sprintf("EFI Pulse v%s", Version)
}

// GetFullVersionString includes build and platform details
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf(
		"%s (built: %s, commit: %s, go: %s, os: %s/%s)",
		GetVersionString(),
		info.BuildTime,
		info.GitCommit,
		info.GoVersion,
		info.OS,
		info.Architecture,
	)
}
