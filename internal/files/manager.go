package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"eficli/internal/config"
)

// Manager provides file management operations over the application's
// directory layout
type Manager struct {
	paths *config.Paths
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths) *Manager {
	return &Manager{paths: paths}
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	fullPath := m.resolvePath(path)
	_, err := os.Stat(fullPath)
	exists := err == nil

	slog.Debug("FileExists check",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Bool("exists", exists))

	return exists
}

// ResolveReport resolves a report artifact name to its path for
// download. The name must be a bare file name; anything carrying a
// path separator or parent reference is rejected, and the resolved
// file must exist under the reports directory.
func (m *Manager) ResolveReport(name string) (string, error) {
	return m.resolveArtifact(m.paths.ReportsDir, name)
}

// ResolveExport resolves an export artifact name to its path for
// download with the same safety rules as ResolveReport.
func (m *Manager) ResolveExport(name string) (string, error) {
	return m.resolveArtifact(m.paths.ExportsDir, name)
}

func (m *Manager) resolveArtifact(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("artifact name is empty")
	}
	if name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}

	fullPath := filepath.Join(dir, name)
	info, err := os.Stat(fullPath)
	if err != nil {
		return "", fmt.Errorf("artifact %s not found: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("artifact %s is a directory", name)
	}

	return fullPath, nil
}

// GetFileSize returns the size of a file in bytes
func (m *Manager) GetFileSize(path string) (int64, error) {
	fullPath := m.resolvePath(path)
	info, err := os.Stat(fullPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ReadFile reads the entire content of a file
func (m *Manager) ReadFile(path string) ([]byte, error) {
	fullPath := m.resolvePath(path)

	slog.Debug("Reading file",
		slog.String("path", path),
		slog.String("full_path", fullPath))

	return os.ReadFile(fullPath)
}

// WriteFile writes data to a file
func (m *Manager) WriteFile(path string, data []byte) error {
	fullPath := m.resolvePath(path)

	slog.Info("Writing file",
		slog.String("path", path),
		slog.String("full_path", fullPath),
		slog.Int("size_bytes", len(data)))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return os.WriteFile(fullPath, data, 0644)
}

// DeleteFile deletes a file
func (m *Manager) DeleteFile(path string) error {
	fullPath := m.resolvePath(path)

	slog.Info("Deleting file",
		slog.String("path", path),
		slog.String("full_path", fullPath))

	return os.Remove(fullPath)
}

// CleanPath returns a clean, absolute path
func (m *Manager) CleanPath(path string) string {
	return filepath.Clean(m.resolvePath(path))
}

// GetRelativePath returns the path relative to the executable directory
func (m *Manager) GetRelativePath(fullPath string) (string, error) {
	return filepath.Rel(m.paths.ExecutableDir, fullPath)
}

// ListFiles returns all files in a directory (non-recursive)
func (m *Manager) ListFiles(dir string) ([]string, error) {
	fullPath := m.resolvePath(dir)

	slog.Debug("Listing files",
		slog.String("dir", dir),
		slog.String("full_path", fullPath))
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	return files, nil
}

// EnsureDirectory creates a directory if it doesn't exist
func (m *Manager) EnsureDirectory(path string) error {
	fullPath := m.resolvePath(path)

	slog.Debug("Ensuring directory exists",
		slog.String("path", path),
		slog.String("full_path", fullPath))

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return os.MkdirAll(fullPath, 0755)
	}
	return nil
}

// resolvePath resolves a path relative to the appropriate base directory
func (m *Manager) resolvePath(path string) string {
	// If the path is already absolute, return it as-is
	if filepath.IsAbs(path) {
		return path
	}

	switch {
	case strings.HasPrefix(path, "exports/"):
		return m.paths.GetExportPath(strings.TrimPrefix(path, "exports/"))
	case strings.HasPrefix(path, "reports/"):
		return m.paths.GetReportPath(strings.TrimPrefix(path, "reports/"))
	case strings.HasPrefix(path, "charts/"):
		return m.paths.GetChartPath(strings.TrimPrefix(path, "charts/"))
	case strings.HasPrefix(path, "cache/"):
		return m.paths.GetCachePath(strings.TrimPrefix(path, "cache/"))
	case strings.HasPrefix(path, "logs/"):
		return m.paths.GetLogPath(strings.TrimPrefix(path, "logs/"))
	case strings.HasPrefix(path, "web/"):
		return m.paths.GetWebFilePath(strings.TrimPrefix(path, "web/"))
	case strings.HasPrefix(path, "static/"):
		return m.paths.GetStaticFilePath(strings.TrimPrefix(path, "static/"))
	default:
		// Anything else lives in the data directory
		return filepath.Join(m.paths.DataDir, path)
	}
}
