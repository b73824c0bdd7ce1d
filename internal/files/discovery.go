package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Format returns the lowercase extension of the file without the dot
func (f FileInfo) Format() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
}

// artifactExtensions are the formats the pipeline writes
var artifactExtensions = map[string]bool{
	".csv":  true,
	".json": true,
	".xlsx": true,
	".txt":  true,
	".html": true,
	".pdf":  true,
}

// Discovery provides artifact discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindArtifacts finds all run artifacts in the specified directory,
// newest first
func (d *Discovery) FindArtifacts(dir string) ([]FileInfo, error) {
	files, err := d.findByFilter(dir, func(name string) bool {
		return artifactExtensions[strings.ToLower(filepath.Ext(name))]
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// FindReportFiles finds the rendered HTML and PDF reports in the
// specified directory, newest first
func (d *Discovery) FindReportFiles(dir string) ([]FileInfo, error) {
	files, err := d.findByFilter(dir, func(name string) bool {
		ext := strings.ToLower(filepath.Ext(name))
		return ext == ".html" || ext == ".pdf"
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// FindCSVFiles finds all CSV files in the specified directory
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	return d.findByFilter(dir, func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), ".csv")
	})
}

// FindChartImages finds the chart images a report can embed
func (d *Discovery) FindChartImages(dir string) ([]FileInfo, error) {
	return d.findByFilter(dir, func(name string) bool {
		ext := strings.ToLower(filepath.Ext(name))
		return ext == ".png" || ext == ".svg"
	})
}

// FindFilesByPattern finds files matching a glob pattern
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}
	searchPattern := filepath.Join(fullPath, pattern)

	matches, err := filepath.Glob(searchPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}

		if !info.IsDir() {
			files = append(files, FileInfo{
				Path:    match,
				Name:    filepath.Base(match),
				Size:    info.Size(),
				ModTime: info.ModTime(),
				IsDir:   false,
			})
		}
	}

	return files, nil
}

// findByFilter lists the non-directory entries of dir that pass the
// name filter. An empty dir means the discovery base path itself.
func (d *Discovery) findByFilter(dir string, keep func(name string) bool) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !keep(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   false,
		})
	}

	return files, nil
}

// ListDirectories lists all subdirectories in the specified directory
func (d *Discovery) ListDirectories(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var dirs []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			dirs = append(dirs, FileInfo{
				Path:    filepath.Join(fullPath, entry.Name()),
				Name:    entry.Name(),
				Size:    0,
				ModTime: info.ModTime(),
				IsDir:   true,
			})
		}
	}

	return dirs, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}

// FilterFilesByDateRange filters files based on modification time
func FilterFilesByDateRange(files []FileInfo, startDate, endDate time.Time) []FileInfo {
	var filtered []FileInfo
	for _, file := range files {
		if file.ModTime.After(startDate) && file.ModTime.Before(endDate) {
			filtered = append(filtered, file)
		}
	}
	return filtered
}
