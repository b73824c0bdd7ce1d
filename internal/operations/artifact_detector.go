package operations

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactDetector provides centralized detection of files produced by
// pipeline steps. All artifact counting goes through here so the manifest
// and the job queue agree on what landed in the output directory.
type ArtifactDetector struct {
	logger *slog.Logger
}

// NewArtifactDetector creates a new ArtifactDetector with optional logger
func NewArtifactDetector(logger *slog.Logger) *ArtifactDetector {
	return &ArtifactDetector{
		logger: logger,
	}
}

// DetectCSVFiles counts CSV files in the specified directory
func (d *ArtifactDetector) DetectCSVFiles(dir string) (int, error) {
	if d == nil {
		return 0, fmt.Errorf("ArtifactDetector is nil")
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, fmt.Errorf("directory does not exist: %s", dir)
	}

	csvFiles, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return 0, fmt.Errorf("failed to glob CSV files: %w", err)
	}

	if d.logger != nil {
		d.logger.Debug("csv detection results",
			slog.String("directory", dir),
			slog.Int("csv_count", len(csvFiles)))
	}

	return len(csvFiles), nil
}

// DetectWorkbooks counts Excel workbooks (.xlsx) in the specified directory.
// Glob is the primary method with os.ReadDir as fallback when glob fails or
// finds nothing.
func (d *ArtifactDetector) DetectWorkbooks(dir string) (int, error) {
	if d == nil {
		return 0, fmt.Errorf("ArtifactDetector is nil")
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, fmt.Errorf("directory does not exist: %s", dir)
	}

	workbooks, globErr := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if globErr == nil && len(workbooks) > 0 {
		return len(workbooks), nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if globErr == nil {
			return len(workbooks), nil
		}
		return 0, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	fallbackCount := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".xlsx") {
			fallbackCount++
		}
	}

	if d.logger != nil {
		d.logger.Debug("workbook detection fallback",
			slog.String("directory", dir),
			slog.Int("workbook_count", fallbackCount),
			slog.Int("total_entries", len(entries)))
	}

	if fallbackCount > len(workbooks) {
		return fallbackCount, nil
	}
	return len(workbooks), nil
}

// DetectReportFiles counts report artifacts (.html and .pdf) in the
// specified directory
func (d *ArtifactDetector) DetectReportFiles(dir string) (int, error) {
	if d == nil {
		return 0, fmt.Errorf("ArtifactDetector is nil")
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, fmt.Errorf("directory does not exist: %s", dir)
	}

	htmlFiles, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return 0, fmt.Errorf("failed to glob report files: %w", err)
	}
	pdfFiles, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return 0, fmt.Errorf("failed to glob report files: %w", err)
	}

	total := len(htmlFiles) + len(pdfFiles)
	if d.logger != nil {
		d.logger.Debug("report detection results",
			slog.String("directory", dir),
			slog.Int("html_count", len(htmlFiles)),
			slog.Int("pdf_count", len(pdfFiles)))
	}

	return total, nil
}

// DetectChartImages counts chart images (.png) in the specified directory
func (d *ArtifactDetector) DetectChartImages(dir string) (int, error) {
	if d == nil {
		return 0, fmt.Errorf("ArtifactDetector is nil")
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, fmt.Errorf("directory does not exist: %s", dir)
	}

	images, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return 0, fmt.Errorf("failed to glob chart images: %w", err)
	}

	return len(images), nil
}

// ArtifactFileInfo provides detailed information about detected files
type ArtifactFileInfo struct {
	Name      string
	Size      int64
	ModTime   string
	Extension string
}

// ListArtifacts returns detailed information about files with the given
// extensions. Extensions are matched case-insensitively and include the dot.
func (d *ArtifactDetector) ListArtifacts(dir string, extensions ...string) ([]ArtifactFileInfo, error) {
	if d == nil {
		return nil, fmt.Errorf("ArtifactDetector is nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var fileInfos []ArtifactFileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		matched := len(extensions) == 0
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		fileInfos = append(fileInfos, ArtifactFileInfo{
			Name:      name,
			Size:      info.Size(),
			ModTime:   info.ModTime().Format("2006-01-02 15:04:05"),
			Extension: filepath.Ext(name),
		})
	}

	return fileInfos, nil
}
