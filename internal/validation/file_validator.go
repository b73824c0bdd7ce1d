package validation

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileValidator provides file-level checks shared by the pipeline's
// load step and the CLIs. It verifies paths before the dataset loader
// or the artifact writers touch them, so failures surface with a clear
// message instead of a mid-parse error.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	// Check if file is readable by opening it
	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateCSVFile checks if a file exists and carries a CSV extension
func (v *FileValidator) ValidateCSVFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		v.logger.Error("File is not a CSV file",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not a CSV file (extension: %s)", path, ext)
	}

	return nil
}

// Columns every unified dataset file must declare in its header row.
var requiredDatasetColumns = []string{"id", "record_type", "indicator_code", "value_numeric"}

// ValidateDatasetFile checks that a path points at a readable unified
// dataset CSV: the extension matches and the header row declares the
// discriminator columns the loader keys on. It reads only the first
// line, so it stays cheap enough to run before every pipeline.
func (v *FileValidator) ValidateDatasetFile(path string) error {
	if err := v.ValidateCSVFile(path); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		v.logger.Error("Dataset file is empty",
			slog.String("file", path))
		return fmt.Errorf("dataset %s is empty", path)
	}

	header := strings.ToLower(scanner.Text())
	for _, column := range requiredDatasetColumns {
		if !strings.Contains(header, column) {
			v.logger.Error("Dataset header is missing a required column",
				slog.String("file", path),
				slog.String("column", column))
			return fmt.Errorf("dataset %s header is missing column %q", path, column)
		}
	}

	v.logger.Debug("Dataset file validated",
		slog.String("file", path))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	// Try to create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Info("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateChartsDirectory checks a pre-rendered charts directory. A
// missing directory is not an error: the report degrades to placeholder
// notes for absent images, so this only reports what was found.
func (v *FileValidator) ValidateChartsDirectory(dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Warn("Charts directory does not exist; report will use placeholders",
			slog.String("directory", dir))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat charts directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s is not a directory", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return 0, fmt.Errorf("failed to scan charts directory: %w", err)
	}

	v.logger.Debug("Charts directory validated",
		slog.String("directory", dir),
		slog.Int("images", len(matches)))
	return len(matches), nil
}
