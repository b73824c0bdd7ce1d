package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// CSVWriter provides CSV export functionality. Every write goes through
// a temp file and rename so readers never observe a half-written
// artifact.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(outputPath string, options WriteOptions) error {
	w.logger.Debug("writing CSV file",
		slog.String("path", outputPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmpPath := outputPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if err := writeRows(file, options); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// WriteSimpleCSV writes a CSV file with headers, records and a BOM
func (w *CSVWriter) WriteSimpleCSV(outputPath string, headers []string, records [][]string) error {
	return w.WriteCSV(outputPath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

// writeRows writes the BOM, headers and records to an open file
func writeRows(file *os.File, options WriteOptions) error {
	// BOM helps Excel recognize UTF-8
	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// StreamWriter provides row-at-a-time CSV writing for larger dumps.
// Rows accumulate in a temp file; Close renames it into place, so an
// abandoned stream never leaves a partial artifact behind.
type StreamWriter struct {
	finalPath string
	tmpPath   string
	file      *os.File
	writer    *csv.Writer
}

// CreateStreamWriter creates a new streaming CSV writer
func (w *CSVWriter) CreateStreamWriter(outputPath string, headers []string) (*StreamWriter, error) {
	w.logger.Debug("creating CSV stream writer",
		slog.String("path", outputPath),
		slog.Int("header_count", len(headers)))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	tmpPath := outputPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	// BOM for Excel compatibility
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(file)

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return nil, fmt.Errorf("write headers: %w", err)
		}
	}

	return &StreamWriter{
		finalPath: outputPath,
		tmpPath:   tmpPath,
		file:      file,
		writer:    writer,
	}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes the stream and moves the temp file into place. When any
// prior write failed the temp file is removed instead and the write
// error returned.
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		os.Remove(s.tmpPath)
		return err
	}

	if err := s.file.Close(); err != nil {
		os.Remove(s.tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(s.tmpPath, s.finalPath); err != nil {
		os.Remove(s.tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
