package exporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"eficli/internal/dataset"
)

// DatasetExporter writes dataset-level artifacts: the machine-readable
// summary JSON and a full snapshot of the records that fed the run.
type DatasetExporter struct {
	csvWriter *CSVWriter
}

// NewDatasetExporter creates a new dataset artifact exporter
func NewDatasetExporter(logger *slog.Logger) *DatasetExporter {
	return &DatasetExporter{
		csvWriter: NewCSVWriter(logger),
	}
}

// datasetSummaryDocument is the on-disk shape of the summary JSON
type datasetSummaryDocument struct {
	GeneratedAt string                  `json:"generated_at"`
	Source      string                  `json:"source,omitempty"`
	Summary     dataset.Summary         `json:"summary"`
	Indicators  []dataset.IndicatorInfo `json:"indicators"`
}

// ExportDatasetSummary writes the dataset overview as JSON: record
// counts by type, pillar and confidence, plus the per-indicator
// coverage listing. Source names the dataset file the run loaded.
func (d *DatasetExporter) ExportDatasetSummary(ds *dataset.Dataset, source, outputPath string) error {
	doc := datasetSummaryDocument{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Source:      source,
		Summary:     ds.Summarize(),
		Indicators:  ds.Indicators(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset summary: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmpPath := outputPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// ExportRecords streams every record of the unified dataset back out as
// CSV, preserving the source column set. The snapshot rides along with
// the run's artifacts so a report can always be traced to the exact
// rows it was computed from.
func (d *DatasetExporter) ExportRecords(records []dataset.Record, outputPath string) error {
	stream, err := d.csvWriter.CreateStreamWriter(outputPath, recordHeaders())
	if err != nil {
		return fmt.Errorf("create snapshot writer: %w", err)
	}

	for _, record := range records {
		if err := stream.WriteRecord(recordToCSVRow(record)); err != nil {
			stream.Close()
			return fmt.Errorf("write record %s: %w", record.ID, err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("close snapshot writer: %w", err)
	}

	return nil
}

// recordHeaders returns the unified dataset column set
func recordHeaders() []string {
	return []string{
		"id", "record_type", "pillar", "indicator", "indicator_code",
		"observation_date", "value_numeric", "value_text", "unit",
		"source_name", "source_type", "confidence",
		"event_date", "category",
		"parent_id", "related_indicator", "impact_direction",
		"impact_magnitude", "lag_months", "evidence_basis",
		"collection_date",
	}
}

// recordToCSVRow converts a dataset record back to its CSV row
func recordToCSVRow(r dataset.Record) []string {
	return []string{
		r.ID,
		string(r.RecordType),
		r.Pillar,
		r.Indicator,
		r.IndicatorCode,
		formatDate(r.ObservationDate),
		formatOptionalFloat(r.ValueNumeric, 1),
		r.ValueText,
		r.Unit,
		r.SourceName,
		r.SourceType,
		string(r.Confidence),
		formatDate(r.EventDate),
		r.Category,
		r.ParentID,
		r.RelatedIndicator,
		r.ImpactDirection,
		r.ImpactMagnitude,
		formatOptionalInt(r.LagMonths),
		r.EvidenceBasis,
		formatDate(r.CollectionDate),
	}
}
