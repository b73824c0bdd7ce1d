package domain

import "time"

// ReportFormat identifies the file format of a run artifact
type ReportFormat string

const (
	ReportFormatHTML ReportFormat = "html"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
	ReportFormatXLSX ReportFormat = "xlsx"
	ReportFormatText ReportFormat = "txt"
)

// ReportFile describes one downloadable artifact from an analysis run
type ReportFile struct {
	Name       string       `json:"name"`
	Format     ReportFormat `json:"format"`
	SizeBytes  int64        `json:"size_bytes"`
	ModifiedAt time.Time    `json:"modified_at"`
}

// ReportListing groups the artifacts in the output directory by format
type ReportListing struct {
	Files []ReportFile `json:"files"`
	Total int          `json:"total"`
}
