package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"eficli/internal/dataset"
	"eficli/internal/forecast"
)

// Workbook sheet names
const (
	sheetObservations = "Observations"
	sheetEvents       = "Events"
	sheetTargets      = "Targets"
	sheetForecasts    = "Forecasts"
	sheetGrowth       = "Growth"
)

// WorkbookExporter writes the whole analysis run into a single Excel
// workbook: raw observations, the event timeline, policy targets, the
// model forecasts and the growth periods, one sheet each.
type WorkbookExporter struct {
	logger *slog.Logger
}

// NewWorkbookExporter creates a new workbook exporter
func NewWorkbookExporter(logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{logger: logger}
}

// ExportWorkbook builds the workbook and saves it atomically. Numeric
// fields land as numeric cells so the sheets sort and chart without
// retyping.
func (w *WorkbookExporter) ExportWorkbook(ds *dataset.Dataset, results map[string]forecast.IndicatorForecast, growth map[string][]forecast.GrowthPeriod, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetObservations); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, sheet := range []string{sheetEvents, sheetTargets, sheetForecasts, sheetGrowth} {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := w.writeObservations(f, headerStyle, ds.Observations()); err != nil {
		return err
	}
	if err := w.writeEvents(f, headerStyle, ds.EventImpacts()); err != nil {
		return err
	}
	if err := w.writeTargets(f, headerStyle, ds.Targets()); err != nil {
		return err
	}
	if err := w.writeForecasts(f, headerStyle, results); err != nil {
		return err
	}
	if err := w.writeGrowth(f, headerStyle, results, growth); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// SaveAs rejects non-xlsx extensions, so write via an open temp file
	tmpPath := outputPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := f.Write(tmpFile); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	w.logger.Debug("workbook written", slog.String("path", outputPath))
	return nil
}

func (w *WorkbookExporter) writeObservations(f *excelize.File, style int, observations []dataset.Record) error {
	headers := []interface{}{
		"ID", "Pillar", "Indicator", "Code", "Date", "Value", "Value_Text",
		"Unit", "Source", "Source_Type", "Confidence",
	}

	rows := make([][]interface{}, 0, len(observations))
	for _, r := range observations {
		rows = append(rows, []interface{}{
			r.ID,
			r.Pillar,
			r.Indicator,
			r.IndicatorCode,
			dateCell(r.ObservationDate),
			numericCell(r.ValueNumeric),
			r.ValueText,
			r.Unit,
			r.SourceName,
			r.SourceType,
			string(r.Confidence),
		})
	}

	return w.writeSheet(f, sheetObservations, style, headers, rows)
}

func (w *WorkbookExporter) writeEvents(f *excelize.File, style int, events []dataset.EventImpact) error {
	headers := []interface{}{
		"ID", "Date", "Event", "Category", "Source",
		"Related_Indicator", "Impact_Direction", "Impact_Magnitude",
		"Lag_Months", "Evidence_Basis",
	}

	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{
			e.EventID,
			dateCell(e.EventDate),
			e.Title,
			e.Category,
			e.Source,
			e.RelatedIndicator,
			e.ImpactDirection,
			e.ImpactMagnitude,
			intCell(e.LagMonths),
			e.EvidenceBasis,
		})
	}

	return w.writeSheet(f, sheetEvents, style, headers, rows)
}

func (w *WorkbookExporter) writeTargets(f *excelize.File, style int, targets []dataset.Record) error {
	headers := []interface{}{
		"Code", "Indicator", "Target", "Unit", "Target_Year", "Source",
	}

	rows := make([][]interface{}, 0, len(targets))
	for _, r := range targets {
		year := interface{}("")
		if y := r.Year(); y > 0 {
			year = y
		}
		rows = append(rows, []interface{}{
			r.IndicatorCode,
			r.Indicator,
			numericCell(r.ValueNumeric),
			r.Unit,
			year,
			r.SourceName,
		})
	}

	return w.writeSheet(f, sheetTargets, style, headers, rows)
}

func (w *WorkbookExporter) writeForecasts(f *excelize.File, style int, results map[string]forecast.IndicatorForecast) error {
	headers := []interface{}{
		"Code", "Indicator", "Year", "Kind", "Value",
		"Linear_Lower", "Linear_Upper",
		"Log_Forecast", "Log_Lower", "Log_Upper",
	}

	codes := make([]string, 0, len(results))
	for code := range results {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var rows [][]interface{}
	for _, code := range codes {
		fc := results[code]
		for i, year := range fc.HistoricalYears {
			rows = append(rows, []interface{}{
				code, fc.Indicator, year, "historical", fc.HistoricalValues[i],
				"", "", "", "", "",
			})
		}
		for i, year := range fc.ForecastYears {
			rows = append(rows, []interface{}{
				code, fc.Indicator, year, "forecast", fc.LinearForecast[i],
				fc.LinearLower[i], fc.LinearUpper[i],
				fc.LogForecast[i], fc.LogLower[i], fc.LogUpper[i],
			})
		}
	}

	return w.writeSheet(f, sheetForecasts, style, headers, rows)
}

func (w *WorkbookExporter) writeGrowth(f *excelize.File, style int, results map[string]forecast.IndicatorForecast, growth map[string][]forecast.GrowthPeriod) error {
	headers := []interface{}{
		"Code", "Indicator", "Period", "Span_Years",
		"Start_Value", "End_Value", "Total_Growth_PP", "Annual_Growth_PP",
	}

	codes := make([]string, 0, len(growth))
	for code := range growth {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var rows [][]interface{}
	for _, code := range codes {
		label := code
		if fc, ok := results[code]; ok && fc.Indicator != "" {
			label = fc.Indicator
		}
		for _, period := range growth[code] {
			rows = append(rows, []interface{}{
				code, label, period.Period(), period.SpanYears,
				period.StartValue, period.EndValue,
				period.TotalGrowthPP, period.AnnualGrowthPP,
			})
		}
	}

	return w.writeSheet(f, sheetGrowth, style, headers, rows)
}

// writeSheet fills one sheet with a header row and data rows, then
// applies the header style and a uniform column width
func (w *WorkbookExporter) writeSheet(f *excelize.File, sheet string, style int, headers []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name for %s row %d: %w", sheet, i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return fmt.Errorf("column name for %s: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("size %s columns: %w", sheet, err)
	}

	return nil
}

// numericCell returns a numeric cell value, or an empty cell when the
// source field is absent
func numericCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

// intCell returns an integer cell value, or an empty cell when absent
func intCell(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

// dateCell formats a date for a workbook cell; zero times stay empty
func dateCell(t time.Time) interface{} {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
