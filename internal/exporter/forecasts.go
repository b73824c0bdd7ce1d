package exporter

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"

	"eficli/internal/forecast"
)

// ForecastExporter writes the forecast artifacts of an analysis run:
// one history-plus-forecast CSV per indicator, the flattened forecast
// table and the growth-period table.
type ForecastExporter struct {
	csvWriter *CSVWriter
}

// NewForecastExporter creates a new forecast artifact exporter
func NewForecastExporter(logger *slog.Logger) *ForecastExporter {
	return &ForecastExporter{
		csvWriter: NewCSVWriter(logger),
	}
}

// ExportIndicatorFiles writes one CSV per indicator containing its
// historical observations followed by the forecast rows, with point,
// lower and upper values for both trend models. File names carry the
// run stamp so successive runs never clobber each other. Returns the
// written paths sorted by indicator code.
func (f *ForecastExporter) ExportIndicatorFiles(results map[string]forecast.IndicatorForecast, outputDir, stamp string) ([]string, error) {
	codes := make([]string, 0, len(results))
	for code := range results {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var written []string
	for _, code := range codes {
		fc := results[code]

		filename := fmt.Sprintf("%s_forecast_%s.csv", code, stamp)
		outputPath := filepath.Join(outputDir, filename)

		var records [][]string
		for i, year := range fc.HistoricalYears {
			records = append(records, []string{
				code,
				fc.Indicator,
				strconv.Itoa(year),
				"historical",
				formatFloat(fc.HistoricalValues[i], 1),
				"", "", "", "", "",
				formatFloat(fc.Target, 0),
				strconv.Itoa(fc.TargetYear),
			})
		}
		for i, year := range fc.ForecastYears {
			records = append(records, []string{
				code,
				fc.Indicator,
				strconv.Itoa(year),
				"forecast",
				formatFloat(fc.LinearForecast[i], 1),
				formatFloat(fc.LinearLower[i], 1),
				formatFloat(fc.LinearUpper[i], 1),
				formatFloat(fc.LogForecast[i], 1),
				formatFloat(fc.LogLower[i], 1),
				formatFloat(fc.LogUpper[i], 1),
				formatFloat(fc.Target, 0),
				strconv.Itoa(fc.TargetYear),
			})
		}

		if err := f.csvWriter.WriteSimpleCSV(outputPath, forecastHeaders(), records); err != nil {
			return nil, fmt.Errorf("write forecast file for %s: %w", code, err)
		}
		written = append(written, outputPath)
	}

	return written, nil
}

// ExportForecastTable writes the flattened forecast table, one row per
// (indicator, year) with the display-formatted values the dashboard and
// report show.
func (f *ForecastExporter) ExportForecastTable(rows []forecast.ForecastRow, outputPath string) error {
	headers := []string{
		"Indicator", "Code", "Year", "Linear_Forecast", "CI_95", "Log_Forecast", "Target",
	}

	var records [][]string
	for _, row := range rows {
		records = append(records, []string{
			row.Indicator,
			row.Code,
			strconv.Itoa(row.Year),
			row.LinearForecast,
			row.ConfidenceInterval,
			row.LogForecast,
			row.Target,
		})
	}

	// No BOM so downstream analysis tools parse the header cleanly
	return f.csvWriter.WriteCSV(outputPath, WriteOptions{
		Headers: headers,
		Records: records,
	})
}

// ExportGrowthTable writes the observed growth periods for every
// indicator, ordered by code then period start. Indicator labels come
// from the forecast results; codes absent there fall back to the code
// itself.
func (f *ForecastExporter) ExportGrowthTable(results map[string]forecast.IndicatorForecast, growth map[string][]forecast.GrowthPeriod, outputPath string) error {
	codes := make([]string, 0, len(growth))
	for code := range growth {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	headers := []string{
		"Code", "Indicator", "Period", "Span_Years",
		"Start_Value", "End_Value", "Total_Growth_PP", "Annual_Growth_PP",
	}

	var records [][]string
	for _, code := range codes {
		label := code
		if fc, ok := results[code]; ok && fc.Indicator != "" {
			label = fc.Indicator
		}

		for _, period := range growth[code] {
			records = append(records, []string{
				code,
				label,
				period.Period(),
				strconv.Itoa(period.SpanYears),
				formatFloat(period.StartValue, 1),
				formatFloat(period.EndValue, 1),
				formatFloat(period.TotalGrowthPP, 1),
				formatFloat(period.AnnualGrowthPP, 2),
			})
		}
	}

	return f.csvWriter.WriteCSV(outputPath, WriteOptions{
		Headers: headers,
		Records: records,
	})
}

// forecastHeaders returns the CSV headers for indicator forecast files.
// The column set matches the combined forecast CSV so both shapes load
// with the same tooling.
func forecastHeaders() []string {
	return []string{
		"Code", "Indicator", "Year", "Kind", "Value",
		"Linear_Lower", "Linear_Upper",
		"Log_Forecast", "Log_Lower", "Log_Upper",
		"Target", "Target_Year",
	}
}
