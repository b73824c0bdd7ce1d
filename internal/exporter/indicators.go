package exporter

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"eficli/internal/dataset"
	"eficli/internal/forecast"
)

// IndicatorExporter builds per-indicator summary statistics and writes
// the summary CSV.
type IndicatorExporter struct {
	csvWriter *CSVWriter
}

// NewIndicatorExporter creates a new indicator summary exporter
func NewIndicatorExporter(logger *slog.Logger) *IndicatorExporter {
	return &IndicatorExporter{
		csvWriter: NewCSVWriter(logger),
	}
}

// IndicatorSummary represents summary statistics for one indicator
type IndicatorSummary struct {
	Code         string
	Name         string
	Pillar       string
	Unit         string
	Observations int
	FirstYear    int
	LastYear     int
	LatestValue  float64
	HasLatest    bool
	Target       float64
	TargetYear   int
	HasTarget    bool
	ForecastYear  int
	ForecastValue float64
	HasForecast   bool
}

// GenerateIndicatorSummaries computes one summary row per indicator in
// the dataset, joined with its forecast when the analyzer produced one.
// Indicators outside the forecast set still appear with their observed
// statistics so the summary covers the whole dataset.
func (t *IndicatorExporter) GenerateIndicatorSummaries(ds *dataset.Dataset, results map[string]forecast.IndicatorForecast) []IndicatorSummary {
	var summaries []IndicatorSummary

	for _, info := range ds.Indicators() {
		summary := IndicatorSummary{
			Code:         info.Code,
			Name:         info.Name,
			Pillar:       info.Pillar,
			Unit:         info.Unit,
			Observations: info.Observations,
			FirstYear:    info.FirstYear,
			LastYear:     info.LastYear,
		}

		if series, err := ds.TimeSeries(info.Code); err == nil && len(series) > 0 {
			last := series[len(series)-1]
			summary.LatestValue = last.Value
			summary.HasLatest = true
		}

		if target, ok := ds.Target(info.Code); ok {
			if value, has := target.Value(); has {
				summary.Target = value
				summary.TargetYear = target.Year()
				summary.HasTarget = true
			}
		}

		if fc, ok := results[info.Code]; ok && len(fc.ForecastYears) > 0 {
			end := len(fc.ForecastYears) - 1
			summary.ForecastYear = fc.ForecastYears[end]
			summary.ForecastValue = fc.LinearForecast[end]
			summary.HasForecast = true
			if !summary.HasTarget && fc.Target > 0 {
				summary.Target = fc.Target
				summary.TargetYear = fc.TargetYear
				summary.HasTarget = true
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries
}

// ExportIndicatorSummary writes the summary CSV with one row per
// indicator, sorted by code
func (t *IndicatorExporter) ExportIndicatorSummary(summaries []IndicatorSummary, outputPath string) error {
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Code < summaries[j].Code
	})

	headers := []string{
		"Code", "Indicator", "Pillar", "Unit", "Observations",
		"First_Year", "Last_Year", "Latest_Value",
		"Target", "Target_Year", "Forecast_Year", "Forecast_Value",
	}

	var records [][]string
	for _, summary := range summaries {
		records = append(records, t.summaryToCSVRow(summary))
	}

	if err := t.csvWriter.WriteSimpleCSV(outputPath, headers, records); err != nil {
		return fmt.Errorf("write indicator summary: %w", err)
	}
	return nil
}

// summaryToCSVRow converts an indicator summary to a CSV row
func (t *IndicatorExporter) summaryToCSVRow(summary IndicatorSummary) []string {
	latest := ""
	if summary.HasLatest {
		latest = formatFloat(summary.LatestValue, 1)
	}

	target, targetYear := "", ""
	if summary.HasTarget {
		target = formatFloat(summary.Target, 0)
		if summary.TargetYear > 0 {
			targetYear = strconv.Itoa(summary.TargetYear)
		}
	}

	forecastYear, forecastValue := "", ""
	if summary.HasForecast {
		forecastYear = strconv.Itoa(summary.ForecastYear)
		forecastValue = formatFloat(summary.ForecastValue, 1)
	}

	return []string{
		summary.Code,
		summary.Name,
		summary.Pillar,
		summary.Unit,
		strconv.Itoa(summary.Observations),
		strconv.Itoa(summary.FirstYear),
		strconv.Itoa(summary.LastYear),
		latest,
		target,
		targetYear,
		forecastYear,
		forecastValue,
	}
}
