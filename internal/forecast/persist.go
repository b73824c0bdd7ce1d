package forecast

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// SaveForecastsCSV writes analyzer results to a CSV file with one row
// per indicator-year. Historical rows carry the observed value only;
// forecast rows carry both models with their bounds.
func SaveForecastsCSV(results map[string]IndicatorForecast, outputPath string) error {
	if len(results) == 0 {
		return fmt.Errorf("no forecasts to save")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Code",
		"Indicator",
		"Year",
		"Kind", // "historical" or "forecast"
		"Value",
		"Linear_Lower",
		"Linear_Upper",
		"Log_Forecast",
		"Log_Lower",
		"Log_Upper",
		"Target",
		"Target_Year",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	codes := make([]string, 0, len(results))
	for code := range results {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		fc := results[code]

		for i, year := range fc.HistoricalYears {
			record := []string{
				code,
				fc.Indicator,
				strconv.Itoa(year),
				"historical",
				formatFloat(fc.HistoricalValues[i], 1),
				"", "", "", "", "",
				formatFloat(fc.Target, 0),
				strconv.Itoa(fc.TargetYear),
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write historical row for %s: %w", code, err)
			}
		}

		for i, year := range fc.ForecastYears {
			record := []string{
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
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write forecast row for %s: %w", code, err)
			}
		}
	}

	return nil
}

// formatFloat formats a float64 value for CSV output with specified precision
func formatFloat(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}

// SaveForecastsJSON writes analyzer results to a JSON file with a
// metadata envelope
func SaveForecastsJSON(results map[string]IndicatorForecast, outputPath string) error {
	if len(results) == 0 {
		return fmt.Errorf("no forecasts to save")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	codes := make([]string, 0, len(results))
	var horizon []int
	for code, fc := range results {
		codes = append(codes, code)
		if len(fc.ForecastYears) > len(horizon) {
			horizon = fc.ForecastYears
		}
	}
	sort.Strings(codes)

	output := map[string]interface{}{
		"metadata": map[string]interface{}{
			"generated_at":   time.Now().Format(time.RFC3339),
			"indicators":     codes,
			"forecast_years": horizon,
		},
		"forecasts": results,
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	return nil
}

// SaveSummaryReport writes a plain-text summary of the forecast run,
// one section per indicator plus the flattened forecast table.
func SaveSummaryReport(results map[string]IndicatorForecast, outputPath string) error {
	if len(results) == 0 {
		return fmt.Errorf("no forecasts to save")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer file.Close()

	codes := make([]string, 0, len(results))
	for code := range results {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fmt.Fprintf(file, "EFI Pulse - Indicator Forecast Summary\n")
	fmt.Fprintf(file, "======================================\n\n")
	fmt.Fprintf(file, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	for _, code := range codes {
		fc := results[code]

		fmt.Fprintf(file, "%s (%s)\n", fc.Indicator, code)
		fmt.Fprintf(file, "%s\n", dashes(len(fc.Indicator)+len(code)+3))
		fmt.Fprintf(file, "Current: %.1f%% (%d)\n", fc.CurrentValue, fc.CurrentYear)
		fmt.Fprintf(file, "Target: %.0f%% by %d\n", fc.Target, fc.TargetYear)
		fmt.Fprintf(file, "Observations: %d (%d-%d)\n",
			len(fc.HistoricalYears),
			fc.HistoricalYears[0],
			fc.HistoricalYears[len(fc.HistoricalYears)-1],
		)

		for i, year := range fc.ForecastYears {
			fmt.Fprintf(file, "  %d: linear %.1f%% [%.1f%%, %.1f%%], log %.1f%%\n",
				year,
				fc.LinearForecast[i], fc.LinearLower[i], fc.LinearUpper[i],
				fc.LogForecast[i],
			)
		}
		fmt.Fprintf(file, "\n")
	}

	fmt.Fprintf(file, "FORECAST TABLE\n")
	fmt.Fprintf(file, "--------------\n")
	for _, row := range ForecastTable(results) {
		fmt.Fprintf(file, "%-24s %d  %8s  %-18s %8s  %s\n",
			row.Indicator, row.Year, row.LinearForecast,
			row.ConfidenceInterval, row.LogForecast, row.Target,
		)
	}

	return nil
}

func dashes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
