package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eficli/internal/forecast"
)

func TestForecastExporter_ExportIndicatorFiles(t *testing.T) {
	tempDir := t.TempDir()
	exp := NewForecastExporter(nil)

	files, err := exp.ExportIndicatorFiles(testResults(), tempDir, "20260823_120000")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(tempDir, "ACC_OWNERSHIP_forecast_20260823_120000.csv"), files[0])

	rows := readCSV(t, files[0])
	require.Len(t, rows, 7) // header + 3 historical + 3 forecast
	assert.Equal(t, forecastHeaders(), rows[0])

	// Historical rows carry the observed value only
	historical := rows[1]
	assert.Equal(t, "ACC_OWNERSHIP", historical[0])
	assert.Equal(t, "2014", historical[2])
	assert.Equal(t, "historical", historical[3])
	assert.Equal(t, "22.0", historical[4])
	assert.Equal(t, "", historical[5])
	assert.Equal(t, "60", historical[10])

	// Forecast rows carry both models with bounds
	projected := rows[4]
	assert.Equal(t, "2025", projected[2])
	assert.Equal(t, "forecast", projected[3])
	assert.Equal(t, "58.9", projected[4])
	assert.Equal(t, "55.1", projected[5])
	assert.Equal(t, "62.7", projected[6])
	assert.Equal(t, "55.2", projected[7])
	assert.Equal(t, "51.0", projected[8])
	assert.Equal(t, "59.4", projected[9])

	content, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, utf8BOM))
}

func TestForecastExporter_ExportIndicatorFilesSorted(t *testing.T) {
	tempDir := t.TempDir()
	exp := NewForecastExporter(nil)

	results := testResults()
	results["USG_DIGITAL_PAYMENT"] = forecast.IndicatorForecast{
		Code:             "USG_DIGITAL_PAYMENT",
		Indicator:        "Digital Payment Usage",
		HistoricalYears:  []int{2021},
		HistoricalValues: []float64{20.0},
		ForecastYears:    []int{2025},
		LinearForecast:   []float64{28.0},
		LinearLower:      []float64{25.0},
		LinearUpper:      []float64{31.0},
		LogForecast:      []float64{27.0},
		LogLower:         []float64{24.0},
		LogUpper:         []float64{30.0},
		Target:           50,
		TargetYear:       2025,
	}

	files, err := exp.ExportIndicatorFiles(results, tempDir, "stamp")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Contains(t, files[0], "ACC_OWNERSHIP")
	assert.Contains(t, files[1], "USG_DIGITAL_PAYMENT")
}

func TestForecastExporter_ExportForecastTable(t *testing.T) {
	tempDir := t.TempDir()
	exp := NewForecastExporter(nil)
	path := filepath.Join(tempDir, "forecast_table.csv")

	err := exp.ExportForecastTable(forecast.ForecastTable(testResults()), path)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 4) // header + one row per forecast year
	assert.Equal(t, []string{"Indicator", "Code", "Year", "Linear_Forecast", "CI_95", "Log_Forecast", "Target"}, rows[0])

	first := rows[1]
	assert.Equal(t, "Account Ownership", first[0])
	assert.Equal(t, "2025", first[2])
	assert.Equal(t, "58.9%", first[3])
	assert.Equal(t, "[55.1%, 62.7%]", first[4])
	assert.Equal(t, "55.2%", first[5])
	assert.Equal(t, "60%", first[6]) // target shown on its own year only
	assert.Equal(t, "-", rows[2][6])

	// Combined tables skip the BOM so analysis tools parse them cleanly
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(content, utf8BOM))
}

func TestForecastExporter_ExportGrowthTable(t *testing.T) {
	tempDir := t.TempDir()
	exp := NewForecastExporter(nil)
	path := filepath.Join(tempDir, "growth_table.csv")

	err := exp.ExportGrowthTable(testResults(), testGrowth(), path)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3) // header + two periods

	first := rows[1]
	assert.Equal(t, "ACC_OWNERSHIP", first[0])
	assert.Equal(t, "Account Ownership", first[1])
	assert.Equal(t, "2014-2017", first[2])
	assert.Equal(t, "3", first[3])
	assert.Equal(t, "22.0", first[4])
	assert.Equal(t, "35.0", first[5])
	assert.Equal(t, "13.0", first[6])
	assert.Equal(t, "4.33", first[7])

	second := rows[2]
	assert.Equal(t, "2017-2021", second[2])
	assert.Equal(t, "2.75", second[7])
}

func TestForecastExporter_ExportGrowthTableLabelFallback(t *testing.T) {
	tempDir := t.TempDir()
	exp := NewForecastExporter(nil)
	path := filepath.Join(tempDir, "growth_fallback.csv")

	growth := map[string][]forecast.GrowthPeriod{
		"GEN_GAP": {
			{StartYear: 2017, EndYear: 2021, SpanYears: 4, StartValue: 12, EndValue: 10, TotalGrowthPP: -2, AnnualGrowthPP: -0.5},
		},
	}

	err := exp.ExportGrowthTable(map[string]forecast.IndicatorForecast{}, growth, path)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "GEN_GAP", rows[1][0])
	assert.Equal(t, "GEN_GAP", rows[1][1]) // no forecast label, code stands in
	assert.Equal(t, "-2.0", rows[1][6])
	assert.Equal(t, "-0.50", rows[1][7])
}
