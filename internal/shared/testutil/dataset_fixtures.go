package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"eficli/internal/forecast"
)

// DatasetTestFixtures provides test data and utilities for dataset and forecast testing
type DatasetTestFixtures struct {
	TestDataDir string
}

// NewDatasetTestFixtures creates a new fixtures manager
func NewDatasetTestFixtures(testDataDir string) *DatasetTestFixtures {
	return &DatasetTestFixtures{
		TestDataDir: testDataDir,
	}
}

// GetOwnershipSeries returns the account ownership observation series
// matching the Findex survey rounds for Ethiopia
func (f *DatasetTestFixtures) GetOwnershipSeries() []forecast.Point {
	return []forecast.Point{
		{Year: 2011, Value: 14},
		{Year: 2014, Value: 22},
		{Year: 2017, Value: 35},
		{Year: 2021, Value: 46},
		{Year: 2024, Value: 49},
	}
}

// GetDigitalPaymentSeries returns the digital payment usage series
func (f *DatasetTestFixtures) GetDigitalPaymentSeries() []forecast.Point {
	return []forecast.Point{
		{Year: 2017, Value: 20},
		{Year: 2021, Value: 27},
		{Year: 2024, Value: 35},
	}
}

// GetSparseSeries returns a single-observation series that cannot be fitted
func (f *DatasetTestFixtures) GetSparseSeries() []forecast.Point {
	return []forecast.Point{
		{Year: 2024, Value: 42},
	}
}

// GetFlatSeries returns a series with zero slope for edge case testing
func (f *DatasetTestFixtures) GetFlatSeries() []forecast.Point {
	return []forecast.Point{
		{Year: 2020, Value: 30},
		{Year: 2021, Value: 30},
		{Year: 2022, Value: 30},
	}
}

// GetIndicatorSpecs returns the default tracked indicator specifications
func (f *DatasetTestFixtures) GetIndicatorSpecs() []forecast.IndicatorSpec {
	return forecast.DefaultIndicators()
}

// UnifiedCSVHeader returns the canonical unified dataset header row
func (f *DatasetTestFixtures) UnifiedCSVHeader() string {
	return "id,record_type,pillar,indicator,indicator_code,observation_date,value_numeric,value_text,unit,source_name,source_type,confidence,event_date,category,parent_id,related_indicator,impact_direction,impact_magnitude,lag_months,evidence_basis,collection_date"
}

// UnifiedCSVContent returns a small but complete unified dataset covering all
// four record types, suitable for loader and service tests
func (f *DatasetTestFixtures) UnifiedCSVContent() string {
	rows := []string{
		f.UnifiedCSVHeader(),
		"OBS001,observation,ACCESS,Account Ownership,ACC_OWNERSHIP,2011-06-30,14,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS002,observation,ACCESS,Account Ownership,ACC_OWNERSHIP,2014-06-30,22,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS003,observation,ACCESS,Account Ownership,ACC_OWNERSHIP,2017-06-30,35,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS004,observation,ACCESS,Account Ownership,ACC_OWNERSHIP,2021-06-30,46,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS005,observation,ACCESS,Account Ownership,ACC_OWNERSHIP,2024-06-30,49,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS006,observation,USAGE,Digital Payment Usage,USG_DIGITAL_PAYMENT,2017-06-30,20,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS007,observation,USAGE,Digital Payment Usage,USG_DIGITAL_PAYMENT,2021-06-30,27,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS008,observation,USAGE,Digital Payment Usage,USG_DIGITAL_PAYMENT,2024-06-30,35,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS009,observation,GENDER,Account Ownership (Female),ACC_OWNERSHIP_F,2021-06-30,39,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS010,observation,GENDER,Account Ownership (Female),ACC_OWNERSHIP_F,2024-06-30,43,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS011,observation,GENDER,Account Ownership (Male),ACC_OWNERSHIP_M,2021-06-30,52,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS012,observation,GENDER,Account Ownership (Male),ACC_OWNERSHIP_M,2024-06-30,55,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15",
		"OBS013,observation,ACCESS,Mobile Money Accounts,ACC_MM_ACCOUNTS,2024-06-30,,64M,millions,National Bank of Ethiopia,admin,medium,,,,,,,,,2025-01-15",
		"EVT001,event,ACCESS,,,,,,,Ethio Telecom,operator,high,2021-05-11,product_launch,,,,,,telebirr mobile money launch,2025-01-15",
		"IMP001,impact_link,ACCESS,,,,,,,,analysis,medium,,,EVT001,ACC_MM_ACCOUNTS,positive,high,12,operator reports,2025-01-15",
		"TGT001,target,ACCESS,Account Ownership,ACC_OWNERSHIP,2025-12-31,60,,percent,NFIS-II,policy,high,,,,,,,,,2025-01-15",
		"TGT002,target,USAGE,Digital Payment Usage,USG_DIGITAL_PAYMENT,2025-12-31,50,,percent,NFIS-II,policy,high,,,,,,,,,2025-01-15",
	}
	return strings.Join(rows, "\n") + "\n"
}

// CreateTestDatasetFile writes a complete unified dataset CSV to the given path
func (f *DatasetTestFixtures) CreateTestDatasetFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(f.UnifiedCSVContent()), 0644); err != nil {
		return fmt.Errorf("failed to write dataset file: %w", err)
	}

	return nil
}

// CreateCorruptedDatasetFile creates various types of corrupted dataset files for testing
func (f *DatasetTestFixtures) CreateCorruptedDatasetFile(path, corruptionType string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var data []byte

	switch corruptionType {
	case "empty":
		data = []byte{}
	case "header_only":
		data = []byte(f.UnifiedCSVHeader() + "\n")
	case "missing_record_type":
		data = []byte("id,category,pillar\nOBS001,survey,ACCESS\n")
	case "bad_numeric":
		data = []byte(f.UnifiedCSVHeader() + "\n" +
			"OBS001,observation,ACCESS,Account Ownership,ACC_OWNERSHIP,2021-06-30,not-a-number,,percent,World Bank Global Findex,survey,high,,,,,,,,,2025-01-15\n")
	case "binary_data":
		data = make([]byte, 256)
		for i := range data {
			data[i] = byte(i % 256)
		}
	case "null_bytes":
		data = []byte("id,record_type\x00\nOBS\x00001,observation\n")
	default:
		return fmt.Errorf("unknown corruption type: %s", corruptionType)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write corrupted file: %w", err)
	}

	return nil
}

// GetTestIndicatorCodes returns various indicator codes for different scenarios
func (f *DatasetTestFixtures) GetTestIndicatorCodes() map[string]string {
	return map[string]string{
		"ownership":       "ACC_OWNERSHIP",
		"digital_payment": "USG_DIGITAL_PAYMENT",
		"mobile_money":    "ACC_MM_ACCOUNTS",
		"gender_female":   "ACC_OWNERSHIP_F",
		"gender_male":     "ACC_OWNERSHIP_M",
		"unknown":         "ACC_DOES_NOT_EXIST",
		"lowercase":       "acc_ownership",
		"empty":           "",
		"spaces":          "   ",
	}
}

// GetSampleForecast returns a populated indicator forecast for handler tests
func (f *DatasetTestFixtures) GetSampleForecast() forecast.IndicatorForecast {
	return forecast.IndicatorForecast{
		Code:             forecast.CodeAccountOwnership,
		Indicator:        "Account ownership",
		CurrentValue:     49,
		CurrentYear:      2024,
		HistoricalYears:  []int{2011, 2014, 2017, 2021, 2024},
		HistoricalValues: []float64{14, 22, 35, 46, 49},
		ForecastYears:    []int{2025, 2026, 2027},
		LinearForecast:   []float64{54.8, 57.7, 60.5},
		LinearLower:      []float64{48.1, 50.3, 52.4},
		LinearUpper:      []float64{61.5, 65.0, 68.6},
		LogForecast:      []float64{52.3, 53.9, 55.3},
		LogLower:         []float64{47.6, 49.2, 50.6},
		LogUpper:         []float64{57.0, 58.6, 60.0},
		Target:           forecast.TargetAccountOwnership,
		TargetYear:       forecast.DefaultTargetYear,
	}
}

// GetMockAPIResponses returns mock API responses for testing
func (f *DatasetTestFixtures) GetMockAPIResponses() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"forecast_success": {
			"success":  true,
			"message":  "Forecasts computed successfully",
			"trace_id": "mock-trace-12345",
		},
		"operation_conflict": {
			"type":     "/errors/operation/already-running",
			"title":    "Operation Already Running",
			"status":   409,
			"detail":   "An analysis operation is already in progress.",
			"trace_id": "mock-trace-12345",
		},
		"dataset_missing": {
			"type":     "/errors/dataset-not-found",
			"title":    "Dataset Not Found",
			"status":   404,
			"detail":   "No unified dataset file found.",
			"trace_id": "mock-trace-12345",
		},
	}
}
