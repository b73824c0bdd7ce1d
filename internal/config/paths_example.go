// +build example

package config

import (
	"log/slog"
	"os"
)

// ExampleUsage demonstrates how to use the paths package throughout the application
func ExampleUsage() {
	// Always get paths from the centralized GetPaths() function
	paths, err := GetPaths()
	if err != nil {
		slog.Error("Failed to get paths", slog.String("error", err.Error())); os.Exit(1)
	}

	// Ensure all directories exist at startup
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to ensure directories", slog.String("error", err.Error())); os.Exit(1)
	}

	// Log all resolved paths for debugging
	paths.LogPathResolution()

	// Example 1: Dataset loader usage
	slog.Info("Unified dataset will be loaded from", slog.String("path", paths.DatasetFile))

	// Example 2: Exporter writing generated outputs
	slog.Info("Forecast CSV will be written to", slog.String("path", paths.GetForecastsCSVPath()))
	slog.Info("Excel workbook will be written to", slog.String("path", paths.GetWorkbookPath()))

	// Example 3: Report generator outputs
	slog.Info("HTML report will be written to", slog.String("path", paths.GetReportHTMLPath()))
	slog.Info("Ownership chart will be read from", slog.String("path", paths.GetChartPath("ownership_trajectory.png")))

	// Example 4: Validate required files exist before starting
	if err := paths.ValidateRequiredFiles(); err != nil {
		slog.Warn("Missing input files", slog.String("error", err.Error()))
		// Application might want to handle missing files gracefully
	}

	// Example 5: Using the dataset path helper
	datasetPath, err := GetDatasetPath()
	if err != nil {
		slog.Error("Failed to resolve dataset path", slog.String("error", err.Error()))
	}
	slog.Info("Dataset path (via helper)", slog.String("path", datasetPath))
}
