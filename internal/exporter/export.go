package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"eficli/internal/dataset"
	"eficli/internal/forecast"
)

// Input bundles the analysis outputs the artifact writers consume
type Input struct {
	Dataset     *dataset.Dataset
	DatasetPath string
	Forecasts   map[string]forecast.IndicatorForecast
	Growth      map[string][]forecast.GrowthPeriod
	Table       []forecast.ForecastRow
}

// Artifacts lists every file written by one Export call
type Artifacts struct {
	IndicatorCSVs    []string `json:"indicator_csvs"`
	ForecastTable    string   `json:"forecast_table"`
	GrowthTable      string   `json:"growth_table"`
	IndicatorSummary string   `json:"indicator_summary"`
	DatasetSummary   string   `json:"dataset_summary"`
	DatasetSnapshot  string   `json:"dataset_snapshot"`
	Workbook         string   `json:"workbook"`
}

// Files returns every written path, per-indicator files first
func (a *Artifacts) Files() []string {
	files := append([]string(nil), a.IndicatorCSVs...)
	for _, path := range []string{
		a.ForecastTable,
		a.GrowthTable,
		a.IndicatorSummary,
		a.DatasetSummary,
		a.DatasetSnapshot,
		a.Workbook,
	} {
		if path != "" {
			files = append(files, path)
		}
	}
	return files
}

// Exporter fans the artifacts of one analysis run out to disk. The
// writers are independent, so they run concurrently; the first failure
// cancels the rest and fails the export.
type Exporter struct {
	logger     *slog.Logger
	forecasts  *ForecastExporter
	indicators *IndicatorExporter
	dataset    *DatasetExporter
	workbook   *WorkbookExporter
}

// NewExporter creates an exporter with all artifact writers wired up
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "exporter"))

	return &Exporter{
		logger:     logger,
		forecasts:  NewForecastExporter(logger),
		indicators: NewIndicatorExporter(logger),
		dataset:    NewDatasetExporter(logger),
		workbook:   NewWorkbookExporter(logger),
	}
}

// Export writes every artifact for one run into outputDir. All file
// names share a single timestamp so the artifacts of a run group
// together and successive runs never overwrite each other.
func (e *Exporter) Export(ctx context.Context, in Input, outputDir string) (*Artifacts, error) {
	if in.Dataset == nil {
		return nil, fmt.Errorf("export input has no dataset")
	}
	if outputDir == "" {
		return nil, fmt.Errorf("export output directory is empty")
	}

	stamp := time.Now().Format("20060102_150405")
	artifacts := &Artifacts{
		ForecastTable:    filepath.Join(outputDir, fmt.Sprintf("forecast_table_%s.csv", stamp)),
		GrowthTable:      filepath.Join(outputDir, fmt.Sprintf("growth_table_%s.csv", stamp)),
		IndicatorSummary: filepath.Join(outputDir, fmt.Sprintf("indicator_summary_%s.csv", stamp)),
		DatasetSummary:   filepath.Join(outputDir, fmt.Sprintf("dataset_summary_%s.json", stamp)),
		DatasetSnapshot:  filepath.Join(outputDir, fmt.Sprintf("dataset_snapshot_%s.csv", stamp)),
		Workbook:         filepath.Join(outputDir, fmt.Sprintf("efi_analysis_%s.xlsx", stamp)),
	}

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		files, err := e.forecasts.ExportIndicatorFiles(in.Forecasts, outputDir, stamp)
		if err != nil {
			return err
		}
		artifacts.IndicatorCSVs = files
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		if err := e.forecasts.ExportForecastTable(in.Table, artifacts.ForecastTable); err != nil {
			return fmt.Errorf("forecast table: %w", err)
		}
		return e.forecasts.ExportGrowthTable(in.Forecasts, in.Growth, artifacts.GrowthTable)
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		summaries := e.indicators.GenerateIndicatorSummaries(in.Dataset, in.Forecasts)
		return e.indicators.ExportIndicatorSummary(summaries, artifacts.IndicatorSummary)
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		if err := e.dataset.ExportDatasetSummary(in.Dataset, in.DatasetPath, artifacts.DatasetSummary); err != nil {
			return fmt.Errorf("dataset summary: %w", err)
		}
		return e.dataset.ExportRecords(in.Dataset.Records(), artifacts.DatasetSnapshot)
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		return e.workbook.ExportWorkbook(in.Dataset, in.Forecasts, in.Growth, artifacts.Workbook)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "artifacts exported",
		slog.String("output_dir", outputDir),
		slog.Int("files", len(artifacts.Files())),
		slog.Duration("duration", time.Since(started)))

	return artifacts, nil
}
