package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eficli/internal/config"
	"eficli/internal/files"
	"eficli/internal/forecast"
	"eficli/internal/report"
	"eficli/pkg/contracts/domain"
)

// ReportService lists, resolves and generates run artifacts: the HTML
// and PDF outlook reports plus the CSV/JSON/XLSX exports beside them.
type ReportService struct {
	config    *config.Config
	paths     *config.Paths
	files     *files.Manager
	discovery *files.Discovery
	data      *DataService
	forecasts *ForecastService
	logger    *slog.Logger
}

// NewReportService creates a report service using the default logger
func NewReportService(cfg *config.Config, data *DataService, forecasts *ForecastService) (*ReportService, error) {
	return NewReportServiceWithLogger(cfg, data, forecasts, slog.Default())
}

// NewReportServiceWithLogger creates a report service with a specific logger
func NewReportServiceWithLogger(cfg *config.Config, data *DataService, forecasts *ForecastService, logger *slog.Logger) (*ReportService, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("ReportService initialized with paths",
		slog.String("reports_dir", paths.ReportsDir),
		slog.String("exports_dir", paths.ExportsDir))

	return &ReportService{
		config:    cfg,
		paths:     paths,
		files:     files.NewManager(paths),
		discovery: files.NewDiscovery(paths.DataDir),
		data:      data,
		forecasts: forecasts,
		logger:    logger,
	}, nil
}

// ListReports returns the downloadable artifacts from the reports and
// exports directories, newest first
func (rs *ReportService) ListReports(ctx context.Context) (domain.ReportListing, error) {
	listing := domain.ReportListing{Files: []domain.ReportFile{}}

	reportFiles, err := rs.discovery.FindReportFiles(rs.paths.ReportsDir)
	if err != nil {
		rs.logger.DebugContext(ctx, "reports directory scan failed",
			slog.String("dir", rs.paths.ReportsDir),
			slog.String("error", err.Error()))
	}
	exportFiles, err := rs.discovery.FindArtifacts(rs.paths.ExportsDir)
	if err != nil {
		rs.logger.DebugContext(ctx, "exports directory scan failed",
			slog.String("dir", rs.paths.ExportsDir),
			slog.String("error", err.Error()))
	}

	for _, f := range append(reportFiles, exportFiles...) {
		listing.Files = append(listing.Files, domain.ReportFile{
			Name:       f.Name,
			Format:     domain.ReportFormat(f.Format()),
			SizeBytes:  f.Size,
			ModifiedAt: f.ModTime,
		})
	}
	listing.Total = len(listing.Files)

	rs.logger.DebugContext(ctx, "artifacts listed",
		slog.Int("count", listing.Total))

	return listing, nil
}

// ResolveDownload maps an artifact name to its absolute path, checking
// the reports directory first and the exports directory second. Names
// with path separators or traversal segments are rejected.
func (rs *ReportService) ResolveDownload(ctx context.Context, name string) (string, error) {
	if path, err := rs.files.ResolveReport(name); err == nil {
		return path, nil
	}

	path, err := rs.files.ResolveExport(name)
	if err != nil {
		rs.logger.WarnContext(ctx, "artifact resolution failed",
			slog.String("name", name),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return path, nil
}

// GenerateReport renders the outlook report from the current dataset
// and forecasts. A PDF render failure keeps the HTML artifact.
func (rs *ReportService) GenerateReport(ctx context.Context, includePDF bool) (*report.Artifacts, error) {
	data, err := rs.data.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	results, err := rs.forecasts.GetForecasts(ctx)
	if err != nil {
		return nil, err
	}

	growth := make(map[string][]forecast.GrowthPeriod, len(results))
	for code := range results {
		points, err := data.TimeSeries(code)
		if err != nil {
			continue
		}
		if periods, err := forecast.GrowthPeriods(points); err == nil {
			growth[code] = periods
		}
	}

	var scenarios *forecast.ScenarioProjection
	if chart, err := rs.forecasts.GetScenarios(ctx); err == nil {
		scenarios = &forecast.ScenarioProjection{
			Years:      chart.Years,
			Paths:      chart.Paths,
			Target:     chart.Target,
			TargetYear: chart.TargetYear,
		}
	}

	generator, err := report.NewGenerator(rs.logger)
	if err != nil {
		return nil, fmt.Errorf("create report generator: %w", err)
	}
	if rs.config.Report.RenderTimeout > 0 {
		generator.SetPDFTimeout(rs.config.Report.RenderTimeout)
	}

	input := report.Input{
		Dataset:   data,
		Forecasts: results,
		Growth:    growth,
		Scenarios: scenarios,
		ChartsDir: rs.paths.ChartsDir,
	}

	pdfPath := ""
	if includePDF && rs.config.Report.PDFEnabled {
		pdfPath = rs.paths.GetReportPDFPath()
	}

	start := time.Now()
	artifacts, err := generator.Generate(ctx, input, rs.paths.GetReportHTMLPath(), pdfPath)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	rs.logger.InfoContext(ctx, "report generated",
		slog.String("html", artifacts.HTMLPath),
		slog.String("pdf", artifacts.PDFPath),
		slog.Duration("duration", time.Since(start)))

	return artifacts, nil
}
