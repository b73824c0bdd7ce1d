package http

import (
	"context"

	"eficli/internal/dataset"
	"eficli/internal/forecast"
	"eficli/internal/report"
	"eficli/pkg/contracts/domain"
)

// DataServiceInterface defines the dataset read operations the handlers need
type DataServiceInterface interface {
	GetSummary(ctx context.Context) (dataset.Summary, error)
	GetObservations(ctx context.Context, indicatorCode, pillar, confidence string) ([]dataset.Record, error)
	GetIndicators(ctx context.Context) ([]dataset.IndicatorInfo, error)
	GetEvents(ctx context.Context) ([]dataset.EventImpact, error)
	GetTargets(ctx context.Context) ([]dataset.Record, error)
	GetSeries(ctx context.Context, code string) (domain.IndicatorSeries, error)
	GetGrowth(ctx context.Context, code string) (domain.IndicatorGrowth, error)
	GetGenderGap(ctx context.Context) (domain.GenderGapChart, error)
}

// ForecastServiceInterface defines the forecast and chart operations
type ForecastServiceInterface interface {
	GetForecasts(ctx context.Context) (map[string]forecast.IndicatorForecast, error)
	GetForecastTable(ctx context.Context) ([]forecast.ForecastRow, error)
	GetTrajectory(ctx context.Context, code string) (domain.TrajectoryChart, error)
	GetScenarios(ctx context.Context) (domain.ScenarioChart, error)
}

// ReportServiceInterface defines report listing, download and generation
type ReportServiceInterface interface {
	ListReports(ctx context.Context) (domain.ReportListing, error)
	ResolveDownload(ctx context.Context, name string) (string, error)
	GenerateReport(ctx context.Context, includePDF bool) (*report.Artifacts, error)
}
