package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eficli/internal/config"
	"eficli/internal/forecast"
	"eficli/pkg/contracts/domain"
)

// ForecastService computes trend and scenario projections over the
// unified dataset for the dashboard endpoints. Results are cached per
// dataset load; a Reload on the data service invalidates the cache.
type ForecastService struct {
	data   *DataService
	config *config.Config
	logger *slog.Logger

	mu         sync.Mutex
	results    map[string]forecast.IndicatorForecast
	computedAt time.Time
}

// NewForecastService creates a forecast service using the default logger
func NewForecastService(cfg *config.Config, data *DataService) *ForecastService {
	return NewForecastServiceWithLogger(cfg, data, slog.Default())
}

// NewForecastServiceWithLogger creates a forecast service with a specific logger
func NewForecastServiceWithLogger(cfg *config.Config, data *DataService, logger *slog.Logger) *ForecastService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("ForecastService initialized",
		slog.Any("horizon", cfg.Forecast.Horizon),
		slog.Int("scenarios", len(cfg.Forecast.Scenarios)))

	return &ForecastService{
		data:   data,
		config: cfg,
		logger: logger,
	}
}

// newAnalyzer builds an analyzer configured from the application config
func (fs *ForecastService) newAnalyzer() (*forecast.Analyzer, error) {
	analyzer := forecast.NewAnalyzer(fs.logger)
	if len(fs.config.Forecast.Horizon) > 0 {
		if err := analyzer.SetHorizon(fs.config.Forecast.Horizon); err != nil {
			return nil, fmt.Errorf("configure horizon: %w", err)
		}
	}
	return analyzer, nil
}

// scenarios returns the configured scenario set, falling back to the
// standard three when none is configured
func (fs *ForecastService) scenarios() forecast.ScenarioSet {
	if len(fs.config.Forecast.Scenarios) > 0 {
		set := make(forecast.ScenarioSet, len(fs.config.Forecast.Scenarios))
		for name, rate := range fs.config.Forecast.Scenarios {
			set[name] = rate
		}
		return set
	}
	return forecast.DefaultScenarios()
}

// GetForecasts returns the forecast bundles keyed by indicator code
func (fs *ForecastService) GetForecasts(ctx context.Context) (map[string]forecast.IndicatorForecast, error) {
	data, err := fs.data.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	loadedAt := fs.data.LoadedAt()
	if fs.results != nil && !fs.computedAt.Before(loadedAt) {
		return fs.results, nil
	}

	analyzer, err := fs.newAnalyzer()
	if err != nil {
		return nil, err
	}

	results, err := analyzer.Analyze(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("analyze indicators: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoForecasts
	}

	fs.results = results
	fs.computedAt = time.Now()

	fs.logger.InfoContext(ctx, "forecasts computed",
		slog.Int("indicators", len(results)))

	return results, nil
}

// GetForecastTable returns the flattened per-year forecast rows
func (fs *ForecastService) GetForecastTable(ctx context.Context) ([]forecast.ForecastRow, error) {
	results, err := fs.GetForecasts(ctx)
	if err != nil {
		return nil, err
	}
	return forecast.ForecastTable(results), nil
}

// GetTrajectory returns the history-plus-trends chart payload for one
// indicator. Codes without a forecast return ErrIndicatorNotFound.
func (fs *ForecastService) GetTrajectory(ctx context.Context, code string) (domain.TrajectoryChart, error) {
	results, err := fs.GetForecasts(ctx)
	if err != nil {
		return domain.TrajectoryChart{}, err
	}

	fc, ok := results[code]
	if !ok {
		return domain.TrajectoryChart{}, fmt.Errorf("%w: %s", ErrIndicatorNotFound, code)
	}

	return domain.TrajectoryChart{
		Code:             fc.Code,
		Name:             fc.Indicator,
		HistoricalYears:  fc.HistoricalYears,
		HistoricalValues: fc.HistoricalValues,
		ForecastYears:    fc.ForecastYears,
		Linear: domain.TrendBand{
			Values: fc.LinearForecast,
			Lower:  fc.LinearLower,
			Upper:  fc.LinearUpper,
		},
		Log: domain.TrendBand{
			Values: fc.LogForecast,
			Lower:  fc.LogLower,
			Upper:  fc.LogUpper,
		},
		Target:     fc.Target,
		TargetYear: fc.TargetYear,
	}, nil
}

// GetScenarios returns the policy scenario paths for account ownership,
// the indicator the NFIS-II target tracks
func (fs *ForecastService) GetScenarios(ctx context.Context) (domain.ScenarioChart, error) {
	results, err := fs.GetForecasts(ctx)
	if err != nil {
		return domain.ScenarioChart{}, err
	}

	primary, ok := results[forecast.CodeAccountOwnership]
	if !ok {
		return domain.ScenarioChart{}, fmt.Errorf("%w: %s", ErrIndicatorNotFound, forecast.CodeAccountOwnership)
	}

	targetYear := primary.TargetYear
	if last := lastHorizonYear(primary.ForecastYears); last > targetYear {
		targetYear = last
	}

	projection := forecast.ScenarioPaths(
		primary.CurrentValue,
		primary.Target,
		primary.CurrentYear,
		targetYear,
		fs.scenarios(),
	)

	return domain.ScenarioChart{
		Code:       primary.Code,
		Years:      projection.Years,
		Paths:      projection.Paths,
		Target:     projection.Target,
		TargetYear: projection.TargetYear,
	}, nil
}

// lastHorizonYear returns the final forecast year, or 0 for an empty horizon
func lastHorizonYear(years []int) int {
	if len(years) == 0 {
		return 0
	}
	return years[len(years)-1]
}
