package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"eficli/internal/config"
	"eficli/internal/dataset"
	"eficli/internal/forecast"
	"eficli/pkg/contracts/domain"
)

// DataService provides read access to the unified dataset. The dataset
// is loaded lazily on first use and cached; the loaded Dataset is
// immutable, so the lock only guards the cache slot itself.
type DataService struct {
	config *config.Config
	paths  *config.Paths
	logger *slog.Logger

	mu       sync.RWMutex
	ds       *dataset.Dataset
	loadedAt time.Time
}

// NewDataService creates a new data service using default logger
func NewDataService(cfg *config.Config) (*DataService, error) {
	return NewDataServiceWithLogger(cfg, slog.Default())
}

// NewDataServiceWithLogger creates a new data service with a specific logger
func NewDataServiceWithLogger(cfg *config.Config, logger *slog.Logger) (*DataService, error) {
	// Get the centralized paths
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	// Ensure we have a logger
	if logger == nil {
		logger = slog.Default()
	}

	// Log startup paths for visibility using injected logger
	logger.Info("DataService initialized with paths",
		slog.String("data_dir", paths.DataDir),
		slog.String("dataset_file", cfg.GetDatasetFile()),
		slog.String("exports_dir", paths.ExportsDir))

	return &DataService{
		config: cfg,
		paths:  paths,
		logger: logger,
	}, nil
}

// DatasetPath returns the resolved unified dataset CSV path
func (ds *DataService) DatasetPath() string {
	return ds.config.GetDatasetFile()
}

// Dataset returns the cached dataset, loading it on first call
func (ds *DataService) Dataset(ctx context.Context) (*dataset.Dataset, error) {
	ds.mu.RLock()
	cached := ds.ds
	ds.mu.RUnlock()

	if cached != nil {
		return cached, nil
	}

	return ds.Reload(ctx)
}

// Reload discards the cached dataset and loads the CSV again. Callers
// invoke it after a pipeline run rewrites the dataset file.
func (ds *DataService) Reload(ctx context.Context) (*dataset.Dataset, error) {
	path := ds.config.GetDatasetFile()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logDataError(ctx, "load_dataset", "Dataset file not found",
			slog.String("path", path),
		)
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
	}

	loaded, err := dataset.Load(ctx, path)
	if err != nil {
		logDataError(ctx, "load_dataset", "Failed to load dataset",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	ds.mu.Lock()
	ds.ds = loaded
	ds.loadedAt = time.Now()
	ds.mu.Unlock()

	ds.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", path),
		slog.Int("records", loaded.Len()))

	return loaded, nil
}

// LoadedAt returns when the cached dataset was loaded; zero when no
// load has happened yet.
func (ds *DataService) LoadedAt() time.Time {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.loadedAt
}

// GetSummary returns the dataset overview for the dashboard
func (ds *DataService) GetSummary(ctx context.Context) (dataset.Summary, error) {
	data, err := ds.Dataset(ctx)
	if err != nil {
		return dataset.Summary{}, err
	}
	return data.Summarize(), nil
}

// GetObservations returns observation records matching every non-empty
// filter. An unknown indicator code yields an empty slice, not an error.
func (ds *DataService) GetObservations(ctx context.Context, indicatorCode, pillar, confidence string) ([]dataset.Record, error) {
	data, err := ds.Dataset(ctx)
	if err != nil {
		return nil, err
	}

	records := data.Filter(dataset.RecordObservation, pillar, indicatorCode, dataset.Confidence(confidence))

	ds.logger.DebugContext(ctx, "observations filtered",
		slog.String("indicator", indicatorCode),
		slog.String("pillar", pillar),
		slog.String("confidence", confidence),
		slog.Int("count", len(records)))

	return records, nil
}

// GetIndicators returns the distinct indicators present in the dataset
func (ds *DataService) GetIndicators(ctx context.Context) ([]dataset.IndicatorInfo, error) {
	data, err := ds.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return data.Indicators(), nil
}

// GetEvents returns the event timeline joined with impact links
func (ds *DataService) GetEvents(ctx context.Context) ([]dataset.EventImpact, error) {
	data, err := ds.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return data.EventImpacts(), nil
}

// GetTargets returns all policy target records
func (ds *DataService) GetTargets(ctx context.Context) ([]dataset.Record, error) {
	data, err := ds.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return data.Targets(), nil
}

// GetSeries returns the time series payload for one indicator. Unknown
// codes return ErrIndicatorNotFound.
func (ds *DataService) GetSeries(ctx context.Context, code string) (domain.IndicatorSeries, error) {
	data, err := ds.Dataset(ctx)
	if err != nil {
		return domain.IndicatorSeries{}, err
	}

	points, err := data.TimeSeries(code)
	if err != nil {
		return domain.IndicatorSeries{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if len(points) == 0 {
		return domain.IndicatorSeries{}, fmt.Errorf("%w: %s", ErrIndicatorNotFound, code)
	}

	series := domain.IndicatorSeries{Code: code}
	for _, info := range data.Indicators() {
		if info.Code == code {
			series.Name = info.Name
			series.Pillar = info.Pillar
			series.Unit = info.Unit
			break
		}
	}
	for _, p := range points {
		series.Points = append(series.Points, domain.SeriesPoint{Year: p.Year, Value: p.Value})
	}

	return series, nil
}

// GetGrowth returns the inter-survey growth decomposition for one
// indicator. Series with fewer than two observations return
// ErrNoObservations.
func (ds *DataService) GetGrowth(ctx context.Context, code string) (domain.IndicatorGrowth, error) {
	series, err := ds.GetSeries(ctx, code)
	if err != nil {
		return domain.IndicatorGrowth{}, err
	}

	points := make([]forecast.Point, 0, len(series.Points))
	for _, p := range series.Points {
		points = append(points, forecast.Point{Year: p.Year, Value: p.Value})
	}

	periods, err := forecast.GrowthPeriods(points)
	if err != nil {
		return domain.IndicatorGrowth{}, fmt.Errorf("%w: %s", ErrNoObservations, code)
	}

	growth := domain.IndicatorGrowth{Code: code}
	for _, p := range periods {
		growth.Periods = append(growth.Periods, domain.GrowthRow{
			FromYear:     p.StartYear,
			ToYear:       p.EndYear,
			Change:       p.TotalGrowthPP,
			AnnualizedPP: p.AnnualGrowthPP,
		})
	}

	return growth, nil
}

// GetGenderGap returns the female/male account ownership comparison.
// Either series missing yields an empty chart.
func (ds *DataService) GetGenderGap(ctx context.Context) (domain.GenderGapChart, error) {
	data, err := ds.Dataset(ctx)
	if err != nil {
		return domain.GenderGapChart{}, err
	}

	female := seriesOrEmpty(data, "ACC_OWNERSHIP_F")
	male := seriesOrEmpty(data, "ACC_OWNERSHIP_M")

	return domain.NewGenderGapChart(female, male), nil
}

// seriesOrEmpty extracts a series as a domain payload, treating any
// failure as an empty series
func seriesOrEmpty(data *dataset.Dataset, code string) domain.IndicatorSeries {
	series := domain.IndicatorSeries{Code: code}
	points, err := data.TimeSeries(code)
	if err != nil {
		return series
	}
	for _, p := range points {
		series.Points = append(series.Points, domain.SeriesPoint{Year: p.Year, Value: p.Value})
	}
	return series
}
