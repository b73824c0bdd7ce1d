package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SeriesSource supplies a sorted indicator time series by code. The
// dataset package implements this; tests supply fixtures directly.
type SeriesSource interface {
	TimeSeries(code string) ([]Point, error)
}

// Analyzer orchestrates trend fits across the configured indicators
// and assembles the per-indicator forecast bundles consumed by the
// dashboard, the exporter and the report generator.
type Analyzer struct {
	horizon    []int
	indicators []IndicatorSpec
	logger     *slog.Logger
}

// NewAnalyzer creates an analyzer with the default horizon and
// indicator set
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Analyzer{
		horizon:    DefaultForecastYears(),
		indicators: DefaultIndicators(),
		logger:     logger,
	}
}

// SetHorizon replaces the forecast horizon. Years must be strictly
// increasing.
func (a *Analyzer) SetHorizon(years []int) error {
	if len(years) == 0 {
		return fmt.Errorf("empty forecast horizon")
	}
	for i := 1; i < len(years); i++ {
		if years[i] <= years[i-1] {
			return fmt.Errorf("forecast years must be strictly increasing: %d followed by %d", years[i-1], years[i])
		}
	}
	a.horizon = append([]int(nil), years...)
	return nil
}

// Horizon returns a copy of the configured forecast years
func (a *Analyzer) Horizon() []int {
	return append([]int(nil), a.horizon...)
}

// SetIndicators replaces the indicator set
func (a *Analyzer) SetIndicators(specs []IndicatorSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("no indicator specs provided")
	}
	for _, s := range specs {
		if !s.IsValid() {
			return fmt.Errorf("invalid indicator spec: code=%q label=%q target=%.1f", s.Code, s.Label, s.Target)
		}
	}
	a.indicators = append([]IndicatorSpec(nil), specs...)
	return nil
}

// Analyze produces forecast bundles keyed by indicator code.
//
// Optional indicators with fewer than MinPointsForFit observations are
// skipped with a warning, yielding a partial result rather than a
// failure. Required indicators delegate straight to the trend fits, so
// a sparse required series surfaces as ErrInsufficientData.
func (a *Analyzer) Analyze(ctx context.Context, src SeriesSource) (map[string]IndicatorForecast, error) {
	start := time.Now()

	a.logger.InfoContext(ctx, "starting indicator forecast",
		"indicators", len(a.indicators),
		"horizon", a.horizon,
	)

	results := make(map[string]IndicatorForecast, len(a.indicators))

	for _, spec := range a.indicators {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("forecast cancelled: %w", ctx.Err())
		default:
		}

		series, err := src.TimeSeries(spec.Code)
		if err != nil {
			return nil, fmt.Errorf("load series %s: %w", spec.Code, err)
		}

		if spec.Optional && len(series) < MinPointsForFit {
			a.logger.WarnContext(ctx, "skipping optional indicator with sparse series",
				"code", spec.Code,
				"observations", len(series),
			)
			continue
		}

		bundle, err := a.forecastIndicator(spec, series)
		if err != nil {
			a.logger.ErrorContext(ctx, "indicator forecast failed",
				"code", spec.Code,
				"error", err,
			)
			return nil, fmt.Errorf("forecast %s: %w", spec.Code, err)
		}

		results[spec.Code] = bundle

		a.logger.DebugContext(ctx, "indicator forecast ready",
			"code", spec.Code,
			"observations", len(series),
			"current_value", bundle.CurrentValue,
		)
	}

	a.logger.InfoContext(ctx, "indicator forecast completed",
		"duration", time.Since(start),
		"indicators", len(results),
	)

	return results, nil
}

// forecastIndicator runs both trend models over one series and packs
// the result
func (a *Analyzer) forecastIndicator(spec IndicatorSpec, series []Point) (IndicatorForecast, error) {
	linear, err := LinearTrend(series, a.horizon)
	if err != nil {
		return IndicatorForecast{}, fmt.Errorf("linear trend: %w", err)
	}

	logistic, err := LogTrend(series, a.horizon)
	if err != nil {
		return IndicatorForecast{}, fmt.Errorf("log trend: %w", err)
	}

	years := make([]int, len(series))
	values := make([]float64, len(series))
	for i, p := range series {
		years[i] = p.Year
		values[i] = p.Value
	}

	latest := series[len(series)-1]

	return IndicatorForecast{
		Code:             spec.Code,
		Indicator:        spec.Label,
		CurrentValue:     latest.Value,
		CurrentYear:      latest.Year,
		HistoricalYears:  years,
		HistoricalValues: values,
		ForecastYears:    append([]int(nil), a.horizon...),
		LinearForecast:   linear.Forecast,
		LinearLower:      linear.Lower,
		LinearUpper:      linear.Upper,
		LogForecast:      logistic.Forecast,
		LogLower:         logistic.Lower,
		LogUpper:         logistic.Upper,
		Target:           spec.Target,
		TargetYear:       spec.TargetYear,
	}, nil
}
