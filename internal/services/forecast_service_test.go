package services

import (
	"context"
	"testing"

	"eficli/internal/forecast"
	sharedtestutil "eficli/internal/shared/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestForecastService(t *testing.T) *ForecastService {
	t.Helper()

	logger, _ := sharedtestutil.NewTestLogger(t)
	cfg := newTestConfig(t)

	data, err := NewDataServiceWithLogger(cfg, logger)
	require.NoError(t, err)

	return NewForecastServiceWithLogger(cfg, data, logger)
}

func TestForecastServiceGetForecasts(t *testing.T) {
	fs := newTestForecastService(t)

	results, err := fs.GetForecasts(context.Background())
	require.NoError(t, err)

	// Both tracked indicators have enough observations in the fixture
	require.Len(t, results, 2)

	ownership, ok := results[forecast.CodeAccountOwnership]
	require.True(t, ok)
	assert.Equal(t, 49.0, ownership.CurrentValue)
	assert.Equal(t, 2024, ownership.CurrentYear)
	assert.Equal(t, []int{2025, 2026, 2027}, ownership.ForecastYears)
	assert.Len(t, ownership.HistoricalYears, 5)

	_, ok = results[forecast.CodeDigitalPayment]
	assert.True(t, ok)
}

func TestForecastServiceCachesPerLoad(t *testing.T) {
	fs := newTestForecastService(t)
	ctx := context.Background()

	first, err := fs.GetForecasts(ctx)
	require.NoError(t, err)

	again, err := fs.GetForecasts(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(first), len(again))
	assert.False(t, fs.computedAt.IsZero())
}

func TestForecastServiceTable(t *testing.T) {
	fs := newTestForecastService(t)

	rows, err := fs.GetForecastTable(context.Background())
	require.NoError(t, err)

	// Two indicators over a three-year horizon
	assert.Len(t, rows, 6)
	for _, row := range rows {
		assert.NotEmpty(t, row.Code)
		assert.NotZero(t, row.Year)
	}
}

func TestForecastServiceTrajectory(t *testing.T) {
	fs := newTestForecastService(t)

	chart, err := fs.GetTrajectory(context.Background(), forecast.CodeAccountOwnership)
	require.NoError(t, err)

	assert.Equal(t, forecast.CodeAccountOwnership, chart.Code)
	assert.Equal(t, []int{2011, 2014, 2017, 2021, 2024}, chart.HistoricalYears)
	require.Len(t, chart.Linear.Values, 3)
	require.Len(t, chart.Log.Values, 3)
	for i := range chart.Linear.Values {
		assert.LessOrEqual(t, chart.Linear.Lower[i], chart.Linear.Values[i])
		assert.GreaterOrEqual(t, chart.Linear.Upper[i], chart.Linear.Values[i])
	}
	assert.Equal(t, forecast.TargetAccountOwnership, chart.Target)
}

func TestForecastServiceTrajectoryUnknownCode(t *testing.T) {
	fs := newTestForecastService(t)

	_, err := fs.GetTrajectory(context.Background(), "ACC_DOES_NOT_EXIST")
	assert.ErrorIs(t, err, ErrIndicatorNotFound)
}

func TestForecastServiceScenarios(t *testing.T) {
	fs := newTestForecastService(t)

	chart, err := fs.GetScenarios(context.Background())
	require.NoError(t, err)

	assert.Equal(t, forecast.CodeAccountOwnership, chart.Code)
	// Paths run from the year after the last observation to the end of
	// the horizon
	require.Equal(t, []int{2025, 2026, 2027}, chart.Years)
	require.Len(t, chart.Paths, 3)

	base, ok := chart.Paths["base"]
	require.True(t, ok)
	require.Len(t, base, 3)
	assert.InDelta(t, 51.5, base[0], 1e-9)
	assert.InDelta(t, 54.0, base[1], 1e-9)
	assert.InDelta(t, 56.5, base[2], 1e-9)

	assert.Equal(t, forecast.TargetAccountOwnership, chart.Target)
}
