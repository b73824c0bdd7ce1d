package forecast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource serves fixed series from a map, mimicking the dataset
type stubSource map[string][]Point

func (s stubSource) TimeSeries(code string) ([]Point, error) {
	return s[code], nil
}

// failingSource always errors
type failingSource struct{ err error }

func (f failingSource) TimeSeries(string) ([]Point, error) {
	return nil, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fullSource() stubSource {
	return stubSource{
		CodeAccountOwnership: ethiopiaOwnership(),
		CodeDigitalPayment: {
			{Year: 2017, Value: 20},
			{Year: 2021, Value: 27},
			{Year: 2024, Value: 35},
		},
	}
}

// TestAnalyzerBothIndicators verifies a full run produces both bundles
// with targets attached
func TestAnalyzerBothIndicators(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	results, err := analyzer.Analyze(context.Background(), fullSource())
	require.NoError(t, err)
	require.Len(t, results, 2)

	acc, ok := results[CodeAccountOwnership]
	require.True(t, ok)
	assert.Equal(t, "Account Ownership", acc.Indicator)
	assert.InDelta(t, 49.0, acc.CurrentValue, 1e-9)
	assert.Equal(t, 2024, acc.CurrentYear)
	assert.Equal(t, []int{2025, 2026, 2027}, acc.ForecastYears)
	assert.InDelta(t, TargetAccountOwnership, acc.Target, 1e-9)
	assert.Equal(t, DefaultTargetYear, acc.TargetYear)
	assert.True(t, acc.IsValid())

	dig, ok := results[CodeDigitalPayment]
	require.True(t, ok)
	assert.Equal(t, "Digital Payment Usage", dig.Indicator)
	assert.InDelta(t, TargetDigitalPayment, dig.Target, 1e-9)
	assert.Len(t, dig.HistoricalYears, 3)
	assert.True(t, dig.IsValid())
}

// TestAnalyzerPartialResult verifies a sparse optional indicator is
// omitted rather than failing the run
func TestAnalyzerPartialResult(t *testing.T) {
	tests := []struct {
		name    string
		digital []Point
	}{
		{"no observations", nil},
		{"single observation", []Point{{Year: 2024, Value: 35}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := stubSource{
				CodeAccountOwnership: ethiopiaOwnership(),
				CodeDigitalPayment:   tt.digital,
			}

			analyzer := NewAnalyzer(testLogger())
			results, err := analyzer.Analyze(context.Background(), src)
			require.NoError(t, err)

			assert.Len(t, results, 1)
			assert.Contains(t, results, CodeAccountOwnership)
			assert.NotContains(t, results, CodeDigitalPayment)
		})
	}
}

// TestAnalyzerRequiredSparse verifies a sparse required indicator is a
// hard failure, not a partial result
func TestAnalyzerRequiredSparse(t *testing.T) {
	src := stubSource{
		CodeAccountOwnership: {{Year: 2024, Value: 49}},
		CodeDigitalPayment: {
			{Year: 2021, Value: 27},
			{Year: 2024, Value: 35},
		},
	}

	analyzer := NewAnalyzer(testLogger())
	_, err := analyzer.Analyze(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

// TestAnalyzerSourceError verifies series loading errors propagate
// with context
func TestAnalyzerSourceError(t *testing.T) {
	wantErr := errors.New("csv truncated")

	analyzer := NewAnalyzer(testLogger())
	_, err := analyzer.Analyze(context.Background(), failingSource{err: wantErr})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

// TestAnalyzerCancelled verifies context cancellation stops the run
func TestAnalyzerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	analyzer := NewAnalyzer(testLogger())
	_, err := analyzer.Analyze(ctx, fullSource())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestAnalyzerSetHorizon verifies horizon validation and that a custom
// horizon flows into the bundles
func TestAnalyzerSetHorizon(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	t.Run("rejects empty", func(t *testing.T) {
		assert.Error(t, analyzer.SetHorizon(nil))
	})

	t.Run("rejects non-increasing", func(t *testing.T) {
		assert.Error(t, analyzer.SetHorizon([]int{2025, 2025}))
		assert.Error(t, analyzer.SetHorizon([]int{2026, 2025}))
	})

	t.Run("custom horizon applied", func(t *testing.T) {
		require.NoError(t, analyzer.SetHorizon([]int{2025, 2030}))
		assert.Equal(t, []int{2025, 2030}, analyzer.Horizon())

		results, err := analyzer.Analyze(context.Background(), fullSource())
		require.NoError(t, err)
		assert.Equal(t, []int{2025, 2030}, results[CodeAccountOwnership].ForecastYears)
	})
}

// TestAnalyzerSetIndicators verifies spec validation and custom specs
func TestAnalyzerSetIndicators(t *testing.T) {
	analyzer := NewAnalyzer(testLogger())

	t.Run("rejects empty", func(t *testing.T) {
		assert.Error(t, analyzer.SetIndicators(nil))
	})

	t.Run("rejects invalid spec", func(t *testing.T) {
		err := analyzer.SetIndicators([]IndicatorSpec{{Code: "X"}})
		assert.Error(t, err)
	})

	t.Run("single custom indicator", func(t *testing.T) {
		require.NoError(t, analyzer.SetIndicators([]IndicatorSpec{{
			Code:       CodeAccountOwnership,
			Label:      "Account Ownership",
			Target:     70,
			TargetYear: 2030,
		}}))

		results, err := analyzer.Analyze(context.Background(), fullSource())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.InDelta(t, 70.0, results[CodeAccountOwnership].Target, 1e-9)
		assert.Equal(t, 2030, results[CodeAccountOwnership].TargetYear)
	})
}

// TestAnalyzerNilLogger verifies the nil-logger fallback
func TestAnalyzerNilLogger(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	results, err := analyzer.Analyze(context.Background(), fullSource())
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}
