package dataset

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eficli/internal/forecast"
)

func loadFixture(t *testing.T) *Dataset {
	t.Helper()

	ds, err := Load(context.Background(), filepath.Join("testdata", "unified.csv"))
	require.NoError(t, err)
	return ds
}

// TestTimeSeries verifies filtering, sorting and same-year dedup
func TestTimeSeries(t *testing.T) {
	ds := loadFixture(t)

	t.Run("account ownership", func(t *testing.T) {
		series, err := ds.TimeSeries("ACC_OWNERSHIP")
		require.NoError(t, err)

		// 2024 appears twice in the fixture; the later observation wins
		assert.Equal(t, []forecast.Point{
			{Year: 2011, Value: 14},
			{Year: 2014, Value: 22},
			{Year: 2017, Value: 35},
			{Year: 2021, Value: 46},
			{Year: 2024, Value: 49},
		}, series)
	})

	t.Run("digital payment", func(t *testing.T) {
		series, err := ds.TimeSeries("USG_DIGITAL_PAYMENT")
		require.NoError(t, err)
		assert.Equal(t, []forecast.Point{
			{Year: 2021, Value: 27},
			{Year: 2024, Value: 35},
		}, series)
	})

	t.Run("text-only indicator yields empty series", func(t *testing.T) {
		series, err := ds.TimeSeries("ACC_MM_ACCOUNTS")
		require.NoError(t, err)
		assert.Empty(t, series)
	})

	t.Run("unknown code yields empty series", func(t *testing.T) {
		series, err := ds.TimeSeries("NO_SUCH_CODE")
		require.NoError(t, err)
		assert.Empty(t, series)
	})

	t.Run("empty code is an error", func(t *testing.T) {
		_, err := ds.TimeSeries("")
		assert.Error(t, err)
	})
}

// TestTimeSeriesFeedsForecast verifies the dataset satisfies the
// forecast layer end to end
func TestTimeSeriesFeedsForecast(t *testing.T) {
	ds := loadFixture(t)

	analyzer := forecast.NewAnalyzer(nil)
	results, err := analyzer.Analyze(context.Background(), ds)
	require.NoError(t, err)

	require.Contains(t, results, forecast.CodeAccountOwnership)
	require.Contains(t, results, forecast.CodeDigitalPayment)
	assert.InDelta(t, 49.0, results[forecast.CodeAccountOwnership].CurrentValue, 1e-9)
}

// TestFilter verifies criteria combine as AND
func TestFilter(t *testing.T) {
	ds := loadFixture(t)

	tests := []struct {
		name       string
		recordType RecordType
		pillar     string
		code       string
		confidence Confidence
		want       int
	}{
		{"observations for one code", RecordObservation, "", "ACC_OWNERSHIP", "", 6},
		{"access pillar any type", "", PillarAccess, "", "", 8},
		{"low confidence observations", RecordObservation, "", "", ConfidenceLow, 1},
		{"no criteria returns all", "", "", "", "", 15},
		{"no match", RecordObservation, PillarUsage, "ACC_OWNERSHIP", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ds.Filter(tt.recordType, tt.pillar, tt.code, tt.confidence)
			assert.Len(t, got, tt.want)
		})
	}
}

// TestEventImpacts verifies the parent_id join, linkless events and
// orphaned links
func TestEventImpacts(t *testing.T) {
	ds := loadFixture(t)

	impacts := ds.EventImpacts()
	require.Len(t, impacts, 3)

	// Ordered by event date: telebirr launch (May 2021) first
	assert.Equal(t, "EVT001", impacts[0].EventID)
	assert.Equal(t, "Telebirr mobile money launch", impacts[0].Title)
	assert.Equal(t, "ACC_OWNERSHIP", impacts[0].RelatedIndicator)
	assert.Equal(t, "positive", impacts[0].ImpactDirection)

	assert.Equal(t, "EVT001", impacts[1].EventID)
	assert.Equal(t, "USG_DIGITAL_PAYMENT", impacts[1].RelatedIndicator)

	// EVT002 has no links but still appears, with empty impact fields
	assert.Equal(t, "EVT002", impacts[2].EventID)
	assert.Empty(t, impacts[2].RelatedIndicator)

	// The orphaned link (parent EVT999) is ignored
	for _, imp := range impacts {
		assert.NotEqual(t, "EVT999", imp.EventID)
	}
}

// TestIndicators verifies the distinct-indicator inventory
func TestIndicators(t *testing.T) {
	ds := loadFixture(t)

	infos := ds.Indicators()
	require.Len(t, infos, 3)

	// Sorted by code
	assert.Equal(t, "ACC_MM_ACCOUNTS", infos[0].Code)
	assert.Equal(t, "ACC_OWNERSHIP", infos[1].Code)
	assert.Equal(t, "USG_DIGITAL_PAYMENT", infos[2].Code)

	acc := infos[1]
	assert.Equal(t, "Account Ownership", acc.Name)
	assert.Equal(t, PillarAccess, acc.Pillar)
	assert.Equal(t, 6, acc.Observations)
	assert.Equal(t, 2011, acc.FirstYear)
	assert.Equal(t, 2024, acc.LastYear)
}

// TestTarget verifies target lookup by code
func TestTarget(t *testing.T) {
	ds := loadFixture(t)

	target, ok := ds.Target("ACC_OWNERSHIP")
	require.True(t, ok)
	value, hasValue := target.Value()
	require.True(t, hasValue)
	assert.InDelta(t, 60.0, value, 1e-9)

	_, ok = ds.Target("USG_DIGITAL_PAYMENT")
	assert.False(t, ok)
}

// TestSummarize verifies the overview counts
func TestSummarize(t *testing.T) {
	ds := loadFixture(t)

	summary := ds.Summarize()

	assert.Equal(t, 15, summary.TotalRecords)
	assert.Equal(t, map[RecordType]int{
		RecordObservation: 9,
		RecordEvent:       2,
		RecordImpactLink:  3,
		RecordTarget:      1,
	}, summary.ByType)

	assert.Equal(t, 3, summary.Indicators)
	assert.Equal(t, 2011, summary.FirstObsYear)
	assert.Equal(t, 2024, summary.LatestObsYear)

	assert.Equal(t, 12, summary.ByConfidence[ConfidenceHigh])
	assert.Equal(t, 1, summary.ByConfidence[ConfidenceMedium])
	assert.Equal(t, 2, summary.ByConfidence[ConfidenceLow])

	assert.Equal(t, 8, summary.ByPillar[PillarAccess])
	assert.Equal(t, 2, summary.ByPillar[PillarUsage])
}

// TestNew verifies datasets built from records behave like loaded ones
func TestNew(t *testing.T) {
	value := 49.0
	ds := New([]Record{
		{
			ID:              "X1",
			RecordType:      RecordObservation,
			IndicatorCode:   "ACC_OWNERSHIP",
			ObservationDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
			ValueNumeric:    &value,
		},
	})

	assert.Equal(t, 1, ds.Len())

	series, err := ds.TimeSeries("ACC_OWNERSHIP")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.InDelta(t, 49.0, series[0].Value, 1e-9)
}

// TestRecordTypeAndConfidence covers the small enum helpers
func TestRecordTypeAndConfidence(t *testing.T) {
	assert.True(t, RecordObservation.IsValid())
	assert.False(t, RecordType("snapshot").IsValid())

	assert.Greater(t, ConfidenceHigh.Rank(), ConfidenceMedium.Rank())
	assert.Greater(t, ConfidenceMedium.Rank(), ConfidenceLow.Rank())
	assert.False(t, Confidence("unknown").IsValid())
	assert.True(t, ConfidenceMedium.IsValid())
}
