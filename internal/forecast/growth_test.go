package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGrowthPeriods verifies the descriptive growth table over the
// survey rounds
func TestGrowthPeriods(t *testing.T) {
	periods, err := GrowthPeriods(ethiopiaOwnership())
	require.NoError(t, err)
	require.Len(t, periods, 4)

	tests := []struct {
		period     string
		span       int
		totalPP    float64
		annualPP   float64
		startValue float64
	}{
		{"2011-2014", 3, 8, 8.0 / 3.0, 14},
		{"2014-2017", 3, 13, 13.0 / 3.0, 22},
		{"2017-2021", 4, 11, 2.75, 35},
		{"2021-2024", 3, 3, 1.0, 46},
	}

	for i, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			p := periods[i]
			assert.Equal(t, tt.period, p.Period())
			assert.Equal(t, tt.span, p.SpanYears)
			assert.InDelta(t, tt.totalPP, p.TotalGrowthPP, 1e-9)
			assert.InDelta(t, tt.annualPP, p.AnnualGrowthPP, 1e-9)
			assert.InDelta(t, tt.startValue, p.StartValue, 1e-9)
		})
	}
}

// TestGrowthPeriodsRowCount verifies n points yield exactly n-1 rows
// with annual growth equal to total growth over the span
func TestGrowthPeriodsRowCount(t *testing.T) {
	points := []Point{
		{Year: 2015, Value: 10},
		{Year: 2016, Value: 11},
		{Year: 2019, Value: 17},
		{Year: 2020, Value: 16},
		{Year: 2023, Value: 25},
		{Year: 2024, Value: 24},
	}

	periods, err := GrowthPeriods(points)
	require.NoError(t, err)
	assert.Len(t, periods, len(points)-1)

	for _, p := range periods {
		assert.InDelta(t, p.TotalGrowthPP/float64(p.SpanYears), p.AnnualGrowthPP, 1e-9)
		assert.Equal(t, p.EndYear-p.StartYear, p.SpanYears)
	}
}

// TestGrowthPeriodsDecline verifies negative growth is reported, not
// clamped
func TestGrowthPeriodsDecline(t *testing.T) {
	periods, err := GrowthPeriods([]Point{
		{Year: 2020, Value: 50},
		{Year: 2022, Value: 44},
	})
	require.NoError(t, err)
	require.Len(t, periods, 1)

	assert.InDelta(t, -6.0, periods[0].TotalGrowthPP, 1e-9)
	assert.InDelta(t, -3.0, periods[0].AnnualGrowthPP, 1e-9)
}

// TestGrowthPeriodsErrors verifies the failure modes
func TestGrowthPeriodsErrors(t *testing.T) {
	tests := []struct {
		name    string
		points  []Point
		wantErr error
	}{
		{"empty series", nil, ErrInsufficientData},
		{"single point", []Point{{Year: 2024, Value: 49}}, ErrInsufficientData},
		{
			"duplicate year",
			[]Point{{Year: 2021, Value: 44}, {Year: 2021, Value: 46}},
			ErrUnsortedSeries,
		},
		{
			"descending years",
			[]Point{{Year: 2024, Value: 49}, {Year: 2021, Value: 46}},
			ErrUnsortedSeries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GrowthPeriods(tt.points)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
