// Package domain contains the shared data transfer types of the EFI
// Pulse API. Handlers and clients agree on these shapes; the internal
// packages keep their own richer types.
package domain

// SeriesPoint is a single dated observation of an indicator
type SeriesPoint struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
	Date  string  `json:"date,omitempty"`
}

// IndicatorSeries is the time series payload served for one indicator
type IndicatorSeries struct {
	Code   string        `json:"code"`
	Name   string        `json:"name,omitempty"`
	Pillar string        `json:"pillar,omitempty"`
	Unit   string        `json:"unit,omitempty"`
	Points []SeriesPoint `json:"points"`
}

// Latest returns the most recent point of the series. The second
// return is false for an empty series.
func (s IndicatorSeries) Latest() (SeriesPoint, bool) {
	if len(s.Points) == 0 {
		return SeriesPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// GrowthRow is one inter-survey growth period of an indicator
type GrowthRow struct {
	FromYear     int     `json:"from_year"`
	ToYear       int     `json:"to_year"`
	Change       float64 `json:"change"`
	AnnualizedPP float64 `json:"annualized_pp"`
}

// IndicatorGrowth is the growth decomposition payload for one indicator
type IndicatorGrowth struct {
	Code    string      `json:"code"`
	Periods []GrowthRow `json:"periods"`
}
