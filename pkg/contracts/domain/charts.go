package domain

// TrajectoryChart is the chart payload for one indicator: the observed
// history followed by the fitted trend projections with their
// uncertainty bands.
type TrajectoryChart struct {
	Code             string    `json:"code"`
	Name             string    `json:"name,omitempty"`
	HistoricalYears  []int     `json:"historical_years"`
	HistoricalValues []float64 `json:"historical_values"`
	ForecastYears    []int     `json:"forecast_years"`
	Linear           TrendBand `json:"linear"`
	Log              TrendBand `json:"log"`
	Target           float64   `json:"target,omitempty"`
	TargetYear       int       `json:"target_year,omitempty"`
}

// TrendBand is a projected path with its confidence bounds. Slices are
// parallel to the chart's ForecastYears.
type TrendBand struct {
	Values []float64 `json:"values"`
	Lower  []float64 `json:"lower"`
	Upper  []float64 `json:"upper"`
}

// ScenarioChart is the chart payload for the policy scenario paths
type ScenarioChart struct {
	Code       string               `json:"code"`
	Years      []int                `json:"years"`
	Paths      map[string][]float64 `json:"paths"`
	Target     float64              `json:"target,omitempty"`
	TargetYear int                  `json:"target_year,omitempty"`
}

// GenderGapChart is the chart payload comparing female and male account
// ownership. Slices are parallel to Years; Gap is male minus female in
// percentage points.
type GenderGapChart struct {
	Years  []int     `json:"years"`
	Female []float64 `json:"female"`
	Male   []float64 `json:"male"`
	Gap    []float64 `json:"gap"`
}

// NewGenderGapChart pairs the female and male series on their common
// years and computes the gap for each pair. Years present in only one
// series are dropped.
func NewGenderGapChart(female, male IndicatorSeries) GenderGapChart {
	maleByYear := make(map[int]float64, len(male.Points))
	for _, p := range male.Points {
		maleByYear[p.Year] = p.Value
	}

	chart := GenderGapChart{}
	for _, p := range female.Points {
		m, ok := maleByYear[p.Year]
		if !ok {
			continue
		}
		chart.Years = append(chart.Years, p.Year)
		chart.Female = append(chart.Female, p.Value)
		chart.Male = append(chart.Male, m)
		chart.Gap = append(chart.Gap, m-p.Value)
	}
	return chart
}
