package forecast

import (
	"errors"
	"math"
)

// Point represents a single observation of an indicator: the calendar
// year it was measured and its value as a percentage of the adult
// population.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// IsValid checks if the observation is usable for trend fitting
func (p Point) IsValid() bool {
	return p.Year > 0 &&
		!math.IsNaN(p.Value) && !math.IsInf(p.Value, 0) &&
		p.Value >= 0 && p.Value <= MaxIndicatorValue
}

// TrendForecast holds the output of a single trend fit: one point
// estimate and a 95% band per forecast year, plus the fitted line
// diagnostics used to derive them.
type TrendForecast struct {
	Years    []int     `json:"years"`
	Forecast []float64 `json:"forecast"`
	Lower    []float64 `json:"lower"`
	Upper    []float64 `json:"upper"`

	// Fit diagnostics
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	StdError  float64 `json:"std_error"` // population std dev of residuals
}

// IsValid checks that the forecast slices are parallel and finite
func (tf TrendForecast) IsValid() bool {
	n := len(tf.Years)
	if n == 0 || len(tf.Forecast) != n || len(tf.Lower) != n || len(tf.Upper) != n {
		return false
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(tf.Forecast[i]) || math.IsInf(tf.Forecast[i], 0) {
			return false
		}
		if tf.Lower[i] > tf.Forecast[i] || tf.Forecast[i] > tf.Upper[i] {
			return false
		}
	}
	return true
}

// ScenarioSet maps a scenario name to its assumed annual growth rate in
// percentage points per year. Rates may be zero or negative; the model
// permits decline.
type ScenarioSet map[string]float64

// IsValid checks that every scenario rate is a finite number
func (s ScenarioSet) IsValid() bool {
	if len(s) == 0 {
		return false
	}
	for name, rate := range s {
		if name == "" || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return false
		}
	}
	return true
}

// ScenarioProjection holds year-by-year scenario paths starting one
// year after the current observation. Target carries the policy target
// for display; it is never enforced on the paths.
type ScenarioProjection struct {
	Years      []int                `json:"years"`
	Paths      map[string][]float64 `json:"paths"`
	Target     float64              `json:"target"`
	TargetYear int                  `json:"target_year"`
}

// GrowthPeriod describes the observed change between two consecutive
// observations of an indicator.
type GrowthPeriod struct {
	StartYear      int     `json:"start_year"`
	EndYear        int     `json:"end_year"`
	SpanYears      int     `json:"span_years"`
	StartValue     float64 `json:"start_value"`
	EndValue       float64 `json:"end_value"`
	TotalGrowthPP  float64 `json:"total_growth_pp"`
	AnnualGrowthPP float64 `json:"annual_growth_pp"` // TotalGrowthPP / SpanYears
}

// IndicatorSpec describes one indicator the Analyzer forecasts,
// together with its national policy target. Optional indicators are
// silently skipped when their series is too sparse to fit; required
// indicators propagate the fit error instead.
type IndicatorSpec struct {
	Code       string  `json:"code"`
	Label      string  `json:"label"`
	Target     float64 `json:"target"`
	TargetYear int     `json:"target_year"`
	Optional   bool    `json:"optional"`
}

// IsValid checks if the indicator spec is complete
func (s IndicatorSpec) IsValid() bool {
	return s.Code != "" && s.Label != "" &&
		s.Target > 0 && s.Target <= MaxIndicatorValue &&
		s.TargetYear > 0
}

// IndicatorForecast is the full forecast bundle for one indicator:
// history, linear and logarithmic trend projections, and the policy
// target. All slices are parallel to ForecastYears except the
// historical pair, which is parallel to itself.
type IndicatorForecast struct {
	Code         string  `json:"code"`
	Indicator    string  `json:"indicator"`
	CurrentValue float64 `json:"current_value"`
	CurrentYear  int     `json:"current_year"`

	HistoricalYears  []int     `json:"historical_years"`
	HistoricalValues []float64 `json:"historical_values"`

	ForecastYears  []int     `json:"forecast_years"`
	LinearForecast []float64 `json:"linear_forecast"`
	LinearLower    []float64 `json:"linear_lower"`
	LinearUpper    []float64 `json:"linear_upper"`
	LogForecast    []float64 `json:"log_forecast"`
	LogLower       []float64 `json:"log_lower"`
	LogUpper       []float64 `json:"log_upper"`

	Target     float64 `json:"target"`
	TargetYear int     `json:"target_year"`
}

// IsValid checks that the forecast bundle is internally consistent
func (f IndicatorForecast) IsValid() bool {
	if f.Code == "" || len(f.HistoricalYears) != len(f.HistoricalValues) {
		return false
	}
	n := len(f.ForecastYears)
	return len(f.LinearForecast) == n && len(f.LinearLower) == n && len(f.LinearUpper) == n &&
		len(f.LogForecast) == n && len(f.LogLower) == n && len(f.LogUpper) == n
}

// ForecastRow is one row of the flattened forecast table: a single
// (indicator, year) pair with display-formatted percentage strings.
type ForecastRow struct {
	Indicator          string `json:"indicator"`
	Code               string `json:"code"`
	Year               int    `json:"year"`
	LinearForecast     string `json:"linear_forecast"`
	ConfidenceInterval string `json:"ci_95"`
	LogForecast        string `json:"log_forecast"`
	Target             string `json:"target"` // "-" unless Year equals the target year
}

// Indicator codes tracked by the default analyzer configuration
const (
	// CodeAccountOwnership is the share of adults with a transaction account
	CodeAccountOwnership = "ACC_OWNERSHIP"
	// CodeDigitalPayment is the share of adults who made or received a digital payment
	CodeDigitalPayment = "USG_DIGITAL_PAYMENT"
)

// Constants for default values
const (
	// NFIS-II policy targets, both dated 2025
	TargetAccountOwnership = 60.0
	TargetDigitalPayment   = 50.0
	DefaultTargetYear      = 2025

	// Minimum observations for any trend fit
	MinPointsForFit = 2

	// Saturation ceiling for percentage-valued indicators
	MaxIndicatorValue = 100.0

	// z-score for a two-sided 95% interval
	zScore95 = 1.96
)

// Default scenario names
const (
	ScenarioOptimistic  = "optimistic"
	ScenarioBase        = "base"
	ScenarioPessimistic = "pessimistic"
)

// DefaultScenarios returns the standard three-scenario set in
// percentage points per year. A fresh map is returned on every call so
// callers can adjust rates without affecting other callers.
func DefaultScenarios() ScenarioSet {
	return ScenarioSet{
		ScenarioOptimistic:  4.0,
		ScenarioBase:        2.5,
		ScenarioPessimistic: 1.0,
	}
}

// DefaultForecastYears returns the standard forecast horizon. The
// horizon runs past the 2025 target year on purpose; the national
// targets keep their own date (see IndicatorSpec.TargetYear).
func DefaultForecastYears() []int {
	return []int{2025, 2026, 2027}
}

// DefaultIndicators returns the two indicators the analyzer tracks.
// Account ownership is required; digital payment usage has fewer
// survey rounds and is skipped when sparse.
func DefaultIndicators() []IndicatorSpec {
	return []IndicatorSpec{
		{
			Code:       CodeAccountOwnership,
			Label:      "Account Ownership",
			Target:     TargetAccountOwnership,
			TargetYear: DefaultTargetYear,
			Optional:   false,
		},
		{
			Code:       CodeDigitalPayment,
			Label:      "Digital Payment Usage",
			Target:     TargetDigitalPayment,
			TargetYear: DefaultTargetYear,
			Optional:   true,
		},
	}
}

// Sentinel errors for trend fitting. Wrap sites add the observation
// counts; callers match with errors.Is.
var (
	// ErrInsufficientData is returned when a fit or growth calculation
	// is attempted with fewer than MinPointsForFit observations.
	ErrInsufficientData = errors.New("insufficient historical observations")

	// ErrZeroYearVariance is returned when every observation falls in
	// the same year, leaving the regression slope undefined.
	ErrZeroYearVariance = errors.New("historical years have zero variance")

	// ErrUnsortedSeries is returned when a series is not strictly
	// increasing by year.
	ErrUnsortedSeries = errors.New("series years not strictly increasing")
)
