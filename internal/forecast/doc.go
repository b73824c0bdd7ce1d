// Package forecast implements trend fitting and scenario projection
// for Ethiopia's financial-inclusion indicators.
//
// Given short survey time series (typically four to six observations
// spanning 2011-2024), the package produces the three projections the
// dashboard and report build on:
//
//  1. Linear trend: ordinary least squares over (year, value) with a
//     full 95% prediction interval per forecast year
//  2. Logarithmic trend: OLS on a log-transformed time axis, modelling
//     diminishing returns as an indicator approaches saturation
//  3. Scenario paths: named annual growth-rate assumptions walked
//     forward year by year with a hard ceiling at 100%
//
// # Architecture
//
// The statistical core is pure functions over in-memory slices; the
// Analyzer adds orchestration and logging on top:
//
//   - types.go: data structures, defaults and sentinel errors
//   - trend.go: LinearTrend, LogTrend and the shared OLS fit
//   - scenario.go: ScenarioPaths cumulative projection
//   - growth.go: GrowthPeriods descriptive growth table
//   - aggregate.go: Analyzer orchestration over configured indicators
//   - table.go: display-formatted forecast table
//   - persist.go: CSV/JSON/summary output
//
// # Usage Example
//
//	analyzer := forecast.NewAnalyzer(logger)
//	results, err := analyzer.Analyze(ctx, ds)
//	if err != nil {
//	    return fmt.Errorf("analyze indicators: %w", err)
//	}
//
//	for _, row := range forecast.ForecastTable(results) {
//	    fmt.Printf("%s %d: %s %s\n", row.Indicator, row.Year,
//	        row.LinearForecast, row.ConfidenceInterval)
//	}
//
// # Mathematical Foundation
//
// The linear prediction interval uses the closed-form margin
//
//	margin(y) = 1.96 * s * sqrt(1 + 1/n + (y-x̄)² / Σ(xᵢ-x̄)²)
//
// with s the population standard deviation of the fit residuals. The
// logarithmic model maps year t to log1p(t - min(t) + 1) and fits the
// same way; its band is a fixed 1.96*s, a documented simplification
// rather than a transformed-space prediction interval.
//
// # Error Handling
//
// Fits signal ErrInsufficientData below two observations and
// ErrZeroYearVariance when all observations share a year. The Analyzer
// turns sparse optional indicators into partial results instead of
// errors; sparse required indicators propagate. All functions are
// stateless and safe for concurrent use.
package forecast
