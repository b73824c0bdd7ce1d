package forecast

import (
	"fmt"
	"math"
)

// LinearTrend fits value = slope*year + intercept by ordinary least
// squares over the historical points and extrapolates to the forecast
// years with a 95% prediction interval.
//
// The margin for forecast year y uses the standard prediction-interval
// formula for simple linear regression:
//
//	margin(y) = 1.96 * stdErr * sqrt(1 + 1/n + (y-mean)^2 / sum((years-mean)^2))
//
// where stdErr is the population standard deviation of the residuals
// over the historical points. With exactly two distinct years the fit
// is perfect and the margin collapses to zero.
//
// Returns ErrInsufficientData for fewer than MinPointsForFit points and
// ErrZeroYearVariance when all years are identical.
func LinearTrend(points []Point, forecastYears []int) (TrendForecast, error) {
	if len(points) < MinPointsForFit {
		return TrendForecast{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(points), MinPointsForFit)
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Year)
		ys[i] = p.Value
	}

	slope, intercept, err := fitLine(xs, ys)
	if err != nil {
		return TrendForecast{}, err
	}

	stdErr := residualStdError(xs, ys, slope, intercept)
	meanYear := calculateMean(xs)
	ssx := sumSquaredDeviations(xs, meanYear)
	n := float64(len(xs))

	tf := TrendForecast{
		Years:     append([]int(nil), forecastYears...),
		Forecast:  make([]float64, len(forecastYears)),
		Lower:     make([]float64, len(forecastYears)),
		Upper:     make([]float64, len(forecastYears)),
		Slope:     slope,
		Intercept: intercept,
		StdError:  stdErr,
	}

	for i, year := range forecastYears {
		x := float64(year)
		estimate := slope*x + intercept
		margin := zScore95 * stdErr * math.Sqrt(1+1/n+(x-meanYear)*(x-meanYear)/ssx)

		tf.Forecast[i] = estimate
		tf.Lower[i] = estimate - margin
		tf.Upper[i] = estimate + margin
	}

	return tf, nil
}

// LogTrend fits a diminishing-returns trend: years are mapped onto a
// logarithmic time axis anchored at the earliest historical year, and
// the fit is ordinary least squares in the transformed coordinate.
//
// The band is a fixed 1.96*stdErr on every forecast year. This is a
// deliberate simplification rather than a full prediction interval in
// transformed space, so the log band does not widen with horizon the
// way the linear band does.
//
// Failure conditions match LinearTrend.
func LogTrend(points []Point, forecastYears []int) (TrendForecast, error) {
	if len(points) < MinPointsForFit {
		return TrendForecast{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(points), MinPointsForFit)
	}

	baseYear := points[0].Year
	for _, p := range points[1:] {
		if p.Year < baseYear {
			baseYear = p.Year
		}
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = logYear(p.Year, baseYear)
		ys[i] = p.Value
	}

	slope, intercept, err := fitLine(xs, ys)
	if err != nil {
		return TrendForecast{}, err
	}

	stdErr := residualStdError(xs, ys, slope, intercept)
	margin := zScore95 * stdErr

	tf := TrendForecast{
		Years:     append([]int(nil), forecastYears...),
		Forecast:  make([]float64, len(forecastYears)),
		Lower:     make([]float64, len(forecastYears)),
		Upper:     make([]float64, len(forecastYears)),
		Slope:     slope,
		Intercept: intercept,
		StdError:  stdErr,
	}

	for i, year := range forecastYears {
		estimate := slope*logYear(year, baseYear) + intercept

		tf.Forecast[i] = estimate
		tf.Lower[i] = estimate - margin
		tf.Upper[i] = estimate + margin
	}

	return tf, nil
}

// logYear maps a calendar year onto the logarithmic time axis used by
// LogTrend. The base year maps to log(2); the +1 offset keeps the log
// argument strictly positive for every year at or after the base year.
func logYear(year, baseYear int) float64 {
	return math.Log1p(float64(year - baseYear + 1))
}

// fitLine fits y = slope*x + intercept by ordinary least squares.
// Returns ErrZeroYearVariance when the x values carry no variance.
func fitLine(xs, ys []float64) (slope, intercept float64, err error) {
	meanX := calculateMean(xs)
	meanY := calculateMean(ys)

	var ssx, sxy float64
	for i := range xs {
		dx := xs[i] - meanX
		ssx += dx * dx
		sxy += dx * (ys[i] - meanY)
	}

	if ssx == 0 {
		return 0, 0, fmt.Errorf("%w: %d observations share one year", ErrZeroYearVariance, len(xs))
	}

	slope = sxy / ssx
	intercept = meanY - slope*meanX
	return slope, intercept, nil
}

// residualStdError computes the population standard deviation of the
// fit residuals. Population (not sample) matches the interval formula
// in LinearTrend.
func residualStdError(xs, ys []float64, slope, intercept float64) float64 {
	var sumSquares float64
	for i := range xs {
		r := ys[i] - (slope*xs[i] + intercept)
		sumSquares += r * r
	}
	return math.Sqrt(sumSquares / float64(len(xs)))
}

// calculateMean computes the arithmetic mean of a slice of values
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sumSquaredDeviations computes sum((v - mean)^2) over the slice
func sumSquaredDeviations(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum
}
