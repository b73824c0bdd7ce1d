package forecast

import "fmt"

// GrowthPeriods computes the observed growth between each pair of
// consecutive observations. For n points it returns exactly n-1
// periods, each carrying the absolute change in percentage points and
// the average annual change over the period.
//
// The input must be sorted strictly ascending by year, which is how
// dataset time series arrive. Duplicate or out-of-order years return
// ErrUnsortedSeries rather than producing a divide-by-zero annual rate.
func GrowthPeriods(points []Point) ([]GrowthPeriod, error) {
	if len(points) < MinPointsForFit {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(points), MinPointsForFit)
	}

	periods := make([]GrowthPeriod, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]

		span := cur.Year - prev.Year
		if span <= 0 {
			return nil, fmt.Errorf("%w: year %d followed by %d", ErrUnsortedSeries, prev.Year, cur.Year)
		}

		total := cur.Value - prev.Value
		periods = append(periods, GrowthPeriod{
			StartYear:      prev.Year,
			EndYear:        cur.Year,
			SpanYears:      span,
			StartValue:     prev.Value,
			EndValue:       cur.Value,
			TotalGrowthPP:  total,
			AnnualGrowthPP: total / float64(span),
		})
	}

	return periods, nil
}

// Period formats the period label used in growth tables, e.g. "2017-2021"
func (g GrowthPeriod) Period() string {
	return fmt.Sprintf("%d-%d", g.StartYear, g.EndYear)
}
