package forecast

import (
	"fmt"
	"sort"
)

// ForecastTable flattens analyzer results into one row per
// (indicator, forecast year) with display-formatted strings: point
// estimates as "49.5%", the linear 95% interval as "[47.1%, 51.9%]",
// and the target shown only on the row matching the target year.
//
// Rows are ordered by indicator code then year so repeated calls over
// the same results render identically.
func ForecastTable(results map[string]IndicatorForecast) []ForecastRow {
	codes := make([]string, 0, len(results))
	for code := range results {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var rows []ForecastRow
	for _, code := range codes {
		fc := results[code]
		for i, year := range fc.ForecastYears {
			target := "-"
			if year == fc.TargetYear {
				target = fmt.Sprintf("%.0f%%", fc.Target)
			}

			rows = append(rows, ForecastRow{
				Indicator:          fc.Indicator,
				Code:               code,
				Year:               year,
				LinearForecast:     fmt.Sprintf("%.1f%%", fc.LinearForecast[i]),
				ConfidenceInterval: fmt.Sprintf("[%.1f%%, %.1f%%]", fc.LinearLower[i], fc.LinearUpper[i]),
				LogForecast:        fmt.Sprintf("%.1f%%", fc.LogForecast[i]),
				Target:             target,
			})
		}
	}

	return rows
}
