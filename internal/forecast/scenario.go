package forecast

import "math"

// ScenarioPaths projects an indicator forward under each scenario's
// assumed annual growth rate. The path for a scenario is a cumulative
// sum: starting from currentValue, the rate is added once per year for
// every year from currentYear+1 through targetYear inclusive, and each
// step is capped at MaxIndicatorValue.
//
// targetValue is informational only. It is carried through to the
// projection for display (target lines on scenario charts) and never
// enforced on the paths. When targetYear <= currentYear the projection
// has empty years and empty paths; that is a valid result, not an
// error.
//
// Only the saturation ceiling is clamped. A negative rate walks the
// path down without a floor, so values below zero are reported as
// computed. The asymmetry is intentional.
//
// A nil or empty scenario set falls back to DefaultScenarios.
func ScenarioPaths(currentValue, targetValue float64, currentYear, targetYear int, scenarios ScenarioSet) ScenarioProjection {
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}

	span := targetYear - currentYear
	if span < 0 {
		span = 0
	}

	years := make([]int, 0, span)
	for y := currentYear + 1; y <= targetYear; y++ {
		years = append(years, y)
	}

	proj := ScenarioProjection{
		Years:      years,
		Paths:      make(map[string][]float64, len(scenarios)),
		Target:     targetValue,
		TargetYear: targetYear,
	}

	for name, rate := range scenarios {
		path := make([]float64, 0, len(years))
		value := currentValue
		for range years {
			value = math.Min(value+rate, MaxIndicatorValue)
			path = append(path, value)
		}
		proj.Paths[name] = path
	}

	return proj
}
