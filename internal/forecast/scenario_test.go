package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioPathsBase verifies the cumulative walk for a single
// custom scenario
func TestScenarioPathsBase(t *testing.T) {
	proj := ScenarioPaths(49, 60, 2024, 2027, ScenarioSet{"base": 2.5})

	assert.Equal(t, []int{2025, 2026, 2027}, proj.Years)
	require.Contains(t, proj.Paths, "base")

	path := proj.Paths["base"]
	require.Len(t, path, 3)
	assert.InDelta(t, 51.5, path[0], 1e-9)
	assert.InDelta(t, 54.0, path[1], 1e-9)
	assert.InDelta(t, 56.5, path[2], 1e-9)

	assert.InDelta(t, 60.0, proj.Target, 1e-9)
	assert.Equal(t, 2027, proj.TargetYear)
}

// TestScenarioPathsCeiling verifies the 100% saturation cap applies
// per step, not after the fact
func TestScenarioPathsCeiling(t *testing.T) {
	proj := ScenarioPaths(98, 100, 2024, 2026, ScenarioSet{"optimistic": 4.0})

	path := proj.Paths["optimistic"]
	require.Len(t, path, 2)
	assert.Equal(t, 100.0, path[0])
	assert.Equal(t, 100.0, path[1])
}

// TestScenarioPathsEmptyHorizon verifies a past or current target year
// yields empty sequences rather than an error
func TestScenarioPathsEmptyHorizon(t *testing.T) {
	tests := []struct {
		name        string
		currentYear int
		targetYear  int
	}{
		{"target equals current", 2024, 2024},
		{"target before current", 2024, 2020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj := ScenarioPaths(49, 60, tt.currentYear, tt.targetYear, nil)

			assert.Empty(t, proj.Years)
			assert.Len(t, proj.Paths, len(DefaultScenarios()))
			for name, path := range proj.Paths {
				assert.Empty(t, path, "scenario %s", name)
			}
		})
	}
}

// TestScenarioPathsDefaults verifies nil scenarios fall back to the
// three standard rates
func TestScenarioPathsDefaults(t *testing.T) {
	proj := ScenarioPaths(49, 60, 2024, 2025, nil)

	require.Len(t, proj.Paths, 3)
	assert.InDelta(t, 53.0, proj.Paths[ScenarioOptimistic][0], 1e-9)
	assert.InDelta(t, 51.5, proj.Paths[ScenarioBase][0], 1e-9)
	assert.InDelta(t, 50.0, proj.Paths[ScenarioPessimistic][0], 1e-9)
}

// TestScenarioPathsNegativeRate verifies decline is modelled without a
// lower clamp: paths may cross zero
func TestScenarioPathsNegativeRate(t *testing.T) {
	proj := ScenarioPaths(2, 0, 2024, 2027, ScenarioSet{"shock": -3.0})

	path := proj.Paths["shock"]
	require.Len(t, path, 3)
	assert.InDelta(t, -1.0, path[0], 1e-9)
	assert.InDelta(t, -4.0, path[1], 1e-9)
	assert.InDelta(t, -7.0, path[2], 1e-9)
}

// TestScenarioPathsZeroRate verifies a flat scenario holds the current
// value
func TestScenarioPathsZeroRate(t *testing.T) {
	proj := ScenarioPaths(35, 50, 2024, 2026, ScenarioSet{"stall": 0})

	path := proj.Paths["stall"]
	require.Len(t, path, 2)
	assert.Equal(t, []float64{35, 35}, path)
}
