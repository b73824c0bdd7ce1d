package operations_test

import (
	"testing"
	"time"

	"eficli/internal/operations"
	"eficli/internal/operations/testutil"
)

func TestNewConfigDefaults(t *testing.T) {
	config := operations.NewConfig()

	testutil.AssertEqual(t, config.ExecutionMode, operations.ExecutionModeSequential)
	testutil.AssertEqual(t, config.ContinueOnError, false)
	testutil.AssertEqual(t, config.MaxConcurrency, 1)
	testutil.AssertEqual(t, config.DatasetPath, "data/ethiopia_fi_unified_data.csv")
	testutil.AssertEqual(t, config.OutputDir, "output")
	testutil.AssertEqual(t, config.ChartsDir, "output/charts")

	testutil.AssertEqual(t, config.RetryConfig.MaxAttempts, 3)
	testutil.AssertEqual(t, config.RetryConfig.InitialDelay, 1*time.Second)
	testutil.AssertEqual(t, config.RetryConfig.MaxDelay, 30*time.Second)

	// Every pipeline step carries an explicit timeout
	for _, id := range operations.StepIDs() {
		if _, ok := config.StepTimeouts[id]; !ok {
			t.Errorf("missing default timeout for step %s", id)
		}
	}
	testutil.AssertEqual(t, config.GetStepTimeout(operations.StepIDReport), operations.DefaultReportTimeout)
}

func TestConfigStepTimeouts(t *testing.T) {
	config := operations.NewConfig()

	config.SetStepTimeout("custom", 45*time.Second)
	testutil.AssertEqual(t, config.GetStepTimeout("custom"), 45*time.Second)

	// Unknown steps fall back to the generic default
	testutil.AssertEqual(t, config.GetStepTimeout("unknown"), operations.DefaultStepTimeout)

	// SetStepTimeout must tolerate a nil map
	bare := &operations.Config{}
	bare.SetStepTimeout("load", time.Minute)
	testutil.AssertEqual(t, bare.GetStepTimeout("load"), time.Minute)
}

func TestConfigBuilder(t *testing.T) {
	scenarios := map[string]float64{
		"conservative": 0.02,
		"moderate":     0.04,
	}

	config := operations.NewConfigBuilder().
		WithExecutionMode(operations.ExecutionModeParallel).
		WithStepTimeout(operations.StepIDForecast, 90*time.Second).
		WithRetryConfig(operations.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   1.5,
		}).
		WithContinueOnError(true).
		WithMaxConcurrency(3).
		WithDatasetPath("data/custom.csv").
		WithOutputDir("out").
		WithChartsDir("out/charts").
		WithHorizonYears([]int{2026, 2028, 2030}).
		WithScenarios(scenarios).
		Build()

	testutil.AssertEqual(t, config.ExecutionMode, operations.ExecutionModeParallel)
	testutil.AssertEqual(t, config.GetStepTimeout(operations.StepIDForecast), 90*time.Second)
	testutil.AssertEqual(t, config.RetryConfig.MaxAttempts, 5)
	testutil.AssertEqual(t, config.ContinueOnError, true)
	testutil.AssertEqual(t, config.MaxConcurrency, 3)
	testutil.AssertEqual(t, config.DatasetPath, "data/custom.csv")
	testutil.AssertEqual(t, config.OutputDir, "out")
	testutil.AssertEqual(t, config.ChartsDir, "out/charts")
	testutil.AssertEqual(t, len(config.HorizonYears), 3)
	testutil.AssertEqual(t, config.Scenarios["moderate"], 0.04)
}

func TestConfigBuilderKeepsDefaults(t *testing.T) {
	config := operations.NewConfigBuilder().Build()

	// Builder starts from the full default configuration
	testutil.AssertEqual(t, config.ExecutionMode, operations.ExecutionModeSequential)
	testutil.AssertEqual(t, config.GetStepTimeout(operations.StepIDLoad), operations.DefaultLoadTimeout)
	testutil.AssertEqual(t, config.DatasetPath, "data/ethiopia_fi_unified_data.csv")
}

func TestNewRetryConfig(t *testing.T) {
	retry := operations.NewRetryConfig()

	testutil.AssertEqual(t, retry.MaxAttempts, 3)
	testutil.AssertEqual(t, retry.InitialDelay, 1*time.Second)
	testutil.AssertEqual(t, retry.MaxDelay, 30*time.Second)
	testutil.AssertEqual(t, retry.Multiplier, 2.0)
}
