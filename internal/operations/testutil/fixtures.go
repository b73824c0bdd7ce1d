package testutil

import (
	"context"
	"errors"
	"time"

	"eficli/internal/operations"
)

// CreateTestOperationState creates an operation state for testing
func CreateTestOperationState(id string) *operations.OperationState {
	state := operations.NewOperationState(id)
	state.SetConfig(operations.ConfigKeyDatasetPath, "testdata/dataset.csv")
	state.SetConfig(operations.ConfigKeyOutputDir, "testdata/output")
	state.SetConfig(operations.ConfigKeyMode, operations.ModeAnalysis)
	return state
}

// CreateTestStepState creates a step state for testing
func CreateTestStepState(id, name string) *operations.StepState {
	return operations.NewStepState(id, name)
}

// CreateTestConfig creates a configuration with short timeouts and fast
// retries suitable for tests
func CreateTestConfig() *operations.Config {
	builder := operations.NewConfigBuilder().
		WithExecutionMode(operations.ExecutionModeSequential).
		WithRetryConfig(operations.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     100 * time.Millisecond,
			Multiplier:   2.0,
		})
	for _, id := range operations.StepIDs() {
		builder = builder.WithStepTimeout(id, 1*time.Second)
	}
	return builder.Build()
}

// CreateTestRegistry creates a registry with three independent test steps
func CreateTestRegistry() *operations.Registry {
	registry := operations.NewRegistry()

	registry.Register(CreateSuccessfulStep("step1", "Step 1"))
	registry.Register(CreateSuccessfulStep("step2", "Step 2"))
	registry.Register(CreateSuccessfulStep("step3", "Step 3"))

	return registry
}

// CreateSuccessfulStep creates a step that always succeeds
func CreateSuccessfulStep(id, name string, deps ...string) *MockStep {
	return &MockStep{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			stepState := state.GetStep(id)
			if stepState != nil {
				stepState.UpdateProgress(50, "Processing...")
				timer := time.NewTimer(10 * time.Millisecond)
				defer timer.Stop()
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-timer.C:
				}
				stepState.UpdateProgress(100, "Completed")
			}
			return nil
		},
	}
}

// CreateFailingStep creates a step that always fails
func CreateFailingStep(id, name string, err error, deps ...string) *MockStep {
	if err == nil {
		err = errors.New("step failed")
	}

	return &MockStep{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			return err
		},
	}
}

// CreateRetryableStep creates a step that fails with a retryable error the
// given number of times, then succeeds
func CreateRetryableStep(id, name string, failCount int, deps ...string) *MockStep {
	attempts := 0

	return &MockStep{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			attempts++
			if attempts <= failCount {
				return operations.NewExecutionError(id, errors.New("temporary failure"), true)
			}
			return nil
		},
	}
}

// CreateSlowStep creates a step that takes a specific duration, honoring
// context cancellation
func CreateSlowStep(id, name string, duration time.Duration, deps ...string) *MockStep {
	return &MockStep{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			timer := time.NewTimer(duration)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}
