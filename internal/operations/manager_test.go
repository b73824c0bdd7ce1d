package operations_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"eficli/internal/operations"
	"eficli/internal/operations/testutil"
)

func newTestManager(registry *operations.Registry) (*operations.Manager, *testutil.MockWebSocketHub) {
	hub := &testutil.MockWebSocketHub{}
	manager := operations.NewManager(hub, registry, testutil.CreateTestConfig())
	return manager, hub
}

func TestManagerExecuteFullPipeline(t *testing.T) {
	var mu sync.Mutex
	var executed []string
	record := func(id string) func(ctx context.Context, state *operations.OperationState) error {
		return func(ctx context.Context, state *operations.OperationState) error {
			mu.Lock()
			executed = append(executed, id)
			mu.Unlock()
			return nil
		}
	}

	registry := operations.NewRegistry()
	registry.Register(&testutil.MockStep{IDValue: "load", NameValue: "Load", ExecuteFunc: record("load")})
	registry.Register(&testutil.MockStep{IDValue: "quality", NameValue: "Quality", DependenciesValue: []string{"load"}, ExecuteFunc: record("quality")})
	registry.Register(&testutil.MockStep{IDValue: "forecast", NameValue: "Forecast", DependenciesValue: []string{"quality"}, ExecuteFunc: record("forecast")})

	manager, hub := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-1"})

	testutil.AssertNoError(t, err)
	testutil.AssertNotNil(t, resp)
	testutil.AssertEqual(t, resp.ID, "op-1")
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusCompleted)
	testutil.AssertEqual(t, resp.Error, "")
	testutil.AssertEqual(t, len(resp.Steps), 3)

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, len(executed), 3)
	testutil.AssertEqual(t, executed[0], "load")
	testutil.AssertEqual(t, executed[1], "quality")
	testutil.AssertEqual(t, executed[2], "forecast")

	for _, id := range []string{"load", "quality", "forecast"} {
		step := resp.Steps[id]
		testutil.AssertNotNil(t, step)
		testutil.AssertStepStatus(t, step, operations.StepStatusCompleted)
	}

	testutil.AssertWebSocketMessage(t, hub, operations.EventTypeOperationSnapshot)
}

func TestManagerExecuteGeneratesID(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("load", "Load"))

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{})

	testutil.AssertNoError(t, err)
	if resp.ID == "" {
		t.Fatal("expected a generated operation ID")
	}
	testutil.AssertEqual(t, len(resp.ID), 36)
}

func TestManagerExecuteAppliesDefaults(t *testing.T) {
	var gotDataset, gotOutput interface{}
	step := &testutil.MockStep{
		IDValue:   "load",
		NameValue: "Load",
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			gotDataset, _ = state.GetConfig(operations.ConfigKeyDatasetPath)
			gotOutput, _ = state.GetConfig(operations.ConfigKeyOutputDir)
			return nil
		},
	}

	registry := operations.NewRegistry()
	registry.Register(step)

	hub := &testutil.MockWebSocketHub{}
	config := operations.NewConfigBuilder().
		WithDatasetPath("data/defaults.csv").
		WithOutputDir("out/defaults").
		Build()
	manager := operations.NewManager(hub, registry, config)

	_, err := manager.Execute(context.Background(), operations.OperationRequest{})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, gotDataset, "data/defaults.csv")
	testutil.AssertEqual(t, gotOutput, "out/defaults")
}

func TestManagerExecuteRequestOverridesDefaults(t *testing.T) {
	var gotDataset interface{}
	step := &testutil.MockStep{
		IDValue:   "load",
		NameValue: "Load",
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			gotDataset, _ = state.GetConfig(operations.ConfigKeyDatasetPath)
			return nil
		},
	}

	registry := operations.NewRegistry()
	registry.Register(step)
	manager, _ := newTestManager(registry)

	_, err := manager.Execute(context.Background(), operations.OperationRequest{
		DatasetPath: "data/override.csv",
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, gotDataset, "data/override.csv")
}

func TestManagerExecutePartialCompletion(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("load", "Load"))
	registry.Register(testutil.CreateFailingStep("export", "Export", errors.New("disk full"), "load"))
	registry.Register(testutil.CreateSuccessfulStep("report", "Report", "load"))

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-partial"})

	// A run that produced results does not surface the step failure as an
	// execution error; callers read it from the response.
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusCompleted)
	if !strings.Contains(resp.Error, "export") {
		t.Errorf("response error should name the failed step, got %q", resp.Error)
	}

	testutil.AssertStepStatus(t, resp.Steps["load"], operations.StepStatusCompleted)
	testutil.AssertStepStatus(t, resp.Steps["export"], operations.StepStatusFailed)
	testutil.AssertStepStatus(t, resp.Steps["report"], operations.StepStatusCompleted)
}

func TestManagerExecuteSkipsDependentsOnFailure(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("load", "Load"))
	registry.Register(testutil.CreateFailingStep("quality", "Quality", errors.New("checks failed"), "load"))
	registry.Register(testutil.CreateSuccessfulStep("forecast", "Forecast", "quality"))
	registry.Register(testutil.CreateSuccessfulStep("export", "Export", "forecast"))

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-skip"})

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusCompleted)

	testutil.AssertStepStatus(t, resp.Steps["load"], operations.StepStatusCompleted)
	testutil.AssertStepStatus(t, resp.Steps["quality"], operations.StepStatusFailed)
	// The whole chain downstream of the failure is skipped
	testutil.AssertStepStatus(t, resp.Steps["forecast"], operations.StepStatusSkipped)
	testutil.AssertStepStatus(t, resp.Steps["export"], operations.StepStatusSkipped)
}

func TestManagerExecuteAllStepsFail(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateFailingStep("load", "Load", errors.New("file missing")))
	registry.Register(testutil.CreateSuccessfulStep("quality", "Quality", "load"))

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-fail"})

	// No step completed, so the failure is the operation's result
	testutil.AssertError(t, err, true)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusFailed)
	testutil.AssertStepStatus(t, resp.Steps["load"], operations.StepStatusFailed)
	testutil.AssertStepStatus(t, resp.Steps["quality"], operations.StepStatusSkipped)
}

func TestManagerExecuteContinueOnError(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateFailingStep("load", "Load", errors.New("file missing")))
	registry.Register(testutil.CreateSuccessfulStep("quality", "Quality", "load"))

	hub := &testutil.MockWebSocketHub{}
	config := testutil.CreateTestConfig()
	config.ContinueOnError = true
	manager := operations.NewManager(hub, registry, config)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-continue"})

	// quality runs despite its failed dependency and completes
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusCompleted)
	testutil.AssertStepStatus(t, resp.Steps["load"], operations.StepStatusFailed)
	testutil.AssertStepStatus(t, resp.Steps["quality"], operations.StepStatusCompleted)
}

func TestManagerExecuteRetries(t *testing.T) {
	step := testutil.CreateRetryableStep("load", "Load", 1)

	registry := operations.NewRegistry()
	registry.Register(step)

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-retry"})

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusCompleted)
	testutil.AssertEqual(t, step.GetExecuteCalls(), 2)
	testutil.AssertStepStatus(t, resp.Steps["load"], operations.StepStatusCompleted)
}

func TestManagerExecuteRetriesExhausted(t *testing.T) {
	// Fails more times than MaxAttempts allows
	step := testutil.CreateRetryableStep("load", "Load", 5)

	registry := operations.NewRegistry()
	registry.Register(step)

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-exhausted"})

	testutil.AssertError(t, err, true)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusFailed)
	testutil.AssertEqual(t, step.GetExecuteCalls(), 2)
}

func TestManagerExecuteNonRetryableFailure(t *testing.T) {
	step := &testutil.MockStep{
		IDValue:   "load",
		NameValue: "Load",
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			return operations.NewValidationError("load", "bad dataset")
		},
	}

	registry := operations.NewRegistry()
	registry.Register(step)

	manager, _ := newTestManager(registry)

	_, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-noretry"})

	testutil.AssertError(t, err, true)
	testutil.AssertEqual(t, step.GetExecuteCalls(), 1)
}

func TestManagerExecuteStepTimeout(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSlowStep("slow", "Slow", 2*time.Second))

	hub := &testutil.MockWebSocketHub{}
	config := operations.NewConfigBuilder().
		WithStepTimeout("slow", 50*time.Millisecond).
		WithRetryConfig(operations.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}).
		Build()
	manager := operations.NewManager(hub, registry, config)

	start := time.Now()
	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-timeout"})
	elapsed := time.Since(start)

	testutil.AssertError(t, err, true)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusFailed)
	testutil.AssertStepStatus(t, resp.Steps["slow"], operations.StepStatusFailed)
	if elapsed > time.Second {
		t.Errorf("timeout did not interrupt the step, took %v", elapsed)
	}
}

func TestManagerExecuteValidationSkip(t *testing.T) {
	step := &testutil.MockStep{
		IDValue:   "load",
		NameValue: "Load",
		ValidateFunc: func(state *operations.OperationState) error {
			return errors.New("dataset path not set")
		},
	}

	registry := operations.NewRegistry()
	registry.Register(step)

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-validate"})

	testutil.AssertError(t, err, true)
	testutil.AssertStepStatus(t, resp.Steps["load"], operations.StepStatusSkipped)
	testutil.AssertEqual(t, step.GetExecuteCalls(), 0)
}

func TestManagerExecuteSingleStep(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("load", "Load"))
	registry.Register(testutil.CreateSuccessfulStep("quality", "Quality", "load"))

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{
		ID:   "op-single",
		Mode: operations.ModeStep,
		Parameters: map[string]interface{}{
			"step": "quality",
		},
	})

	// The load dependency is not part of this run and must not block quality
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusCompleted)
	testutil.AssertEqual(t, len(resp.Steps), 1)
	testutil.AssertStepStatus(t, resp.Steps["quality"], operations.StepStatusCompleted)
}

func TestManagerExecuteUnknownStep(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("load", "Load"))

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{
		ID: "op-unknown",
		Parameters: map[string]interface{}{
			"step": "nonexistent",
		},
	})

	testutil.AssertError(t, err, true)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusFailed)
}

func TestManagerExecuteFullPipelineParameter(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("load", "Load"))
	registry.Register(testutil.CreateSuccessfulStep("quality", "Quality", "load"))

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{
		ID: "op-full-param",
		Parameters: map[string]interface{}{
			"step": operations.FullPipeline,
		},
	})

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(resp.Steps), 2)
}

func TestManagerExecuteSkipReport(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep(operations.StepIDLoad, "Load"))
	registry.Register(testutil.CreateSuccessfulStep(operations.StepIDQuality, "Quality", operations.StepIDLoad))
	registry.Register(testutil.CreateSuccessfulStep(operations.StepIDForecast, "Forecast", operations.StepIDQuality))
	registry.Register(testutil.CreateSuccessfulStep(operations.StepIDExport, "Export", operations.StepIDForecast))
	registry.Register(testutil.CreateSuccessfulStep(operations.StepIDReport, "Report", operations.StepIDForecast))

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{
		ID:         "op-skip-report",
		SkipReport: true,
	})

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusCompleted)
	testutil.AssertEqual(t, len(resp.Steps), 4)
	if _, ok := resp.Steps[operations.StepIDReport]; ok {
		t.Error("report step should not be part of the run")
	}
}

func TestManagerCancelOperation(t *testing.T) {
	started := make(chan struct{})
	step := &testutil.MockStep{
		IDValue:   "slow",
		NameValue: "Slow",
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}

	registry := operations.NewRegistry()
	registry.Register(step)

	manager, _ := newTestManager(registry)

	type result struct {
		resp *operations.OperationResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-cancel"})
		done <- result{resp, err}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("step never started")
	}

	testutil.AssertNoError(t, manager.CancelOperation("op-cancel"))

	select {
	case res := <-done:
		testutil.AssertError(t, res.err, true)
		testutil.AssertErrorType(t, res.err, operations.ErrorTypeCancellation)
		testutil.AssertEqual(t, res.resp.Status, operations.OperationStatusCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled operation never returned")
	}

	// The operation is removed from the active set once Execute unwinds
	if err := manager.CancelOperation("op-cancel"); !errors.Is(err, operations.ErrOperationNotFound) {
		t.Errorf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestManagerCancelUnknownOperation(t *testing.T) {
	manager, _ := newTestManager(operations.NewRegistry())

	err := manager.CancelOperation("missing")
	if !errors.Is(err, operations.ErrOperationNotFound) {
		t.Errorf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestManagerGetOperation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	step := &testutil.MockStep{
		IDValue:   "load",
		NameValue: "Load",
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			close(started)
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	registry := operations.NewRegistry()
	registry.Register(step)

	manager, _ := newTestManager(registry)

	done := make(chan struct{})
	go func() {
		defer close(done)
		manager.Execute(context.Background(), operations.OperationRequest{ID: "op-get"})
	}()

	<-started

	state, err := manager.GetOperation("op-get")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, state.ID, "op-get")
	testutil.AssertOperationStatus(t, state, operations.OperationStatusRunning)

	listed := manager.ListOperations()
	testutil.AssertEqual(t, len(listed), 1)

	close(release)
	<-done

	// Finished operations are no longer tracked
	if _, err := manager.GetOperation("op-get"); !errors.Is(err, operations.ErrOperationNotFound) {
		t.Errorf("expected ErrOperationNotFound, got %v", err)
	}
	testutil.AssertEqual(t, len(manager.ListOperations()), 0)
}

func TestManagerContextCancellationBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	registry := operations.NewRegistry()
	registry.Register(&testutil.MockStep{
		IDValue:   "first",
		NameValue: "First",
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			cancel()
			return nil
		},
	})
	registry.Register(testutil.CreateSuccessfulStep("second", "Second", "first"))

	manager, _ := newTestManager(registry)

	resp, err := manager.Execute(ctx, operations.OperationRequest{ID: "op-ctx-cancel"})

	testutil.AssertError(t, err, true)
	testutil.AssertErrorType(t, err, operations.ErrorTypeCancellation)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusCancelled)
	testutil.AssertStepStatus(t, resp.Steps["first"], operations.StepStatusCompleted)
	testutil.AssertStepStatus(t, resp.Steps["second"], operations.StepStatusPending)
}

func TestManagerAccessors(t *testing.T) {
	registry := operations.NewRegistry()
	manager, _ := newTestManager(registry)

	testutil.AssertNotNil(t, manager.GetRegistry())
	testutil.AssertNotNil(t, manager.GetBroadcaster())
	testutil.AssertNotNil(t, manager.GetConfig())

	custom := operations.NewConfig()
	manager.SetConfig(custom)
	testutil.AssertEqual(t, manager.GetConfig(), custom)

	// Nil config is ignored
	manager.SetConfig(nil)
	testutil.AssertEqual(t, manager.GetConfig(), custom)

	testutil.AssertNoError(t, manager.RegisterStep(testutil.CreateSuccessfulStep("load", "Load")))
	if !manager.GetRegistry().Has("load") {
		t.Error("RegisterStep should register into the manager registry")
	}
}

func TestManagerNewManagerNilArguments(t *testing.T) {
	manager := operations.NewManager(nil, nil, nil)

	testutil.AssertNotNil(t, manager.GetRegistry())
	testutil.AssertNotNil(t, manager.GetConfig())

	// A manager with no registered steps completes immediately
	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-empty"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, resp.Status, operations.OperationStatusCompleted)
	testutil.AssertEqual(t, len(resp.Steps), 0)
}
