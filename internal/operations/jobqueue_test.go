package operations_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"eficli/internal/operations"
	"eficli/internal/operations/testutil"
)

type queueFixture struct {
	store   *operations.MemoryJobStore
	manager *operations.Manager
	queue   *operations.JobQueue
}

func newQueueFixture(registry *operations.Registry, workers int) *queueFixture {
	store := operations.NewMemoryJobStore()
	hub := &testutil.MockWebSocketHub{}
	manager := operations.NewManager(hub, registry, testutil.CreateTestConfig())
	queue := operations.NewJobQueue(workers, store, manager, nil)
	return &queueFixture{store: store, manager: manager, queue: queue}
}

func pipelineJob(id, operationID, stepID, outputDir string) *operations.Job {
	return &operations.Job{
		ID:          id,
		OperationID: operationID,
		StepID:      stepID,
		Request: &operations.OperationRequest{
			DatasetPath: "data/test.csv",
			OutputDir:   outputDir,
			ChartsDir:   filepath.Join(outputDir, "charts"),
		},
	}
}

func TestJobQueueProcessesFullPipelineJob(t *testing.T) {
	outputDir := testutil.CreateTestDirectory(t, "jobqueue-output")

	executed := make(chan struct{}, 2)
	registry := operations.NewRegistry()
	registry.Register(&testutil.MockStep{
		IDValue:   operations.StepIDLoad,
		NameValue: operations.StepNameLoad,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			executed <- struct{}{}
			return nil
		},
	})
	registry.Register(&testutil.MockStep{
		IDValue:           operations.StepIDForecast,
		NameValue:         operations.StepNameForecast,
		DependenciesValue: []string{operations.StepIDLoad},
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			dir, _ := state.GetConfig(operations.ConfigKeyOutputDir)
			path := filepath.Join(dir.(string), "account_ownership_forecast.csv")
			if err := os.WriteFile(path, []byte("year,value\n2026,0.52\n"), 0644); err != nil {
				return err
			}
			executed <- struct{}{}
			return nil
		},
	})

	f := newQueueFixture(registry, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.queue.Start(ctx)

	job := pipelineJob("job-1", "op-1", operations.FullPipeline, outputDir)
	testutil.AssertNoError(t, f.queue.Enqueue(job))

	for i := 0; i < 2; i++ {
		select {
		case <-executed:
		case <-time.After(2 * time.Second):
			t.Fatal("pipeline steps never executed")
		}
	}

	testutil.AssertNoError(t, f.queue.Stop(2*time.Second))

	stored, err := f.store.GetJob("job-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, stored.Status, operations.JobStatusCompleted)
	testutil.AssertEqual(t, stored.Message, "Job completed successfully")
	testutil.AssertEqual(t, stored.Progress, 100)
	testutil.AssertEqual(t, stored.Metadata["csv_files"], 1)

	// The artifact ledger records step outcomes and what landed on disk
	manifest, err := f.store.GetManifestByOperationID("op-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, manifest.Status, string(operations.OperationStatusCompleted))
	testutil.AssertEqual(t, len(manifest.CompletedSteps), 2)
	if !manifest.IsStepCompleted(operations.StepIDLoad) {
		t.Error("manifest should record the load step as completed")
	}

	csvArtifact, ok := manifest.GetArtifact("forecast_csv")
	if !ok {
		t.Fatal("manifest should record the forecast CSV artifact")
	}
	testutil.AssertEqual(t, csvArtifact.FileCount, 1)

	if !testutil.FileExists(filepath.Join(outputDir, "manifest.json")) {
		t.Error("manifest file should be written to the output directory")
	}
}

func TestJobQueueSingleStepJob(t *testing.T) {
	outputDir := testutil.CreateTestDirectory(t, "jobqueue-single")

	executed := make(chan string, 2)
	registry := operations.NewRegistry()
	registry.Register(&testutil.MockStep{
		IDValue:   operations.StepIDLoad,
		NameValue: operations.StepNameLoad,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			executed <- operations.StepIDLoad
			return nil
		},
	})
	registry.Register(&testutil.MockStep{
		IDValue:           operations.StepIDQuality,
		NameValue:         operations.StepNameQuality,
		DependenciesValue: []string{operations.StepIDLoad},
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			executed <- operations.StepIDQuality
			return nil
		},
	})

	f := newQueueFixture(registry, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.queue.Start(ctx)

	job := pipelineJob("job-1", "op-1", operations.StepIDQuality, outputDir)
	testutil.AssertNoError(t, f.queue.Enqueue(job))

	select {
	case id := <-executed:
		testutil.AssertEqual(t, id, operations.StepIDQuality)
	case <-time.After(2 * time.Second):
		t.Fatal("quality step never executed")
	}

	testutil.AssertNoError(t, f.queue.Stop(2*time.Second))

	stored, _ := f.store.GetJob("job-1")
	testutil.AssertEqual(t, stored.Status, operations.JobStatusCompleted)

	// Only the requested step appears in the ledger
	manifest, err := f.store.GetManifestByOperationID("op-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(manifest.CompletedSteps), 1)
	testutil.AssertEqual(t, manifest.CompletedSteps[0].StepID, operations.StepIDQuality)
}

func TestJobQueuePartialFailureCompletesWithFailures(t *testing.T) {
	outputDir := testutil.CreateTestDirectory(t, "jobqueue-partial")

	executed := make(chan struct{}, 3)
	signal := func(ctx context.Context, state *operations.OperationState) error {
		executed <- struct{}{}
		return nil
	}

	registry := operations.NewRegistry()
	registry.Register(&testutil.MockStep{
		IDValue: operations.StepIDLoad, NameValue: operations.StepNameLoad,
		ExecuteFunc: signal,
	})
	registry.Register(&testutil.MockStep{
		IDValue: operations.StepIDExport, NameValue: operations.StepNameExport,
		DependenciesValue: []string{operations.StepIDLoad},
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			executed <- struct{}{}
			return errors.New("disk full")
		},
	})
	registry.Register(&testutil.MockStep{
		IDValue: operations.StepIDReport, NameValue: operations.StepNameReport,
		DependenciesValue: []string{operations.StepIDLoad},
		ExecuteFunc:       signal,
	})

	f := newQueueFixture(registry, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.queue.Start(ctx)

	testutil.AssertNoError(t, f.queue.Enqueue(pipelineJob("job-1", "op-1", operations.FullPipeline, outputDir)))

	for i := 0; i < 3; i++ {
		select {
		case <-executed:
		case <-time.After(2 * time.Second):
			t.Fatal("steps never executed")
		}
	}

	testutil.AssertNoError(t, f.queue.Stop(2*time.Second))

	stored, _ := f.store.GetJob("job-1")
	testutil.AssertEqual(t, stored.Status, operations.JobStatusCompleted)
	testutil.AssertEqual(t, stored.Message, "Job completed with failures")
	if !strings.Contains(stored.Error, operations.StepIDExport) {
		t.Errorf("job error should name the failed step, got %q", stored.Error)
	}

	manifest, _ := f.store.GetManifestByOperationID("op-1")
	testutil.AssertEqual(t, manifest.Status, string(operations.OperationStatusCompleted))
	if manifest.Error == "" {
		t.Error("manifest should carry the failure")
	}
	if manifest.IsStepCompleted(operations.StepIDExport) {
		t.Error("failed export step must not be recorded as completed")
	}
}

func TestJobQueueFailedJob(t *testing.T) {
	outputDir := testutil.CreateTestDirectory(t, "jobqueue-failed")

	executed := make(chan struct{}, 1)
	registry := operations.NewRegistry()
	registry.Register(&testutil.MockStep{
		IDValue: operations.StepIDLoad, NameValue: operations.StepNameLoad,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			executed <- struct{}{}
			return errors.New("dataset missing")
		},
	})

	f := newQueueFixture(registry, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.queue.Start(ctx)

	testutil.AssertNoError(t, f.queue.Enqueue(pipelineJob("job-1", "op-1", operations.FullPipeline, outputDir)))

	select {
	case <-executed:
	case <-time.After(2 * time.Second):
		t.Fatal("step never executed")
	}

	testutil.AssertNoError(t, f.queue.Stop(2*time.Second))

	stored, _ := f.store.GetJob("job-1")
	testutil.AssertEqual(t, stored.Status, operations.JobStatusFailed)
	testutil.AssertEqual(t, stored.Message, "Job failed")
	if stored.Error == "" {
		t.Error("failed job should carry the error")
	}
}

func TestJobQueueCancelRunningJob(t *testing.T) {
	outputDir := testutil.CreateTestDirectory(t, "jobqueue-cancel")

	started := make(chan struct{})
	registry := operations.NewRegistry()
	registry.Register(&testutil.MockStep{
		IDValue: operations.StepIDLoad, NameValue: operations.StepNameLoad,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	})

	f := newQueueFixture(registry, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.queue.Start(ctx)

	testutil.AssertNoError(t, f.queue.Enqueue(pipelineJob("job-1", "op-1", operations.FullPipeline, outputDir)))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("step never started")
	}

	testutil.AssertNoError(t, f.queue.CancelJob("job-1"))
	testutil.AssertNoError(t, f.queue.Stop(2*time.Second))

	stored, _ := f.store.GetJob("job-1")
	testutil.AssertEqual(t, stored.Status, operations.JobStatusCancelled)
	testutil.AssertEqual(t, stored.Message, "Job cancelled")
}

func TestJobQueueCancelPendingJob(t *testing.T) {
	outputDir := testutil.CreateTestDirectory(t, "jobqueue-pending")

	step := testutil.CreateSuccessfulStep(operations.StepIDLoad, operations.StepNameLoad)
	registry := operations.NewRegistry()
	registry.Register(step)

	f := newQueueFixture(registry, 1)

	// The queue is not started, so the job stays pending
	testutil.AssertNoError(t, f.queue.Enqueue(pipelineJob("job-1", "op-1", operations.FullPipeline, outputDir)))
	testutil.AssertNoError(t, f.queue.CancelJob("job-1"))

	stored, _ := f.store.GetJob("job-1")
	testutil.AssertEqual(t, stored.Status, operations.JobStatusCancelled)

	// Starting the queue later must not execute the cancelled job
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.queue.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	testutil.AssertNoError(t, f.queue.Stop(2*time.Second))

	testutil.AssertEqual(t, step.GetExecuteCalls(), 0)
	stored, _ = f.store.GetJob("job-1")
	testutil.AssertEqual(t, stored.Status, operations.JobStatusCancelled)
}

func TestJobQueueCancelJobInvalidState(t *testing.T) {
	f := newQueueFixture(operations.NewRegistry(), 1)

	job := &operations.Job{ID: "job-done", OperationID: "op-1", Status: operations.JobStatusCompleted, CreatedAt: time.Now()}
	testutil.AssertNoError(t, f.store.CreateJob(job))

	err := f.queue.CancelJob("job-done")
	testutil.AssertErrorContains(t, err, "cannot be cancelled")

	err = f.queue.CancelJob("missing")
	testutil.AssertError(t, err, true)
}

func TestJobQueueEnqueueQueueFull(t *testing.T) {
	outputDir := testutil.CreateTestDirectory(t, "jobqueue-full")

	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep(operations.StepIDLoad, operations.StepNameLoad))

	// One worker gives a buffer of two; the queue is not started so nothing
	// drains it
	f := newQueueFixture(registry, 1)

	testutil.AssertNoError(t, f.queue.Enqueue(pipelineJob("job-1", "op-1", operations.FullPipeline, outputDir)))
	testutil.AssertNoError(t, f.queue.Enqueue(pipelineJob("job-2", "op-2", operations.FullPipeline, outputDir)))

	err := f.queue.Enqueue(pipelineJob("job-3", "op-3", operations.FullPipeline, outputDir))
	testutil.AssertErrorContains(t, err, "queue is full")

	stored, _ := f.store.GetJob("job-3")
	testutil.AssertEqual(t, stored.Status, operations.JobStatusFailed)
	testutil.AssertEqual(t, stored.Error, "job queue is full")
}

func TestJobQueueRecoverJobs(t *testing.T) {
	outputDir := testutil.CreateTestDirectory(t, "jobqueue-recover")

	executed := make(chan struct{}, 2)
	registry := operations.NewRegistry()
	registry.Register(&testutil.MockStep{
		IDValue: operations.StepIDLoad, NameValue: operations.StepNameLoad,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			executed <- struct{}{}
			return nil
		},
	})

	f := newQueueFixture(registry, 2)

	// Simulate jobs left over from a previous run
	interrupted := pipelineJob("job-interrupted", "op-1", operations.FullPipeline, outputDir)
	interrupted.Status = operations.JobStatusRunning
	interrupted.CreatedAt = time.Now()
	queued := pipelineJob("job-queued", "op-2", operations.FullPipeline, outputDir)
	queued.Status = operations.JobStatusPending
	queued.CreatedAt = time.Now()
	testutil.AssertNoError(t, f.store.CreateJob(interrupted))
	testutil.AssertNoError(t, f.store.CreateJob(queued))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.queue.Start(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-executed:
		case <-time.After(2 * time.Second):
			t.Fatal("recovered jobs never executed")
		}
	}

	testutil.AssertNoError(t, f.queue.Stop(2*time.Second))

	for _, id := range []string{"job-interrupted", "job-queued"} {
		stored, err := f.store.GetJob(id)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, stored.Status, operations.JobStatusCompleted)
	}
}

func TestJobQueueStopTimeout(t *testing.T) {
	outputDir := testutil.CreateTestDirectory(t, "jobqueue-stoptimeout")

	started := make(chan struct{})
	registry := operations.NewRegistry()
	registry.Register(&testutil.MockStep{
		IDValue: operations.StepIDLoad, NameValue: operations.StepNameLoad,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	})

	f := newQueueFixture(registry, 1)
	ctx, cancel := context.WithCancel(context.Background())
	f.queue.Start(ctx)

	testutil.AssertNoError(t, f.queue.Enqueue(pipelineJob("job-1", "op-1", operations.FullPipeline, outputDir)))
	<-started

	// The worker is blocked inside the step, so Stop cannot finish in time
	err := f.queue.Stop(50 * time.Millisecond)
	testutil.AssertErrorContains(t, err, "timeout")

	// Unblock the worker so the test does not leak the goroutine
	cancel()
}

func TestJobQueueGetQueueStats(t *testing.T) {
	f := newQueueFixture(operations.NewRegistry(), 3)

	stats := f.queue.GetQueueStats()
	testutil.AssertEqual(t, stats["workers"], 3)
	testutil.AssertEqual(t, stats["queue_cap"], 6)
	testutil.AssertEqual(t, stats["active_jobs"], 0)
}
