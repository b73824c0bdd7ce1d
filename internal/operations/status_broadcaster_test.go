package operations_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"eficli/internal/operations"
	"eficli/internal/operations/testutil"
)

func newTestBroadcaster(t *testing.T) (*operations.StatusBroadcaster, *testutil.MockWebSocketHub) {
	t.Helper()
	hub := &testutil.MockWebSocketHub{}
	sb := operations.NewStatusBroadcaster(hub, nil)
	t.Cleanup(sb.Stop)
	return sb, hub
}

func TestBroadcasterCreateOperation(t *testing.T) {
	sb, hub := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad, operations.StepIDForecast})

	snapshot, ok := sb.GetSnapshot("op-1")
	if !ok {
		t.Fatal("snapshot should exist after CreateOperation")
	}
	testutil.AssertEqual(t, snapshot.Status, "pending")
	testutil.AssertEqual(t, snapshot.Progress, 0)
	testutil.AssertEqual(t, len(snapshot.Steps), 2)

	// Step entries carry the human readable name
	testutil.AssertEqual(t, snapshot.Steps[0].ID, operations.StepIDLoad)
	testutil.AssertEqual(t, snapshot.Steps[0].Name, operations.StepNameLoad)
	testutil.AssertEqual(t, snapshot.Steps[1].Name, operations.StepNameForecast)

	testutil.AssertWebSocketMessage(t, hub, operations.EventTypeOperationSnapshot)
}

func TestBroadcasterStartOperation(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad})
	sb.StartOperation("op-1")

	snapshot, _ := sb.GetSnapshot("op-1")
	testutil.AssertEqual(t, snapshot.Status, "running")
}

func TestBroadcasterStepProgress(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad, operations.StepIDForecast})
	sb.UpdateStepProgress("op-1", operations.StepIDLoad, 50, "loading records")

	snapshot, _ := sb.GetSnapshot("op-1")
	testutil.AssertEqual(t, snapshot.Steps[0].Status, "running")
	testutil.AssertEqual(t, snapshot.Steps[0].Progress, 50)
	testutil.AssertEqual(t, snapshot.Steps[0].Message, "loading records")
	testutil.AssertEqual(t, snapshot.CurrentStep, operations.StepNameLoad)

	// Overall progress is the average across steps
	testutil.AssertEqual(t, snapshot.Progress, 25)

	// Progress 100 settles the step
	sb.UpdateStepProgress("op-1", operations.StepIDLoad, 100, "loaded")
	snapshot, _ = sb.GetSnapshot("op-1")
	testutil.AssertEqual(t, snapshot.Steps[0].Status, "completed")
}

func TestBroadcasterStepProgressMonotonic(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad})
	sb.UpdateStepProgress("op-1", operations.StepIDLoad, 80, "almost there")

	// A late, out of order update must not pull progress backwards
	sb.UpdateStepProgress("op-1", operations.StepIDLoad, 30, "stale update")

	snapshot, _ := sb.GetSnapshot("op-1")
	testutil.AssertEqual(t, snapshot.Steps[0].Progress, 80)
}

func TestBroadcasterStepMetadata(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad})
	sb.UpdateStepWithMetadata("op-1", operations.StepIDLoad, 40, "loading", map[string]interface{}{
		"records": 120,
	})

	snapshot, _ := sb.GetSnapshot("op-1")
	testutil.AssertEqual(t, snapshot.Steps[0].Metadata["records"], 120)
}

func TestBroadcasterUnknownStepAppended(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad})
	sb.UpdateStepProgress("op-1", "extra", 100, "ad hoc work")

	snapshot, _ := sb.GetSnapshot("op-1")
	testutil.AssertEqual(t, len(snapshot.Steps), 2)
	testutil.AssertEqual(t, snapshot.Steps[1].ID, "extra")
	testutil.AssertEqual(t, snapshot.Steps[1].Status, "completed")
}

func TestBroadcasterCompleteAndFailStep(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad, operations.StepIDQuality})
	sb.CompleteStep("op-1", operations.StepIDLoad, "done")
	sb.FailStep("op-1", operations.StepIDQuality, errors.New("checks failed"))

	snapshot, _ := sb.GetSnapshot("op-1")
	testutil.AssertEqual(t, snapshot.Steps[0].Status, "completed")
	testutil.AssertEqual(t, snapshot.Steps[0].Progress, 100)
	testutil.AssertEqual(t, snapshot.Steps[1].Status, "failed")
	testutil.AssertEqual(t, snapshot.Steps[1].Error, "checks failed")
}

func TestBroadcasterCompleteOperationSettlesSteps(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{
		operations.StepIDLoad,
		operations.StepIDForecast,
		operations.StepIDExport,
		operations.StepIDReport,
	})
	sb.CompleteStep("op-1", operations.StepIDLoad, "done")
	sb.UpdateStepProgress("op-1", operations.StepIDForecast, 60, "running")
	sb.SkipStep("op-1", operations.StepIDExport, "dependency forecast failed")

	sb.CompleteOperation("op-1", "Operation completed with failures")

	snapshot, _ := sb.GetSnapshot("op-1")
	testutil.AssertEqual(t, snapshot.Status, "completed")
	if snapshot.CompletedAt == nil {
		t.Error("CompletedAt should be set on completion")
	}

	// Running and pending entries settle as completed; skipped entries keep
	// their status so partial results stay visible
	testutil.AssertEqual(t, snapshot.Steps[0].Status, "completed")
	testutil.AssertEqual(t, snapshot.Steps[1].Status, "completed")
	testutil.AssertEqual(t, snapshot.Steps[2].Status, "skipped")
	testutil.AssertEqual(t, snapshot.Steps[3].Status, "completed")
}

func TestBroadcasterFailOperation(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad})
	sb.FailOperation("op-1", errors.New("dataset missing"))

	snapshot, _ := sb.GetSnapshot("op-1")
	testutil.AssertEqual(t, snapshot.Status, "failed")
	testutil.AssertEqual(t, snapshot.Error, "dataset missing")
	testutil.AssertEqual(t, snapshot.CurrentStep, "")
}

func TestBroadcasterCancelOperation(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad})
	sb.CancelOperation("op-1")

	snapshot, _ := sb.GetSnapshot("op-1")
	testutil.AssertEqual(t, snapshot.Status, "cancelled")
	if snapshot.CompletedAt == nil {
		t.Error("CompletedAt should be set on cancellation")
	}
}

func TestBroadcasterGetSnapshotUnknown(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	if _, ok := sb.GetSnapshot("missing"); ok {
		t.Error("unknown operation should not have a snapshot")
	}
}

func TestBroadcasterGetAllSnapshots(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad})
	sb.CreateOperation("op-2", []string{operations.StepIDLoad})

	snapshots := sb.GetAllSnapshots()
	testutil.AssertEqual(t, len(snapshots), 2)
}

func TestBroadcasterCleanupOldOperations(t *testing.T) {
	sb, _ := newTestBroadcaster(t)

	sb.CreateOperation("op-done", []string{operations.StepIDLoad})
	sb.CompleteOperation("op-done", "done")
	sb.CreateOperation("op-running", []string{operations.StepIDLoad})
	sb.StartOperation("op-running")

	time.Sleep(5 * time.Millisecond)
	sb.CleanupOldOperations(context.Background(), time.Millisecond)

	if _, ok := sb.GetSnapshot("op-done"); ok {
		t.Error("old completed operation should be cleaned up")
	}
	if _, ok := sb.GetSnapshot("op-running"); !ok {
		t.Error("running operation must survive cleanup")
	}
}

func TestBroadcasterEventPayload(t *testing.T) {
	sb, hub := newTestBroadcaster(t)

	sb.CreateOperation("op-1", []string{operations.StepIDLoad})

	messages := hub.GetMessagesByType(operations.EventTypeOperationSnapshot)
	if len(messages) == 0 {
		t.Fatal("expected snapshot broadcasts")
	}

	payload, ok := messages[0].Metadata.(*operations.OperationSnapshot)
	if !ok {
		t.Fatalf("expected *OperationSnapshot payload, got %T", messages[0].Metadata)
	}
	testutil.AssertEqual(t, payload.OperationID, "op-1")
	testutil.AssertEqual(t, messages[0].Step, "op-1")
	testutil.AssertEqual(t, messages[0].Status, "update")
}
