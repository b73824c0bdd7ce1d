package operations_test

import (
	"fmt"
	"testing"
	"time"

	"eficli/internal/operations"
	"eficli/internal/operations/testutil"
)

func newTestJob(id string, status operations.JobStatus) *operations.Job {
	return &operations.Job{
		ID:          id,
		OperationID: "op-" + id,
		StepID:      operations.FullPipeline,
		Status:      status,
		CreatedAt:   time.Now(),
	}
}

func TestMemoryJobStoreCreateAndGet(t *testing.T) {
	store := operations.NewMemoryJobStore()

	job := newTestJob("job-1", operations.JobStatusPending)
	testutil.AssertNoError(t, store.CreateJob(job))

	got, err := store.GetJob("job-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.ID, "job-1")

	// The store returns copies, mutations must not leak back
	got.Status = operations.JobStatusFailed
	again, _ := store.GetJob("job-1")
	testutil.AssertEqual(t, again.Status, operations.JobStatusPending)
}

func TestMemoryJobStoreCreateDuplicate(t *testing.T) {
	store := operations.NewMemoryJobStore()

	testutil.AssertNoError(t, store.CreateJob(newTestJob("job-1", operations.JobStatusPending)))
	err := store.CreateJob(newTestJob("job-1", operations.JobStatusPending))
	testutil.AssertErrorContains(t, err, "already exists")
}

func TestMemoryJobStoreGetMissing(t *testing.T) {
	store := operations.NewMemoryJobStore()

	_, err := store.GetJob("missing")
	testutil.AssertErrorContains(t, err, "not found")
}

func TestMemoryJobStoreUpdate(t *testing.T) {
	store := operations.NewMemoryJobStore()
	store.CreateJob(newTestJob("job-1", operations.JobStatusPending))

	updated := newTestJob("job-1", operations.JobStatusCompleted)
	testutil.AssertNoError(t, store.UpdateJob(updated))

	got, _ := store.GetJob("job-1")
	testutil.AssertEqual(t, got.Status, operations.JobStatusCompleted)

	err := store.UpdateJob(newTestJob("missing", operations.JobStatusFailed))
	testutil.AssertErrorContains(t, err, "not found")
}

func TestMemoryJobStoreDelete(t *testing.T) {
	store := operations.NewMemoryJobStore()
	store.CreateJob(newTestJob("job-1", operations.JobStatusPending))

	testutil.AssertNoError(t, store.DeleteJob("job-1"))
	_, err := store.GetJob("job-1")
	testutil.AssertError(t, err, true)

	err = store.DeleteJob("job-1")
	testutil.AssertErrorContains(t, err, "not found")
}

func TestMemoryJobStoreListFilters(t *testing.T) {
	store := operations.NewMemoryJobStore()

	pending := newTestJob("job-1", operations.JobStatusPending)
	running := newTestJob("job-2", operations.JobStatusRunning)
	running.StepID = operations.StepIDForecast
	old := newTestJob("job-3", operations.JobStatusCompleted)
	old.CreatedAt = time.Now().Add(-time.Hour)

	store.CreateJob(pending)
	store.CreateJob(running)
	store.CreateJob(old)

	t.Run("by status", func(t *testing.T) {
		jobs, err := store.ListJobs(operations.JobFilter{Status: operations.JobStatusRunning})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, len(jobs), 1)
		testutil.AssertEqual(t, jobs[0].ID, "job-2")
	})

	t.Run("by operation", func(t *testing.T) {
		jobs, err := store.ListJobs(operations.JobFilter{OperationID: "op-job-1"})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, len(jobs), 1)
	})

	t.Run("by step", func(t *testing.T) {
		jobs, err := store.ListJobs(operations.JobFilter{StepID: operations.StepIDForecast})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, len(jobs), 1)
		testutil.AssertEqual(t, jobs[0].ID, "job-2")
	})

	t.Run("since excludes old jobs", func(t *testing.T) {
		jobs, err := store.ListJobs(operations.JobFilter{Since: time.Now().Add(-time.Minute)})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, len(jobs), 2)
	})

	t.Run("limit", func(t *testing.T) {
		jobs, err := store.ListJobs(operations.JobFilter{Limit: 1})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, len(jobs), 1)
	})

	t.Run("no filter returns everything", func(t *testing.T) {
		jobs, err := store.ListJobs(operations.JobFilter{})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, len(jobs), 3)
	})
}

func TestMemoryJobStoreManifests(t *testing.T) {
	store := operations.NewMemoryJobStore()

	manifest := operations.NewPipelineManifest("op-1", "data/test.csv", "output")
	testutil.AssertNoError(t, store.CreateManifest(manifest))

	err := store.CreateManifest(manifest)
	testutil.AssertErrorContains(t, err, "already exists")

	got, err := store.GetManifest(manifest.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.OperationID, "op-1")

	// The store returns clones, mutations must not leak back
	got.AddArtifact("workbook", &operations.ArtifactInfo{Type: "workbook"})
	again, _ := store.GetManifest(manifest.ID)
	if again.HasArtifact("workbook") {
		t.Error("clone mutation leaked into the stored manifest")
	}

	byOp, err := store.GetManifestByOperationID("op-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, byOp.ID, manifest.ID)

	_, err = store.GetManifestByOperationID("missing")
	testutil.AssertError(t, err, true)

	manifest.Status = "completed"
	testutil.AssertNoError(t, store.UpdateManifest(manifest))
	updated, _ := store.GetManifest(manifest.ID)
	testutil.AssertEqual(t, updated.Status, "completed")
}

func TestMemoryJobStoreCleanupOldJobs(t *testing.T) {
	store := operations.NewMemoryJobStore()

	oldCompleted := newTestJob("job-old", operations.JobStatusCompleted)
	oldCompleted.CreatedAt = time.Now().Add(-2 * time.Hour)
	oldRunning := newTestJob("job-running", operations.JobStatusRunning)
	oldRunning.CreatedAt = time.Now().Add(-2 * time.Hour)
	fresh := newTestJob("job-fresh", operations.JobStatusCompleted)

	store.CreateJob(oldCompleted)
	store.CreateJob(oldRunning)
	store.CreateJob(fresh)

	deleted, err := store.CleanupOldJobs(time.Hour)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, deleted, 1)

	// Running jobs are never cleaned up, regardless of age
	_, err = store.GetJob("job-running")
	testutil.AssertNoError(t, err)
	_, err = store.GetJob("job-fresh")
	testutil.AssertNoError(t, err)
}

func TestMemoryJobStoreGetStats(t *testing.T) {
	store := operations.NewMemoryJobStore()

	for i, status := range []operations.JobStatus{
		operations.JobStatusPending,
		operations.JobStatusRunning,
		operations.JobStatusRunning,
		operations.JobStatusCompleted,
		operations.JobStatusFailed,
		operations.JobStatusCancelled,
	} {
		store.CreateJob(newTestJob(fmt.Sprintf("job-%d", i), status))
	}
	store.CreateManifest(operations.NewPipelineManifest("op-1", "", ""))

	stats := store.GetStats()
	testutil.AssertEqual(t, stats["total_jobs"], 6)
	testutil.AssertEqual(t, stats["total_manifests"], 1)
	testutil.AssertEqual(t, stats["pending"], 1)
	testutil.AssertEqual(t, stats["running"], 2)
	testutil.AssertEqual(t, stats["completed"], 1)
	testutil.AssertEqual(t, stats["failed"], 1)
	testutil.AssertEqual(t, stats["cancelled"], 1)
}
