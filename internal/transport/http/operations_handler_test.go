package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eficli/internal/operations"
	"eficli/internal/services"
)

func newTestOperationsHandler(t *testing.T) (*OperationsHandler, *mockOperationService, *mockHub) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := &mockOperationService{}
	hub := &mockHub{}
	hub.On("Broadcast", mock.Anything, mock.Anything).Maybe()
	return NewOperationsHandler(svc, hub, logger), svc, hub
}

func postJSON(t *testing.T, path string, body interface{}) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestOperationsHandlerStartEnqueues(t *testing.T) {
	handler, svc, hub := newTestOperationsHandler(t)
	svc.On("StartOperation", mock.Anything, mock.Anything, operations.FullPipeline).
		Return("op-123", nil)

	req := postJSON(t, "/start", map[string]interface{}{
		"step":        operations.FullPipeline,
		"skip_report": true,
	})
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "op-123", body["operation_id"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "/api/operations/op-123", body["poll_url"])

	svc.AssertExpectations(t)
	hub.AssertCalled(t, "Broadcast", "operation_update", mock.Anything)
}

func TestOperationsHandlerStartEmptyBodyRunsPipeline(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)
	svc.On("StartOperation", mock.Anything, mock.Anything, "").
		Return("op-456", nil)

	req := httptest.NewRequest(http.MethodPost, "/start", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	svc.AssertExpectations(t)
}

func TestOperationsHandlerStartRejectsUnknownStep(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)

	req := postJSON(t, "/start", map[string]interface{}{"step": "ingest"})
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "StartOperation")
}

func TestOperationsHandlerStartRejectsUnorderedHorizon(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)

	req := postJSON(t, "/start", map[string]interface{}{
		"horizon_years": []int{2026, 2025},
	})
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "StartOperation")
}

func TestOperationsHandlerStartSyncExecution(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)
	svc.On("ExecuteOperation", mock.Anything, mock.MatchedBy(func(req operations.OperationRequest) bool {
		return req.Parameters["step"] == operations.StepIDLoad && req.Mode == operations.ModeStep
	})).Return(&operations.OperationResponse{
		ID:       "op-sync",
		Status:   operations.OperationStatusCompleted,
		Duration: time.Second,
	}, nil)

	req := postJSON(t, "/start", map[string]interface{}{
		"step": operations.StepIDLoad,
		"sync": true,
	})
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "op-sync", body["id"])
	assert.Equal(t, true, body["success"])
	svc.AssertExpectations(t)
}

func TestOperationsHandlerGetStatus(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)
	svc.On("GetStatus", mock.Anything, "op-123").Return(&operations.OperationSnapshot{
		OperationID: "op-123",
		Status:      "running",
		Progress:    40,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/op-123", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "op-123", body["operation_id"])
	assert.Equal(t, "running", body["status"])
}

func TestOperationsHandlerGetStatusNotFound(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)
	svc.On("GetStatus", mock.Anything, "missing").
		Return(nil, services.ErrOperationNotFound)

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperationsHandlerListRejectsInvalidStatusFilter(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/?status=done", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "ListOperationsByStatus")
}

func TestOperationsHandlerListFiltered(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)
	svc.On("ListOperationsByStatus", mock.Anything, "running").
		Return([]*operations.OperationSnapshot{
			{OperationID: "op-1", Status: "running", StartedAt: time.Now()},
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/?status=running", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
}

func TestOperationsHandlerStopOperation(t *testing.T) {
	handler, svc, hub := newTestOperationsHandler(t)
	svc.On("CancelOperation", mock.Anything, "op-123").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/op-123/stop", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
	hub.AssertCalled(t, "Broadcast", "operation_update", mock.Anything)
}

func TestOperationsHandlerStopOperationNotFound(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)
	svc.On("CancelOperation", mock.Anything, "missing").
		Return(services.ErrOperationNotFound)

	req := httptest.NewRequest(http.MethodPost, "/missing/stop", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperationsHandlerGetOperationTypes(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)
	svc.On("GetOperationTypes", mock.Anything).Return([]operations.OperationType{
		{ID: operations.StepIDLoad, Name: "Load Dataset", CanRunAlone: true},
		{ID: operations.FullPipeline, Name: "Full Pipeline", CanRunAlone: true},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/types", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var types []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
	assert.Len(t, types, 2)
}

func TestOperationsHandlerGetJobStatus(t *testing.T) {
	handler, svc, _ := newTestOperationsHandler(t)
	svc.On("GetJob", mock.Anything, "job-1").Return(&operations.Job{
		ID:          "job-1",
		OperationID: "op-1",
		StepID:      operations.StepIDForecast,
		Status:      operations.JobStatusPending,
		CreatedAt:   time.Now(),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "job-1", body["job_id"])
	assert.Equal(t, false, body["is_complete"])
}
