package testutil

import (
	"strings"
	"testing"
	"time"

	"eficli/internal/operations"
)

// AssertStepStatus verifies a step has the expected status
func AssertStepStatus(t *testing.T, step *operations.StepState, expected operations.StepStatus) {
	t.Helper()
	if step == nil {
		t.Fatal("step state is nil")
	}
	if step.Status != expected {
		t.Errorf("step %s status = %v, want %v", step.ID, step.Status, expected)
	}
}

// AssertOperationStatus verifies an operation has the expected status
func AssertOperationStatus(t *testing.T, s *operations.OperationState, expected operations.OperationStatusValue) {
	t.Helper()
	if s == nil {
		t.Fatal("operation state is nil")
	}
	if s.Status != expected {
		t.Errorf("operation status = %v, want %v", s.Status, expected)
	}
}

// AssertWebSocketMessage verifies a websocket message was sent
func AssertWebSocketMessage(t *testing.T, hub *MockWebSocketHub, eventType string) {
	t.Helper()
	messages := hub.GetMessagesByType(eventType)
	if len(messages) == 0 {
		t.Errorf("no websocket message of type %s found", eventType)
	}
}

// AssertStepCompleted verifies a step completed successfully
func AssertStepCompleted(t *testing.T, s *operations.OperationState, stepID string) {
	t.Helper()
	step := s.GetStep(stepID)
	if step == nil {
		t.Fatalf("step %s not found", stepID)
	}
	AssertStepStatus(t, step, operations.StepStatusCompleted)
	if step.Progress != 100 {
		t.Errorf("step %s progress = %v, want 100", stepID, step.Progress)
	}
}

// AssertStepFailed verifies a step failed
func AssertStepFailed(t *testing.T, s *operations.OperationState, stepID string) {
	t.Helper()
	step := s.GetStep(stepID)
	if step == nil {
		t.Fatalf("step %s not found", stepID)
	}
	AssertStepStatus(t, step, operations.StepStatusFailed)
	if step.Error == nil {
		t.Errorf("step %s has no error", stepID)
	}
}

// AssertStepSkipped verifies a step was skipped
func AssertStepSkipped(t *testing.T, s *operations.OperationState, stepID string) {
	t.Helper()
	step := s.GetStep(stepID)
	if step == nil {
		t.Fatalf("step %s not found", stepID)
	}
	AssertStepStatus(t, step, operations.StepStatusSkipped)
}

// AssertDuration verifies a duration is within tolerance
func AssertDuration(t *testing.T, actual, expected, tolerance time.Duration) {
	t.Helper()
	diff := actual - expected
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		t.Errorf("duration = %v, want %v ± %v", actual, expected, tolerance)
	}
}

// AssertErrorContains verifies an error contains a substring
func AssertErrorContains(t *testing.T, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Errorf("expected error containing %q, got nil", substr)
		return
	}
	if !strings.Contains(err.Error(), substr) {
		t.Errorf("error = %v, want error containing %q", err, substr)
	}
}

// AssertErrorType verifies the type of an operation error
func AssertErrorType(t *testing.T, err error, expectedType operations.ErrorType) {
	t.Helper()
	if err == nil {
		t.Fatal("error is nil")
	}
	if got := operations.GetErrorType(err); got != expectedType {
		t.Errorf("error type = %v, want %v", got, expectedType)
	}
}

// AssertNoError fails if there is an error
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError verifies the presence of an error matches expected
func AssertError(t *testing.T, err error, wantErr bool) {
	t.Helper()
	if (err != nil) != wantErr {
		t.Errorf("error = %v, wantErr %v", err, wantErr)
	}
}

// AssertEqual verifies two values are equal
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertNotNil verifies a value is not nil
func AssertNotNil(t *testing.T, v interface{}) {
	t.Helper()
	if v == nil {
		t.Fatal("value is nil")
	}
}
