package operations_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"eficli/internal/operations"
	"eficli/internal/operations/testutil"
)

func TestOperationErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *operations.OperationError
		want string
	}{
		{
			name: "with step",
			err: &operations.OperationError{
				Type:    operations.ErrorTypeExecution,
				Step:    "forecast",
				Message: "series too short",
			},
			want: "[execution] forecast: series too short",
		},
		{
			name: "without step",
			err: &operations.OperationError{
				Type:    operations.ErrorTypeFatal,
				Message: "step state not found",
			},
			want: "[fatal] step state not found",
		},
		{
			name: "nil receiver",
			err:  nil,
			want: "unknown operation error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, tt.err.Error(), tt.want)
		})
	}
}

func TestOperationErrorUnwrap(t *testing.T) {
	cause := errors.New("file not found")
	err := operations.NewExecutionError("load", cause, false)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}

	var opErr *operations.OperationError
	if !errors.As(err, &opErr) {
		t.Fatal("expected errors.As to recover *OperationError")
	}
	testutil.AssertEqual(t, opErr.Step, "load")
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name          string
		err           *operations.OperationError
		wantType      operations.ErrorType
		wantStep      string
		wantRetryable bool
	}{
		{
			name:     "validation",
			err:      operations.NewValidationError("quality", "dataset missing"),
			wantType: operations.ErrorTypeValidation,
			wantStep: "quality",
		},
		{
			name:     "dependency",
			err:      operations.NewDependencyError("forecast", "quality", "dependency quality not completed"),
			wantType: operations.ErrorTypeDependency,
			wantStep: "forecast",
		},
		{
			name:          "retryable execution",
			err:           operations.NewExecutionError("export", errors.New("disk busy"), true),
			wantType:      operations.ErrorTypeExecution,
			wantStep:      "export",
			wantRetryable: true,
		},
		{
			name:          "timeout",
			err:           operations.NewTimeoutError("report", "5m0s"),
			wantType:      operations.ErrorTypeTimeout,
			wantStep:      "report",
			wantRetryable: true,
		},
		{
			name:     "cancellation",
			err:      operations.NewCancellationError("load"),
			wantType: operations.ErrorTypeCancellation,
			wantStep: "load",
		},
		{
			name:     "fatal",
			err:      operations.NewFatalError("registry empty", nil),
			wantType: operations.ErrorTypeFatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, tt.err.Type, tt.wantType)
			testutil.AssertEqual(t, tt.err.Step, tt.wantStep)
			testutil.AssertEqual(t, tt.err.Retryable, tt.wantRetryable)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if operations.IsRetryable(nil) {
		t.Error("nil error should not be retryable")
	}
	if operations.IsRetryable(errors.New("plain error")) {
		t.Error("plain errors should not be retryable")
	}
	if !operations.IsRetryable(operations.NewExecutionError("load", errors.New("x"), true)) {
		t.Error("retryable execution error should be retryable")
	}
	if operations.IsRetryable(operations.NewValidationError("load", "bad input")) {
		t.Error("validation errors should not be retryable")
	}
}

func TestGetErrorType(t *testing.T) {
	testutil.AssertEqual(t, operations.GetErrorType(nil), operations.ErrorType(""))
	testutil.AssertEqual(t, operations.GetErrorType(errors.New("plain")), operations.ErrorTypeExecution)
	testutil.AssertEqual(t,
		operations.GetErrorType(operations.NewCancellationError("load")),
		operations.ErrorTypeCancellation)
	testutil.AssertEqual(t,
		operations.GetErrorType(operations.NewTimeoutError("report", "1s")),
		operations.ErrorTypeTimeout)
}

func TestWrapError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		if operations.WrapError(nil, "load", "context") != nil {
			t.Error("wrapping nil should return nil")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		wrapped := operations.WrapError(errors.New("boom"), "export", "write failed")
		testutil.AssertEqual(t, wrapped.Type, operations.ErrorTypeExecution)
		testutil.AssertEqual(t, wrapped.Step, "export")
		testutil.AssertErrorContains(t, wrapped, "write failed")
	})

	t.Run("existing operation error keeps type", func(t *testing.T) {
		inner := operations.NewTimeoutError("", "1s")
		wrapped := operations.WrapError(inner, "forecast", "analysis aborted")
		testutil.AssertEqual(t, wrapped.Type, operations.ErrorTypeTimeout)
		testutil.AssertEqual(t, wrapped.Step, "forecast")
		if !strings.Contains(wrapped.Message, "analysis aborted") {
			t.Errorf("expected message prefix, got %q", wrapped.Message)
		}
	})

	t.Run("existing step is preserved", func(t *testing.T) {
		inner := operations.NewValidationError("quality", "bad input")
		wrapped := operations.WrapError(inner, "forecast", "")
		testutil.AssertEqual(t, wrapped.Step, "quality")
	})
}

func TestErrorList(t *testing.T) {
	list := &operations.ErrorList{}

	if list.HasErrors() {
		t.Error("empty list should have no errors")
	}
	testutil.AssertEqual(t, list.Error(), "no errors")

	list.Add(nil)
	if list.HasErrors() {
		t.Error("adding nil should not record an error")
	}

	first := operations.NewExecutionError("export", errors.New("disk full"), false)
	list.Add(first)
	testutil.AssertEqual(t, list.Error(), first.Error())

	list.Add(operations.NewExecutionError("report", errors.New("chrome missing"), false))
	if !strings.Contains(list.Error(), "2 errors") {
		t.Errorf("expected aggregate message, got %q", list.Error())
	}

	exportErrors := list.GetByStep("export")
	testutil.AssertEqual(t, len(exportErrors), 1)
	testutil.AssertEqual(t, exportErrors[0], first)
	testutil.AssertEqual(t, len(list.GetByStep("load")), 0)
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *operations.OperationError
		typ  operations.ErrorType
	}{
		{"not found", operations.ErrOperationNotFound, operations.ErrorTypeNotFound},
		{"completed", operations.ErrOperationCompleted, operations.ErrorTypeInvalidState},
		{"not running", operations.ErrOperationNotRunning, operations.ErrorTypeInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertEqual(t, tt.err.Type, tt.typ)
			if !errors.Is(fmt.Errorf("wrapped: %w", tt.err), tt.err) {
				t.Error("sentinel should survive wrapping")
			}
		})
	}
}
