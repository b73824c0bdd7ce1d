package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"eficli/internal/dataset"
	"eficli/internal/forecast"
	"eficli/internal/operations"
	"eficli/internal/report"
	"eficli/pkg/contracts/domain"
)

// mockDataService mocks DataServiceInterface
type mockDataService struct {
	mock.Mock
}

func (m *mockDataService) GetSummary(ctx context.Context) (dataset.Summary, error) {
	args := m.Called(ctx)
	return args.Get(0).(dataset.Summary), args.Error(1)
}

func (m *mockDataService) GetObservations(ctx context.Context, indicatorCode, pillar, confidence string) ([]dataset.Record, error) {
	args := m.Called(ctx, indicatorCode, pillar, confidence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dataset.Record), args.Error(1)
}

func (m *mockDataService) GetIndicators(ctx context.Context) ([]dataset.IndicatorInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dataset.IndicatorInfo), args.Error(1)
}

func (m *mockDataService) GetEvents(ctx context.Context) ([]dataset.EventImpact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dataset.EventImpact), args.Error(1)
}

func (m *mockDataService) GetTargets(ctx context.Context) ([]dataset.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dataset.Record), args.Error(1)
}

func (m *mockDataService) GetSeries(ctx context.Context, code string) (domain.IndicatorSeries, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.IndicatorSeries), args.Error(1)
}

func (m *mockDataService) GetGrowth(ctx context.Context, code string) (domain.IndicatorGrowth, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.IndicatorGrowth), args.Error(1)
}

func (m *mockDataService) GetGenderGap(ctx context.Context) (domain.GenderGapChart, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.GenderGapChart), args.Error(1)
}

// mockForecastService mocks ForecastServiceInterface
type mockForecastService struct {
	mock.Mock
}

func (m *mockForecastService) GetForecasts(ctx context.Context) (map[string]forecast.IndicatorForecast, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]forecast.IndicatorForecast), args.Error(1)
}

func (m *mockForecastService) GetForecastTable(ctx context.Context) ([]forecast.ForecastRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]forecast.ForecastRow), args.Error(1)
}

func (m *mockForecastService) GetTrajectory(ctx context.Context, code string) (domain.TrajectoryChart, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.TrajectoryChart), args.Error(1)
}

func (m *mockForecastService) GetScenarios(ctx context.Context) (domain.ScenarioChart, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ScenarioChart), args.Error(1)
}

// mockReportService mocks ReportServiceInterface
type mockReportService struct {
	mock.Mock
}

func (m *mockReportService) ListReports(ctx context.Context) (domain.ReportListing, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ReportListing), args.Error(1)
}

func (m *mockReportService) ResolveDownload(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *mockReportService) GenerateReport(ctx context.Context, includePDF bool) (*report.Artifacts, error) {
	args := m.Called(ctx, includePDF)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Artifacts), args.Error(1)
}

// mockOperationService mocks OperationServiceInterface
type mockOperationService struct {
	mock.Mock
}

func (m *mockOperationService) StartOperation(ctx context.Context, req operations.OperationRequest, stepID string) (string, error) {
	args := m.Called(ctx, req, stepID)
	return args.String(0), args.Error(1)
}

func (m *mockOperationService) ExecuteOperation(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operations.OperationResponse), args.Error(1)
}

func (m *mockOperationService) GetStatus(ctx context.Context, operationID string) (*operations.OperationSnapshot, error) {
	args := m.Called(ctx, operationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operations.OperationSnapshot), args.Error(1)
}

func (m *mockOperationService) CancelOperation(ctx context.Context, operationID string) error {
	args := m.Called(ctx, operationID)
	return args.Error(0)
}

func (m *mockOperationService) ListOperations(ctx context.Context) ([]*operations.OperationSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*operations.OperationSnapshot), args.Error(1)
}

func (m *mockOperationService) ListOperationsByStatus(ctx context.Context, status string) ([]*operations.OperationSnapshot, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*operations.OperationSnapshot), args.Error(1)
}

func (m *mockOperationService) GetOperationMetrics(ctx context.Context) (map[string]interface{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *mockOperationService) GetOperationTypes(ctx context.Context) ([]operations.OperationType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]operations.OperationType), args.Error(1)
}

func (m *mockOperationService) GetJob(ctx context.Context, jobID string) (*operations.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operations.Job), args.Error(1)
}

func (m *mockOperationService) ListJobs(ctx context.Context, filter operations.JobFilter) ([]*operations.Job, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*operations.Job), args.Error(1)
}

// mockHub mocks the websocket Hub interface
type mockHub struct {
	mock.Mock
}

func (m *mockHub) Broadcast(messageType string, data interface{}) {
	m.Called(messageType, data)
}
