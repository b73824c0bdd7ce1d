// Package services implements the business logic layer of the EFI Pulse
// application. It provides a clean separation between HTTP handlers and
// the dataset, forecast and operations packages, ensuring that business
// rules are centralized and testable.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Domain-focused methods that encapsulate business rules
//
// # Services
//
// DataService owns the cached unified dataset and serves summaries,
// filtered observations, indicator series and event timelines.
// ForecastService computes trend and scenario projections on top of it.
// OperationService runs analysis pipelines through the manager and its
// async job queue. ReportService lists, resolves and generates run
// artifacts. HealthService reports component readiness.
//
// # Common Service Pattern
//
// Services typically follow this structure:
//
//	type ServiceName struct {
//	    data   *DataService
//	    logger *slog.Logger
//	}
//
//	func NewServiceNameWithLogger(cfg *config.Config, logger *slog.Logger) (*ServiceName, error) {
//	    if logger == nil {
//	        logger = slog.Default()
//	    }
//	    ...
//	}
//
//	func (s *ServiceName) BusinessOperation(ctx context.Context, input Input) (*Output, error) {
//	    // Validate input, execute, log failures with context
//	}
//
// Sentinel errors in errors.go let handlers map failures to HTTP
// status codes with errors.Is.
package services
