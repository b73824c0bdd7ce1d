// Package operations provides the execution framework for the EFI Pulse
// analysis pipeline: a sequence of dependent steps that load the unified
// dataset, check its quality, produce forecasts, export artifacts, and
// generate the report.
//
// The package supports:
//
//   - Step-based execution with dependency management
//   - Configurable retry logic and per-step timeouts
//   - Real-time progress tracking via WebSocket snapshots
//   - Partial completion: a failed step skips its dependents while
//     independent steps keep running
//   - Async execution through a worker-backed job queue
//
// Core components:
//
// Manager: orchestrates operation execution, step registration and state
// management. Steps run in dependency order; each failure is recorded and
// its dependents are skipped.
//
// Step: a single unit of work. Steps declare dependencies on other steps
// and exchange data through the operation state context.
//
// Registry: registers steps, validates their dependency graph and provides
// the topological execution order.
//
// StatusBroadcaster: the single authority for operation status. It folds
// every update into a complete snapshot and broadcasts it over the hub.
//
// JobQueue: runs operations asynchronously on a worker pool, persists job
// and manifest records through a JobStore, and recovers interrupted jobs.
//
// Example usage:
//
//	manager := operations.NewManager(hub, nil, nil)
//	manager.RegisterStep(NewLoadStep(logger, opts))
//	manager.RegisterStep(NewForecastStep(logger, opts))
//
//	req := operations.OperationRequest{
//		DatasetPath: "data/ethiopia_fi_unified_data.csv",
//		OutputDir:   "output",
//	}
//	resp, err := manager.Execute(ctx, req)
package operations
