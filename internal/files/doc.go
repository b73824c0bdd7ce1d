// Package files provides file system operations and artifact discovery
// for the EFI Pulse application.
//
// This package contains two main components:
//
// Discovery: Finds the generated run artifacts (CSV, JSON and workbook
// exports, HTML and PDF reports, chart images) in the output
// directories and classifies them by format for the dashboard API.
//
// Manager: Provides basic file management operations such as reading,
// writing and listing files, and resolves artifact names to safe paths
// for downloads. All relative paths resolve against the application's
// directory layout.
//
// Example usage:
//
//	// Create a discovery instance
//	discovery := files.NewDiscovery(paths.ExportsDir)
//
//	// Find all artifacts of a run
//	artifacts, err := discovery.FindArtifacts("")
//
//	// Create a manager instance
//	manager := files.NewManager(paths)
//
//	// Resolve a report for download
//	path, err := manager.ResolveReport("efi_outlook_20250115_101500.pdf")
package files
