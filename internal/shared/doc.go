// Package shared provides common utilities and test helpers used across the EFI Pulse codebase.
// It serves as a central location for shared functionality that doesn't belong to any
// specific domain or architectural layer.
//
// # Structure
//
// The package is organized into the following components:
//
// - testutil: Testing utilities including fixtures, mocks, and assertions
//
// # Usage Guidelines
//
// This package should only contain:
//
// 1. Test utilities used by multiple packages
// 2. Generic helper functions with no domain-specific logic
// 3. Common constants or types used across packages
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- Slog capture handlers for asserting on structured log output
//	- Dataset fixtures producing unified CSV content and indicator series
//	- Corrupted-file generators for loader robustness tests
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    fixtures := testutil.NewDatasetTestFixtures(t.TempDir())
//
//	    // Use logger and fixtures in tests
//	}
package shared
