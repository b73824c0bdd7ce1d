// Package http implements the HTTP request handlers of the EFI Pulse
// dashboard API. It is a thin layer between transport and business
// logic: handlers parse and validate requests, call the services
// layer, and render JSON responses.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service errors to HTTP responses
//	4. No business logic - all logic belongs in the service layer
//	5. Consistent patterns - standardized request/response handling
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Dataset
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// Errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "validation_error",
//	    "title": "Invalid request data",
//	    "status": 400,
//	    "detail": "The indicator code format is invalid",
//	    "instance": "/api/data/series/acc_ownership"
//	}
//
// Handlers map service sentinel errors (services.ErrIndicatorNotFound,
// services.ErrDatasetNotFound, ...) to HTTP status codes with
// errors.Is; everything unrecognized renders as a 500.
//
// # WebSocket Support
//
// Pipeline progress streams over a Gorilla WebSocket hub mounted at
// /ws by the app wiring; the operations handler only publishes
// lifecycle notifications to it.
//
// # Testing
//
// Handlers are tested using httptest with mocked service interfaces:
// each test builds a chi router from Routes(), performs requests, and
// asserts status codes and JSON payloads.
package http
