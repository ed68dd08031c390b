// Package handlers implements the HTTP endpoints of the orchestrator API.
//
// Every handler writes the shared Response envelope via WriteSuccess or
// WriteError, so clients always see {success, data, error, timestamp,
// request_id}. Error codes map to HTTP status codes in one place,
// mapErrorCodeToHTTPStatus; a typed error with an explicit status wins.
//
// Handlers read identity (tenant, user) from the request context, placed
// there by the auth middleware. They never read raw identity headers
// themselves.
//
// Core types:
//   - CapabilityHandler: catalog listing, schemas, direct invocation, and
//     the keyword-routed ask endpoint.
//   - WorkflowHandler: workflow CRUD plus synchronous and streamed runs.
//   - HealthHandler: liveness, readiness probes, and version info.
//   - Response / ErrorInfo: the wire envelope.
//   - ResponseWriter: status-capturing wrapper used by the middleware.
package handlers
