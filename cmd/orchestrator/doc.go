/*
Package main provides the orchestrator server entry point.

# Overview

cmd/orchestrator is the executable entry of the workflow orchestration
service. It loads YAML configuration with ORCHESTRATOR_* environment
overrides, builds the invocation pipeline (capability registry,
entitlement checker, metering emitter, call log, gateway, runner), and
serves the HTTP API alongside a separate Prometheus metrics port.

# Core types

  - Server     — wires the components and manages both listeners
  - Middleware — HTTP middleware func(http.Handler) http.Handler

# Middleware chain

Recovery, RequestID, SecurityHeaders, OTelTracing, RequestLogger,
MetricsMiddleware, CORS, Identity (JWT or trusted headers), and a
per-tenant rate limiter, applied in that order.

# Shutdown

Signal → stop listeners → drain the metering queue → close the
entitlement cache, call log, and database pool → flush telemetry.
*/
package main
