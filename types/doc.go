/*
Package types provides the shared type contracts of the orchestrator.

types is the lowest-level public package and depends on no other package in
this repository. It defines the contracts that registry, workflow, gateway,
and api build on:

  - Capability        — an invocable unit of business logic (agent or tool)
  - ExecutionContext  — per-run tenant/user identity and resolved settings
  - Error / ErrorCode — structured error model with HTTP status mapping
  - Usage / UsageEvent — per-invocation duration, cost, and token accounting

It also carries the context propagation helpers (WithTenantID, WithUserID,
WithRunID and their accessors) used by the HTTP middleware and the gateway.
*/
package types
