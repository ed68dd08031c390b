package types

import (
	"context"
	"encoding/json"
)

// ExecutionContext carries the per-run identity and resolved per-tenant
// settings a capability may need. It is never persisted and is constructed
// fresh for each invocation or workflow run.
type ExecutionContext struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id,omitempty"`

	// CallingConfig holds the caller's resolved outbound-calling provider
	// settings (agent id, voice, credentials reference). Nil when the
	// caller has no such integration configured.
	CallingConfig map[string]any `json:"calling_config,omitempty"`
}

// RunFunc is the executable contract of a capability.
type RunFunc func(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error)

// Capability is an invocable unit of business logic (agent or tool) with a
// stable id and an execute contract. Capabilities are registered once at
// process start and are immutable for the process lifetime.
type Capability struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`

	Run RunFunc `json:"-"`
}

// Execute runs the capability. A capability without a Run function returns
// an internal error rather than panicking.
func (c *Capability) Execute(ctx context.Context, ec ExecutionContext, input map[string]any) (map[string]any, error) {
	if c.Run == nil {
		return nil, NewError(ErrInternalError, "capability "+c.ID+" has no run function")
	}
	return c.Run(ctx, ec, input)
}

// Info is the metadata view of a capability returned by listing APIs.
type Info struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Info returns the capability's metadata view.
func (c *Capability) Info() Info {
	return Info{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Tags:        c.Tags,
	}
}
