// Package workflow holds the graph model, the execution-order compiler, the
// node dispatcher, and the tenant-scoped definition store.
package workflow

import (
	"time"
)

// Node is one step in a workflow graph. Its type and configuration determine
// at dispatch time which capability, if any, backs it.
type Node struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Edge is a directed pair of node ids within one workflow. When several
// edges target the same node, only the last listed one supplies that node's
// data predecessor; earlier edges affect ordering only.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Definition is a tenant-scoped workflow graph plus metadata.
type Definition struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the listing view of a workflow.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Node types with engine-level semantics. Any other type is treated as a
// direct capability alias.
const (
	NodeTypeTrigger = "trigger"
	NodeTypeOutput  = "output"
	NodeTypeCustom  = "custom"
)

// RunResult maps node ids to their outputs for one run. Nodes that were
// skipped are absent.
type RunResult map[string]map[string]any
