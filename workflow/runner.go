package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pangents/orchestrator/types"
)

// Invoker is the shared invocation pipeline every node call funnels through.
// The gateway package provides the production implementation.
type Invoker interface {
	Invoke(ctx context.Context, ec types.ExecutionContext, capabilityID string, input map[string]any) (map[string]any, types.Usage, error)
}

// CapabilityLister exposes the registered capability metadata the dispatcher
// resolves node types against.
type CapabilityLister interface {
	List() []types.Info
}

type runMetrics interface {
	RecordRun(status string, duration time.Duration)
	RecordNodeExecuted(nodeType string)
}

// RunEvent is one observable step of a run, delivered to an optional
// observer for streaming consumers.
type RunEvent struct {
	Type         string         `json:"type"`
	NodeID       string         `json:"node_id,omitempty"`
	CapabilityID string         `json:"capability_id,omitempty"`
	Output       map[string]any `json:"output,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Run event types.
const (
	EventNodeStarted  = "node_started"
	EventNodeFinished = "node_finished"
	EventNodeSkipped  = "node_skipped"
	EventRunFinished  = "run_finished"
	EventRunFailed    = "run_failed"
)

// Observer receives run events in execution order. It is called from the
// run's goroutine; a slow observer slows the run.
type Observer func(event RunEvent)

// Runner drives a workflow's compiled node order through the invocation
// pipeline, strictly sequentially.
type Runner struct {
	invoker      Invoker
	capabilities CapabilityLister
	logger       *zap.Logger
	metrics      runMetrics
}

// NewRunner builds a Runner. metrics may be nil.
func NewRunner(invoker Invoker, capabilities CapabilityLister, metrics runMetrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		invoker:      invoker,
		capabilities: capabilities,
		logger:       logger.With(zap.String("component", "workflow_runner")),
		metrics:      metrics,
	}
}

// Run executes the definition for the given execution context. On the first
// failing node the run aborts; outputs of nodes completed before the failure
// are returned alongside the error, which carries the failing node's id.
func (r *Runner) Run(ctx context.Context, ec types.ExecutionContext, def *Definition, observer Observer) (RunResult, error) {
	start := time.Now()
	results, err := r.run(ctx, ec, def, observer)
	if r.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		r.metrics.RecordRun(status, time.Since(start))
	}
	return results, err
}

func (r *Runner) run(ctx context.Context, ec types.ExecutionContext, def *Definition, observer Observer) (RunResult, error) {
	notify := observer
	if notify == nil {
		notify = func(RunEvent) {}
	}

	byID := make(map[string]Node, len(def.Nodes))
	for _, n := range def.Nodes {
		byID[n.ID] = n
	}
	order := Order(def.Nodes, def.Edges)

	known := make([]string, 0)
	for _, info := range r.capabilities.List() {
		known = append(known, info.ID)
	}

	results := make(RunResult, len(order))
	logger := r.logger.With(
		zap.String("tenant_id", ec.TenantID),
		zap.String("workflow_id", def.ID),
	)

	for _, nodeID := range order {
		if err := ctx.Err(); err != nil {
			failure := types.NewError(types.ErrInternalError, "run canceled").WithCause(err).WithNodeID(nodeID)
			notify(RunEvent{Type: EventRunFailed, NodeID: nodeID, Error: failure.Message})
			return results, failure
		}

		node, ok := byID[nodeID]
		if !ok {
			continue
		}
		data := node.Data
		if data == nil {
			data = map[string]any{}
		}

		predID, hasPred := Predecessor(def.Edges, nodeID)
		var prev map[string]any
		if hasPred {
			prev = results[predID]
		}

		switch node.Type {
		case NodeTypeTrigger:
			results[nodeID] = map[string]any{"payload": data["payload"]}
			r.recordNode(node.Type)
			notify(RunEvent{Type: EventNodeFinished, NodeID: nodeID, Output: results[nodeID]})
			continue
		case NodeTypeOutput:
			out := map[string]any{"from": nil, "value": nil}
			if hasPred {
				out["from"] = predID
				if prev != nil {
					out["value"] = prev
				}
			}
			results[nodeID] = out
			r.recordNode(node.Type)
			notify(RunEvent{Type: EventNodeFinished, NodeID: nodeID, Output: out})
			continue
		}

		capabilityID, resolved := ResolveCapability(node, known)
		if !resolved {
			logger.Warn("node resolves to no capability, skipping",
				zap.String("node_id", nodeID),
				zap.String("node_type", node.Type),
			)
			notify(RunEvent{Type: EventNodeSkipped, NodeID: nodeID})
			continue
		}

		input := ShapeInput(capabilityID, data, prev)
		notify(RunEvent{Type: EventNodeStarted, NodeID: nodeID, CapabilityID: capabilityID})

		output, _, err := r.invoker.Invoke(ctx, ec, capabilityID, input)
		if err != nil {
			failure := attributeToNode(err, nodeID)
			logger.Warn("node failed, aborting run",
				zap.String("node_id", nodeID),
				zap.String("capability_id", capabilityID),
				zap.Error(err),
			)
			notify(RunEvent{Type: EventRunFailed, NodeID: nodeID, CapabilityID: capabilityID, Error: failure.Message})
			return results, failure
		}

		results[nodeID] = output
		r.recordNode(capabilityID)
		notify(RunEvent{Type: EventNodeFinished, NodeID: nodeID, CapabilityID: capabilityID, Output: output})
	}

	notify(RunEvent{Type: EventRunFinished})
	return results, nil
}

func (r *Runner) recordNode(nodeType string) {
	if r.metrics != nil {
		r.metrics.RecordNodeExecuted(nodeType)
	}
}

// attributeToNode stamps the failing node id onto the error, preserving the
// pipeline's error kind when there is one.
func attributeToNode(err error, nodeID string) *types.Error {
	if typed, ok := err.(*types.Error); ok {
		return typed.WithNodeID(nodeID)
	}
	return types.NewError(types.ErrNodeFailed, "node "+nodeID+" failed").
		WithCause(err).
		WithNodeID(nodeID)
}
