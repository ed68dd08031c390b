// Package gateway is the shared invocation pipeline: every capability call,
// whether a direct invoke or a node inside a workflow run, passes through the
// same entitlement check, execution, and metering sequence.
package gateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pangents/orchestrator/calllog"
	"github.com/pangents/orchestrator/entitlement"
	"github.com/pangents/orchestrator/metering"
	"github.com/pangents/orchestrator/types"
)

const instrumentationName = "github.com/pangents/orchestrator/gateway"

// Registry resolves capability ids to executable handles.
type Registry interface {
	Get(id string) (*types.Capability, bool)
}

type invocationMetrics interface {
	RecordInvocation(capabilityID, status string, duration time.Duration)
}

// Gateway runs the entitlement -> execute -> metering pipeline.
type Gateway struct {
	registry    Registry
	entitlement entitlement.Checker
	metering    metering.Emitter
	callLog     calllog.Recorder
	metrics     invocationMetrics
	tracer      trace.Tracer
	logger      *zap.Logger

	// nodeTimeout bounds one execution; zero leaves it unbounded and a
	// hung capability hangs its caller.
	nodeTimeout time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithNodeTimeout bounds each capability execution.
func WithNodeTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.nodeTimeout = d }
}

// WithCallLog attaches the outbound-call recorder.
func WithCallLog(rec calllog.Recorder) Option {
	return func(g *Gateway) { g.callLog = rec }
}

// WithMetrics attaches the Prometheus collector.
func WithMetrics(m invocationMetrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New builds a Gateway.
func New(registry Registry, checker entitlement.Checker, emitter metering.Emitter, logger *zap.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = metering.Discard{}
	}
	g := &Gateway{
		registry:    registry,
		entitlement: checker,
		metering:    emitter,
		callLog:     calllog.Disabled{},
		tracer:      otel.Tracer(instrumentationName),
		logger:      logger.With(zap.String("component", "gateway")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Invoke resolves, authorizes, executes, and meters one capability call.
// NotFound and PermissionDenied surface before any execution; execution
// failures return ErrCapabilityFailed with the capability's error as cause.
// Usage emission and call logging never influence the returned result.
func (g *Gateway) Invoke(ctx context.Context, ec types.ExecutionContext, capabilityID string, input map[string]any) (map[string]any, types.Usage, error) {
	capability, ok := g.registry.Get(capabilityID)
	if !ok {
		return nil, types.Usage{}, types.NewNotFoundError("capability " + capabilityID + " not found")
	}

	if !g.entitlement.Allowed(ctx, ec.TenantID, capabilityID) {
		g.logger.Info("invocation denied",
			zap.String("tenant_id", ec.TenantID),
			zap.String("capability_id", capabilityID),
		)
		return nil, types.Usage{}, types.NewPermissionDeniedError("subscription does not allow capability " + capabilityID)
	}

	ctx, span := g.tracer.Start(ctx, "capability.execute",
		trace.WithAttributes(
			attribute.String("capability.id", capabilityID),
			attribute.String("tenant.id", ec.TenantID),
		))
	defer span.End()

	execCtx := ctx
	if g.nodeTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, g.nodeTimeout)
		defer cancel()
	}

	started := time.Now()
	output, execErr := capability.Execute(execCtx, ec, input)
	duration := time.Since(started)
	usage := types.Usage{DurationMs: duration.Milliseconds()}

	status := "success"
	if execErr != nil {
		status = "error"
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
	}
	if g.metrics != nil {
		g.metrics.RecordInvocation(capabilityID, status, duration)
	}

	g.emitUsage(ec, capabilityID, usage, output, execErr)

	if execErr != nil {
		g.logger.Warn("capability execution failed",
			zap.String("tenant_id", ec.TenantID),
			zap.String("capability_id", capabilityID),
			zap.Duration("duration", duration),
			zap.Error(execErr),
		)
		return nil, usage, types.NewError(types.ErrCapabilityFailed, "capability "+capabilityID+" failed").
			WithCause(execErr).
			WithHTTPStatus(500)
	}

	if capabilityID == "carrier_outreach" {
		g.recordCall(ec, capabilityID, input, output)
	}

	g.logger.Debug("capability executed",
		zap.String("tenant_id", ec.TenantID),
		zap.String("capability_id", capabilityID),
		zap.Duration("duration", duration),
	)
	return output, usage, nil
}

func (g *Gateway) emitUsage(ec types.ExecutionContext, capabilityID string, usage types.Usage, output map[string]any, execErr error) {
	event := types.UsageEvent{
		CapabilityID: capabilityID,
		TenantID:     ec.TenantID,
		UserID:       ec.UserID,
		DurationMs:   usage.DurationMs,
		Success:      execErr == nil,
	}
	if execErr != nil {
		event.Error = execErr.Error()
	}
	event.EnrichFromOutput(output)
	g.metering.Emit(event)
}

// recordCall stores the call log in the background, detached from the
// request's lifetime. Failure is the recorder's problem, never the caller's.
func (g *Gateway) recordCall(ec types.ExecutionContext, capabilityID string, input, output map[string]any) {
	event := calllog.FromOutput(capabilityID, ec.TenantID, input, output)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = g.callLog.Record(ctx, event)
	}()
}
