// Package orchestrator provides a top-level convenience entry point for
// embedding the workflow engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/pangents/orchestrator"
//
//	eng, err := orchestrator.New(
//	    orchestrator.WithCapabilities(capabilities.Builders()),
//	    orchestrator.WithEntitlement(checker),
//	)
//	results, err := eng.Run(ctx, ec, def)
//
// The HTTP service in cmd/orchestrator wires the same components with
// persistence, caching, and metering collaborators; this package is for
// in-process embedding and tests.
package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/pangents/orchestrator/capabilities"
	"github.com/pangents/orchestrator/entitlement"
	"github.com/pangents/orchestrator/gateway"
	"github.com/pangents/orchestrator/metering"
	"github.com/pangents/orchestrator/registry"
	"github.com/pangents/orchestrator/types"
	"github.com/pangents/orchestrator/workflow"
)

// Engine bundles a capability registry, an invocation gateway, and a
// workflow runner behind one handle.
type Engine struct {
	Registry *registry.Registry
	Gateway  *gateway.Gateway
	Runner   *workflow.Runner
}

// Option configures the engine created by New.
type Option func(*options)

type options struct {
	builders    []registry.Builder
	entitlement entitlement.Checker
	metering    metering.Emitter
	logger      *zap.Logger
}

// WithCapabilities sets the capability builders to register. Defaults to
// the built-in capability set.
func WithCapabilities(builders []registry.Builder) Option {
	return func(o *options) { o.builders = builders }
}

// WithEntitlement sets the entitlement checker. Defaults to allowing every
// invocation, which suits single-tenant embedding.
func WithEntitlement(checker entitlement.Checker) Option {
	return func(o *options) { o.entitlement = checker }
}

// WithMetering sets the usage-event emitter. Defaults to discarding events.
func WithMetering(emitter metering.Emitter) Option {
	return func(o *options) { o.metering = emitter }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

type allowAll struct{}

func (allowAll) Allowed(context.Context, string, string) bool { return true }

// New creates an in-process engine.
func New(opts ...Option) (*Engine, error) {
	o := &options{
		builders:    capabilities.Builders(),
		entitlement: allowAll{},
		metering:    metering.Discard{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	reg := registry.New(o.logger)
	reg.Discover(o.builders)

	gw := gateway.New(reg, o.entitlement, o.metering, o.logger)
	runner := workflow.NewRunner(gw, reg, nil, o.logger)

	return &Engine{
		Registry: reg,
		Gateway:  gw,
		Runner:   runner,
	}, nil
}

// Invoke runs one capability through the engine's gateway.
func (e *Engine) Invoke(ctx context.Context, ec types.ExecutionContext, capabilityID string, input map[string]any) (map[string]any, types.Usage, error) {
	return e.Gateway.Invoke(ctx, ec, capabilityID, input)
}

// Run executes a workflow definition.
func (e *Engine) Run(ctx context.Context, ec types.ExecutionContext, def *workflow.Definition) (workflow.RunResult, error) {
	return e.Runner.Run(ctx, ec, def, nil)
}
