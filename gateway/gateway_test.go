package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pangents/orchestrator/calllog"
	"github.com/pangents/orchestrator/types"
)

type fakeRegistry struct {
	capabilities map[string]*types.Capability
}

func (f *fakeRegistry) Get(id string) (*types.Capability, bool) {
	c, ok := f.capabilities[id]
	return c, ok
}

type allowAll struct{}

func (allowAll) Allowed(context.Context, string, string) bool { return true }

type denyAll struct{}

func (denyAll) Allowed(context.Context, string, string) bool { return false }

type captureEmitter struct {
	mu     sync.Mutex
	events []types.UsageEvent
}

func (c *captureEmitter) Emit(ev types.UsageEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureEmitter) all() []types.UsageEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.UsageEvent{}, c.events...)
}

type captureRecorder struct {
	mu     sync.Mutex
	events []calllog.Event
	done   chan struct{}
}

func (c *captureRecorder) Record(_ context.Context, ev calllog.Event) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	if c.done != nil {
		close(c.done)
	}
	return nil
}

func registryWith(caps ...*types.Capability) *fakeRegistry {
	r := &fakeRegistry{capabilities: map[string]*types.Capability{}}
	for _, c := range caps {
		r.capabilities[c.ID] = c
	}
	return r
}

func echoCapability(id string) *types.Capability {
	return &types.Capability{
		ID: id,
		Run: func(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
			return map[string]any{"echo": input, "tenant": ec.TenantID}, nil
		},
	}
}

func TestInvoke_Success(t *testing.T) {
	emitter := &captureEmitter{}
	g := New(registryWith(echoCapability("carrier_vetting")), allowAll{}, emitter, zaptest.NewLogger(t))

	ec := types.ExecutionContext{TenantID: "acme", UserID: "u1"}
	out, usage, err := g.Invoke(context.Background(), ec, "carrier_vetting", map[string]any{"dot": "125550"})
	require.NoError(t, err)
	assert.Equal(t, "acme", out["tenant"])
	assert.GreaterOrEqual(t, usage.DurationMs, int64(0))

	events := emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, "carrier_vetting", events[0].CapabilityID)
	assert.Equal(t, "u1", events[0].UserID)
	assert.True(t, events[0].Success)
}

func TestInvoke_UnknownCapability(t *testing.T) {
	emitter := &captureEmitter{}
	g := New(registryWith(), allowAll{}, emitter, zaptest.NewLogger(t))

	_, _, err := g.Invoke(context.Background(), types.ExecutionContext{TenantID: "acme"}, "ghost", nil)
	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrNotFound, typed.Code)
	assert.Empty(t, emitter.all(), "nothing is metered before resolution")
}

func TestInvoke_DeniedNeverExecutesOrMeters(t *testing.T) {
	executed := false
	capability := &types.Capability{
		ID: "carrier_vetting",
		Run: func(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
			executed = true
			return map[string]any{}, nil
		},
	}
	emitter := &captureEmitter{}
	g := New(registryWith(capability), denyAll{}, emitter, zaptest.NewLogger(t))

	_, _, err := g.Invoke(context.Background(), types.ExecutionContext{TenantID: "acme"}, "carrier_vetting", nil)
	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrPermissionDenied, typed.Code)
	assert.False(t, executed, "the capability must never run")
	assert.Empty(t, emitter.all(), "no usage event on denial")
}

func TestInvoke_ExecutionFailure(t *testing.T) {
	boom := errors.New("fmcsa timeout")
	capability := &types.Capability{
		ID: "carrier_vetting",
		Run: func(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
			return nil, boom
		},
	}
	emitter := &captureEmitter{}
	g := New(registryWith(capability), allowAll{}, emitter, zaptest.NewLogger(t))

	_, usage, err := g.Invoke(context.Background(), types.ExecutionContext{TenantID: "acme"}, "carrier_vetting", nil)
	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrCapabilityFailed, typed.Code)
	assert.ErrorIs(t, err, boom)
	assert.GreaterOrEqual(t, usage.DurationMs, int64(0))

	events := emitter.all()
	require.Len(t, events, 1, "failures are metered too")
	assert.False(t, events[0].Success)
	assert.Contains(t, events[0].Error, "fmcsa timeout")
}

func TestInvoke_MeteringFailureDoesNotAlterResult(t *testing.T) {
	g := New(registryWith(echoCapability("carrier_vetting")), allowAll{}, panicFreeFailingEmitter{}, zaptest.NewLogger(t))

	out, _, err := g.Invoke(context.Background(), types.ExecutionContext{TenantID: "acme"}, "carrier_vetting", map[string]any{"k": "v"})
	require.NoError(t, err, "a broken collector never fails the invocation")
	assert.Equal(t, "acme", out["tenant"])
}

// panicFreeFailingEmitter models a collector that silently loses events, the
// worst a conforming Emitter can do.
type panicFreeFailingEmitter struct{}

func (panicFreeFailingEmitter) Emit(types.UsageEvent) {}

func TestInvoke_UsageEnrichedFromOutput(t *testing.T) {
	capability := &types.Capability{
		ID: "freight_insights",
		Run: func(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
			return map[string]any{"cost_usd": 0.01, "input_tokens": 100, "output_tokens": 40}, nil
		},
	}
	emitter := &captureEmitter{}
	g := New(registryWith(capability), allowAll{}, emitter, zaptest.NewLogger(t))

	_, _, err := g.Invoke(context.Background(), types.ExecutionContext{TenantID: "acme"}, "freight_insights", nil)
	require.NoError(t, err)

	events := emitter.all()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].CostUSD)
	assert.Equal(t, 0.01, *events[0].CostUSD)
	require.NotNil(t, events[0].InputTokens)
	assert.Equal(t, 100, *events[0].InputTokens)
}

func TestInvoke_OutreachRecordsCallLog(t *testing.T) {
	capability := &types.Capability{
		ID: "carrier_outreach",
		Run: func(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
			return map[string]any{
				"call_id":       "call-1",
				"call_status":   "initiated",
				"carrier_phone": "+15550001111",
			}, nil
		},
	}
	recorder := &captureRecorder{done: make(chan struct{})}
	g := New(registryWith(capability), allowAll{}, nil, zaptest.NewLogger(t), WithCallLog(recorder))

	_, _, err := g.Invoke(context.Background(), types.ExecutionContext{TenantID: "acme"}, "carrier_outreach", map[string]any{"carrier_phone": "+15550001111"})
	require.NoError(t, err)

	select {
	case <-recorder.done:
	case <-time.After(2 * time.Second):
		t.Fatal("call log was never recorded")
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.events, 1)
	assert.Equal(t, "call-1", recorder.events[0].CallID)
	assert.Equal(t, "acme", recorder.events[0].TenantID)
}

func TestInvoke_NonOutreachSkipsCallLog(t *testing.T) {
	recorder := &captureRecorder{}
	g := New(registryWith(echoCapability("carrier_vetting")), allowAll{}, nil, zaptest.NewLogger(t), WithCallLog(recorder))

	_, _, err := g.Invoke(context.Background(), types.ExecutionContext{TenantID: "acme"}, "carrier_vetting", nil)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Empty(t, recorder.events)
}

func TestInvoke_NodeTimeoutBoundsExecution(t *testing.T) {
	capability := &types.Capability{
		ID: "slow",
		Run: func(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return map[string]any{}, nil
			}
		},
	}
	g := New(registryWith(capability), allowAll{}, nil, zaptest.NewLogger(t), WithNodeTimeout(30*time.Millisecond))

	start := time.Now()
	_, _, err := g.Invoke(context.Background(), types.ExecutionContext{TenantID: "acme"}, "slow", nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
