package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pangents/orchestrator/api/handlers"
	"github.com/pangents/orchestrator/types"
	"github.com/pangents/orchestrator/workflow"
)

func TestEngine_Invoke(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	ec := types.ExecutionContext{TenantID: "acme"}
	output, usage, err := eng.Invoke(context.Background(), ec, "carrier_vetting",
		map[string]any{"dot": "1234567", "mock": true})
	require.NoError(t, err)

	assert.Equal(t, "1234567", output["dot"])
	assert.Equal(t, true, output["eligible"])
	assert.GreaterOrEqual(t, usage.DurationMs, int64(0))
}

// Questions the ask router answers must invoke end to end, not 404 on an
// unregistered capability id.
func TestEngine_Invoke_AskRoutedCapabilities(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	ec := types.ExecutionContext{TenantID: "acme"}
	cases := []struct {
		question string
		input    map[string]any
	}{
		{"forecast next month's demand", nil},
		{"optimize my delivery route", map[string]any{"origin": "Chicago", "destination": "Dallas"}},
		{"when should I reorder stock", map[string]any{"sku": "PALLET-40"}},
		{"where is shipment SH-100", map[string]any{"shipment_id": "SH-100"}},
		{"audit this invoice for overcharges", map[string]any{"invoiced_amount": 1100.0, "contracted_amount": 1000.0}},
	}

	for _, tc := range cases {
		id := handlers.RouteQuestion(tc.question)
		require.NotEmpty(t, id, "question %q did not route", tc.question)

		output, _, err := eng.Invoke(context.Background(), ec, id, tc.input)
		require.NoError(t, err, "routed capability %q failed", id)
		assert.NotEmpty(t, output)
	}
}

func TestEngine_Invoke_UnknownCapability(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	_, _, err = eng.Invoke(context.Background(), types.ExecutionContext{TenantID: "acme"}, "no_such", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestEngine_Run(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	def := &workflow.Definition{
		Name: "vet then report",
		Nodes: []workflow.Node{
			{ID: "t1", Type: workflow.NodeTypeTrigger, Data: map[string]any{"payload": "go"}},
			{ID: "carrier_vetting_1", Type: workflow.NodeTypeCustom, Data: map[string]any{
				"label": "Carrier Vetting",
				"dot":   "1234567",
				"mock":  true,
			}},
			{ID: "o1", Type: workflow.NodeTypeOutput},
		},
		Edges: []workflow.Edge{
			{Source: "t1", Target: "carrier_vetting_1"},
			{Source: "carrier_vetting_1", Target: "o1"},
		},
	}

	results, err := eng.Run(context.Background(), types.ExecutionContext{TenantID: "acme"}, def)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"payload": "go"}, results["t1"])
	assert.Equal(t, "1234567", results["carrier_vetting_1"]["dot"])
	assert.Equal(t, "carrier_vetting_1", results["o1"]["from"])
	assert.Equal(t, results["carrier_vetting_1"], results["o1"]["value"].(map[string]any))
}

func TestEngine_EntitlementDenial(t *testing.T) {
	eng, err := New(WithEntitlement(denyAll{}))
	require.NoError(t, err)

	_, _, err = eng.Invoke(context.Background(), types.ExecutionContext{TenantID: "acme"}, "carrier_vetting",
		map[string]any{"dot": "1234567"})
	require.Error(t, err)
	assert.Equal(t, types.ErrPermissionDenied, types.GetErrorCode(err))
}

type denyAll struct{}

func (denyAll) Allowed(context.Context, string, string) bool { return false }
