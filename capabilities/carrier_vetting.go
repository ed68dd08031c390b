package capabilities

import (
	"context"
	"fmt"
	"strings"

	"github.com/pangents/orchestrator/types"
)

var carrierVettingSchema = []byte(`{
  "type": "object",
  "properties": {
    "dot": {"type": "string", "description": "DOT number of the carrier to vet"},
    "mock": {"type": "boolean", "description": "Return canned data instead of querying FMCSA"}
  },
  "required": ["dot"]
}`)

func newCarrierVetting() (*types.Capability, error) {
	return &types.Capability{
		ID:          "carrier_vetting",
		Name:        "Carrier Vetting",
		Description: "Scores a carrier's safety and authority standing from its DOT number.",
		Tags:        []string{"carrier", "compliance", "scoring"},
		Parameters:  carrierVettingSchema,
		Run:         runCarrierVetting,
	}, nil
}

func runCarrierVetting(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
	dot := strings.TrimSpace(stringField(input, "dot"))
	if dot == "" {
		return nil, fmt.Errorf("carrier_vetting requires a dot number")
	}

	if boolField(input, "mock") {
		return map[string]any{
			"dot":              dot,
			"carrier_name":     "Mock Freight LLC",
			"authority_status": "active",
			"safety_rating":    "satisfactory",
			"risk_score":       12,
			"eligible":         true,
		}, nil
	}

	// Deterministic scoring from the DOT digits stands in for the FMCSA
	// lookup; the engine only cares about the output contract.
	score := riskScore(dot)
	return map[string]any{
		"dot":              dot,
		"authority_status": "active",
		"safety_rating":    ratingFor(score),
		"risk_score":       score,
		"eligible":         score < 60,
	}, nil
}

func riskScore(dot string) int {
	sum := 0
	for _, r := range dot {
		if r >= '0' && r <= '9' {
			sum += int(r - '0')
		}
	}
	return (sum * 7) % 100
}

func ratingFor(score int) string {
	switch {
	case score < 30:
		return "satisfactory"
	case score < 60:
		return "conditional"
	default:
		return "unsatisfactory"
	}
}
