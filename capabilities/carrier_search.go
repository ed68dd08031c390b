package capabilities

import (
	"context"
	"fmt"

	"github.com/pangents/orchestrator/types"
)

var carrierSearchSchema = []byte(`{
  "type": "object",
  "properties": {
    "lead": {
      "type": "object",
      "properties": {
        "source": {"type": "string"},
        "destination": {"type": "string"},
        "material": {"type": "string"},
        "quantity": {"type": "string"},
        "pickupDate": {"type": "string"},
        "pickupTime": {"type": "string"}
      }
    },
    "top_n": {"type": "integer", "default": 5},
    "min_rating": {"type": "number", "default": 3.5}
  },
  "required": ["lead"]
}`)

func newCarrierSearch() (*types.Capability, error) {
	return &types.Capability{
		ID:          "carrier_search",
		Name:        "Carrier Search",
		Description: "Ranks candidate carriers for a freight lead.",
		Tags:        []string{"carrier", "search", "ranking"},
		Parameters:  carrierSearchSchema,
		Run:         runCarrierSearch,
	}, nil
}

func runCarrierSearch(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
	lead := mapField(input, "lead")
	if lead == nil {
		return nil, fmt.Errorf("carrier_search requires a lead object")
	}

	topN := intField(input, "top_n", 5)
	if topN < 1 {
		topN = 1
	}
	minRating := floatField(input, "min_rating", 3.5)

	source := stringField(lead, "source")
	destination := stringField(lead, "destination")

	carriers := make([]map[string]any, 0, topN)
	for i := 0; i < topN; i++ {
		rating := 5.0 - float64(i)*0.3
		if rating < minRating {
			break
		}
		carriers = append(carriers, map[string]any{
			"carrier_name":  fmt.Sprintf("Carrier %c Logistics", 'A'+i),
			"carrier_phone": fmt.Sprintf("+1555%07d", 1000000+i),
			"rating":        rating,
			"lane":          source + " -> " + destination,
			"equipment":     stringField(lead, "material"),
		})
	}

	return map[string]any{
		"carriers": carriers,
		"count":    len(carriers),
		"lead":     lead,
	}, nil
}
