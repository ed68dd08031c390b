package capabilities

import (
	"context"
	"sort"

	"github.com/pangents/orchestrator/types"
)

var routeOptimizationSchema = []byte(`{
  "type": "object",
  "properties": {
    "origin": {"type": "string", "description": "Origin city or facility code"},
    "destination": {"type": "string", "description": "Destination city or facility code"},
    "stops": {"type": "array", "items": {"type": "string"}, "description": "Intermediate stops to sequence"}
  }
}`)

func newRouteOptimization() (*types.Capability, error) {
	return &types.Capability{
		ID:          "route_optimization",
		Name:        "Route Optimization",
		Description: "Sequences stops and estimates transit time for a load.",
		Tags:        []string{"routing", "planning"},
		Parameters:  routeOptimizationSchema,
		Run:         runRouteOptimization,
	}, nil
}

func runRouteOptimization(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
	origin := stringField(input, "origin")
	if origin == "" {
		origin = "unknown_origin"
	}
	destination := stringField(input, "destination")
	if destination == "" {
		destination = "unknown_destination"
	}

	var stops []string
	if raw, ok := input["stops"].([]any); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				stops = append(stops, str)
			}
		}
	}
	// Deterministic stand-in for a real solver.
	sort.Strings(stops)

	miles := 640 + 85*len(stops)
	route := make([]any, 0, len(stops)+2)
	route = append(route, origin)
	for _, s := range stops {
		route = append(route, s)
	}
	route = append(route, destination)

	return map[string]any{
		"route":          route,
		"total_miles":    miles,
		"eta_hours":      float64(miles) / 52.0,
		"fuel_cost_usd":  float64(miles) * 0.48,
		"stops_resolved": len(stops),
	}, nil
}
