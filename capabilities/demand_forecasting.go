package capabilities

import (
	"context"

	"github.com/pangents/orchestrator/types"
)

var demandForecastingSchema = []byte(`{
  "type": "object",
  "properties": {
    "lane": {"type": "string", "description": "Origin-destination lane, e.g. ATL-DFW"},
    "horizon_weeks": {"type": "integer", "description": "Forecast horizon in weeks", "default": 4}
  }
}`)

func newDemandForecasting() (*types.Capability, error) {
	return &types.Capability{
		ID:          "demand_forecasting",
		Name:        "Demand Forecasting",
		Description: "Projects freight demand for a lane over the coming weeks.",
		Tags:        []string{"analytics", "forecasting"},
		Parameters:  demandForecastingSchema,
		Run:         runDemandForecasting,
	}, nil
}

func runDemandForecasting(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
	lane := stringField(input, "lane")
	if lane == "" {
		lane = "all_lanes"
	}
	horizon := intField(input, "horizon_weeks", 4)
	if horizon < 1 {
		horizon = 1
	}

	// Canned projection: flat baseline plus a mild weekly ramp.
	baseline := 118
	forecast := make([]any, 0, horizon)
	for week := 1; week <= horizon; week++ {
		forecast = append(forecast, map[string]any{
			"week":  week,
			"loads": baseline + week*3,
		})
	}

	return map[string]any{
		"lane":          lane,
		"horizon_weeks": horizon,
		"forecast":      forecast,
		"confidence":    0.78,
	}, nil
}
