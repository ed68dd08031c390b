package capabilities

import (
	"context"

	"github.com/pangents/orchestrator/types"
)

var freightInsightsSchema = []byte(`{
  "type": "object",
  "properties": {
    "question": {"type": "string", "description": "Natural-language question about freight KPIs"},
    "period": {"type": "string", "description": "Reporting period, e.g. last_30_days"}
  }
}`)

func newFreightInsights() (*types.Capability, error) {
	return &types.Capability{
		ID:          "freight_insights",
		Name:        "Freight Insights",
		Description: "Summarizes freight performance KPIs for a tenant.",
		Tags:        []string{"analytics", "kpi", "llm"},
		Parameters:  freightInsightsSchema,
		Run:         runFreightInsights,
	}, nil
}

func runFreightInsights(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
	period := stringField(input, "period")
	if period == "" {
		period = "last_30_days"
	}

	// Canned analytics; the token and cost fields feed metering enrichment.
	return map[string]any{
		"period": period,
		"kpis": map[string]any{
			"on_time_delivery_pct": 94.2,
			"avg_cost_per_mile":    2.41,
			"loads_completed":      128,
		},
		"insights": []any{
			"On-time delivery improved 1.8 points over the prior period.",
			"Spot-market exposure remains above the 20% target.",
		},
		"input_tokens":  350,
		"output_tokens": 120,
		"cost_usd":      0.0041,
	}, nil
}
