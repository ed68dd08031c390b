package workflow

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeInput_CarrierSearchNestsLead(t *testing.T) {
	data := map[string]any{
		"source":      "Chicago",
		"destination": "Dallas",
		"material":    "steel",
		"pickup_date": "2026-09-01",
		"top_n":       3,
	}

	input := ShapeInput("carrier_search", data, nil)

	lead, ok := input["lead"].(map[string]any)
	require.True(t, ok, "carrier_search inputs nest under lead")
	assert.Equal(t, "Chicago", lead["source"])
	assert.Equal(t, "2026-09-01", lead["pickupDate"])
	assert.Equal(t, 3, input["top_n"])
	assert.Equal(t, 3.5, input["min_rating"], "default applied")
}

func TestShapeInput_CarrierVettingFlat(t *testing.T) {
	input := ShapeInput("carrier_vetting", map[string]any{"dot": "125550", "ignored": "x"}, nil)
	assert.Equal(t, map[string]any{"dot": "125550", "mock": false}, input)
}

func TestShapeInput_CarrierOutreachPhoneFallback(t *testing.T) {
	input := ShapeInput("carrier_outreach", map[string]any{"contact_phone": "+15550001111"}, nil)
	assert.Equal(t, "+15550001111", input["carrier_phone"])
	assert.Equal(t, "+15550001111", input["contact_phone"])
	assert.Equal(t, true, input["initiate_call"])
}

func TestShapeInput_AttachesPrev(t *testing.T) {
	prev := map[string]any{"eligible": true}
	input := ShapeInput("carrier_outreach", map[string]any{"carrier_phone": "+1555"}, prev)
	assert.Equal(t, prev, input["prev"])

	noPrev := ShapeInput("carrier_vetting", map[string]any{"dot": "1"}, nil)
	assert.NotContains(t, noPrev, "prev")
}

func TestShapeInput_DataTransformerConsumesPrevDirectly(t *testing.T) {
	prev := map[string]any{"carriers": []any{map[string]any{"carrier_name": "A"}}}
	config := map[string]any{"limit": 1}

	input := ShapeInput("data_transformer", config, prev)
	assert.Equal(t, prev, input["input_data"])
	assert.Equal(t, config, input["config"])
	assert.NotContains(t, input, "prev")
}

func TestShapeInput_DataTransformerUnwrapsNestedOutput(t *testing.T) {
	inner := map[string]any{"carriers": []any{}}
	prev := map[string]any{"output": inner}

	input := ShapeInput("data_transformer", nil, prev)
	assert.Equal(t, inner, input["input_data"])
}

func TestShapeInput_DefaultPassthrough(t *testing.T) {
	data := map[string]any{"question": "kpis?"}
	input := ShapeInput("freight_insights", data, map[string]any{"x": 1})
	assert.Equal(t, "kpis?", input["question"])
	assert.Contains(t, input, "prev")

	// The node's own configuration is not mutated by prev attachment.
	assert.NotContains(t, data, "prev")
}

func TestProperty_ShapeInputNeverMutatesNodeData(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("shaped input always carries prev for non-transformer capabilities", prop.ForAll(
		func(capabilityID, key, value string) bool {
			data := map[string]any{key: value}
			prev := map[string]any{"upstream": true}

			input := ShapeInput(capabilityID, data, prev)

			if capabilityID == "data_transformer" {
				return input["prev"] == nil
			}
			got, ok := input["prev"].(map[string]any)
			if !ok || !got["upstream"].(bool) {
				return false
			}
			// The source map must stay untouched.
			_, leaked := data["prev"]
			return !leaked
		},
		gen.OneConstOf("carrier_vetting", "carrier_search", "carrier_outreach", "data_transformer", "freight_insights", "anything_else"),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
