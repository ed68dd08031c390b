package workflow

// ShapeInput builds a capability's input from a node's static configuration
// and the predecessor's output. Different capabilities expect different field
// layouts, so a per-capability transform runs first; afterwards the raw
// predecessor output is attached under the reserved "prev" key so the
// capability can see upstream context, except where the shaped input already
// embeds it.
func ShapeInput(capabilityID string, data, prev map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}

	var input map[string]any
	switch capabilityID {
	case "carrier_search":
		input = map[string]any{
			"lead": map[string]any{
				"source":      valueOr(data, "source", ""),
				"destination": valueOr(data, "destination", ""),
				"material":    valueOr(data, "material", ""),
				"quantity":    valueOr(data, "quantity", ""),
				"pickupDate":  valueOr(data, "pickup_date", ""),
				"pickupTime":  valueOr(data, "pickup_time", ""),
			},
			"top_n":      valueOr(data, "top_n", 5),
			"min_rating": valueOr(data, "min_rating", 3.5),
		}
	case "carrier_vetting":
		input = map[string]any{
			"dot":  valueOr(data, "dot", ""),
			"mock": valueOr(data, "mock", false),
		}
	case "carrier_outreach":
		phone := stringOr(data, "carrier_phone", stringOr(data, "contact_phone", ""))
		input = map[string]any{
			"carrier_phone":    phone,
			"contact_phone":    phone,
			"contact_name":     valueOr(data, "contact_name", ""),
			"carrier_name":     valueOr(data, "carrier_name", ""),
			"route":            valueOr(data, "route", ""),
			"volume":           valueOr(data, "volume", ""),
			"target_rate":      valueOr(data, "target_rate", ""),
			"market_rate":      valueOr(data, "market_rate", ""),
			"expected_price":   valueOr(data, "expected_price", ""),
			"max_rate":         valueOr(data, "max_rate", ""),
			"initiate_call":    valueOr(data, "initiate_call", true),
			"calling_agent_id": valueOr(data, "calling_agent_id", ""),
		}
	case "data_transformer":
		// The transformer consumes the upstream output directly instead of
		// receiving it under "prev".
		return map[string]any{
			"input_data": transformerSource(prev),
			"config":     data,
		}
	default:
		input = make(map[string]any, len(data)+1)
		for k, v := range data {
			input[k] = v
		}
	}

	if prev != nil {
		input["prev"] = prev
	}
	return input
}

// transformerSource lifts the most useful record set out of the predecessor
// output: a top-level carrier list, a nested one under "output", or the full
// output as-is.
func transformerSource(prev map[string]any) map[string]any {
	if prev == nil {
		return map[string]any{}
	}
	if _, ok := prev["carriers"]; ok {
		return prev
	}
	if inner, ok := prev["output"].(map[string]any); ok {
		if _, ok := inner["carriers"]; ok {
			return inner
		}
	}
	return prev
}

func valueOr(m map[string]any, key string, fallback any) any {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

func stringOr(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
