package capabilities

import (
	"context"

	"github.com/pangents/orchestrator/types"
)

var dataTransformerSchema = []byte(`{
  "type": "object",
  "properties": {
    "input_data": {"type": "object", "description": "Data to transform, usually the upstream node's output"},
    "config": {
      "type": "object",
      "properties": {
        "extract": {"type": "string", "description": "Key to lift out of input_data"},
        "fields": {"type": "array", "items": {"type": "string"}, "description": "Projection applied to each record"},
        "limit": {"type": "integer", "description": "Maximum number of records to keep"}
      }
    }
  },
  "required": ["input_data"]
}`)

func newDataTransformer() (*types.Capability, error) {
	return &types.Capability{
		ID:          "data_transformer",
		Name:        "Data Transformer",
		Description: "Reshapes upstream output by extraction, projection, and truncation.",
		Tags:        []string{"data", "transform"},
		Parameters:  dataTransformerSchema,
		Run:         runDataTransformer,
	}, nil
}

func runDataTransformer(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
	data := input["input_data"]
	config := mapField(input, "config")
	if config == nil {
		config = map[string]any{}
	}

	if key := stringField(config, "extract"); key != "" {
		if m, ok := data.(map[string]any); ok {
			if v, present := m[key]; present {
				data = v
			}
		}
	}

	records, isList := data.([]any)
	if isList {
		if limit := intField(config, "limit", 0); limit > 0 && limit < len(records) {
			records = records[:limit]
		}
		if fields := stringSlice(config["fields"]); len(fields) > 0 {
			projected := make([]any, 0, len(records))
			for _, rec := range records {
				m, ok := rec.(map[string]any)
				if !ok {
					projected = append(projected, rec)
					continue
				}
				kept := make(map[string]any, len(fields))
				for _, f := range fields {
					if v, present := m[f]; present {
						kept[f] = v
					}
				}
				projected = append(projected, kept)
			}
			records = projected
		}
		return map[string]any{"output": records, "count": len(records)}, nil
	}

	return map[string]any{"output": data}, nil
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
