package types

import "time"

// Usage reports the measured cost of one capability invocation back to the
// caller alongside the output.
type Usage struct {
	DurationMs int64 `json:"duration_ms"`
}

// UsageEvent is the billing-relevant record of one capability invocation
// emitted to the external metering collector. Cost and token fields are only
// set when the capability reports them in its output.
type UsageEvent struct {
	CapabilityID string    `json:"capability_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	CostUSD      *float64  `json:"cost_usd,omitempty"`
	InputTokens  *int      `json:"input_tokens,omitempty"`
	OutputTokens *int      `json:"output_tokens,omitempty"`
	At           time.Time `json:"at"`
}

// EnrichFromOutput copies optional cost/token fields the capability reported
// in its output into the event. Unknown or mistyped fields are ignored.
func (e *UsageEvent) EnrichFromOutput(output map[string]any) {
	if output == nil {
		return
	}
	if v, ok := asFloat(output["cost_usd"]); ok {
		e.CostUSD = &v
	}
	if v, ok := asInt(output["input_tokens"]); ok {
		e.InputTokens = &v
	}
	if v, ok := asInt(output["output_tokens"]); ok {
		e.OutputTokens = &v
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
