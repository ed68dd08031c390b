package capabilities

import (
	"context"
	"math"

	"github.com/pangents/orchestrator/types"
)

var freightAuditPaySchema = []byte(`{
  "type": "object",
  "properties": {
    "invoice_id": {"type": "string", "description": "Carrier invoice identifier"},
    "invoiced_amount": {"type": "number", "description": "Amount on the invoice, USD"},
    "contracted_amount": {"type": "number", "description": "Contracted rate for the lane, USD"}
  }
}`)

func newFreightAuditPay() (*types.Capability, error) {
	return &types.Capability{
		ID:          "freight_audit_pay",
		Name:        "Freight Audit & Pay",
		Description: "Audits a carrier invoice against the contracted rate.",
		Tags:        []string{"audit", "billing"},
		Parameters:  freightAuditPaySchema,
		Run:         runFreightAuditPay,
	}, nil
}

func runFreightAuditPay(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
	invoiceID := stringField(input, "invoice_id")
	if invoiceID == "" {
		invoiceID = "unspecified"
	}
	invoiced := floatField(input, "invoiced_amount", 0)
	contracted := floatField(input, "contracted_amount", 0)

	variance := invoiced - contracted
	// Anything more than 2% over contract is flagged for review.
	flagged := contracted > 0 && variance > contracted*0.02

	recommendation := "approve"
	if flagged {
		recommendation = "dispute"
	}

	return map[string]any{
		"invoice_id":        invoiceID,
		"invoiced_amount":   invoiced,
		"contracted_amount": contracted,
		"variance_usd":      math.Round(variance*100) / 100,
		"flagged":           flagged,
		"recommendation":    recommendation,
	}, nil
}
