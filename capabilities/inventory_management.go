package capabilities

import (
	"context"
	"math"

	"github.com/pangents/orchestrator/types"
)

var inventoryManagementSchema = []byte(`{
  "type": "object",
  "properties": {
    "sku": {"type": "string", "description": "Stock keeping unit"},
    "current_stock": {"type": "integer", "description": "Units currently on hand"},
    "daily_demand": {"type": "number", "description": "Average units consumed per day"},
    "lead_time_days": {"type": "integer", "description": "Replenishment lead time", "default": 7}
  }
}`)

func newInventoryManagement() (*types.Capability, error) {
	return &types.Capability{
		ID:          "inventory_management",
		Name:        "Inventory Management",
		Description: "Computes reorder points and replenishment quantities for a SKU.",
		Tags:        []string{"inventory", "planning"},
		Parameters:  inventoryManagementSchema,
		Run:         runInventoryManagement,
	}, nil
}

func runInventoryManagement(ctx context.Context, ec types.ExecutionContext, input map[string]any) (map[string]any, error) {
	sku := stringField(input, "sku")
	if sku == "" {
		sku = "unspecified"
	}
	currentStock := intField(input, "current_stock", 0)
	dailyDemand := floatField(input, "daily_demand", 12)
	leadTime := intField(input, "lead_time_days", 7)
	if leadTime < 1 {
		leadTime = 1
	}

	// Reorder point = demand over lead time plus a 20% safety buffer.
	reorderPoint := int(math.Ceil(dailyDemand * float64(leadTime) * 1.2))
	reorderQty := int(math.Ceil(dailyDemand * 14))

	daysOfCover := 0.0
	if dailyDemand > 0 {
		daysOfCover = float64(currentStock) / dailyDemand
	}

	return map[string]any{
		"sku":            sku,
		"current_stock":  currentStock,
		"reorder_point":  reorderPoint,
		"reorder_qty":    reorderQty,
		"days_of_cover":  daysOfCover,
		"reorder_needed": currentStock <= reorderPoint,
	}, nil
}
