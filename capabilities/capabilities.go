// Package capabilities bundles the built-in capability builders handed to the
// registry at process start. Each capability is a self-contained unit with a
// stable id, a parameter schema, and a run function; the orchestration engine
// treats their internals as opaque.
package capabilities

import (
	"github.com/pangents/orchestrator/registry"
)

// Builders returns every built-in capability builder in registration order.
func Builders() []registry.Builder {
	return []registry.Builder{
		newCarrierVetting,
		newCarrierSearch,
		newCarrierOutreach,
		newDataTransformer,
		newFreightInsights,
		newDemandForecasting,
		newRouteOptimization,
		newInventoryManagement,
		newRealTimeTracking,
		newFreightAuditPay,
	}
}
