package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pangents/orchestrator/entitlement"
	"github.com/pangents/orchestrator/types"
)

// CapabilityCatalog lists registered capabilities and their parameter schemas.
type CapabilityCatalog interface {
	List() []types.Info
	Schema(id string) (json.RawMessage, bool)
}

// Invoker runs a single capability through the entitlement and metering
// pipeline.
type Invoker interface {
	Invoke(ctx context.Context, ec types.ExecutionContext, capabilityID string, input map[string]any) (map[string]any, types.Usage, error)
}

// CapabilityHandler serves the capability catalog, direct invocation, and
// the natural-language ask endpoint.
type CapabilityHandler struct {
	catalog      CapabilityCatalog
	invoker      Invoker
	integrations entitlement.IntegrationResolver
	provider     string
	logger       *zap.Logger
}

// NewCapabilityHandler creates a capability handler. A nil integrations
// resolver disables calling-config resolution.
func NewCapabilityHandler(catalog CapabilityCatalog, invoker Invoker, integrations entitlement.IntegrationResolver, logger *zap.Logger) *CapabilityHandler {
	if integrations == nil {
		integrations = entitlement.NoIntegrations{}
	}
	return &CapabilityHandler{
		catalog:      catalog,
		invoker:      invoker,
		integrations: integrations,
		provider:     "elevenlabs",
		logger:       logger.With(zap.String("handler", "capability")),
	}
}

// InvokeRequest is the body of POST /v1/invoke.
type InvokeRequest struct {
	CapabilityID string         `json:"capability_id"`
	Input        map[string]any `json:"input"`
}

// InvokeResponse is the success payload of POST /v1/invoke.
type InvokeResponse struct {
	CapabilityID string         `json:"capability_id"`
	Output       map[string]any `json:"output"`
	Usage        types.Usage    `json:"usage"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string         `json:"question"`
	Context  map[string]any `json:"context,omitempty"`
}

// AskResponse is the payload of POST /v1/ask.
type AskResponse struct {
	Route        string         `json:"route"`
	CapabilityID string         `json:"capability_id,omitempty"`
	Result       map[string]any `json:"result,omitempty"`
	Note         string         `json:"note,omitempty"`
}

// HandleList handles GET /v1/capabilities.
func (h *CapabilityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]any{
		"capabilities": h.catalog.List(),
	})
}

// HandleSchema handles GET /v1/capabilities/{id}/schema.
func (h *CapabilityHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	schema, ok := h.catalog.Schema(id)
	if !ok {
		WriteError(w, types.NewNotFoundError("capability "+id+" not found"), h.logger)
		return
	}
	if len(schema) == 0 {
		schema = json.RawMessage("{}")
	}

	WriteSuccess(w, map[string]any{
		"capability_id": id,
		"parameters":    schema,
	})
}

// HandleInvoke handles POST /v1/invoke.
func (h *CapabilityHandler) HandleInvoke(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	var req InvokeRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.CapabilityID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "capability_id is required", h.logger)
		return
	}

	ec := h.executionContext(r, tenantID)

	output, usage, err := h.invoker.Invoke(r.Context(), ec, req.CapabilityID, req.Input)
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	WriteSuccess(w, InvokeResponse{
		CapabilityID: req.CapabilityID,
		Output:       output,
		Usage:        usage,
	})
}

// HandleAsk handles POST /v1/ask. It routes a natural-language question to a
// capability by keyword, then invokes it through the same pipeline as
// /v1/invoke.
func (h *CapabilityHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	var req AskRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "question is required", h.logger)
		return
	}

	capabilityID := RouteQuestion(question)
	if capabilityID == "" {
		WriteSuccess(w, AskResponse{
			Route: "none",
			Note:  "could not determine capability for question",
		})
		return
	}

	input := req.Context
	if input == nil {
		input = make(map[string]any)
	}
	extractParams(capabilityID, question, input)

	ec := h.executionContext(r, tenantID)

	output, usage, err := h.invoker.Invoke(r.Context(), ec, capabilityID, input)
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	WriteSuccess(w, AskResponse{
		Route:        "capability",
		CapabilityID: capabilityID,
		Result: map[string]any{
			"capability_id": capabilityID,
			"output":        output,
			"usage":         usage,
		},
	})
}

func (h *CapabilityHandler) executionContext(r *http.Request, tenantID string) types.ExecutionContext {
	userID, _ := types.UserID(r.Context())
	return types.ExecutionContext{
		TenantID:      tenantID,
		UserID:        userID,
		CallingConfig: h.integrations.Resolve(r.Context(), h.provider, r.Header.Get("Authorization")),
	}
}

// keywordRoute maps question keywords to a capability. Routes are checked in
// order and the first keyword hit wins, so more specific phrases come first.
type keywordRoute struct {
	keywords     []string
	capabilityID string
}

var keywordRoutes = []keywordRoute{
	{[]string{"forecast", "demand"}, "demand_forecasting"},
	{[]string{"route", "optimiz", "eta"}, "route_optimization"},
	{[]string{"inventory", "reorder", "stock", "order", "orders"}, "inventory_management"},
	{[]string{"track", "status", "where is"}, "real_time_tracking"},
	{[]string{"insight", "kpi", "performance"}, "freight_insights"},
	{[]string{"audit", "invoice", "overcharge"}, "freight_audit_pay"},
	{[]string{"carrier vet", "vet carrier", "vetting", "carrier", "dot "}, "carrier_vetting"},
	{[]string{"call carrier", "outreach", "call "}, "carrier_outreach"},
	{[]string{"search carrier", "find carrier", "lead", "leads"}, "carrier_search"},
}

// RouteQuestion picks the capability for a question by keyword matching.
// It returns "" when no route matches.
func RouteQuestion(question string) string {
	q := strings.ToLower(question)
	for _, route := range keywordRoutes {
		for _, kw := range route.keywords {
			if strings.Contains(q, kw) {
				return route.capabilityID
			}
		}
	}
	return ""
}

var dotNumberPattern = regexp.MustCompile(`\b(\d{5,8})\b`)

// extractParams pulls capability parameters out of the question text.
// Context-supplied values always win over extracted ones.
func extractParams(capabilityID, question string, input map[string]any) {
	if capabilityID != "carrier_vetting" {
		return
	}
	if _, ok := input["dot"]; ok {
		return
	}
	if m := dotNumberPattern.FindStringSubmatch(question); m != nil {
		input["dot"] = m[1]
	}
}
