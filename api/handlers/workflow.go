package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pangents/orchestrator/entitlement"
	"github.com/pangents/orchestrator/types"
	"github.com/pangents/orchestrator/workflow"
)

// WorkflowStore persists per-tenant workflow definitions.
type WorkflowStore interface {
	List(ctx context.Context, tenantID string) ([]workflow.Summary, error)
	Create(ctx context.Context, tenantID string, def *workflow.Definition) (string, error)
	Get(ctx context.Context, tenantID, id string) (*workflow.Definition, error)
	Replace(ctx context.Context, tenantID, id string, def *workflow.Definition) error
	Delete(ctx context.Context, tenantID, id string) error
}

// WorkflowRunner executes a workflow definition.
type WorkflowRunner interface {
	Run(ctx context.Context, ec types.ExecutionContext, def *workflow.Definition, observer workflow.Observer) (workflow.RunResult, error)
}

// WorkflowHandler serves workflow CRUD and run endpoints.
type WorkflowHandler struct {
	store        WorkflowStore
	runner       WorkflowRunner
	capabilities workflow.CapabilityLister
	integrations entitlement.IntegrationResolver
	provider     string
	logger       *zap.Logger
}

// NewWorkflowHandler creates a workflow handler. A nil integrations resolver
// disables calling-config resolution.
func NewWorkflowHandler(store WorkflowStore, runner WorkflowRunner, capabilities workflow.CapabilityLister, integrations entitlement.IntegrationResolver, logger *zap.Logger) *WorkflowHandler {
	if integrations == nil {
		integrations = entitlement.NoIntegrations{}
	}
	return &WorkflowHandler{
		store:        store,
		runner:       runner,
		capabilities: capabilities,
		integrations: integrations,
		provider:     "elevenlabs",
		logger:       logger.With(zap.String("handler", "workflow")),
	}
}

// WorkflowRequest is the body of workflow create and update requests.
type WorkflowRequest struct {
	Name  string          `json:"name"`
	Nodes []workflow.Node `json:"nodes"`
	Edges []workflow.Edge `json:"edges"`
}

// HandleList handles GET /v1/workflows.
func (h *WorkflowHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	summaries, err := h.store.List(r.Context(), tenantID)
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}
	if summaries == nil {
		summaries = []workflow.Summary{}
	}

	WriteSuccess(w, map[string]any{"workflows": summaries})
}

// HandleCreate handles POST /v1/workflows.
func (h *WorkflowHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	def, ok := h.decodeDefinition(w, r)
	if !ok {
		return
	}

	id, err := h.store.Create(r.Context(), tenantID, def)
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	h.logger.Info("workflow created",
		zap.String("tenant_id", tenantID),
		zap.String("workflow_id", id),
	)

	WriteJSON(w, http.StatusCreated, Response{
		Success:   true,
		Data:      map[string]any{"id": id},
		Timestamp: time.Now(),
	})
}

// HandleGet handles GET /v1/workflows/{id}.
func (h *WorkflowHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	def, err := h.store.Get(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	WriteSuccess(w, def)
}

// HandleUpdate handles PUT /v1/workflows/{id}. The definition is replaced
// wholesale; an unknown id creates a workflow under that id.
func (h *WorkflowHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	def, ok := h.decodeDefinition(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.store.Replace(r.Context(), tenantID, id, def); err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	def.ID = id
	def.TenantID = tenantID
	WriteSuccess(w, def)
}

// HandleDelete handles DELETE /v1/workflows/{id}. Deleting an unknown id is
// a no-op.
func (h *WorkflowHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), tenantID, r.PathValue("id")); err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]any{"deleted": true})
}

// HandleRun handles POST /v1/workflows/{id}/run.
func (h *WorkflowHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	def, err := h.store.Get(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	userID, _ := types.UserID(r.Context())
	ec := types.ExecutionContext{
		TenantID:      tenantID,
		UserID:        userID,
		CallingConfig: h.integrations.Resolve(r.Context(), h.provider, r.Header.Get("Authorization")),
	}

	results, err := h.runner.Run(r.Context(), ec, def, nil)
	if err != nil {
		var typed *types.Error
		if errors.As(err, &typed) {
			// Completed-node outputs travel with the error so callers can
			// see how far the run got.
			status := typed.HTTPStatus
			if status == 0 {
				status = mapErrorCodeToHTTPStatus(typed.Code)
			}
			WriteJSON(w, status, Response{
				Success:   false,
				Data:      map[string]any{"results": results},
				Timestamp: time.Now(),
				Error: &ErrorInfo{
					Code:      string(typed.Code),
					Message:   typed.Message,
					NodeID:    typed.NodeID,
					Retryable: typed.Retryable,
				},
			})
			return
		}
		WriteErrorFrom(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]any{"results": results})
}

func (h *WorkflowHandler) decodeDefinition(w http.ResponseWriter, r *http.Request) (*workflow.Definition, bool) {
	var req WorkflowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return nil, false
	}

	def := &workflow.Definition{
		Name:  req.Name,
		Nodes: req.Nodes,
		Edges: req.Edges,
	}

	infos := h.capabilities.List()
	known := make([]string, 0, len(infos))
	for _, info := range infos {
		known = append(known, info.ID)
	}

	if verr := workflow.Validate(def, known); verr != nil {
		WriteError(w, verr, h.logger)
		return nil, false
	}

	return def, true
}
