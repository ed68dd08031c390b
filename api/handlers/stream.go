package handlers

import (
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/pangents/orchestrator/types"
	"github.com/pangents/orchestrator/workflow"
)

// runStreamResult is the final frame of a streamed run, sent after all
// per-node events.
type runStreamResult struct {
	Type    string             `json:"type"`
	Results workflow.RunResult `json:"results"`
	Error   *ErrorInfo         `json:"error,omitempty"`
}

// HandleRunStream handles GET /v1/workflows/{id}/run/stream. It upgrades
// the connection to a websocket, streams run events as the workflow
// executes, and closes with a final result frame.
func (h *WorkflowHandler) HandleRunStream(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	// Not found is reported over plain HTTP before any upgrade happens.
	def, err := h.store.Get(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		WriteErrorFrom(w, err, h.logger)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()
	userID, _ := types.UserID(ctx)
	ec := types.ExecutionContext{
		TenantID:      tenantID,
		UserID:        userID,
		CallingConfig: h.integrations.Resolve(ctx, h.provider, r.Header.Get("Authorization")),
	}

	// The observer runs on the run's goroutine, so a dead connection stops
	// the stream without racing the runner.
	observer := func(event workflow.RunEvent) {
		if werr := wsjson.Write(ctx, conn, event); werr != nil {
			h.logger.Debug("run event dropped, client gone", zap.Error(werr))
		}
	}

	results, runErr := h.runner.Run(ctx, ec, def, observer)

	final := runStreamResult{
		Type:    "result",
		Results: results,
	}
	if runErr != nil {
		var typed *types.Error
		if errors.As(runErr, &typed) {
			final.Error = &ErrorInfo{
				Code:      string(typed.Code),
				Message:   typed.Message,
				NodeID:    typed.NodeID,
				Retryable: typed.Retryable,
			}
		} else {
			final.Error = &ErrorInfo{
				Code:    string(types.ErrInternalError),
				Message: runErr.Error(),
			}
		}
	}

	if werr := wsjson.Write(ctx, conn, final); werr != nil {
		h.logger.Debug("final result dropped, client gone", zap.Error(werr))
		return
	}

	conn.Close(websocket.StatusNormalClosure, "run complete")
}
