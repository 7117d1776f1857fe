package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"canvasd/internal/domain"
	"canvasd/internal/usecase/canvas"
)

// HandlerDeps holds dependencies needed by RPC handlers.
type HandlerDeps struct {
	Ops    *canvas.Ops
	UI     *canvas.UIStore // can be nil
	Tools  domain.ToolExecutor
	Broker *ChoiceBroker
	Bus    domain.EventBus
	Logger *slog.Logger
}

// RegisterDefaultHandlers registers all built-in RPC handlers on the server.
func RegisterDefaultHandlers(s *Server, deps HandlerDeps) {
	s.RegisterHandler("state.get", stateGetHandler(deps))
	s.RegisterHandler("tool.list", toolListHandler(deps))
	s.RegisterHandler("tool.invoke", toolInvokeHandler(deps))
	s.RegisterHandler("choice.resolve", choiceResolveHandler(deps))
	s.RegisterHandler("ui.flags.get", uiFlagsGetHandler(deps))
	s.RegisterHandler("ui.flags.set", uiFlagsSetHandler(deps))
}

func stateGetHandler(deps HandlerDeps) RPCHandler {
	return func(_ context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(deps.Ops.Store().State().Project())
	}
}

func toolListHandler(deps HandlerDeps) RPCHandler {
	return func(_ context.Context, _ *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(deps.Tools.Schemas())
	}
}

// toolInvokeHandler runs a tool call. The request is a domain.ToolCall;
// the response is the ToolResult carrying the call id back as the
// correlation id, so the UI can match results to in-flight calls.
func toolInvokeHandler(deps HandlerDeps) RPCHandler {
	return func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var call domain.ToolCall
		if err := json.Unmarshal(payload, &call); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		tl, err := deps.Tools.Get(call.Name)
		if err != nil {
			return nil, err
		}

		publishToolEvent(deps, ctx, domain.EventToolCallStarted, map[string]string{
			"tool":    call.Name,
			"call_id": call.ID,
			"client":  client.Name,
		})
		start := time.Now()
		result, err := tl.Execute(ctx, call.Arguments)
		if err != nil {
			return nil, err
		}
		result.ToolCallID = call.ID
		publishToolEvent(deps, ctx, domain.EventToolCallCompleted, map[string]any{
			"tool":        call.Name,
			"call_id":     call.ID,
			"duration_ms": time.Since(start).Milliseconds(),
			"is_error":    result.IsError,
		})

		return json.Marshal(result)
	}
}

func choiceResolveHandler(deps HandlerDeps) RPCHandler {
	return func(_ context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var resp domain.ChoiceResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		if resp.ID == "" {
			return nil, domain.ErrRPCInvalidPayload
		}
		if !deps.Broker.Resolve(resp) {
			return nil, domain.NewDomainError("choice_resolve", domain.ErrNotFound, resp.ID)
		}
		return json.Marshal(map[string]bool{"resolved": true})
	}
}

type uiFlagsRequest struct {
	ItemID   string `json:"item_id"`
	Expanded bool   `json:"expanded"`
	Visible  bool   `json:"visible"`
}

func uiFlagsGetHandler(deps HandlerDeps) RPCHandler {
	return func(_ context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		if deps.UI == nil {
			return nil, domain.ErrRPCMethodNotFound
		}
		var req uiFlagsRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		f := deps.UI.Get(req.ItemID)
		return json.Marshal(map[string]bool{"expanded": f.Expanded, "visible": f.Visible})
	}
}

func uiFlagsSetHandler(deps HandlerDeps) RPCHandler {
	return func(_ context.Context, _ *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		if deps.UI == nil {
			return nil, domain.ErrRPCMethodNotFound
		}
		var req uiFlagsRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		if req.ItemID == "" {
			return nil, domain.ErrRPCInvalidPayload
		}
		deps.UI.Set(req.ItemID, canvas.ItemFlags{Expanded: req.Expanded, Visible: req.Visible})
		return json.Marshal(map[string]bool{"ok": true})
	}
}

func publishToolEvent(deps HandlerDeps, ctx context.Context, eventType domain.EventType, payload any) {
	if deps.Bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	deps.Bus.Publish(ctx, domain.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: domain.SessionIDFromContext(ctx),
		Payload:   data,
	})
}
