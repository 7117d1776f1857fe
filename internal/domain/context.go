package domain

import "context"

type ctxKey string

const sessionCtxKey ctxKey = "session_id"

// ContextWithSessionID tags the context with the gateway session that
// originated a request. Events published while handling the request
// carry the id, so the UI can tell its own mutations apart from the
// agent's.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionCtxKey, sessionID)
}

// SessionIDFromContext returns the originating session id, or "" for
// work that did not come through the gateway (MCP stdio, timers).
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionCtxKey).(string); ok {
		return v
	}
	return ""
}
