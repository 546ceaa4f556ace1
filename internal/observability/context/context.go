// Package context carries request-scoped correlation values through
// context.Context for logs, traces and metrics.
package context

import (
	"context"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
)

type actor struct {
	id   string
	role string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithActor records the member performing the request.
func WithActor(ctx context.Context, memberID, role string) context.Context {
	return context.WithValue(ctx, actorKey, actor{
		id:   strings.TrimSpace(memberID),
		role: strings.TrimSpace(role),
	})
}

// ActorFromContext returns the member id and role, empty for anonymous requests.
func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, _ := ctx.Value(actorKey).(actor)
	return value.id, value.role
}
