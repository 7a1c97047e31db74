// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import (
	"context"

	"github.com/recordkit/recordkit/pkg/record"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ActorKey contains the record.Actor performing the request
	// Set by: middleware.IdentityMiddleware (pkg/middleware/identity.go)
	// Used by: All record endpoints, change-log stamping, privilege checks
	// Type: record.Actor
	ActorKey Key = "actor"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestIDMiddleware
	// Used by: Logger, response headers
	// Type: string
	RequestIDKey Key = "request_id"
)

// WithActor adds the acting identity to the context
func WithActor(ctx context.Context, actor record.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor retrieves the acting identity from context. Requests that never
// passed through the identity middleware act as the anonymous system actor.
func GetActor(ctx context.Context) record.Actor {
	if actor, ok := ctx.Value(ActorKey).(record.Actor); ok {
		return actor
	}
	return record.SystemActor()
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
