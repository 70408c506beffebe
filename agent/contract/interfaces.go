package contract

import (
	"context"
	"time"
)

// InvokeFunc is the surface every shipped tool implements. Implementations
// should honor ctx cancellation; the executor copes if they do not.
type InvokeFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

// Planner decides the next action for a turn: run tool calls or finish.
type Planner interface {
	Decide(ctx context.Context, view SessionView) (PlannerDecision, error)
}

// Memory is durable scoped key/value storage. Implementations wrap
// backend failures in ErrStorageUnavailable so callers can degrade
// instead of failing the turn.
type Memory interface {
	Get(ctx context.Context, scope MemoryScope, key string) (MemoryRecord, error)
	Set(ctx context.Context, scope MemoryScope, key, value string, ttl time.Duration) error
	Query(ctx context.Context, scope MemoryScope, prefix string) ([]MemoryRecord, error)
}

type sessionIDKey struct{}

// WithSessionID tags ctx with the session owning the current turn so that
// session-aware tools (memory.store and friends) can resolve their scope.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFrom extracts the session id placed by WithSessionID.
func SessionIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok && id != ""
}
