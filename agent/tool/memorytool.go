package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

const (
	ToolMemoryStore  = "memory.store"
	ToolMemoryRecall = "memory.recall"
	ToolMemoryList   = "memory.list"

	memoryFactPrefix = "fact:"
	memoryPreviewLen = 100
)

// MemoryTools expose the memory store to the planner so the assistant can
// remember preferences and constraints across turns. Facts live under a
// dedicated key prefix, away from the orchestrator's turn digests.
type MemoryTools struct {
	store contractx.Memory
	ttl   time.Duration
}

func NewMemoryTools(store contractx.Memory, ttl time.Duration) *MemoryTools {
	return &MemoryTools{store: store, ttl: ttl}
}

// scopeFor resolves the target scope: per-session by default, the
// long-lived user scope when the call asks for it. Both are keyed by the
// caller-supplied opaque id of the active session.
func scopeFor(ctx context.Context, args map[string]any) (contractx.MemoryScope, error) {
	id, ok := contractx.SessionIDFrom(ctx)
	if !ok {
		return contractx.MemoryScope{}, errors.New("no session in context")
	}
	if kind, _ := args["scope"].(string); strings.EqualFold(strings.TrimSpace(kind), string(contractx.ScopeUser)) {
		return contractx.UserScope(id), nil
	}
	return contractx.SessionScope(id), nil
}

func (t *MemoryTools) Store(ctx context.Context, args map[string]any) (map[string]any, error) {
	key, _ := args["key"].(string)
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: key is empty", contractx.ErrValidation)
	}
	value, _ := args["value"].(string)
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: value is empty", contractx.ErrValidation)
	}

	scope, err := scopeFor(ctx, args)
	if err != nil {
		return nil, err
	}

	ttl := t.ttl
	if scope.Kind == contractx.ScopeUser {
		ttl = 0 // user facts do not expire
	}
	if err := t.store.Set(ctx, scope, memoryFactPrefix+key, value, ttl); err != nil {
		return nil, err
	}

	return map[string]any{
		"stored": true,
		"key":    key,
		"scope":  string(scope.Kind),
	}, nil
}

func (t *MemoryTools) Recall(ctx context.Context, args map[string]any) (map[string]any, error) {
	key, _ := args["key"].(string)
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: key is empty", contractx.ErrValidation)
	}

	scope, err := scopeFor(ctx, args)
	if err != nil {
		return nil, err
	}

	rec, err := t.store.Get(ctx, scope, memoryFactPrefix+key)
	if err != nil {
		if errors.Is(err, contractx.ErrMemoryNotFound) {
			return map[string]any{
				"found": false,
				"key":   key,
			}, nil
		}
		return nil, err
	}

	return map[string]any{
		"found":      true,
		"key":        key,
		"value":      rec.Value,
		"written_at": rec.WrittenAt.Format(time.RFC3339),
	}, nil
}

func (t *MemoryTools) List(ctx context.Context, args map[string]any) (map[string]any, error) {
	scope, err := scopeFor(ctx, args)
	if err != nil {
		return nil, err
	}

	records, err := t.store.Query(ctx, scope, memoryFactPrefix)
	if err != nil {
		return nil, err
	}

	keys := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		preview := rec.Value
		if len(preview) > memoryPreviewLen {
			preview = preview[:memoryPreviewLen] + "..."
		}
		keys = append(keys, map[string]any{
			"key":        strings.TrimPrefix(rec.Key, memoryFactPrefix),
			"preview":    preview,
			"written_at": rec.WrittenAt.Format(time.RFC3339),
		})
	}

	return map[string]any{
		"scope": string(scope.Kind),
		"keys":  keys,
	}, nil
}
