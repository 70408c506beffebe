package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

// InMemoryStore keeps records in process memory. It is the fallback backend
// when no database is configured and the workhorse for tests. Writes build
// the new record first and swap it in under the lock, so a concurrent read
// sees either the old or the new value, never neither.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]contractx.MemoryRecord
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]contractx.MemoryRecord, 32),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Get(_ context.Context, scope contractx.MemoryScope, key string) (contractx.MemoryRecord, error) {
	s.mu.RLock()
	rec, ok := s.records[recordKey(scope, key)]
	s.mu.RUnlock()

	if !ok || rec.Expired(s.now()) {
		return contractx.MemoryRecord{}, fmt.Errorf("%w: %s/%s", contractx.ErrMemoryNotFound, scope.Kind, key)
	}
	return rec, nil
}

func (s *InMemoryStore) Set(_ context.Context, scope contractx.MemoryScope, key, value string, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: memory key is empty", contractx.ErrValidation)
	}

	rec := contractx.MemoryRecord{
		Scope:     scope,
		Key:       key,
		Value:     value,
		WrittenAt: s.now().UTC(),
	}
	if ttl > 0 {
		expires := rec.WrittenAt.Add(ttl)
		rec.ExpiresAt = &expires
	}

	s.mu.Lock()
	s.records[recordKey(scope, key)] = rec
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, scope contractx.MemoryScope, prefix string) ([]contractx.MemoryRecord, error) {
	now := s.now()
	scopePrefix := recordKey(scope, prefix)

	s.mu.RLock()
	matches := make([]contractx.MemoryRecord, 0, 8)
	for key, rec := range s.records {
		if strings.HasPrefix(key, scopePrefix) && !rec.Expired(now) {
			matches = append(matches, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(a, b int) bool {
		return matches[a].Key < matches[b].Key
	})
	return matches, nil
}

func recordKey(scope contractx.MemoryScope, key string) string {
	return string(scope.Kind) + "\x00" + scope.ID + "\x00" + key
}
