package session

import (
	"strings"
	"sync"
	"time"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

// Session is the aggregate for one conversation: an append-only turn
// history plus the per-session turn lock. The orchestrator owns a session
// exclusively between BeginTurn and EndTurn; a message submitted while a
// turn is running waits on the lock and is processed afterwards, never
// interleaved.
type Session struct {
	id string

	turnMu sync.Mutex

	mu    sync.Mutex
	turns []contractx.Turn
}

func newSession(id string) *Session {
	return &Session{id: id}
}

func (s *Session) ID() string {
	return s.id
}

// BeginTurn takes the single-writer lock for this session.
func (s *Session) BeginTurn() {
	s.turnMu.Lock()
}

// EndTurn releases the single-writer lock.
func (s *Session) EndTurn() {
	s.turnMu.Unlock()
}

// Append adds a turn to the history. History is append-only; turns are
// never reordered or rewritten.
func (s *Session) Append(turn contractx.Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()
}

// Turns returns a copy of the history.
func (s *Session) Turns() []contractx.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contractx.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Restore replaces the history from a persisted snapshot. Only valid
// before the session has accumulated local turns.
func (s *Session) Restore(turns []contractx.Turn) {
	s.mu.Lock()
	if len(s.turns) == 0 {
		s.turns = append(s.turns, turns...)
	}
	s.mu.Unlock()
}

// Snapshot is the persisted form of a session.
type Snapshot struct {
	SessionID string           `json:"session_id"`
	Turns     []contractx.Turn `json:"turns"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Snapshot captures the current history for persistence.
func (s *Session) Snapshot(now time.Time) *Snapshot {
	return &Snapshot{
		SessionID: s.id,
		Turns:     s.Turns(),
		UpdatedAt: now.UTC(),
	}
}

// Manager hands out sessions by caller-supplied opaque id. Sessions for
// different ids are fully independent.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session, 8),
	}
}

// GetOrCreate returns the session for id, creating it on first use.
// The second return reports whether the session was just created.
func (m *Manager) GetOrCreate(id string) (*Session, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, contractx.ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess, false, nil
	}
	sess := newSession(id)
	m.sessions[id] = sess
	return sess, true, nil
}
