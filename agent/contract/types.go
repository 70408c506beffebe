package contract

import (
	"time"
)

// FieldType enumerates the value types a tool schema field may declare.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldInteger FieldType = "integer"
	FieldBool    FieldType = "boolean"
	FieldObject  FieldType = "object"
	FieldArray   FieldType = "array"
)

// FieldSpec describes a single input or output field of a tool.
type FieldSpec struct {
	Type     FieldType `json:"type"`
	Desc     string    `json:"desc,omitempty"`
	Required bool      `json:"required,omitempty"`
}

// ToolSpec is the registered contract of one tool. Immutable after
// registration; the registry is the only owner.
type ToolSpec struct {
	Name          string               `json:"name"`
	Desc          string               `json:"desc,omitempty"`
	Input         map[string]FieldSpec `json:"input,omitempty"`
	Output        map[string]FieldSpec `json:"output,omitempty"`
	MaxConcurrent int64                `json:"max_concurrent,omitempty"`
	Timeout       time.Duration        `json:"timeout,omitempty"`
	Retryable     bool                 `json:"retryable,omitempty"`
	Idempotent    bool                 `json:"idempotent,omitempty"`
}

// ToolCall is one planned invocation. Created by the planner, consumed by
// the executor, never mutated afterwards. ID is the correlation id, unique
// within a planning round. DependsOn lists correlation ids whose results
// must already exist; the executor rejects same-round dependencies.
type ToolCall struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args,omitempty"`
	DependsOn []string       `json:"depends_on,omitempty"`
}

// ResultStatus is the terminal outcome of a tool call.
type ResultStatus string

const (
	StatusSuccess   ResultStatus = "success"
	StatusFailed    ResultStatus = "failed"
	StatusTimedOut  ResultStatus = "timed_out"
	StatusCancelled ResultStatus = "cancelled"
)

// ToolResult is the normalized outcome of exactly one ToolCall. Every call
// issued in a round produces exactly one result, failures included.
type ToolResult struct {
	ID       string         `json:"id"`
	Tool     string         `json:"tool"`
	Status   ResultStatus   `json:"status"`
	Payload  map[string]any `json:"payload,omitempty"`
	Error    string         `json:"error,omitempty"`
	Attempts int            `json:"attempts,omitempty"`
}

// OK reports whether the call succeeded.
func (r ToolResult) OK() bool {
	return r.Status == StatusSuccess
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one append-only entry in a session's history.
type Turn struct {
	Role    Role         `json:"role"`
	Content string       `json:"content,omitempty"`
	Results []ToolResult `json:"results,omitempty"`
	At      time.Time    `json:"at"`
}

// FinalAnswer carries the planner's answer text plus the correlation ids of
// the results it drew on.
type FinalAnswer struct {
	Text      string   `json:"text"`
	ResultIDs []string `json:"result_ids,omitempty"`
}

// PlannerDecision is a tagged union: either ToolCalls is non-empty or Final
// is set, never both.
type PlannerDecision struct {
	ToolCalls []ToolCall   `json:"tool_calls,omitempty"`
	Final     *FinalAnswer `json:"final,omitempty"`
}

// IsFinal reports whether the decision ends the turn.
func (d PlannerDecision) IsFinal() bool {
	return d.Final != nil
}

// SessionView is the read-only slice of session state handed to the planner.
// RoundResults are sorted by correlation id so planner input stays
// deterministic regardless of completion order.
type SessionView struct {
	SessionID     string       `json:"session_id"`
	Turns         []Turn       `json:"turns"`
	RoundResults  []ToolResult `json:"round_results,omitempty"`
	Tools         []ToolSpec   `json:"tools"`
	MemoryDigests []string     `json:"memory_digests,omitempty"`
	Round         int          `json:"round"`
	Note          string       `json:"note,omitempty"`
}

// Reply is the caller-facing output of one turn.
type Reply struct {
	Text     string       `json:"text"`
	Results  []ToolResult `json:"results,omitempty"`
	Degraded bool         `json:"degraded,omitempty"`
}

// ScopeKind partitions memory into per-session and long-lived user storage.
type ScopeKind string

const (
	ScopeSession ScopeKind = "session"
	ScopeUser    ScopeKind = "user"
)

// MemoryScope addresses one memory partition.
type MemoryScope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"`
}

// SessionScope returns the scope for one session's memory.
func SessionScope(sessionID string) MemoryScope {
	return MemoryScope{Kind: ScopeSession, ID: sessionID}
}

// UserScope returns the long-lived scope for one user.
func UserScope(userID string) MemoryScope {
	return MemoryScope{Kind: ScopeUser, ID: userID}
}

// MemoryRecord is one stored fact. Last write wins per (scope, key).
type MemoryRecord struct {
	Scope     MemoryScope `json:"scope"`
	Key       string      `json:"key"`
	Value     string      `json:"value"`
	WrittenAt time.Time   `json:"written_at"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// Expired reports whether the record is past its expiry at the given time.
func (r MemoryRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}
