package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

func TestRedisRESTStoreKey(t *testing.T) {
	t.Parallel()

	store := &RedisRESTStore{}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "wayfarer:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "wayfarer:session:abc")
	}
}

func TestRedisRESTStoreKeyEmptySession(t *testing.T) {
	t.Parallel()

	store := &RedisRESTStore{}
	if _, err := store.redisKey("   "); err == nil {
		t.Fatal("expected error for blank session id")
	}
}

func TestRedisRESTStoreSaveSetsKeyAndTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisRESTStore(
		RedisRESTConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(time.Hour),
	)
	if err != nil {
		t.Fatalf("NewRedisRESTStore() error = %v", err)
	}

	snap := &Snapshot{
		SessionID: "session-1",
		Turns:     []contractx.Turn{{Role: contractx.RoleUser, Content: "hello"}},
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" {
		t.Fatalf("command[0] = %v, want SET", gotCommand[0])
	}
	if gotCommand[1] != "wayfarer:session:session-1" {
		t.Fatalf("command[1] = %v", gotCommand[1])
	}
	if gotCommand[3] != "EX" {
		t.Fatalf("command[3] = %v, want EX", gotCommand[3])
	}
	if got, ok := gotCommand[4].(float64); !ok || got != 3600 {
		t.Fatalf("command[4] = %v, want 3600", gotCommand[4])
	}
}

func TestRedisRESTStoreSaveWithoutTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisRESTStore(
		RedisRESTConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(0),
	)
	if err != nil {
		t.Fatalf("NewRedisRESTStore() error = %v", err)
	}

	if err := store.Save(context.Background(), &Snapshot{SessionID: "s"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(gotCommand) != 3 {
		t.Fatalf("command = %#v, want bare SET", gotCommand)
	}
}

func TestRedisRESTStoreLoadRoundTrip(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		SessionID: "session-1",
		Turns: []contractx.Turn{
			{Role: contractx.RoleUser, Content: "hello"},
			{Role: contractx.RoleAssistant, Content: "hi there"},
		},
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	// The REST API returns the stored string re-encoded as a JSON string.
	wire, err := json.Marshal(map[string]string{"result": string(payload)})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(wire)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisRESTStore(
		RedisRESTConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewRedisRESTStore() error = %v", err)
	}

	got, err := store.Load(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.SessionID != snap.SessionID {
		t.Fatalf("SessionID = %s, want %s", got.SessionID, snap.SessionID)
	}
	if len(got.Turns) != 2 || got.Turns[1].Content != "hi there" {
		t.Fatalf("unexpected turns: %+v", got.Turns)
	}
}

func TestRedisRESTStoreLoadMissing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisRESTStore(
		RedisRESTConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewRedisRESTStore() error = %v", err)
	}

	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("Load() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestRedisRESTStoreErrorResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGPASS invalid token"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisRESTStore(
		RedisRESTConfig{URL: server.URL, Token: "bad"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewRedisRESTStore() error = %v", err)
	}

	if err := store.Delete(context.Background(), "s"); err == nil {
		t.Fatal("expected error from error response")
	}
}

func TestTTLSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	if got := ttlSeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("ttlSeconds(1.5s) = %d, want 2", got)
	}
	if got := ttlSeconds(500 * time.Millisecond); got != 1 {
		t.Fatalf("ttlSeconds(0.5s) = %d, want 1", got)
	}
	if got := ttlSeconds(time.Hour); got != 3600 {
		t.Fatalf("ttlSeconds(1h) = %d, want 3600", got)
	}
}
