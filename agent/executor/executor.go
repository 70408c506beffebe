package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
	registryx "github.com/wayfarer-agent/wayfarer/agent/registry"
)

const (
	defaultMaxRetries  = 2
	defaultBackoffBase = 200 * time.Millisecond
)

// Option customizes an Executor.
type Option func(*Executor)

func WithMaxRetries(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

func WithBackoffBase(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.backoffBase = d
		}
	}
}

// Executor runs tool calls against the registry's contracts: validates
// arguments, enforces per-tool timeouts and concurrency caps, retries
// transient failures of idempotent tools, and normalizes every outcome
// into a ToolResult.
type Executor struct {
	reg         *registryx.Registry
	gates       map[string]*semaphore.Weighted
	maxRetries  int
	backoffBase time.Duration
}

// New builds an Executor over a sealed registry. One weighted semaphore per
// tool caps concurrent invocations at the spec's declared limit.
func New(reg *registryx.Registry, opts ...Option) *Executor {
	e := &Executor{
		reg:         reg,
		gates:       make(map[string]*semaphore.Weighted),
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
	}
	for _, spec := range reg.List() {
		e.gates[spec.Name] = semaphore.NewWeighted(spec.MaxConcurrent)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// ExecuteAll runs one round of calls concurrently and returns exactly one
// result per call, sorted by correlation id. satisfied holds the correlation
// ids of results already completed in earlier rounds; a call depending on
// anything else is rejected with a dependency error instead of being
// silently serialized.
func (e *Executor) ExecuteAll(ctx context.Context, calls []contractx.ToolCall, satisfied map[string]bool) []contractx.ToolResult {
	results := make([]contractx.ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call contractx.ToolCall) {
			defer wg.Done()
			results[i] = e.Execute(ctx, call, satisfied)
		}(i, call)
	}
	wg.Wait()

	sort.Slice(results, func(a, b int) bool {
		return results[a].ID < results[b].ID
	})
	return results
}

// Execute runs a single call to a terminal result. It never returns an
// error: every failure mode is represented in the result status.
func (e *Executor) Execute(ctx context.Context, call contractx.ToolCall, satisfied map[string]bool) contractx.ToolResult {
	for _, dep := range call.DependsOn {
		if !satisfied[dep] {
			return failed(call, fmt.Errorf("%w: call %s depends on unresolved result %s", contractx.ErrDependency, call.ID, dep))
		}
	}

	reg, err := e.reg.Lookup(call.Tool)
	if err != nil {
		return failed(call, err)
	}

	if err := validateArgs(reg.Spec, call.Args); err != nil {
		return failed(call, err)
	}

	gate := e.gates[reg.Spec.Name]
	if err := gate.Acquire(ctx, 1); err != nil {
		return terminal(call, ctx, 0)
	}
	defer gate.Release(1)

	attempts := 1 + e.retryBudget(reg.Spec)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		payload, err := e.invokeOnce(ctx, reg, call)
		if err == nil {
			return contractx.ToolResult{
				ID:       call.ID,
				Tool:     call.Tool,
				Status:   contractx.StatusSuccess,
				Payload:  clampPayload(payload),
				Attempts: attempt,
			}
		}
		lastErr = err

		if ctx.Err() != nil {
			return terminal(call, ctx, attempt)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return contractx.ToolResult{
				ID:       call.ID,
				Tool:     call.Tool,
				Status:   contractx.StatusTimedOut,
				Error:    fmt.Sprintf("tool %s timed out after %s", call.Tool, reg.Spec.Timeout),
				Attempts: attempt,
			}
		}
		if !isTransient(err) || attempt == attempts {
			break
		}

		backoff := e.backoffBase << (attempt - 1)
		log.Warn().
			Str("tool", call.Tool).
			Str("call_id", call.ID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Err(err).
			Msg("transient tool failure, retrying")

		select {
		case <-ctx.Done():
			return terminal(call, ctx, attempt)
		case <-time.After(backoff):
		}
	}

	res := failed(call, lastErr)
	res.Attempts = attempts
	return res
}

// invokeOnce runs the implementation inside the spec's timeout. The invoke
// goroutine writes into a buffered channel so a tool that ignores
// cancellation finishes in the background and its late result is dropped.
func (e *Executor) invokeOnce(ctx context.Context, reg registryx.Registration, call contractx.ToolCall) (map[string]any, error) {
	cctx, cancel := context.WithTimeout(ctx, reg.Spec.Timeout)
	defer cancel()

	type outcome struct {
		payload map[string]any
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		payload, err := reg.Invoke(cctx, call.Args)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case <-cctx.Done():
		return nil, cctx.Err()
	case out := <-done:
		return out.payload, out.err
	}
}

func (e *Executor) retryBudget(spec contractx.ToolSpec) int {
	if !spec.Retryable || !spec.Idempotent {
		return 0
	}
	return e.maxRetries
}

// terminal maps a finished context onto the matching result status.
func terminal(call contractx.ToolCall, ctx context.Context, attempts int) contractx.ToolResult {
	status := contractx.StatusCancelled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		status = contractx.StatusTimedOut
	}
	return contractx.ToolResult{
		ID:       call.ID,
		Tool:     call.Tool,
		Status:   status,
		Error:    ctx.Err().Error(),
		Attempts: attempts,
	}
}

func failed(call contractx.ToolCall, err error) contractx.ToolResult {
	return contractx.ToolResult{
		ID:     call.ID,
		Tool:   call.Tool,
		Status: contractx.StatusFailed,
		Error:  err.Error(),
	}
}

func isTransient(err error) bool {
	if errors.Is(err, contractx.ErrTransient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func validateArgs(spec contractx.ToolSpec, args map[string]any) error {
	for field, fs := range spec.Input {
		val, ok := args[field]
		if !ok || val == nil {
			if fs.Required {
				return fmt.Errorf("%w: tool %s requires field %q", contractx.ErrValidation, spec.Name, field)
			}
			continue
		}
		if !typeMatches(fs.Type, val) {
			return fmt.Errorf("%w: tool %s field %q expects %s, got %T", contractx.ErrValidation, spec.Name, field, fs.Type, val)
		}
	}
	return nil
}

func typeMatches(t contractx.FieldType, val any) bool {
	switch t {
	case contractx.FieldString:
		_, ok := val.(string)
		return ok
	case contractx.FieldNumber:
		switch val.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case contractx.FieldInteger:
		switch v := val.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case contractx.FieldBool:
		_, ok := val.(bool)
		return ok
	case contractx.FieldObject:
		_, ok := val.(map[string]any)
		return ok
	case contractx.FieldArray:
		_, ok := val.([]any)
		return ok
	default:
		return true
	}
}

const maxPayloadStringLen = 2000

// clampPayload bounds what a tool may push into planner context: long
// strings are truncated and inline binary blobs are stripped.
func clampPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	clamped := make(map[string]any, len(payload))
	for key, val := range payload {
		if strings.Contains(strings.ToLower(key), "base64") {
			clamped[key] = "[binary data removed]"
			continue
		}
		if s, ok := val.(string); ok && len(s) > maxPayloadStringLen {
			clamped[key] = s[:maxPayloadStringLen] + "...[truncated]"
			continue
		}
		clamped[key] = val
	}
	return clamped
}
