package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
	executorx "github.com/wayfarer-agent/wayfarer/agent/executor"
	registryx "github.com/wayfarer-agent/wayfarer/agent/registry"
	sessionx "github.com/wayfarer-agent/wayfarer/agent/session"
	synthesizerx "github.com/wayfarer-agent/wayfarer/agent/synthesizer"
)

// phase tracks the turn state machine. Failed is absorbing; the round loop
// only ever moves forward through these.
type phase string

const (
	phasePlanning   phase = "planning"
	phaseExecuting  phase = "executing"
	phaseFinalizing phase = "finalizing"
	phaseDone       phase = "done"
	phaseFailed     phase = "failed"
)

const (
	defaultMaxRounds      = 6
	defaultHistoryDigests = 5
	defaultDigestTTL      = 7 * 24 * time.Hour

	digestKeyPrefix = "digest:"

	replanNote = "Your previous response could not be used. Reply with tool calls for the available tools, or a plain final answer."

	planningFallbackText = "I wasn't able to finish planning this request. Here is what I gathered so far; please rephrase or try again."
	roundLimitText       = "I reached my tool budget before completing this request, so this answer may be incomplete."
)

type Config struct {
	MaxRounds      int           `envconfig:"MAX_ROUNDS" split_words:"true" default:"6"`
	HistoryDigests int           `envconfig:"HISTORY_DIGESTS" split_words:"true" default:"5"`
	DigestTTL      time.Duration `envconfig:"DIGEST_TTL" split_words:"true" default:"168h"`
}

// Orchestrator drives one turn at a time per session: ask the planner, run
// the returned tool calls, feed the results back, and stop when the planner
// answers or the round limit forces a degraded finalization.
type Orchestrator struct {
	sessions *sessionx.Manager
	store    sessionx.Store
	registry *registryx.Registry
	planner  contractx.Planner
	exec     *executorx.Executor
	memory   contractx.Memory
	synth    *synthesizerx.Synthesizer

	maxRounds      int
	historyDigests int
	digestTTL      time.Duration

	now func() time.Time
}

func New(
	reg *registryx.Registry,
	planner contractx.Planner,
	exec *executorx.Executor,
	memory contractx.Memory,
	store sessionx.Store,
	cfg Config,
) (*Orchestrator, error) {
	if reg == nil {
		return nil, errors.New("tool registry is required")
	}
	if planner == nil {
		return nil, errors.New("planner is required")
	}
	if exec == nil {
		return nil, errors.New("tool executor is required")
	}
	if memory == nil {
		memory = noopMemory{}
	}

	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	historyDigests := cfg.HistoryDigests
	if historyDigests <= 0 {
		historyDigests = defaultHistoryDigests
	}
	digestTTL := cfg.DigestTTL
	if digestTTL <= 0 {
		digestTTL = defaultDigestTTL
	}

	return &Orchestrator{
		sessions:       sessionx.NewManager(),
		store:          store,
		registry:       reg,
		planner:        planner,
		exec:           exec,
		memory:         memory,
		synth:          synthesizerx.New(),
		maxRounds:      maxRounds,
		historyDigests: historyDigests,
		digestTTL:      digestTTL,
		now:            time.Now,
	}, nil
}

// Submit runs one full turn for the session and returns the synthesized
// reply. Concurrent submits for the same session queue on the session's
// turn lock and run strictly one after another.
func (o *Orchestrator) Submit(ctx context.Context, sessionID, message string) (contractx.Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return contractx.Reply{}, contractx.ErrInvalidMessage
	}

	sess, created, err := o.sessions.GetOrCreate(sessionID)
	if err != nil {
		return contractx.Reply{}, err
	}
	if created {
		o.restoreSession(ctx, sess)
	}

	sess.BeginTurn()
	defer sess.EndTurn()

	ctx = contractx.WithSessionID(ctx, sess.ID())
	logger := log.With().Str("session_id", sess.ID()).Logger()

	sess.Append(contractx.Turn{Role: contractx.RoleUser, Content: message, At: o.now()})

	digests, memoryDegraded := o.loadDigests(ctx, sess.ID())
	if memoryDegraded {
		logger.Warn().Msg("memory backend unavailable, continuing on in-session context")
	}

	collected := make(map[string]contractx.ToolResult)
	satisfied := make(map[string]bool)
	var roundResults []contractx.ToolResult

	var final contractx.FinalAnswer
	degraded := false
	state := phasePlanning
	note := ""

rounds:
	for round := 1; round <= o.maxRounds; round++ {
		view := contractx.SessionView{
			SessionID:     sess.ID(),
			Turns:         sess.Turns(),
			RoundResults:  roundResults,
			Tools:         o.registry.List(),
			MemoryDigests: digests,
			Round:         round,
			Note:          note,
		}
		note = ""

		logger.Debug().Int("round", round).Str("phase", string(state)).Msg("asking planner")
		decision, err := o.decide(ctx, view)
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug().Str("phase", string(phaseFailed)).Msg("turn cancelled during planning")
				return contractx.Reply{}, ctx.Err()
			}
			logger.Warn().Err(err).Int("round", round).Msg("planning failed twice, finalizing degraded")
			final = contractx.FinalAnswer{Text: planningFallbackText, ResultIDs: allIDs(collected)}
			degraded = true
			state = phaseFinalizing
			break rounds
		}

		if decision.IsFinal() {
			final = *decision.Final
			state = phaseFinalizing
			break rounds
		}

		state = phaseExecuting
		results := o.exec.ExecuteAll(ctx, decision.ToolCalls, satisfied)
		if len(results) != len(decision.ToolCalls) {
			return contractx.Reply{}, fmt.Errorf("round %d produced %d results for %d calls", round, len(results), len(decision.ToolCalls))
		}
		if ctx.Err() != nil {
			// Cancelled turn: results are discarded, never appended.
			logger.Debug().Str("phase", string(phaseFailed)).Msg("turn cancelled during execution")
			return contractx.Reply{}, ctx.Err()
		}

		for _, res := range results {
			collected[res.ID] = res
			satisfied[res.ID] = true
		}
		sess.Append(contractx.Turn{Role: contractx.RoleTool, Results: results, At: o.now()})
		roundResults = results
		state = phasePlanning
	}

	if state != phaseFinalizing {
		// Round limit hit: finalize with what we have, flagged incomplete.
		logger.Info().Int("max_rounds", o.maxRounds).Msg("round limit reached, finalizing degraded")
		final = contractx.FinalAnswer{Text: roundLimitText, ResultIDs: allIDs(collected)}
		degraded = true
	}

	reply := o.synth.Synthesize(final, collected, degraded)
	sess.Append(contractx.Turn{Role: contractx.RoleAssistant, Content: reply.Text, At: o.now()})
	logger.Debug().Str("phase", string(phaseDone)).Bool("degraded", reply.Degraded).Msg("turn complete")

	o.writeDigest(ctx, sess.ID(), message, reply.Text, memoryDegraded)
	o.persistSession(ctx, sess)

	return reply, nil
}

// decide wraps the planner with the single re-prompt allowed on a
// planning error.
func (o *Orchestrator) decide(ctx context.Context, view contractx.SessionView) (contractx.PlannerDecision, error) {
	decision, err := o.planner.Decide(ctx, view)
	if err == nil || ctx.Err() != nil {
		return decision, err
	}

	log.Warn().Err(err).Str("session_id", view.SessionID).Msg("planner output unusable, re-prompting once")
	view.Note = replanNote
	return o.planner.Decide(ctx, view)
}

func (o *Orchestrator) restoreSession(ctx context.Context, sess *sessionx.Session) {
	if o.store == nil {
		return
	}
	snap, err := o.store.Load(ctx, sess.ID())
	if err != nil {
		if !errors.Is(err, sessionx.ErrSnapshotNotFound) {
			log.Warn().Err(err).Str("session_id", sess.ID()).Msg("could not restore session snapshot")
		}
		return
	}
	sess.Restore(snap.Turns)
}

func (o *Orchestrator) persistSession(ctx context.Context, sess *sessionx.Session) {
	if o.store == nil {
		return
	}
	if err := o.store.Save(ctx, sess.Snapshot(o.now())); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID()).Msg("could not persist session snapshot")
	}
}

// loadDigests pulls the most recent turn digests from session-scoped
// memory. Memory is an optimization, not a correctness dependency: any
// storage failure degrades to in-session context only.
func (o *Orchestrator) loadDigests(ctx context.Context, sessionID string) ([]string, bool) {
	records, err := o.memory.Query(ctx, contractx.SessionScope(sessionID), digestKeyPrefix)
	if err != nil {
		return nil, errors.Is(err, contractx.ErrStorageUnavailable)
	}

	if len(records) > o.historyDigests {
		records = records[len(records)-o.historyDigests:]
	}
	digests := make([]string, 0, len(records))
	for _, rec := range records {
		digests = append(digests, rec.Value)
	}
	return digests, false
}

type turnDigest struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
	At        string `json:"at"`
}

func (o *Orchestrator) writeDigest(ctx context.Context, sessionID, userMsg, replyText string, memoryDegraded bool) {
	if memoryDegraded {
		log.Debug().Str("session_id", sessionID).Msg("skipping digest write, memory degraded this turn")
		return
	}

	now := o.now().UTC()
	value, err := json.Marshal(turnDigest{
		User:      userMsg,
		Assistant: replyText,
		At:        now.Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	key := digestKeyPrefix + now.Format("20060102T150405.000000000")
	if err := o.memory.Set(ctx, contractx.SessionScope(sessionID), key, string(value), o.digestTTL); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("turn digest write degraded")
	}
}

func allIDs(collected map[string]contractx.ToolResult) []string {
	ids := make([]string, 0, len(collected))
	for id := range collected {
		ids = append(ids, id)
	}
	return ids
}

type noopMemory struct{}

func (noopMemory) Get(context.Context, contractx.MemoryScope, string) (contractx.MemoryRecord, error) {
	return contractx.MemoryRecord{}, contractx.ErrMemoryNotFound
}

func (noopMemory) Set(context.Context, contractx.MemoryScope, string, string, time.Duration) error {
	return nil
}

func (noopMemory) Query(context.Context, contractx.MemoryScope, string) ([]contractx.MemoryRecord, error) {
	return nil, nil
}
