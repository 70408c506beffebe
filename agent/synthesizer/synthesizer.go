package synthesizer

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

// Synthesizer formats the planner's final answer plus the tool results it
// referenced into the caller-facing reply. Pure formatting: a referenced
// result that is missing from the round is dropped with a log line and the
// reply degrades to plain text rather than failing the turn.
type Synthesizer struct{}

func New() *Synthesizer {
	return &Synthesizer{}
}

func (s *Synthesizer) Synthesize(
	final contractx.FinalAnswer,
	collected map[string]contractx.ToolResult,
	degraded bool,
) contractx.Reply {
	attachments := make([]contractx.ToolResult, 0, len(final.ResultIDs))
	for _, id := range final.ResultIDs {
		res, ok := collected[id]
		if !ok {
			log.Warn().
				Str("result_id", id).
				Msg("final answer references a result missing from the round, dropping attachment")
			continue
		}
		attachments = append(attachments, res)
	}

	sort.Slice(attachments, func(a, b int) bool {
		return attachments[a].ID < attachments[b].ID
	})

	return contractx.Reply{
		Text:     strings.TrimSpace(final.Text),
		Results:  attachments,
		Degraded: degraded,
	}
}
