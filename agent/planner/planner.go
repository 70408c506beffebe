package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

// LLMPlanner asks a tool-calling chat model for the next action. The model
// is strictly a data source: its output is parsed into a PlannerDecision
// and every side effect flows through the orchestrator.
type LLMPlanner struct {
	runner compose.Runnable[map[string]any, *schema.Message]
	newID  func() string
}

// New binds the registry's tool declarations to the chat model and compiles
// the planning graph.
func New(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	tools []*schema.ToolInfo,
) (*LLMPlanner, error) {
	toolModel := chatModel
	if len(tools) > 0 {
		bound, err := chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools to planner model: %v", contractx.ErrPlanning, err)
		}
		toolModel = bound
	}

	runner, err := compilePlanningGraph(ctx, toolModel, systemPrompt)
	if err != nil {
		return nil, err
	}

	return &LLMPlanner{
		runner: runner,
		newID:  uuid.NewString,
	}, nil
}

// Decide turns the session view into the next PlannerDecision. Everything
// the backend gets wrong is reported as ErrPlanning; the raw model output
// never reaches the caller.
func (p *LLMPlanner) Decide(ctx context.Context, view contractx.SessionView) (contractx.PlannerDecision, error) {
	payload := map[string]any{
		"turns":          summarizeTurns(view.Turns),
		"round":          view.Round,
		"round_results":  view.RoundResults,
		"memory_digests": view.MemoryDigests,
	}
	if view.Note != "" {
		payload["note"] = view.Note
	}

	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return contractx.PlannerDecision{}, fmt.Errorf("%w: marshal planner payload: %v", contractx.ErrPlanning, err)
	}

	msg, err := p.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return contractx.PlannerDecision{}, fmt.Errorf("%w: planner invoke: %v", contractx.ErrPlanning, err)
	}
	if msg == nil {
		return contractx.PlannerDecision{}, fmt.Errorf("%w: empty planner response", contractx.ErrPlanning)
	}

	calls, err := p.toToolCalls(msg.ToolCalls)
	if err != nil {
		return contractx.PlannerDecision{}, err
	}
	if len(calls) > 0 {
		return contractx.PlannerDecision{ToolCalls: calls}, nil
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return contractx.PlannerDecision{}, fmt.Errorf("%w: planner returned neither tool calls nor an answer", contractx.ErrPlanning)
	}

	resultIDs := make([]string, 0, len(view.RoundResults))
	for _, res := range view.RoundResults {
		resultIDs = append(resultIDs, res.ID)
	}

	return contractx.PlannerDecision{
		Final: &contractx.FinalAnswer{
			Text:      text,
			ResultIDs: resultIDs,
		},
	}, nil
}

func (p *LLMPlanner) toToolCalls(calls []schema.ToolCall) ([]contractx.ToolCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(calls))
	out := make([]contractx.ToolCall, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrPlanning)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid args for tool=%s: %v", contractx.ErrPlanning, tool, err)
			}
		}

		id := strings.TrimSpace(call.ID)
		if id == "" || seen[id] {
			id = p.newID()
		}
		seen[id] = true

		out = append(out, contractx.ToolCall{
			ID:   id,
			Tool: tool,
			Args: args,
		})
	}
	return out, nil
}

func summarizeTurns(turns []contractx.Turn) []map[string]any {
	out := make([]map[string]any, 0, len(turns))
	for _, turn := range turns {
		entry := map[string]any{
			"role":    turn.Role,
			"content": turn.Content,
		}
		if len(turn.Results) > 0 {
			entry["results"] = turn.Results
		}
		out = append(out, entry)
	}
	return out
}

func compilePlanningGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add planning prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add planning model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add planning edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add planning edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add planning edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("planner.model_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile planning graph: %w", err)
	}
	return runner, nil
}
