package tool

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

const ToolTravelAdvice = "travel.advice"

const adviceSystemPrompt = `You are a seasoned travel consultant. Give practical,
specific advice: local transport, neighborhoods, seasonal caveats, rough costs.
Be concise and concrete. Do not invent prices or schedules.`

// AdviceTool answers open-ended travel questions with a direct completion
// call, outside the planner loop.
type AdviceTool struct {
	client *openaisdk.Client
	model  string
}

func NewAdviceTool(client *openaisdk.Client, model string) *AdviceTool {
	return &AdviceTool{client: client, model: model}
}

func (t *AdviceTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", contractx.ErrValidation)
	}

	userPrompt := "Travel query: " + query
	if extra, _ := args["context"].(string); strings.TrimSpace(extra) != "" {
		userPrompt += "\nAdditional context: " + strings.TrimSpace(extra)
	}

	completion, err := t.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: t.model,
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(adviceSystemPrompt),
			openaisdk.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: travel advice completion: %v", contractx.ErrTransient, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("travel advice returned no choices")
	}

	return map[string]any{
		"advice": completion.Choices[0].Message.Content,
		"model":  t.model,
	}, nil
}
