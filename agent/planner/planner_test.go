package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func newTestPlanner(t *testing.T, fake *fakeToolCallingModel) *LLMPlanner {
	t.Helper()

	p, err := New(context.Background(), fake, "planner prompt", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	seq := 0
	p.newID = func() string {
		seq++
		return fmt.Sprintf("gen-%d", seq)
	}
	return p
}

func TestDecideFinalAnswer(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Role: schema.Assistant, Content: "  Pack a rain jacket for Portland in March.  "},
		},
	}
	p := newTestPlanner(t, fake)

	decision, err := p.Decide(context.Background(), contractx.SessionView{
		SessionID: "s1",
		RoundResults: []contractx.ToolResult{
			{ID: "c1", Tool: "weather.forecast", Status: contractx.StatusSuccess},
		},
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !decision.IsFinal() {
		t.Fatal("expected a final decision")
	}
	if decision.Final.Text != "Pack a rain jacket for Portland in March." {
		t.Fatalf("unexpected text: %q", decision.Final.Text)
	}
	if len(decision.Final.ResultIDs) != 1 || decision.Final.ResultIDs[0] != "c1" {
		t.Fatalf("unexpected result ids: %v", decision.Final.ResultIDs)
	}
}

func TestDecideToolCalls(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{
						ID: "call-1",
						Function: schema.FunctionCall{
							Name:      "weather.forecast",
							Arguments: `{"place":"Lisbon","days":3}`,
						},
					},
					{
						ID: "call-2",
						Function: schema.FunctionCall{
							Name:      "currency.convert",
							Arguments: `{"amount":100,"from":"USD","to":"EUR"}`,
						},
					},
				},
			},
		},
	}
	p := newTestPlanner(t, fake)

	decision, err := p.Decide(context.Background(), contractx.SessionView{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if decision.IsFinal() {
		t.Fatal("expected tool calls, got final answer")
	}
	if len(decision.ToolCalls) != 2 {
		t.Fatalf("tool calls = %d, want 2", len(decision.ToolCalls))
	}
	if decision.ToolCalls[0].ID != "call-1" || decision.ToolCalls[0].Tool != "weather.forecast" {
		t.Fatalf("unexpected first call: %+v", decision.ToolCalls[0])
	}
	if got := decision.ToolCalls[0].Args["place"]; got != "Lisbon" {
		t.Fatalf("place = %v, want Lisbon", got)
	}
}

func TestDecideRegeneratesMissingAndDuplicateIDs(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{ID: "", Function: schema.FunctionCall{Name: "date.today"}},
					{ID: "dup", Function: schema.FunctionCall{Name: "date.today"}},
					{ID: "dup", Function: schema.FunctionCall{Name: "date.today"}},
				},
			},
		},
	}
	p := newTestPlanner(t, fake)

	decision, err := p.Decide(context.Background(), contractx.SessionView{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}

	ids := map[string]bool{}
	for _, call := range decision.ToolCalls {
		if call.ID == "" {
			t.Fatal("blank id leaked through")
		}
		if ids[call.ID] {
			t.Fatalf("duplicate id leaked through: %s", call.ID)
		}
		ids[call.ID] = true
	}
}

func TestDecideEmptyResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Role: schema.Assistant, Content: "   "},
		},
	}
	p := newTestPlanner(t, fake)

	_, err := p.Decide(context.Background(), contractx.SessionView{SessionID: "s1"})
	if !errors.Is(err, contractx.ErrPlanning) {
		t.Fatalf("Decide() error = %v, want ErrPlanning", err)
	}
}

func TestDecideInvalidToolArguments(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{ID: "c1", Function: schema.FunctionCall{Name: "date.today", Arguments: `{not json`}},
				},
			},
		},
	}
	p := newTestPlanner(t, fake)

	_, err := p.Decide(context.Background(), contractx.SessionView{SessionID: "s1"})
	if !errors.Is(err, contractx.ErrPlanning) {
		t.Fatalf("Decide() error = %v, want ErrPlanning", err)
	}
}

func TestDecideEmptyToolName(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{ID: "c1", Function: schema.FunctionCall{Name: "  "}},
				},
			},
		},
	}
	p := newTestPlanner(t, fake)

	_, err := p.Decide(context.Background(), contractx.SessionView{SessionID: "s1"})
	if !errors.Is(err, contractx.ErrPlanning) {
		t.Fatalf("Decide() error = %v, want ErrPlanning", err)
	}
}

func TestDecideBackendFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{err: errors.New("upstream 503")}
	p := newTestPlanner(t, fake)

	_, err := p.Decide(context.Background(), contractx.SessionView{SessionID: "s1"})
	if !errors.Is(err, contractx.ErrPlanning) {
		t.Fatalf("Decide() error = %v, want ErrPlanning", err)
	}
}
