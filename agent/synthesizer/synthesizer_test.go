package synthesizer

import (
	"testing"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

func TestSynthesizeAttachesReferencedResultsSorted(t *testing.T) {
	t.Parallel()

	collected := map[string]contractx.ToolResult{
		"c1": {ID: "c1", Tool: "weather.forecast", Status: contractx.StatusSuccess},
		"c2": {ID: "c2", Tool: "currency.convert", Status: contractx.StatusFailed},
		"c3": {ID: "c3", Tool: "date.today", Status: contractx.StatusSuccess},
	}

	reply := New().Synthesize(contractx.FinalAnswer{
		Text:      "  here you go  ",
		ResultIDs: []string{"c3", "c1"},
	}, collected, false)

	if reply.Text != "here you go" {
		t.Fatalf("Text = %q, want trimmed", reply.Text)
	}
	if len(reply.Results) != 2 {
		t.Fatalf("Results = %d, want 2", len(reply.Results))
	}
	if reply.Results[0].ID != "c1" || reply.Results[1].ID != "c3" {
		t.Fatalf("results not sorted by id: %+v", reply.Results)
	}
	if reply.Degraded {
		t.Fatal("Degraded = true, want false")
	}
}

func TestSynthesizeDropsMissingReference(t *testing.T) {
	t.Parallel()

	collected := map[string]contractx.ToolResult{
		"c1": {ID: "c1", Tool: "echo", Status: contractx.StatusSuccess},
	}

	reply := New().Synthesize(contractx.FinalAnswer{
		Text:      "partial",
		ResultIDs: []string{"c1", "ghost"},
	}, collected, false)

	if len(reply.Results) != 1 || reply.Results[0].ID != "c1" {
		t.Fatalf("Results = %+v, want only c1", reply.Results)
	}
}

func TestSynthesizeDegradedFlagPassesThrough(t *testing.T) {
	t.Parallel()

	reply := New().Synthesize(contractx.FinalAnswer{Text: "incomplete"}, nil, true)
	if !reply.Degraded {
		t.Fatal("Degraded = false, want true")
	}
	if len(reply.Results) != 0 {
		t.Fatalf("Results = %+v, want none", reply.Results)
	}
}
