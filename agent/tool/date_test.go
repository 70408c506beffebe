package tool

import (
	"context"
	"testing"
	"time"
)

func TestDateToolReportsUTCDate(t *testing.T) {
	t.Parallel()

	tool := NewDateTool()
	tool.now = func() time.Time {
		return time.Date(2026, 3, 7, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))
	}

	out, err := tool.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	// 23:30 PST is already March 8th in UTC.
	if out["date"] != "2026-03-08" {
		t.Fatalf("date = %v, want 2026-03-08", out["date"])
	}
	if out["weekday"] != "Sunday" {
		t.Fatalf("weekday = %v, want Sunday", out["weekday"])
	}
}
