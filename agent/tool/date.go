package tool

import (
	"context"
	"time"
)

const ToolDateToday = "date.today"

// DateTool reports the current date. The clock is injectable for tests.
type DateTool struct {
	now func() time.Time
}

func NewDateTool() *DateTool {
	return &DateTool{now: time.Now}
}

func (t *DateTool) Invoke(_ context.Context, _ map[string]any) (map[string]any, error) {
	now := t.now().UTC()
	return map[string]any{
		"date":    now.Format("2006-01-02"),
		"weekday": now.Weekday().String(),
	}, nil
}
