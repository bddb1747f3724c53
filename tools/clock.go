// Clock Tool.
//
// Information Hiding:
// - Time source abstracted for testing
// - Format name mapping hidden

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ClockTool reports the current date and time.
type ClockTool struct {
	BaseTool
	now func() time.Time
}

// NewClockTool creates a new clock tool using the system clock.
func NewClockTool() *ClockTool {
	return &ClockTool{now: time.Now}
}

// WithNow overrides the time source.
func (t *ClockTool) WithNow(now func() time.Time) *ClockTool {
	t.now = now
	return t
}

// Metadata returns the tool metadata.
func (t *ClockTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "get_current_time",
		Description: "Get the current date and time",
		Parameters: []ToolParameter{
			{Name: "format", ParamType: "string", Description: "Output format: 'iso', 'date', 'time' or a Go reference layout", Required: false},
		},
	}
}

type clockArgs struct {
	Format string `json:"format"`
}

// Execute returns the formatted current time.
func (t *ClockTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a clockArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}
	}

	now := t.now()
	switch a.Format {
	case "", "iso":
		return SuccessResult(now.Format(time.RFC3339)), nil
	case "date":
		return SuccessResult(now.Format("2006-01-02")), nil
	case "time":
		return SuccessResult(now.Format("15:04:05")), nil
	default:
		return SuccessResult(now.Format(a.Format)), nil
	}
}
