package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/richinex/pythia/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		// Spawned unconditionally by go.opencensus.io's package init
		// (pulled in transitively via the llm package); not a leak in
		// this package's code.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// echoTool returns its input after an optional delay, used to exercise
// out-of-order completion.
type echoTool struct {
	BaseTool
	delay time.Duration
}

func (t *echoTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "echo",
		Description: "Echo the input",
		Parameters: []ToolParameter{
			{Name: "text", ParamType: "string", Description: "Text to echo", Required: true},
		},
	}
}

func (t *echoTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Text  string `json:"text"`
		Delay int    `json:"delay_ms"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(err), nil
	}
	delay := t.delay
	if a.Delay > 0 {
		delay = time.Duration(a.Delay) * time.Millisecond
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return FailureResult(ctx.Err()), nil
		}
	}
	return SuccessResult(a.Text), nil
}

type failingTool struct {
	BaseTool
}

func (t *failingTool) Metadata() ToolMetadata {
	return ToolMetadata{Name: "broken", Description: "Always fails"}
}

func (t *failingTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	return ToolResult{}, fmt.Errorf("validation failed: boom")
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	registry := NewRegistry()
	if err := registry.Register(&echoTool{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := registry.Register(&failingTool{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return NewDispatcher(registry)
}

func TestDispatchPreservesCallOrder(t *testing.T) {
	d := newTestDispatcher(t)

	// Later calls finish first; results must still come back in call order.
	calls := []llm.ToolCall{
		{ID: "call-a", Name: "echo", Arguments: json.RawMessage(`{"text":"A","delay_ms":60}`)},
		{ID: "call-b", Name: "echo", Arguments: json.RawMessage(`{"text":"B","delay_ms":30}`)},
		{ID: "call-c", Name: "echo", Arguments: json.RawMessage(`{"text":"C"}`)},
	}

	results := d.Dispatch(context.Background(), calls)
	if len(results) != 3 {
		t.Fatalf("Dispatch() returned %d results, want 3", len(results))
	}

	wantIDs := []string{"call-a", "call-b", "call-c"}
	wantContent := []string{"A", "B", "C"}
	for i, result := range results {
		if result.Role != "tool" {
			t.Errorf("result[%d].Role = %q, want %q", i, result.Role, "tool")
		}
		if result.ToolCallID != wantIDs[i] {
			t.Errorf("result[%d].ToolCallID = %q, want %q", i, result.ToolCallID, wantIDs[i])
		}
		if result.Content != wantContent[i] {
			t.Errorf("result[%d].Content = %q, want %q", i, result.Content, wantContent[i])
		}
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d := newTestDispatcher(t)

	calls := []llm.ToolCall{
		{ID: "call-1", Name: "no_such_tool", Arguments: json.RawMessage(`{}`)},
	}

	results := d.Dispatch(context.Background(), calls)
	if len(results) != 1 {
		t.Fatalf("Dispatch() returned %d results, want 1", len(results))
	}
	if results[0].ToolCallID != "call-1" {
		t.Errorf("ToolCallID = %q, want %q", results[0].ToolCallID, "call-1")
	}
	if !strings.Contains(results[0].Content, "not found") {
		t.Errorf("Content = %q, want it to mention the tool was not found", results[0].Content)
	}
}

func TestDispatchToolFailureBecomesResult(t *testing.T) {
	d := newTestDispatcher(t)

	calls := []llm.ToolCall{
		{ID: "call-1", Name: "broken", Arguments: json.RawMessage(`{}`)},
		{ID: "call-2", Name: "echo", Arguments: json.RawMessage(`{"text":"ok"}`)},
	}

	results := d.Dispatch(context.Background(), calls)
	if len(results) != 2 {
		t.Fatalf("Dispatch() returned %d results, want 2", len(results))
	}
	if !strings.HasPrefix(results[0].Content, "Error:") {
		t.Errorf("failed call Content = %q, want Error prefix", results[0].Content)
	}
	if results[1].Content != "ok" {
		t.Errorf("second call Content = %q, want %q", results[1].Content, "ok")
	}
}

func TestDispatchNoCalls(t *testing.T) {
	d := newTestDispatcher(t)

	if results := d.Dispatch(context.Background(), nil); results != nil {
		t.Errorf("Dispatch(nil) = %v, want nil", results)
	}
}
