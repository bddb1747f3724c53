package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/storage"
	"github.com/richinex/pythia/tools"
)

// turnProvider scripts a full turn: optionally one tool round, then a
// final text answer, then a receipt for the formatting call.
type turnProvider struct {
	useTool     bool
	answer      string
	receiptJSON string

	decideCalls int
	formatCalls int
}

func (p *turnProvider) Name() string  { return "turn-stub" }
func (p *turnProvider) Model() string { return "stub-model" }

func (p *turnProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	return llm.LLMResponse{Content: "summary text"}, nil
}

func (p *turnProvider) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, format *llm.ResponseFormat) (llm.LLMResponse, error) {
	p.formatCalls++
	return llm.LLMResponse{Content: p.receiptJSON}, nil
}

func (p *turnProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
	p.decideCalls++
	if p.useTool && p.decideCalls == 1 {
		return llm.LLMResponse{
			ToolCalls: []llm.ToolCall{
				{ID: "call-1", Name: "stub_expert", Arguments: json.RawMessage(`{"q":"x"}`)},
			},
		}, nil
	}
	return llm.LLMResponse{Content: p.answer}, nil
}

// stubExpert is a minimal expert tool.
type stubExpert struct {
	tools.BaseTool
	calls int
}

func (t *stubExpert) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{Name: "stub_expert", Description: "stub"}
}

func (t *stubExpert) Execute(ctx context.Context, args json.RawMessage) (tools.ToolResult, error) {
	t.calls++
	return tools.SuccessResult("expert says 42"), nil
}

func newTestOrchestrator(t *testing.T, provider llm.Provider, store storage.ThreadStore) (*Orchestrator, *stubExpert) {
	t.Helper()
	expert := &stubExpert{}
	registry := tools.NewRegistry()
	if err := registry.Register(expert); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	client := llm.NewClient(provider)
	summarizer := NewSummarizer(client, charCounter{}, 5000)
	return NewOrchestrator(client, tools.NewDispatcher(registry), store, summarizer), expert
}

func TestRunTurnDirectAnswer(t *testing.T) {
	provider := &turnProvider{
		answer:      "hello there",
		receiptJSON: `{"reason":"greeting","answer":"hello there","source":[]}`,
	}
	store := storage.NewInMemoryStore()
	o, expert := newTestOrchestrator(t, provider, store)

	result, err := o.RunTurn(context.Background(), "t1", "hi")
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	if result.Receipt == nil {
		t.Fatal("Receipt = nil, want a parsed receipt")
	}
	if result.Answer() != "hello there" {
		t.Errorf("Answer() = %q, want %q", result.Answer(), "hello there")
	}
	if expert.calls != 0 {
		t.Errorf("expert calls = %d, want 0", expert.calls)
	}

	state, err := store.Load(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("persisted %d messages, want user and assistant", len(state.Messages))
	}
	if state.Messages[0].Role != "user" || state.Messages[0].Content != "hi" {
		t.Errorf("first message = %+v, want the user turn", state.Messages[0])
	}
	if state.Messages[1].Role != "assistant" {
		t.Errorf("second message role = %q, want assistant", state.Messages[1].Role)
	}
	if state.Receipt == nil || state.Receipt.Answer != "hello there" {
		t.Errorf("persisted receipt = %+v, want the turn's receipt", state.Receipt)
	}
}

func TestRunTurnWithToolRound(t *testing.T) {
	provider := &turnProvider{
		useTool:     true,
		answer:      "the expert says 42",
		receiptJSON: `{"reason":"used the expert","answer":"the expert says 42","source":["expert"]}`,
	}
	store := storage.NewInMemoryStore()
	o, expert := newTestOrchestrator(t, provider, store)

	result, err := o.RunTurn(context.Background(), "t1", "ask the expert")
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	if expert.calls != 1 {
		t.Errorf("expert calls = %d, want 1", expert.calls)
	}
	if provider.decideCalls != 2 {
		t.Errorf("decide calls = %d, want 2", provider.decideCalls)
	}
	if result.Receipt == nil || len(result.Receipt.Source) != 1 {
		t.Errorf("Receipt = %+v, want one source", result.Receipt)
	}

	state, _ := store.Load(context.Background(), "t1")
	// user, assistant tool call, tool result, final assistant.
	if len(state.Messages) != 4 {
		t.Fatalf("persisted %d messages, want 4", len(state.Messages))
	}
	if !state.Messages[2].IsToolResult() || state.Messages[2].ToolCallID != "call-1" {
		t.Errorf("message[2] = %+v, want the tool result", state.Messages[2])
	}
}

func TestRunTurnFormatterFallback(t *testing.T) {
	provider := &turnProvider{
		answer:      "raw answer",
		receiptJSON: "this is not json at all",
	}
	store := storage.NewInMemoryStore()
	o, _ := newTestOrchestrator(t, provider, store)

	result, err := o.RunTurn(context.Background(), "t1", "hi")
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if result.Receipt != nil {
		t.Errorf("Receipt = %+v, want nil on malformed formatter output", result.Receipt)
	}
	if result.Answer() != "raw answer" {
		t.Errorf("Answer() = %q, want the raw text fallback", result.Answer())
	}
}

func TestRunTurnIterationCeiling(t *testing.T) {
	provider := &ceilingProvider{}
	store := storage.NewInMemoryStore()
	o, _ := newTestOrchestrator(t, provider, store)
	o.WithMaxIterations(3)

	_, err := o.RunTurn(context.Background(), "t1", "loop")
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	// Rounds 0, 1 and 2 dispatch tools; round 3 trips the ceiling.
	if provider.toolRounds != 4 {
		t.Errorf("decide calls = %d, want 4", provider.toolRounds)
	}
	if provider.formatCalls != 1 {
		t.Errorf("format calls = %d, want the turn to still format", provider.formatCalls)
	}
}

func TestRunTurnCompactsLongHistory(t *testing.T) {
	provider := &turnProvider{
		answer:      "short answer",
		receiptJSON: `{"answer":"short answer","source":[]}`,
	}
	store := storage.NewInMemoryStore()
	o, _ := newTestOrchestrator(t, provider, store)

	// Seed a thread over the 5000 token budget.
	seed := storage.Delta{
		Append: []llm.ChatMessage{
			seedMessage("m1", "user", 3000),
			seedMessage("m2", "assistant", 3000),
			seedMessage("m3", "user", 1000),
		},
	}
	if err := store.Merge(context.Background(), "t1", seed); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	_, err := o.RunTurn(context.Background(), "t1", "continue")
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	state, _ := store.Load(context.Background(), "t1")
	if state.Summary == "" {
		t.Error("Summary is empty, want the compaction digest")
	}
	// Cutting m1 alone brings the history under budget in one pass, so
	// the rest of the seed survives.
	found := map[string]bool{}
	for _, msg := range state.Messages {
		found[msg.ID] = true
	}
	if found["m1"] {
		t.Error("message m1 survived compaction")
	}
	if !found["m2"] || !found["m3"] {
		t.Errorf("kept messages = %v, want m2 and m3 retained", found)
	}
}

func seedMessage(id, role string, tokens int) llm.ChatMessage {
	return llm.ChatMessage{ID: id, Role: role, Content: strings.Repeat("y", tokens)}
}

// ceilingProvider always requests tools from the decide call.
type ceilingProvider struct {
	toolRounds  int
	formatCalls int
}

func (p *ceilingProvider) Name() string  { return "ceiling" }
func (p *ceilingProvider) Model() string { return "stub-model" }

func (p *ceilingProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	return llm.LLMResponse{Content: "summary"}, nil
}

func (p *ceilingProvider) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, format *llm.ResponseFormat) (llm.LLMResponse, error) {
	p.formatCalls++
	return llm.LLMResponse{Content: `{"answer":"partial","source":[]}`}, nil
}

func (p *ceilingProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
	p.toolRounds++
	return llm.LLMResponse{
		ToolCalls: []llm.ToolCall{
			{ID: fmt.Sprintf("call-%d", p.toolRounds), Name: "stub_expert", Arguments: json.RawMessage(`{}`)},
		},
	}, nil
}
