package storage

import (
	"context"
	"testing"

	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/model"
)

func newTestSqlite(t *testing.T) *SqliteStore {
	t.Helper()
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create in-memory SQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSqliteStoreRoundTrip(t *testing.T) {
	store := newTestSqlite(t)
	ctx := context.Background()

	summary := "earlier discussion about geology"
	delta := Delta{
		Append: []llm.ChatMessage{
			{ID: "m1", Role: "user", Content: "what is a fault line?"},
			{
				ID:      "m2",
				Role:    "assistant",
				Content: "",
				ToolCalls: []llm.ToolCall{
					{ID: "call-1", Name: "knowledge_base", Arguments: []byte(`{"task":"fault line"}`)},
				},
			},
			{ID: "m3", Role: "tool", Content: "a fracture between rock blocks", ToolCallID: "call-1"},
		},
		Summary: &summary,
		Receipt: &model.Receipt{
			Reason: "retrieval question",
			Answer: "A fault line is a fracture between blocks of rock.",
			Source: []string{"geology.txt"},
		},
	}

	if err := store.Merge(ctx, "thread-a", delta); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	state, err := store.Load(ctx, "thread-a")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(state.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(state.Messages))
	}
	if len(state.Messages[1].ToolCalls) != 1 || state.Messages[1].ToolCalls[0].Name != "knowledge_base" {
		t.Errorf("tool calls did not round-trip: %+v", state.Messages[1].ToolCalls)
	}
	if state.Messages[2].ToolCallID != "call-1" {
		t.Errorf("tool_call_id did not round-trip: %q", state.Messages[2].ToolCallID)
	}
	if state.Summary != summary {
		t.Errorf("expected summary %q, got %q", summary, state.Summary)
	}
	if state.Receipt == nil || len(state.Receipt.Source) != 1 {
		t.Errorf("receipt did not round-trip: %+v", state.Receipt)
	}
}

func TestSqliteStoreDeleteByIDKeepsOrder(t *testing.T) {
	store := newTestSqlite(t)
	ctx := context.Background()

	if err := store.Merge(ctx, "thread-a", Delta{
		Append: []llm.ChatMessage{
			{ID: "m1", Role: "user", Content: "one"},
			{ID: "m2", Role: "assistant", Content: "two"},
			{ID: "m3", Role: "user", Content: "three"},
			{ID: "m4", Role: "assistant", Content: "four"},
		},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if err := store.Merge(ctx, "thread-a", Delta{
		DeleteIDs: []string{"m1", "m2"},
		Append:    []llm.ChatMessage{{ID: "m5", Role: "user", Content: "five"}},
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	state, err := store.Load(ctx, "thread-a")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"m3", "m4", "m5"}
	if len(state.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(state.Messages))
	}
	for i, id := range want {
		if state.Messages[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, state.Messages[i].ID)
		}
	}
}

func TestSqliteStoreLoadNonexistentThread(t *testing.T) {
	store := newTestSqlite(t)
	ctx := context.Background()

	state, err := store.Load(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(state.Messages) != 0 || state.Summary != "" || state.Receipt != nil {
		t.Errorf("expected zero state, got %+v", state)
	}
}

func TestSqliteStoreListAndDelete(t *testing.T) {
	store := newTestSqlite(t)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2"} {
		if err := store.Merge(ctx, id, Delta{
			Append: []llm.ChatMessage{{ID: id + "-m1", Role: "user", Content: "hi"}},
		}); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
	}

	threads, err := store.ListThreads(ctx)
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(threads))
	}

	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	threads, err = store.ListThreads(ctx)
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 1 || threads[0] != "t2" {
		t.Errorf("expected only t2 to remain, got %v", threads)
	}
}
